package e2e

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/battlesnakeio/chainsnake/agent"
	"github.com/battlesnakeio/chainsnake/api"
	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/config"
	"github.com/battlesnakeio/chainsnake/executor"
	"github.com/battlesnakeio/chainsnake/game"
	"github.com/battlesnakeio/chainsnake/journal"
	"github.com/battlesnakeio/chainsnake/journal/filestore"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func newClient(url string) *client {
	return &client{
		apiURL: url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

var games = map[string]struct {
	board     game.Board
	players   int
	food      int
	foodScore uint64
	parallel  int
}{
	"Single":   {board: game.Board{Width: 10, Height: 10}, players: 1, food: 1, foodScore: 100},
	"Multi":    {board: game.Board{Width: 12, Height: 8}, players: 3, food: 2, foodScore: 250},
	"Parallel": {board: game.DefaultBoard, players: 4, food: 3, foodScore: 200, parallel: 4},
}

func TestE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("e2e runs full games")
	}
	tiers, err := config.Tiers("")
	require.NoError(t, err)

	for name, g := range games {
		t.Run(name, func(t *testing.T) {
			m := chain.NewInMem(chain.InMemOptions{
				Board:     g.board,
				Tiers:     tiers,
				FoodCount: g.food,
				FoodScore: g.foodScore,
				Seed:      42,
			})
			var ids []*chain.Identity
			for i := 0; i < g.players; i++ {
				id, err := chain.GenerateIdentity()
				require.NoError(t, err)
				m.Fund(id.Address, big.NewInt(1e18))
				ids = append(ids, id)
			}

			store := journal.InstrumentStore(filestore.NewFileStore(t.TempDir()))
			srv := api.New(":0", store)
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()
			gateway := chain.Instrument(m)

			a := &agent.Agent{
				Gateway:    gateway,
				Executor:   executor.New(gateway, time.Second),
				Identities: ids,
				Tiers:      tiers,
				Board:      g.board,
				Parallel:   g.parallel,
				Renderer:   srv,
				Journal:    store,
				RunID:      name,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			require.NoError(t, a.Run(ctx))

			c := newClient(ts.URL)
			st, err := c.status()
			require.NoError(t, err)
			require.Len(t, st.Frames, g.players)
			for _, f := range st.Frames {
				require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, f.Snapshot.MintedClasses(), spew.Sdump(f))
			}

			run, frames, err := c.runStatus(name)
			require.NoError(t, err)
			require.Equal(t, journal.RunComplete, run.Run.Status)
			require.Len(t, run.Frames, g.players)
			require.NotEmpty(t, frames.Frames)

			for _, id := range ids {
				s := m.State(id.Address)
				require.GreaterOrEqual(t, s.Score, config.TierThreshold(config.TierCount))
				require.Len(t, s.MintedClasses(), config.TierCount)
			}
			require.Equal(t, g.players*config.TierCount, m.Submitted(chain.OpMint))
		})
	}
}
