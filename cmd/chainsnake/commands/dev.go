package commands

import (
	"math/big"
	"time"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	devPlayers   = 1
	devFood      = 3
	devFoodScore = uint64(50)
	devLatency   = 50 * time.Millisecond
	devSeed      = time.Now().UnixNano()
)

func init() {
	devCmd.Flags().IntVarP(&devPlayers, "players", "n", devPlayers, "number of generated identities")
	devCmd.Flags().IntVar(&devFood, "food", devFood, "food items on each board")
	devCmd.Flags().Uint64Var(&devFoodScore, "food-score", devFoodScore, "points per food item")
	devCmd.Flags().DurationVar(&devLatency, "latency", devLatency, "simulated time to finality")
	devCmd.Flags().Int64Var(&devSeed, "seed", devSeed, "food placement seed")
	devCmd.Flags().AddFlagSet(agentFlags())
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "plays the game against an in-memory chain",
	Run: func(c *cobra.Command, args []string) {
		if err := playDev(); err != nil {
			log.WithError(err).Fatal("agent failed")
		}
	},
}

func playDev() error {
	tiers, err := config.Tiers("")
	if err != nil {
		return err
	}
	board, err := config.Board()
	if err != nil {
		return err
	}
	m := chain.NewInMem(chain.InMemOptions{
		Board:     board,
		Tiers:     tiers,
		FoodCount: devFood,
		FoodScore: devFoodScore,
		Latency:   devLatency,
		Seed:      devSeed,
	})

	var ids []*chain.Identity
	for i := 0; i < devPlayers; i++ {
		id, err := chain.GenerateIdentity()
		if err != nil {
			return err
		}
		m.Fund(id.Address, big.NewInt(1e18))
		ids = append(ids, id)
	}

	return runAgent(chain.Instrument(m), ids, tiers)
}
