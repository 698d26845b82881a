// Package config holds process-wide, read-only settings. Values come from the
// environment with defaults; command flags may override them at startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Configuration variables. These aren't user facing but useful for tuning the
// agent against a particular RPC provider.
var (
	RPCURL          = getEnvString("CHAINSNAKE_RPC_URL", "http://127.0.0.1:8545")
	GameContract    = getEnvString("CHAINSNAKE_GAME_CONTRACT", "")
	RewardContracts = getEnvString("CHAINSNAKE_REWARD_CONTRACTS", "")
	GasLimit        = uint64(getEnvInt("CHAINSNAKE_GAS_LIMIT", 300000))
	FinalityTimeout = getEnvDuration("CHAINSNAKE_FINALITY_TIMEOUT", 2*time.Minute)
	Confirmations   = uint64(getEnvInt("CHAINSNAKE_CONFIRMATIONS", 0))
	CycleDelay      = getEnvDuration("CHAINSNAKE_CYCLE_DELAY", 2*time.Second)
	RPCRate         = rate.Limit(getEnvInt("CHAINSNAKE_RPC_RPS", 10))
	RPCBurst        = getEnvInt("CHAINSNAKE_RPC_BURST", 5)
	BoardWidth      = getEnvInt("CHAINSNAKE_BOARD_WIDTH", game.DefaultBoard.Width)
	BoardHeight     = getEnvInt("CHAINSNAKE_BOARD_HEIGHT", game.DefaultBoard.Height)
)

// TierCount is the number of reward contracts, class TierCount is terminal.
const TierCount = 10

// TierThreshold is the score required for a tier class.
func TierThreshold(class int) uint64 {
	return uint64(class) * 100
}

// Board returns the configured board extent. Both sides must be positive.
func Board() (game.Board, error) {
	if BoardWidth <= 0 || BoardHeight <= 0 {
		return game.Board{}, errors.Errorf("config: board must be positive, got %dx%d", BoardWidth, BoardHeight)
	}
	return game.Board{Width: BoardWidth, Height: BoardHeight}, nil
}

// Tiers builds the reward tier table from the comma separated contract
// addresses, in ascending class order. An empty list yields zero addresses,
// which is only useful against the in-memory chain.
func Tiers(contracts string) (game.Tiers, error) {
	var addrs []string
	if strings.TrimSpace(contracts) != "" {
		addrs = strings.Split(contracts, ",")
		if len(addrs) != TierCount {
			return game.Tiers{}, errors.Errorf("config: want %d reward contracts, got %d", TierCount, len(addrs))
		}
	}
	list := make([]game.Tier, 0, TierCount)
	for i := 0; i < TierCount; i++ {
		t := game.Tier{Class: i + 1, Threshold: TierThreshold(i + 1)}
		if addrs != nil {
			a := strings.TrimSpace(addrs[i])
			if !common.IsHexAddress(a) {
				return game.Tiers{}, errors.Errorf("config: reward contract %d is not an address: %q", i+1, a)
			}
			t.Contract = common.HexToAddress(a)
		}
		list = append(list, t)
	}
	return game.NewTiers(list...)
}

func getEnvString(varName, defaults string) string {
	val := os.Getenv(varName)
	if val == "" {
		return defaults
	}
	return val
}

func getEnvInt(varName string, defaults int) int {
	val := os.Getenv(varName)
	if val == "" {
		return defaults
	}
	intVal, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return defaults
	}
	return int(intVal)
}

func getEnvDuration(varName string, defaults time.Duration) time.Duration {
	val := os.Getenv(varName)
	if val == "" {
		return defaults
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaults
	}
	return d
}
