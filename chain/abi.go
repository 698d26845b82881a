package chain

import (
	"strings"

	"github.com/battlesnakeio/chainsnake/game"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

const gameABIJSON = `[
  {"type":"function","name":"startGame","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"move","stateMutability":"nonpayable","inputs":[{"name":"direction","type":"uint8"}],"outputs":[]},
  {"type":"function","name":"getScore","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMoveCount","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getHead","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"x","type":"uint8"},{"name":"y","type":"uint8"}]},
  {"type":"function","name":"getFood","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"tuple[]","components":[{"name":"x","type":"uint8"},{"name":"y","type":"uint8"}]}]}
]`

const rewardABIJSON = `[
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"hasMinted","stateMutability":"view","inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	gameABI   = mustParseABI(gameABIJSON)
	rewardABI = mustParseABI(rewardABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// foodPoint mirrors the tuple returned by getFood.
type foodPoint struct {
	X uint8
	Y uint8
}

// directionCode is the uint8 the game contract expects for each direction.
func directionCode(d game.Direction) (uint8, bool) {
	switch d {
	case game.Up:
		return 0, true
	case game.Down:
		return 1, true
	case game.Left:
		return 2, true
	case game.Right:
		return 3, true
	}
	return 0, false
}
