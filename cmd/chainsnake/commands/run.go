package commands

import (
	"context"
	"os"
	"time"

	"github.com/battlesnakeio/chainsnake/chain"
	"github.com/battlesnakeio/chainsnake/config"
	"github.com/battlesnakeio/chainsnake/credentials"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	rpcURL          = config.RPCURL
	gameContract    = config.GameContract
	rewardContracts = config.RewardContracts
	credentialsPath = credentials.DefaultPath()
	keyFiles        []string
)

func init() {
	runCmd.Flags().StringVar(&rpcURL, "rpc-url", rpcURL, "JSON-RPC endpoint of the chain")
	runCmd.Flags().StringVar(&gameContract, "game-contract", gameContract, "address of the game contract")
	runCmd.Flags().StringVar(&rewardContracts, "reward-contracts", rewardContracts, "comma separated reward contract addresses, ascending class")
	runCmd.Flags().StringVar(&credentialsPath, "credentials", credentialsPath, "credential file of the primary identity")
	runCmd.Flags().StringArrayVar(&keyFiles, "key-file", nil, "credential file of an additional identity, may be repeated")
	runCmd.Flags().AddFlagSet(agentFlags())
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "plays the game on a real chain",
	Run: func(c *cobra.Command, args []string) {
		if err := playOnChain(); err != nil {
			log.WithError(err).Fatal("agent failed")
		}
	},
}

func loadIdentities() ([]*chain.Identity, error) {
	primary, err := credentials.GetOrCreate(credentialsPath, credentials.Terminal{In: os.Stdin, Out: os.Stderr})
	if err != nil {
		return nil, err
	}
	ids := []*chain.Identity{primary}
	for _, path := range keyFiles {
		id, err := credentials.Load(path)
		if err != nil {
			return nil, errors.Wrapf(err, "key file %s", path)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func playOnChain() error {
	if !common.IsHexAddress(gameContract) {
		return errors.Errorf("game contract %q is not an address", gameContract)
	}
	if rewardContracts == "" {
		return errors.New("reward contracts are required")
	}
	tiers, err := config.Tiers(rewardContracts)
	if err != nil {
		return err
	}

	ids, err := loadIdentities()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	eth, err := chain.Dial(ctx, rpcURL, chain.EthOptions{
		GameContract:    common.HexToAddress(gameContract),
		Tiers:           tiers,
		GasLimit:        config.GasLimit,
		FinalityTimeout: finality,
		Confirmations:   config.Confirmations,
	})
	if err != nil {
		return errors.Wrapf(err, "dial %s", rpcURL)
	}

	gateway := chain.Instrument(chain.Throttle(eth, rate.NewLimiter(config.RPCRate, config.RPCBurst)))
	return runAgent(gateway, ids, tiers)
}
