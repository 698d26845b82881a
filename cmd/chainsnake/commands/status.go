package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/battlesnakeio/chainsnake/api"
	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runID string
)

func init() {
	statusCmd.Flags().StringVarP(&runID, "run-id", "i", "", "show a journaled run instead of the live frames")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "gets the latest frames from a running agent",
	Run: func(*cobra.Command, []string) {
		path := "/status"
		var out interface{} = &api.StatusResponse{}
		if runID != "" {
			path = "/runs/" + runID
			out = &api.RunResponse{}
		}
		if err := getJSON(path, out); err != nil {
			log.WithError(err).Fatal("unable to get status")
		}
		spew.Dump(out)
	},
}

func getJSON(path string, out interface{}) error {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(strings.TrimSuffix(apiAddr, "/") + path)
	if err != nil {
		return errors.Wrap(err, "error while getting status")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status api: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		log.WithFields(log.Fields{
			"resp": string(data),
			"path": path,
		}).Info("unable to unmarshal status response")
		return err
	}
	return nil
}
