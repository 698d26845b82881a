// Package e2e drives a whole agent against the in-memory chain and checks
// what its status api and journal report.
package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/battlesnakeio/chainsnake/api"
)

type client struct {
	apiURL string
	client *http.Client
}

func (c *client) get(path string, out interface{}) error {
	resp, err := c.client.Get(c.apiURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) status() (*api.StatusResponse, error) {
	st := &api.StatusResponse{}
	return st, c.get("/status", st)
}

func (c *client) runStatus(runID string) (*api.RunResponse, *api.StatusResponse, error) {
	run := &api.RunResponse{}
	if err := c.get("/runs/"+runID, run); err != nil {
		return nil, nil, err
	}
	frames := &api.StatusResponse{}
	if err := c.get(fmt.Sprintf("/runs/%s/frames?limit=100000", runID), frames); err != nil {
		return nil, nil, err
	}
	return run, frames, nil
}
