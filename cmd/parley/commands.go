package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loykin/parley/pkg/client"
)

const defaultAPIUrl = "http://127.0.0.1:8080/api"

func newAPIClient(apiUrl string, timeout time.Duration) (*client.Client, context.Context, context.CancelFunc, error) {
	if apiUrl == "" {
		apiUrl = defaultAPIUrl
	}
	c := client.New(client.Config{BaseURL: apiUrl, Timeout: timeout})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	if !c.IsReachable(ctx) {
		cancel()
		return nil, nil, nil, fmt.Errorf("daemon not reachable at %s - please start daemon first with 'parley serve'", apiUrl)
	}
	return c, ctx, cancel, nil
}

func runStart(f AgentFlags) error {
	c, ctx, cancel, err := newAPIClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}
	defer cancel()

	res, err := c.StartAgent(ctx, f.Room)
	if err != nil {
		return err
	}
	printJSON(res)
	return nil
}

func runStop(f AgentFlags) error {
	c, ctx, cancel, err := newAPIClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}
	defer cancel()

	stopped, err := c.StopAgent(ctx, f.Room)
	if err != nil {
		return err
	}
	if !stopped {
		fmt.Printf("no tracked agent for room %s\n", f.Room)
		return nil
	}
	fmt.Printf("stopped agent for room %s\n", f.Room)
	return nil
}

func runStatus(f AgentFlags) error {
	c, ctx, cancel, err := newAPIClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if f.Full {
		st, err := c.FullStatus(ctx, f.Room)
		if err != nil {
			return err
		}
		printJSON(st)
		return nil
	}
	st, err := c.Status(ctx, f.Room)
	if err != nil {
		return err
	}
	printJSON(st)
	return nil
}

func runList(f AgentFlags) error {
	c, ctx, cancel, err := newAPIClient(f.APIUrl, f.APITimeout)
	if err != nil {
		return err
	}
	defer cancel()

	list, err := c.ListAgents(ctx)
	if err != nil {
		return err
	}
	printJSON(list)
	return nil
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
