package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	asyncagent "github.com/ugmurthy/asyncAgent"
	"github.com/ugmurthy/asyncAgent/config"
)

var (
	flagConfig   string
	flagEndpoint string
	flagToken    string
	flagDebug    bool
)

var rootCmd = &cobra.Command{
	Use:           "asyncagent",
	Short:         "Client for the Async Agent API",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "configuration file (YAML)")
	pf.StringVar(&flagEndpoint, "endpoint", "", "API endpoint (overrides config)")
	pf.StringVar(&flagToken, "token", "", "bearer token (overrides config)")
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

// cmdContext builds the logging context shared by all commands.
func cmdContext() context.Context {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if flagDebug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

// newClient loads the configuration and constructs the API client honoring
// the global flag overrides.
func newClient() (*asyncagent.Client, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagEndpoint != "" {
		cfg.Endpoint = flagEndpoint
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}
	return cfg.Client()
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
