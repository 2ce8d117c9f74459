// Command asyncagent is a command line client for the Async Agent API. It
// submits runs, inspects and cancels them, tails run event streams, and
// dumps the agent discovery card.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
