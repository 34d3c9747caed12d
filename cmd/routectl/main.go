// Command routectl runs the routing control plane: the HTTP API server, the
// three event log consumer groups, and the schema migration tool, each as a
// distinct subcommand sharing the same configuration loader.
package main

import (
	"log"
	"os"

	"routectl.dev/cmd/routectl/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
