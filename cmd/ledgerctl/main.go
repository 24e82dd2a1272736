// Command ledgerctl runs maintenance tasks against the record store.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	a := newApp()
	commander.Register(&migrateCmd{app: a}, "store")
	commander.Register(&createUserCmd{app: a}, "users")
	commander.Register(&summaryCmd{app: a}, "reports")
	commander.Register(&eventsCmd{app: a}, "events")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
