package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/finledger/finledger/internal/cache"
	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/events"
	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/repository"
	"github.com/finledger/finledger/internal/service"
)

// app carries the process dependencies shared by every command.
type app struct {
	open func(ctx context.Context) (repository.Store, error)
	out  io.Writer
}

func newApp() *app {
	return &app{open: openStore, out: os.Stdout}
}

type migrateCmd struct {
	*app
	down bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply or roll back the embedded schema migrations" }
func (*migrateCmd) Usage() string {
	return `ledgerctl migrate [-down]

  Applies every pending migration for DATABASE_DRIVER at DATABASE_URL.
  With -down, rolls every applied migration back.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.down, "down", false, "Roll back all migrations instead of applying them.")
}

func (c *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.down {
		err = repository.MigrateDown(cfg.DatabaseDriver, cfg.DatabaseURL)
	} else {
		err = repository.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, "migrations complete")
	return subcommands.ExitSuccess
}

type createUserCmd struct {
	*app
	name     string
	password string
}

func (*createUserCmd) Name() string     { return "create-user" }
func (*createUserCmd) Synopsis() string { return "register a user and print its id" }
func (*createUserCmd) Usage() string {
	return `ledgerctl create-user -name <name> -password <password>

  Registers a user directly in the record store. The printed id is the
  token clients send as "Authorization: Bearer <id>".
`
}

func (c *createUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Display name of the user.")
	f.StringVar(&c.password, "password", "", "Credential, 8 to 128 characters.")
}

func (c *createUserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	store, err := c.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	id, err := service.NewUserService(store, slog.Default()).Register(ctx, c.name, c.password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, id)
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	*app
	user  string
	start string
	end   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print a user's income, expense and balance" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary -user <id> [-s <start_date> -e <end_date>]

  Prints the summary as JSON. Dates use YYYY-MM-DD and apply only when
  both are given.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "Id of the ledger owner.")
	f.StringVar(&c.start, "s", "", "First day of the range, inclusive.")
	f.StringVar(&c.end, "e", "", "Last day of the range, inclusive.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		return subcommands.ExitUsageError
	}

	var dr *model.DateRange
	if c.start != "" && c.end != "" {
		start, err := model.ParseDate(c.start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
		end, err := model.ParseDate(c.end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
			return subcommands.ExitUsageError
		}
		dr = &model.DateRange{Start: start, End: end}
	}

	store, err := c.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	owner, err := store.GetUser(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown user %q: %v\n", c.user, err)
		return subcommands.ExitFailure
	}

	summary, err := service.NewAggregationService(store, nil).Summarize(ctx, owner, dr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.ToSummaryResponse(summary)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type eventsCmd struct {
	*app
	group    string
	consumer string
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "follow the ledger event stream in Redis" }
func (*eventsCmd) Usage() string {
	return `ledgerctl events [-group <name>] [-consumer <name>]

  Reads change events published with EVENTS_BACKEND=redis and prints one
  JSON document per line until interrupted. Entries are acknowledged in
  the consumer group once printed.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.group, "group", events.DefaultConsumerGroup, "Consumer group to read through.")
	f.StringVar(&c.consumer, "consumer", "", "Consumer name within the group (defaults to host and pid).")
}

func (c *eventsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if cfg.RedisURL == "" {
		fmt.Fprintln(os.Stderr, "REDIS_URL is required")
		return subcommands.ExitFailure
	}

	client, err := cache.Dial(ctx, cfg.RedisURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	consumer := c.consumer
	if consumer == "" {
		consumer = consumerName()
	}

	enc := json.NewEncoder(c.out)
	stream := events.NewStreamConsumer(client, c.group, consumer, func(_ context.Context, e events.Event) error {
		return enc.Encode(e)
	}, slog.Default())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := stream.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// consumerName identifies this process within the group.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "ledgerctl"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func openStore(ctx context.Context) (repository.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseDriver == repository.DriverMemory {
		return nil, fmt.Errorf("driver %q keeps no data between runs", cfg.DatabaseDriver)
	}
	return repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
}
