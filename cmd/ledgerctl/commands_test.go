package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/auth"
	"github.com/finledger/finledger/internal/events"
	"github.com/finledger/finledger/internal/handler/dto"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/repository"
	"github.com/finledger/finledger/internal/testutil"
)

// newTestApp points commands at one in-memory store shared across calls.
func newTestApp(t *testing.T) (*app, *repository.Memory, *bytes.Buffer) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", repository.DriverMemory)
	t.Setenv("EVENTS_BACKEND", "none")

	store := repository.NewMemory()
	out := &bytes.Buffer{}
	a := &app{
		open: func(context.Context) (repository.Store, error) { return store, nil },
		out:  out,
	}
	return a, store, out
}

func TestCommands_SetFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cmd   subcommands.Command
		args  []string
		check func(t *testing.T, cmd subcommands.Command)
	}{
		{
			name: "migrate defaults",
			cmd:  &migrateCmd{},
			check: func(t *testing.T, cmd subcommands.Command) {
				if cmd.(*migrateCmd).down {
					t.Error("down = true, want false")
				}
			},
		},
		{
			name: "migrate down",
			cmd:  &migrateCmd{},
			args: []string{"-down"},
			check: func(t *testing.T, cmd subcommands.Command) {
				if !cmd.(*migrateCmd).down {
					t.Error("down = false, want true")
				}
			},
		},
		{
			name: "create-user",
			cmd:  &createUserCmd{},
			args: []string{"-name", "Alice", "-password", "correct horse"},
			check: func(t *testing.T, cmd subcommands.Command) {
				c := cmd.(*createUserCmd)
				if c.name != "Alice" || c.password != "correct horse" {
					t.Errorf("name, password = %q, %q", c.name, c.password)
				}
			},
		},
		{
			name: "summary with range",
			cmd:  &summaryCmd{},
			args: []string{"-user", "u1", "-s", "2024-01-01", "-e", "2024-01-31"},
			check: func(t *testing.T, cmd subcommands.Command) {
				c := cmd.(*summaryCmd)
				if c.user != "u1" || c.start != "2024-01-01" || c.end != "2024-01-31" {
					t.Errorf("user, start, end = %q, %q, %q", c.user, c.start, c.end)
				}
			},
		},
		{
			name: "events defaults",
			cmd:  &eventsCmd{},
			check: func(t *testing.T, cmd subcommands.Command) {
				c := cmd.(*eventsCmd)
				if c.group != events.DefaultConsumerGroup {
					t.Errorf("group = %q, want %q", c.group, events.DefaultConsumerGroup)
				}
				if c.consumer != "" {
					t.Errorf("consumer = %q, want empty", c.consumer)
				}
			},
		},
		{
			name: "events named consumer",
			cmd:  &eventsCmd{},
			args: []string{"-group", "audit", "-consumer", "worker-1"},
			check: func(t *testing.T, cmd subcommands.Command) {
				c := cmd.(*eventsCmd)
				if c.group != "audit" || c.consumer != "worker-1" {
					t.Errorf("group, consumer = %q, %q", c.group, c.consumer)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := flag.NewFlagSet(tt.cmd.Name(), flag.ContinueOnError)
			tt.cmd.SetFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.check(t, tt.cmd)
		})
	}
}

func TestCommands_UnknownFlag(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	(&summaryCmd{}).SetFlags(fs)
	if err := fs.Parse([]string{"-month", "3"}); err == nil {
		t.Fatal("Parse() error = nil, want unknown flag error")
	}
}

func TestCreateUserCmd_Execute(t *testing.T) {
	a, store, out := newTestApp(t)
	ctx := context.Background()

	cmd := &createUserCmd{app: a, name: "Alice", password: "correct horse"}
	if status := cmd.Execute(ctx, nil); status != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want ExitSuccess", status)
	}

	id := strings.TrimSpace(out.String())
	if id == "" {
		t.Fatal("no id printed")
	}
	user, err := store.GetUser(ctx, id)
	if err != nil {
		t.Fatalf("GetUser(%q) error = %v", id, err)
	}
	if user.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", user.Name)
	}
	ok, err := auth.VerifyCredential("correct horse", user.CredentialHash)
	if err != nil || !ok {
		t.Errorf("VerifyCredential() = %v, %v; want true, nil", ok, err)
	}
}

func TestCreateUserCmd_ExecuteRejectsInput(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		password string
	}{
		{name: "short password", userName: "Alice", password: "short"},
		{name: "missing password", userName: "Alice"},
		{name: "missing name", password: "correct horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, out := newTestApp(t)
			cmd := &createUserCmd{app: a, name: tt.userName, password: tt.password}
			if status := cmd.Execute(context.Background(), nil); status != subcommands.ExitFailure {
				t.Errorf("Execute() = %v, want ExitFailure", status)
			}
			if out.Len() != 0 {
				t.Errorf("stdout = %q, want empty", out.String())
			}
		})
	}
}

func TestSummaryCmd_Execute(t *testing.T) {
	a, store, _ := newTestApp(t)
	ctx := context.Background()

	owner := testutil.NewTestUser(t)
	if err := store.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	salary := testutil.NewTestTransaction(t, owner.ID)
	salary.Kind = model.KindIncome
	salary.Category = "Salary"
	salary.Amount = decimal.RequireFromString("1000")
	salary.Date = model.NewDate(2024, 1, 31)

	rent := testutil.NewTestTransaction(t, owner.ID)
	rent.Amount = decimal.RequireFromString("400.25")
	rent.Date = model.NewDate(2024, 1, 5)

	lunch := testutil.NewTestTransaction(t, owner.ID)

	for _, tx := range []*model.Transaction{salary, rent, lunch} {
		if err := store.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	tests := []struct {
		name  string
		start string
		end   string
		want  dto.SummaryResponse
	}{
		{
			name: "all time",
			want: dto.SummaryResponse{Income: "1000.00", Expense: "442.75", Balance: "557.25"},
		},
		{
			name:  "january",
			start: "2024-01-01",
			end:   "2024-01-31",
			want:  dto.SummaryResponse{Income: "1000.00", Expense: "400.25", Balance: "599.75"},
		},
		{
			name:  "start only is ignored",
			start: "2024-03-01",
			want:  dto.SummaryResponse{Income: "1000.00", Expense: "442.75", Balance: "557.25"},
		},
		{
			name:  "empty range",
			start: "2023-01-01",
			end:   "2023-12-31",
			want:  dto.SummaryResponse{Income: "0.00", Expense: "0.00", Balance: "0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cmd := &summaryCmd{app: &app{open: a.open, out: out}, user: owner.ID, start: tt.start, end: tt.end}
			if status := cmd.Execute(ctx, nil); status != subcommands.ExitSuccess {
				t.Fatalf("Execute() = %v, want ExitSuccess", status)
			}

			var got dto.SummaryResponse
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("decode %q: %v", out.String(), err)
			}
			if got != tt.want {
				t.Errorf("summary = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSummaryCmd_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		start  string
		end    string
		status subcommands.ExitStatus
	}{
		{name: "missing user", status: subcommands.ExitUsageError},
		{name: "bad start", user: "u1", start: "2024-13-01", end: "2024-12-31", status: subcommands.ExitUsageError},
		{name: "bad end", user: "u1", start: "2024-01-01", end: "tomorrow", status: subcommands.ExitUsageError},
		{name: "unknown user", user: "nobody", status: subcommands.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, out := newTestApp(t)
			cmd := &summaryCmd{app: a, user: tt.user, start: tt.start, end: tt.end}
			if status := cmd.Execute(context.Background(), nil); status != tt.status {
				t.Errorf("Execute() = %v, want %v", status, tt.status)
			}
			if out.Len() != 0 {
				t.Errorf("stdout = %q, want empty", out.String())
			}
		})
	}
}

func TestMigrateCmd_ExecuteMemory(t *testing.T) {
	a, _, out := newTestApp(t)

	cmd := &migrateCmd{app: a}
	if status := cmd.Execute(context.Background(), nil); status != subcommands.ExitSuccess {
		t.Fatalf("Execute() = %v, want ExitSuccess", status)
	}
	if got := strings.TrimSpace(out.String()); got != "migrations complete" {
		t.Errorf("stdout = %q, want %q", got, "migrations complete")
	}
}

func TestOpenStore_RejectsMemoryDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", repository.DriverMemory)
	t.Setenv("EVENTS_BACKEND", "none")

	store, err := openStore(context.Background())
	if err == nil {
		store.Close()
		t.Fatal("openStore() error = nil, want error for memory driver")
	}

	out := &bytes.Buffer{}
	cmd := &createUserCmd{app: &app{open: openStore, out: out}, name: "Alice", password: "correct horse"}
	if status := cmd.Execute(context.Background(), nil); status != subcommands.ExitFailure {
		t.Errorf("Execute() = %v, want ExitFailure", status)
	}
}

func TestEventsCmd_RequiresRedis(t *testing.T) {
	a, _, _ := newTestApp(t)
	t.Setenv("REDIS_URL", "")

	cmd := &eventsCmd{app: a, group: events.DefaultConsumerGroup}
	if status := cmd.Execute(context.Background(), nil); status != subcommands.ExitFailure {
		t.Errorf("Execute() = %v, want ExitFailure", status)
	}
}
