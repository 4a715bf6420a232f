package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"timepay.uz/crm/internal/app"
	"timepay.uz/crm/internal/config"
	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
	"timepay.uz/crm/internal/session"
	"timepay.uz/crm/internal/telemetry"
)

var version = "0.1.0"

const usageText = `usage: timepay <command> [flags]

commands:
  login -phone <number> [-password <pw>]   sign in (password may come from TIMEPAY_PASSWORD)
  logout                                   forget the stored session
  whoami                                   show the signed-in user and branch
  list <page> [-as id] [-q text]           employees|devices|shifts|break|work-days|day-offs|
                                           filial|telegram|subscriptions|plans|notifications
  read <notification id>                   mark a notification as read
  sync events|employees                    pull data from the devices
  report daily|absent [-date YYYY-MM-DD]
  report monthly -year Y -month M [-out dir]
  report export [-date D] [-out dir] [-archive] [-mail-to addr,...]
  report show <file.xlsx|file.xls|file.csv>
  branch select <id> <name> | branch clear | branch list
  shift-duration <HH:MM> <HH:MM>
`

var errUsage = errors.New("invalid usage")

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	shutdownTracing := telemetry.Setup(ctx, "timepay-cli", version, cfg.OTLPEndpoint, cfg.OTLPInsecure)
	defer func() { _ = shutdownTracing(context.Background()) }()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("wire: %v", err)
	}
	defer func() { _ = a.Close() }()

	err = run(ctx, a, os.Args[1:], os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "%v\n\n%s", err, usageText)
		os.Exit(2)
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(os.Stderr, "Avval tizimga kiring: timepay login -phone <raqam>")
		os.Exit(1)
	default:
		obs.Error("command_failed", map[string]any{"command": os.Args[1], "error": err.Error()})
		fmt.Fprintln(os.Stderr, crm.UserMessage(err))
		os.Exit(1)
	}
}

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

// run dispatches one command. It is separate from main so tests can drive it
// against an in-memory App.
func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageErr("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return cmdLogin(ctx, a, rest, out)
	case "shift-duration":
		return cmdShiftDuration(rest, out)
	case "report":
		if len(rest) > 0 && rest[0] == "show" {
			return cmdReport(ctx, a, rest, out)
		}
	case "help", "-h", "--help":
		_, err := fmt.Fprint(out, usageText)
		return err
	case "logout", "whoami", "list", "read", "sync", "branch":
	default:
		return usageErr("unknown command %q", cmd)
	}

	if _, err := a.Session.Restore(ctx); err != nil {
		return err
	}
	switch cmd {
	case "logout":
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "Tizimdan chiqildi")
		return err
	case "whoami":
		return cmdWhoami(ctx, a, out)
	case "list":
		return cmdList(ctx, a, rest, out)
	case "read":
		return cmdRead(ctx, a, rest, out)
	case "sync":
		return cmdSync(ctx, a, rest, out)
	case "branch":
		return cmdBranch(ctx, a, rest, out)
	default: // report
		return cmdReport(ctx, a, rest, out)
	}
}
