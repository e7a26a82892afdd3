package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/internal/shop"
)

const consolePrompt = "shopkeeper> "

// sweepInterval is how often the console drops expired flows.
const sweepInterval = time.Second

func newConsoleCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run commands interactively",
		Long: "Read commands line by line. Lists stay open for next, prev and close,\n" +
			"and the flow commands create an NPC step by step. Type help for the\n" +
			"command list and exit to leave.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.interactive = true
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if metricsAddr != "" {
				addr, err := serveMetrics(ctx, metricsAddr, a.logger)
				if err != nil {
					return shop.ErrStorage("starting metrics endpoint", err)
				}
				a.logger.Info("serving metrics", "addr", addr)
			}

			go a.svc.Sessions().Run(ctx, sweepInterval, func(f session.Flow) {
				a.logger.Info("flow expired", "flow_id", f.FlowID, "actor", f.Actor, "kind", f.Kind)
			})

			return runConsole(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// runConsole executes one command per input line until EOF, exit, or ctx is
// done. Command failures are shown and do not end the session.
func runConsole(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	prompt := func() {}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		prompt = func() { fmt.Fprint(out, consolePrompt) }
	}

	scanner := bufio.NewScanner(in)
	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "exit", "quit":
			return nil
		default:
			if err := execLine(ctx, a, line, out); err != nil {
				if sendErr := a.fail(ctx, err); sendErr != nil {
					return sendErr
				}
			}
		}
		prompt()
	}
	if err := scanner.Err(); err != nil {
		return shop.ErrStorage("reading console input", err)
	}
	return nil
}

func execLine(ctx context.Context, a *app, line string, out io.Writer) error {
	words, err := splitLine(line)
	if err != nil {
		return err
	}
	shell := newShellCmd(a)
	shell.SetArgs(words)
	shell.SetIn(strings.NewReader(""))
	shell.SetOut(out)
	shell.SetErr(out)
	return shell.ExecuteContext(ctx)
}

// fail shows err to the actor as an error card.
func (a *app) fail(ctx context.Context, err error) error {
	if shop.Code(err) == "" {
		return a.show(ctx, card.Error(err.Error()))
	}
	return a.svc.Deliver(ctx, a.request(), card.Card{}, err)
}

// newShellCmd builds the command tree for one console line. It shares the
// app, so the store, the open browser and the open flow carry over between
// lines.
func newShellCmd(a *app) *cobra.Command {
	shell := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	shell.AddCommand(
		newNPCCmd(a),
		newItemCmd(a),
		newBrowseCmd(a, "next", paginate.ActionNext, "Show the next page"),
		newBrowseCmd(a, "prev", paginate.ActionPrevious, "Show the previous page"),
		newBrowseCmd(a, "close", paginate.ActionClose, "Close the open shop"),
		newFlowCmd(a),
		newChannelCmd(a),
		newActorCmd(a),
	)
	return shell
}

func newBrowseCmd(a *app, use, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.browser == nil {
				return shop.ErrValidation("Nothing is open. List or shop something first.")
			}
			c, err := a.browser.Handle(action)
			switch {
			case errors.Is(err, paginate.ErrInactive):
				return shop.ErrValidation("This view is no longer active. Run the command again.")
			case errors.Is(err, paginate.ErrUnknownAction):
				return shop.ErrValidation("That control is not available here.")
			case err != nil:
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newChannelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "channel [id]",
		Short: "Show or switch the channel commands are issued from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.flags.channel = args[0]
			}
			channel := a.request().ChannelID
			if channel == "" {
				channel = card.Unassigned
			}
			return a.show(cmd.Context(), card.Notice("Channel", channel))
		},
	}
}

func newActorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actor [id] [permission]...",
		Short: "Show or switch the acting user and their permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.flags.actor = args[0]
				a.flags.perms = append([]string(nil), args[1:]...)
			}
			actor := a.request().Actor
			body := actor.ID
			if len(actor.Permissions) > 0 {
				body += " (" + strings.Join(actor.Permissions, ", ") + ")"
			}
			return a.show(cmd.Context(), card.Notice("Actor", body))
		},
	}
}

// serveMetrics exposes the shop metrics on addr until ctx is done and returns
// the address it listens on.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) (string, error) {
	reg := prometheus.NewRegistry()
	shop.RegisterMetrics(reg)
	reg.MustRegister(collectors.NewGoCollector())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return ln.Addr().String(), nil
}
