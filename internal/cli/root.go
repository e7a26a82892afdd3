// Package cli implements the shopkeeper command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/shop"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// annotationNoStore marks commands that run without an attached store.
const annotationNoStore = "shopkeeper/no-store"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	actor     string
	perms     []string
	channel   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "shopkeeper" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{errOut: os.Stderr})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:     "shopkeeper",
		Short:   "Manage NPC shops and the items they sell",
		Long:    "Shopkeeper stores NPC shopkeepers and items, renders them as cards,\nand answers NPC invocations per channel.",
		Version: Version,
		// Do not print usage or errors; Execute reports them.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			a.out = cmd.OutOrStdout()
			if a.errOut == nil {
				a.errOut = cmd.ErrOrStderr()
			}
			if err := a.loadSettings(); err != nil {
				return err
			}
			if cmd.Annotations[annotationNoStore] != "" {
				return nil
			}
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.shopkeeper-db)")
	pf.StringVar(&a.flags.actor, "actor", "", "acting user id (default: actor from config.yaml)")
	pf.StringSliceVar(&a.flags.perms, "perm", nil, "permission held by the actor (repeatable)")
	pf.StringVar(&a.flags.channel, "channel", "", "channel the command is issued from")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newNPCCmd(a))
	root.AddCommand(newItemCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newConsoleCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	a := &app{errOut: os.Stderr}
	root := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := root.ExecuteContext(ctx)
	stop()

	// PersistentPostRunE is skipped when RunE fails.
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		reportError(os.Stderr, a.flags.jsonMode, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status. Uncoded errors come from
// argument parsing and count as user errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case shop.Code(err) == "":
		return exitUserError
	case shop.IsSystemError(err):
		return exitSysError
	default:
		return exitUserError
	}
}

// reportError writes err as an error card. Uncoded errors keep their text.
func reportError(w io.Writer, jsonMode bool, err error) {
	c := shop.ErrorCard(err)
	if shop.Code(err) == "" {
		c = card.Error(err.Error())
	}
	if _, sendErr := delivery.NewConsole(w, jsonMode).Send(context.Background(), delivery.Message{Card: c, Ephemeral: true}); sendErr != nil {
		fmt.Fprintln(w, err)
	}
}
