package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/shop"
	"github.com/mesh-intelligence/shopkeeper/internal/store"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// standardTables is what migrate copies.
var standardTables = types.StandardTableNames

func newMigrateCmd(a *app) *cobra.Command {
	var to, toDir string
	cmd := &cobra.Command{
		Use:   "migrate --to <backend> [--to-dir dir]",
		Short: "Copy every table to another storage backend",
		Long: "Copy the NPC and item tables, with their id counters, from the configured\n" +
			"backend to another one. Tables in the target are replaced.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			src := a.settings.storeConfig()
			dst := types.Config{Backend: to, DataDir: src.DataDir}
			if toDir != "" {
				abs, err := filepath.Abs(toDir)
				if err != nil {
					return shop.ErrStorage("resolving target dir", err)
				}
				dst.DataDir = abs
			}
			if err := dst.Validate(); err != nil {
				return shop.ErrValidation(fmt.Sprintf("Unknown backend %q. Use jsonl, sqlite or memory.", to))
			}
			if dst.Backend == src.Backend && dst.DataDir == src.DataDir {
				return shop.ErrValidation("Source and target are the same storage.")
			}

			counts, err := migrate(src, dst)
			if err != nil {
				return err
			}

			c := card.Confirmation("Migration complete",
				fmt.Sprintf("Copied %s in %s to %s in %s.", src.Backend, src.DataDir, dst.Backend, dst.DataDir))
			for _, name := range standardTables {
				c.Fields = append(c.Fields, card.Field{Label: name, Value: strconv.Itoa(counts[name])})
			}
			_, err = delivery.NewConsole(a.out, a.flags.jsonMode).Send(context.Background(), delivery.Message{Card: c})
			return err
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target backend: jsonl, sqlite or memory")
	cmd.Flags().StringVar(&toDir, "to-dir", "", "target data directory (default: the current one)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func migrate(src, dst types.Config) (map[string]int, error) {
	from, err := store.OpenMedium(src)
	if err != nil {
		return nil, shop.ErrStorage("opening source", err)
	}
	defer from.Close()

	to, err := store.OpenMedium(dst)
	if err != nil {
		return nil, shop.ErrStorage("opening target", err)
	}
	defer to.Close()

	counts, err := store.Copy(from, to, standardTables)
	if err != nil {
		return counts, shop.ErrStorage("copying tables", err)
	}
	return counts, nil
}
