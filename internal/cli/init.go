package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/paths"
	"github.com/mesh-intelligence/shopkeeper/internal/shop"
	"github.com/mesh-intelligence/shopkeeper/internal/store"
)

func newInitCmd(a *app) *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Initialize shopkeeper storage",
		Long:        "Record the backend and data directory in config.yaml, then create the storage.",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend != "" {
				a.settings.Backend = backend
			}
			cfg := a.settings.storeConfig()
			if err := cfg.Validate(); err != nil {
				return shop.ErrValidation(fmt.Sprintf("Unknown backend %q. Use jsonl, sqlite or memory.", cfg.Backend))
			}

			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return shop.ErrStorage("resolving config dir", err)
			}
			if err := updateConfigFile(filepath.Join(configDir, configFileExt), map[string]string{
				cfgKeyBackend: cfg.Backend,
				cfgKeyDataDir: cfg.DataDir,
			}); err != nil {
				return shop.ErrStorage("writing config", err)
			}

			b := store.NewBackend()
			if err := b.Attach(cfg); err != nil {
				return shop.ErrStorage("initializing storage", err)
			}
			if err := b.Detach(); err != nil {
				return shop.ErrStorage("finalizing storage", err)
			}

			c := card.Confirmation("Shopkeeper initialized",
				fmt.Sprintf("Backend %s in %s.", cfg.Backend, cfg.DataDir))
			_, err = delivery.NewConsole(a.out, a.flags.jsonMode).Send(context.Background(), delivery.Message{Card: c})
			return err
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "", "storage backend: jsonl, sqlite or memory")
	return cmd
}

// updateConfigFile sets top-level scalar keys in a YAML file, keeping its
// comments and the order of existing keys. New keys are appended.
func updateConfigFile(path string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", path)
	}

	for _, key := range slices.Sorted(maps.Keys(values)) {
		setMappingValue(root, key, values[key])
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func setMappingValue(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}
