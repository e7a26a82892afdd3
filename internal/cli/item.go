package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/shop"
)

func newItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items",
	}
	cmd.AddCommand(
		newItemCreateCmd(a),
		newItemEditCmd(a),
		newItemListCmd(a),
		newItemShowCmd(a),
		newItemDeleteCmd(a),
	)
	return cmd
}

func newItemCreateCmd(a *app) *cobra.Command {
	var in shop.NewItem
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			c, err := a.svc.CreateItem(cmd.Context(), a.request(), in)
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "item description")
	cmd.Flags().StringVar(&in.Image, "image", "", "image reference")
	cmd.Flags().StringVar(&in.Category, "category", "", "item category")
	cmd.Flags().StringVar(&in.Properties, "properties", "", "properties as key:value;key:value")
	return cmd
}

func newItemEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <item> <field=value>...",
		Short: "Change item fields (name, description, image, category, properties)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			c, err := a.svc.EditItem(cmd.Context(), a.request(), args[0], fields)
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newItemListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [field=value]...",
		Short: "List items, optionally filtered by exact field values",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args)
			if err != nil {
				return err
			}
			b, err := a.svc.ListItems(cmd.Context(), a.request(), filter)
			if err != nil {
				return err
			}
			return a.browse(cmd.Context(), b)
		},
	}
}

func newItemShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item>",
		Short: "Show an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.ShowItem(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newItemDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item>",
		Short: "Delete an item; inventories keep its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.DeleteItem(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}
