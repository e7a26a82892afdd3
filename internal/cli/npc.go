package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/shop"
)

func newNPCCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "npc",
		Short: "Manage NPC shopkeepers",
	}
	cmd.AddCommand(
		newNPCCreateCmd(a),
		newNPCEditCmd(a),
		newNPCAssignCmd(a),
		newNPCInvokeCmd(a),
		newNPCListCmd(a),
		newNPCShowCmd(a),
		newNPCShopCmd(a),
		newNPCPublishCmd(a),
		newNPCDeleteCmd(a),
		newNPCAddItemCmd(a),
		newNPCRemoveItemCmd(a),
	)
	return cmd
}

func newNPCCreateCmd(a *app) *cobra.Command {
	var in shop.NewNPC
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an NPC and the items it sells",
		Long: "Create an NPC. --items takes entries of the form name,price[,image]\n" +
			"separated by ';'; each entry becomes an item stocked by the NPC.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			c, err := a.svc.CreateNPC(cmd.Context(), a.request(), in)
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVar(&in.Dialogue, "dialogue", "", "what the NPC says when invoked")
	cmd.Flags().StringVar(&in.Image, "image", "", "image reference")
	cmd.Flags().StringVar(&in.Role, "role", "", "role or category")
	cmd.Flags().StringVar(&in.ChannelID, "assign", "", "channel the NPC answers in")
	cmd.Flags().StringVar(&in.Items, "items", "", "item list: name,price[,image];...")
	return cmd
}

func newNPCEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <npc> <field=value>...",
		Short: "Change NPC fields (name, dialogue, image, role)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			c, err := a.svc.EditNPC(cmd.Context(), a.request(), args[0], fields)
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCAssignCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <npc> [channel]",
		Short: "Assign an NPC to a channel, or unassign it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel := ""
			if len(args) == 2 {
				channel = args[1]
			}
			c, err := a.svc.AssignChannel(cmd.Context(), a.request(), args[0], channel)
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCInvokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke [npc]",
		Short: "Have an NPC answer in the --channel channel",
		Long:  "Invoke an NPC by name. Without a name every NPC assigned to --channel answers.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			cards, err := a.svc.InvokeNPC(cmd.Context(), a.request(), name)
			if err != nil {
				return err
			}
			for _, c := range cards {
				if err := a.show(cmd.Context(), c); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newNPCListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [field=value]...",
		Short: "List NPCs, optionally filtered by exact field values",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args)
			if err != nil {
				return err
			}
			b, err := a.svc.ListNPCs(cmd.Context(), a.request(), filter)
			if err != nil {
				return err
			}
			return a.browse(cmd.Context(), b)
		},
	}
}

func newNPCShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <npc>",
		Short: "Show an NPC with its inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.ShowNPC(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCShopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shop <npc>",
		Short: "Browse the items an NPC sells, one per page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.svc.ShopItems(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.browse(cmd.Context(), b)
		},
	}
}

func newNPCPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <npc>",
		Short: "Post an NPC card to its assigned channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.PublishNPC(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <npc>",
		Short: "Delete an NPC; its items are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.DeleteNPC(cmd.Context(), a.request(), args[0])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCAddItemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-item <npc> <item>",
		Short: "Stock an existing item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.AddItemToNPC(cmd.Context(), a.request(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}

func newNPCRemoveItemCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <npc> <item>",
		Short: "Stop selling an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.svc.RemoveItemFromNPC(cmd.Context(), a.request(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), c)
		},
	}
}
