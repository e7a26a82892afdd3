package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shopkeeper/internal/shop"
)

// newFlowCmd drives the interactive NPC creation flow. Only the console
// registers it, since flows live in memory.
func newFlowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Create an NPC step by step",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "begin",
		Short: "Open the NPC form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.svc.BeginNPCFlow(cmd.Context(), a.request())
			if err != nil {
				return err
			}
			a.flowID = r.FlowID
			return a.show(cmd.Context(), r.Card)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "submit <field=value>...",
		Short: "Submit the form (name, dialogue, image, role, items)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireFlow(); err != nil {
				return err
			}
			fields, err := parseAssignments(args)
			if err != nil {
				return err
			}
			r, err := a.svc.SubmitNPCForm(cmd.Context(), a.request(), a.flowID, fields)
			if err != nil {
				return a.endFlowOnTimeout(err)
			}
			return a.show(cmd.Context(), r.Card)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <channel>",
		Short: "Pick the channel the NPC answers in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireFlow(); err != nil {
				return err
			}
			r, err := a.svc.SelectNPCChannel(cmd.Context(), a.request(), a.flowID, args[0])
			if err != nil {
				return a.endFlowOnTimeout(err)
			}
			return a.show(cmd.Context(), r.Card)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm",
		Short: "Create the NPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireFlow(); err != nil {
				return err
			}
			r, err := a.svc.ConfirmNPCFlow(cmd.Context(), a.request(), a.flowID)
			if err != nil {
				if shop.Code(err) != shop.CodeValidation {
					a.flowID = ""
				}
				return err
			}
			a.flowID = ""
			return a.show(cmd.Context(), r.Card)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Abandon the flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireFlow(); err != nil {
				return err
			}
			r, err := a.svc.CancelFlow(cmd.Context(), a.request(), a.flowID)
			a.flowID = ""
			if err != nil {
				return err
			}
			return a.show(cmd.Context(), r.Card)
		},
	})

	return cmd
}

func (a *app) requireFlow() error {
	if a.flowID == "" {
		return shop.ErrValidation("No NPC form is open. Start one with flow begin.")
	}
	return nil
}

// endFlowOnTimeout forgets a flow the session manager already dropped.
func (a *app) endFlowOnTimeout(err error) error {
	switch shop.Code(err) {
	case shop.CodeTimeout, shop.CodeNotFound:
		a.flowID = ""
	}
	return err
}
