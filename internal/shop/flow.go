package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// FlowKindNPC names the interactive NPC creation flow.
const FlowKindNPC = "create_npc"

// Control ids used by flow cards.
const (
	ControlSubmit  = "submit"
	ControlSelect  = "select"
	ControlConfirm = "confirm"
	ControlCancel  = "cancel"
)

// npcFormFields lists the form fields of the NPC creation flow in display order.
var npcFormFields = []string{"name", "dialogue", "image", "role", "items"}

// FlowReply is the outcome of one flow step.
type FlowReply struct {
	FlowID string
	State  session.State
	Card   card.Card
}

// BeginNPCFlow opens an NPC creation flow and returns the form prompt.
func (s *Service) BeginNPCFlow(ctx context.Context, req Request) (r FlowReply, err error) {
	err = s.run(ctx, "begin_npc_flow", req, func(ctx context.Context) error {
		f, err := s.sessions.Begin(req.Actor.ID, FlowKindNPC)
		if err != nil {
			return err
		}
		c := card.Notice("New NPC", "Fill in the form. Items use name,price[,image] separated by ';'.")
		for _, name := range npcFormFields {
			c.Fields = append(c.Fields, card.Field{Label: name, Value: ""})
		}
		c.Controls = []card.Control{
			{ID: ControlSubmit, Label: "Submit"},
			{ID: ControlCancel, Label: "Cancel"},
		}
		r = FlowReply{FlowID: f.FlowID, State: f.State, Card: c}
		return nil
	})
	return r, err
}

// SubmitNPCForm validates the form without touching the store and offers
// the configured channels. With no channels configured the flow goes
// straight to confirmation.
func (s *Service) SubmitNPCForm(ctx context.Context, req Request, flowID string, fields map[string]string) (r FlowReply, err error) {
	err = s.run(ctx, "submit_npc_form", req, func(ctx context.Context) error {
		form := make(map[string]string, len(fields))
		for k, v := range fields {
			form[strings.ToLower(strings.TrimSpace(k))] = v
		}
		draft := types.NPC{Name: form["name"]}
		if err := draft.Validate(); err != nil {
			return storeError("validating form", "NPC", form["name"], err)
		}
		if _, err := ParseItemList(form["items"]); err != nil {
			return err
		}

		key := session.Key{Actor: req.Actor.ID, FlowID: flowID}
		f, err := s.sessions.SubmitForm(key, form, s.channels)
		if err != nil {
			return sessionError(flowID, err)
		}
		if f.State == session.AwaitingSelection {
			c := card.Notice("Choose a channel", "Where should "+strings.TrimSpace(form["name"])+" answer?")
			c.Controls = []card.Control{
				{ID: ControlSelect, Label: "Channel", Options: f.Options},
				{ID: ControlCancel, Label: "Cancel"},
			}
			r = FlowReply{FlowID: flowID, State: f.State, Card: c}
			return nil
		}
		r = FlowReply{FlowID: flowID, State: f.State, Card: confirmPrompt(f)}
		return nil
	})
	return r, err
}

// SelectNPCChannel records the chosen channel and asks for confirmation.
func (s *Service) SelectNPCChannel(ctx context.Context, req Request, flowID, channel string) (r FlowReply, err error) {
	err = s.run(ctx, "select_npc_channel", req, func(ctx context.Context) error {
		key := session.Key{Actor: req.Actor.ID, FlowID: flowID}
		f, err := s.sessions.Select(key, strings.TrimPrefix(strings.TrimSpace(channel), "#"))
		if err != nil {
			return sessionError(flowID, err)
		}
		r = FlowReply{FlowID: flowID, State: f.State, Card: confirmPrompt(f)}
		return nil
	})
	return r, err
}

// ConfirmNPCFlow creates the NPC from the flow and, when a channel was
// chosen, posts it there. Nothing is stored before this step.
func (s *Service) ConfirmNPCFlow(ctx context.Context, req Request, flowID string) (r FlowReply, err error) {
	err = s.run(ctx, "confirm_npc_flow", req, func(ctx context.Context) error {
		var npc *types.NPC
		key := session.Key{Actor: req.Actor.ID, FlowID: flowID}
		f, err := s.sessions.Confirm(ctx, key, func(ctx context.Context, f session.Flow) error {
			created, err := s.createNPC(ctx, req, NewNPC{
				Name:      f.Form["name"],
				Dialogue:  f.Form["dialogue"],
				Image:     f.Form["image"],
				Role:      f.Form["role"],
				ChannelID: f.Selection,
				Items:     f.Form["items"],
			})
			npc = created
			return err
		})
		if err != nil {
			return sessionError(flowID, err)
		}

		body := fmt.Sprintf("%s was created with id %d.", npc.Name, npc.ID)
		if npc.ChannelID != "" {
			npcs, err := s.table(types.NPCsTable)
			if err != nil {
				return err
			}
			// The NPC stays created when posting fails.
			if err := s.publish(ctx, npcs, npc); err != nil {
				return err
			}
			body += fmt.Sprintf(" It was posted to #%s.", npc.ChannelID)
		}
		r = FlowReply{FlowID: flowID, State: f.State, Card: card.Confirmation("NPC created", body)}
		return nil
	})
	return r, err
}

// CancelFlow abandons a flow.
func (s *Service) CancelFlow(ctx context.Context, req Request, flowID string) (r FlowReply, err error) {
	err = s.run(ctx, "cancel_flow", req, func(ctx context.Context) error {
		f, err := s.sessions.Cancel(session.Key{Actor: req.Actor.ID, FlowID: flowID})
		if err != nil {
			return sessionError(flowID, err)
		}
		r = FlowReply{FlowID: flowID, State: f.State, Card: card.Notice("Cancelled", "Nothing was saved.")}
		return nil
	})
	return r, err
}

func confirmPrompt(f session.Flow) card.Card {
	c := card.Notice("Confirm new NPC", "Create "+strings.TrimSpace(f.Form["name"])+"?")
	channel := card.Unassigned
	if f.Selection != "" {
		channel = "#" + f.Selection
	}
	c.Fields = []card.Field{
		{Label: "Role", Value: f.Form["role"]},
		{Label: "Items", Value: f.Form["items"]},
		{Label: "Channel", Value: channel},
	}
	c.Controls = []card.Control{
		{ID: ControlConfirm, Label: "Confirm"},
		{ID: ControlCancel, Label: "Cancel"},
	}
	return c
}
