// Package delivery connects rendered cards to wherever actors read them.
// The chat platform itself is out of reach of this module; the console and
// recorder channels stand in for it.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
)

// Message is one outbound card addressed to a channel.
type Message struct {
	ChannelID string    `json:"channel_id,omitempty"`
	Card      card.Card `json:"card"`

	// Ephemeral messages are shown only to the requesting actor.
	Ephemeral bool `json:"ephemeral,omitempty"`
}

// Channel delivers messages and returns the id the platform assigned.
type Channel interface {
	Send(ctx context.Context, msg Message) (string, error)
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Console writes messages to an io.Writer as text, or as one JSON object per
// line in JSON mode.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

var _ Channel = (*Console)(nil)

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer, jsonMode bool) *Console {
	return &Console{w: w, json: jsonMode}
}

// Send writes msg and returns a fresh message id.
func (c *Console) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := newMessageID()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.json {
		out := struct {
			ID string `json:"id"`
			Message
		}{ID: id, Message: msg}
		data, err := json.Marshal(out)
		if err != nil {
			return "", fmt.Errorf("encoding message: %w", err)
		}
		if _, err := fmt.Fprintln(c.w, string(data)); err != nil {
			return "", err
		}
		return id, nil
	}

	if msg.ChannelID != "" {
		if _, err := fmt.Fprintf(c.w, "[#%s]\n", msg.ChannelID); err != nil {
			return "", err
		}
	}
	if err := card.WriteText(c.w, msg.Card); err != nil {
		return "", err
	}
	return id, nil
}

// Sent is a message captured by a Recorder.
type Sent struct {
	ID string
	Message
}

// Recorder keeps every message in memory. Used by tests and by callers that
// want to inspect output before showing it.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	err  error
}

var _ Channel = (*Recorder)(nil)

// Send records msg.
func (r *Recorder) Send(_ context.Context, msg Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	id := newMessageID()
	r.sent = append(r.sent, Sent{ID: id, Message: msg})
	return id, nil
}

// FailWith makes every later Send return err. A nil err restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent message.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}
