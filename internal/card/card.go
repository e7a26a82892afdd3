// Package card renders records into display documents for a delivery
// channel. Rendering is pure: it never touches the store.
package card

import (
	"strings"
	"unicode/utf8"
)

// MaxFieldLength bounds the body and every field value, in runes.
const MaxFieldLength = 1024

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Sentinel values shown in place of missing data.
const (
	EmptyInventory = "Empty"
	Unassigned     = "Unassigned"
	NoProperties   = "None"
)

// Kind tags a card for the delivery channel, which may style them apart.
type Kind string

// Card kinds.
const (
	KindRecord       Kind = "record"
	KindNotice       Kind = "notice"
	KindConfirmation Kind = "confirmation"
	KindError        Kind = "error"
)

// Card is a structured display document.
type Card struct {
	Kind     Kind      `json:"kind"`
	Title    string    `json:"title"`
	Body     string    `json:"body,omitempty"`
	Image    string    `json:"image,omitempty"`
	Fields   []Field   `json:"fields,omitempty"`
	Footer   string    `json:"footer,omitempty"`
	Controls []Control `json:"controls,omitempty"`
}

// Field is one labeled value of a card.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Control is an interactive element attached to a card, such as a
// navigation button or a channel selector.
type Control struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Disabled bool     `json:"disabled,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Truncate shortens s to at most max runes, replacing the tail with an
// ellipsis when anything was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + Ellipsis
}

// Notice returns an informational card.
func Notice(title, body string) Card {
	return Card{Kind: KindNotice, Title: title, Body: Truncate(body, MaxFieldLength)}
}

// Confirmation returns a card acknowledging a completed action.
func Confirmation(title, body string) Card {
	return Card{Kind: KindConfirmation, Title: title, Body: Truncate(body, MaxFieldLength)}
}

// Error returns a card reporting a failed action.
func Error(message string) Card {
	return Card{Kind: KindError, Title: "Error", Body: Truncate(message, MaxFieldLength)}
}

func field(label string, value string) Field {
	return Field{Label: label, Value: Truncate(value, MaxFieldLength)}
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
