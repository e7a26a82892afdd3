package types

import (
	"strconv"
	"strings"
	"time"
)

// Item is a purchasable good that NPCs can stock.
type Item struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category"`

	// Properties is a semi-structured list of key:value entries separated
	// by ';' or newlines, e.g. "price:10;weight:2kg". See ParseProperties.
	Properties string `json:"properties"`

	CreatorID string     `json:"creator_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

var _ Record = (*Item)(nil)

// RecordID returns the Item id.
func (it *Item) RecordID() int64 { return it.ID }

// Owner returns the creator identity.
func (it *Item) Owner() string { return it.CreatorID }

// Field returns the string value of a filterable field.
func (it *Item) Field(name string) (string, bool) {
	switch name {
	case "id":
		return strconv.FormatInt(it.ID, 10), true
	case "name":
		return it.Name, true
	case "description":
		return it.Description, true
	case "image":
		return it.Image, true
	case "category":
		return it.Category, true
	case "properties":
		return it.Properties, true
	case "creator_id":
		return it.CreatorID, true
	default:
		return "", false
	}
}

// Validate checks the fields every stored Item must satisfy.
func (it *Item) Validate() error {
	return validateName(it.Name)
}

// Clone returns a deep copy of the Item.
func (it *Item) Clone() *Item {
	c := *it
	if it.UpdatedAt != nil {
		ts := *it.UpdatedAt
		c.UpdatedAt = &ts
	}
	return &c
}

// Property is one key:value entry of an Item's property list.
type Property struct {
	Key   string
	Value string
}

// ParseProperties splits raw into key:value entries. Entries are separated
// by ';' or newlines; entries without a ':' or with an empty key are dropped.
// Only the first ':' separates key from value.
func ParseProperties(raw string) []Property {
	entries := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '\n'
	})
	props := make([]Property, 0, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		props = append(props, Property{Key: key, Value: strings.TrimSpace(value)})
	}
	return props
}

// ItemPatch is a partial update for an Item. Nil fields are left unchanged.
type ItemPatch struct {
	Name        *string
	Description *string
	Image       *string
	Category    *string
	Properties  *string
}

// Apply merges the set fields of p into it.
func (p *ItemPatch) Apply(it *Item) {
	if p == nil {
		return
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Image != nil {
		it.Image = *p.Image
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Properties != nil {
		it.Properties = *p.Properties
	}
}

// IsEmpty reports whether the patch sets no field.
func (p *ItemPatch) IsEmpty() bool {
	return p == nil || (p.Name == nil && p.Description == nil && p.Image == nil &&
		p.Category == nil && p.Properties == nil)
}

// ItemPatchFromFields builds a patch from field name/value pairs. Unknown
// field names are ignored.
func ItemPatchFromFields(fields map[string]string) *ItemPatch {
	p := &ItemPatch{}
	for k, v := range fields {
		v := v
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "name":
			p.Name = &v
		case "description":
			p.Description = &v
		case "image":
			p.Image = &v
		case "category":
			p.Category = &v
		case "properties":
			p.Properties = &v
		}
	}
	return p
}
