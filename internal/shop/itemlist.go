package shop

import (
	"fmt"
	"strings"
)

// ShopEntry is one entry of an NPC creation item list.
type ShopEntry struct {
	Name  string
	Price string
	Image string
}

// ParseItemList parses entries of the form "name,price[,imageRef]" separated
// by ';'. Blank entries are skipped. An empty list is valid.
func ParseItemList(raw string) ([]ShopEntry, error) {
	var entries []ShopEntry
	for i, part := range strings.Split(raw, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, ErrValidation(fmt.Sprintf(
				"Item %d: expected name,price[,image] but got %q.", i+1, strings.TrimSpace(part)))
		}
		e := ShopEntry{
			Name:  strings.TrimSpace(fields[0]),
			Price: strings.TrimSpace(fields[1]),
		}
		if len(fields) == 3 {
			e.Image = strings.TrimSpace(fields[2])
		}
		if e.Name == "" || e.Price == "" {
			return nil, ErrValidation(fmt.Sprintf("Item %d: name and price are required.", i+1))
		}
		entries = append(entries, e)
	}
	return entries, nil
}
