package cli

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/mesh-intelligence/shopkeeper/internal/shop"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

// parseAssignments turns key=value arguments into a map with lower-cased
// keys. Later assignments of the same key win.
func parseAssignments(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, shop.ErrValidation(fmt.Sprintf("Expected key=value but got %q.", arg))
		}
		fields[key] = value
	}
	return fields, nil
}

// parseFilter turns key=value arguments into a store filter.
func parseFilter(args []string) (types.Filter, error) {
	fields, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	filter := make(types.Filter, len(fields))
	for k, v := range fields {
		filter[k] = v
	}
	return filter, nil
}

// splitLine splits a console line into words with shell quoting rules.
// The parser stops at an unquoted shell operator (; & | < >); such lines are
// rejected instead of running truncated.
func splitLine(line string) ([]string, error) {
	p := shellwords.NewParser()
	words, err := p.Parse(line)
	if err != nil {
		return nil, shop.ErrValidation("Could not read that line. Check its quotes.")
	}
	if p.Position >= 0 {
		return nil, shop.ErrValidation(`Quote arguments that contain ; & | < or >, as in "items=Espada,10;Escudo,5".`)
	}
	return words, nil
}
