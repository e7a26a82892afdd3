package card

import (
	"fmt"
	"io"
	"strings"
)

// WriteText writes a plain-text rendition of c, used by the console channel.
func WriteText(w io.Writer, c Card) error {
	var b strings.Builder

	switch c.Kind {
	case KindError:
		fmt.Fprintf(&b, "!! %s\n", c.Title)
	default:
		fmt.Fprintf(&b, "== %s ==\n", c.Title)
	}
	if c.Body != "" {
		b.WriteString(c.Body)
		b.WriteByte('\n')
	}
	if c.Image != "" {
		fmt.Fprintf(&b, "[image] %s\n", c.Image)
	}
	for _, f := range c.Fields {
		if strings.Contains(f.Value, "\n") {
			fmt.Fprintf(&b, "%s:\n", f.Label)
			for _, line := range strings.Split(f.Value, "\n") {
				fmt.Fprintf(&b, "  - %s\n", line)
			}
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	if c.Footer != "" {
		fmt.Fprintf(&b, "-- %s\n", c.Footer)
	}
	if len(c.Controls) > 0 {
		labels := make([]string, 0, len(c.Controls))
		for _, ctl := range c.Controls {
			label := fmt.Sprintf("[%s]", ctl.Label)
			if ctl.Disabled {
				label = fmt.Sprintf("(%s)", ctl.Label)
			}
			if len(ctl.Options) > 0 {
				label += " " + strings.Join(ctl.Options, "|")
			}
			labels = append(labels, label)
		}
		b.WriteString(strings.Join(labels, " "))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(w, b.String())
	return err
}
