package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/dylan/wchflash/tui/shared"
)

// Hints renders a one-line key hint for a prompt.
func Hints(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return shared.HintStyle.Render(strings.Join(parts, " · "))
}
