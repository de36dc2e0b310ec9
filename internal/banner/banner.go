// Package banner renders the CLI start-up banner.
package banner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const logo = `                         _
  ___  _ __   ___ _ __ (_) ___
 / _ \| '_ \ / _ \ '_ \| |/ _ \
| (_) | |_) |  __/ | | | |  __/
 \___/| .__/ \___|_| |_|_|\___|
      |_|`

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("147")).
			Bold(true)

	versionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Banner returns the styled banner for version, ending in a blank line.
func Banner(version string) string {
	var b strings.Builder
	b.WriteString(logoStyle.Render(logo))
	b.WriteString(" ")
	b.WriteString(versionStyle.Render(version))
	b.WriteString("\n")
	b.WriteString(taglineStyle.Render("open relation extraction with linear-chain CRFs"))
	b.WriteString("\n\n")
	return b.String()
}
