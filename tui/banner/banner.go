package banner

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/dylan/wchflash/tui/shared"
)

const Title = "WCH-Link Firmware Update Tool"

// Welcome renders the start-up panel.
func Welcome(version string) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff99cc")).Render(Title)
	ver := shared.AccentStyle.Render("Version " + version)
	return shared.BannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, ver))
}

// Section renders a boxed heading such as "Starting Firmware Update".
func Section(heading string) string {
	return shared.PanelStyle.Render(shared.TitleStyle.Render(heading))
}

func Farewell() string {
	return shared.TitleStyle.Render("✨ Thank you for using the " + Title + "! ✨")
}
