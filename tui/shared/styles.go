package shared

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dylan/wchflash/config"
)

var (
	// Prompts
	TitleStyle    lipgloss.Style
	QuestionStyle lipgloss.Style
	AnswerStyle   lipgloss.Style
	PointerStyle  lipgloss.Style
	CursorStyle   lipgloss.Style
	ItemStyle     lipgloss.Style
	HintStyle     lipgloss.Style

	// Text
	AccentStyle lipgloss.Style
	DimStyle    lipgloss.Style
	MutedStyle  lipgloss.Style

	// wlink output bullets
	BulletStyle lipgloss.Style

	// Panels
	BannerStyle lipgloss.Style
	PanelStyle  lipgloss.Style

	// Paths
	PathDirStyle  lipgloss.Style
	PathFileStyle lipgloss.Style

	// Spinner
	SpinnerStyle lipgloss.Style

	// Progress bar colors for the wait countdown
	ProgressFrom string
	ProgressTo   string

	// Feedback
	FeedbackInfoStyle    lipgloss.Style
	FeedbackSuccessStyle lipgloss.Style
	FeedbackWarningStyle lipgloss.Style
	FeedbackErrorStyle   lipgloss.Style
)

// InitStyles configures all styles from a resolved theme.
func InitStyles(theme config.ThemeConfig) {
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Accent))

	QuestionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Accent2))

	AnswerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Success))

	PointerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Warning))

	CursorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.FG))

	ItemStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Dim))

	HintStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted))

	AccentStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Accent))

	DimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Dim))

	MutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted))

	BulletStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Success))

	BannerStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Success)).
		Padding(0, 2)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent2)).
		Padding(0, 1)

	PathDirStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Muted))

	PathFileStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.FG))

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.SpinnerFG))

	ProgressFrom = theme.Accent2
	ProgressTo = theme.Accent

	FeedbackInfoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Warning))

	FeedbackSuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Success))

	FeedbackWarningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Warning))

	FeedbackErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Error))
}

// RenderPath renders a file path with dim directories and bright filename.
func RenderPath(fullPath string) string {
	dir := filepath.Dir(fullPath)
	base := filepath.Base(fullPath)
	if dir == "." || dir == "" {
		return PathFileStyle.Render(base)
	}
	return PathDirStyle.Render(dir+string(filepath.Separator)) + PathFileStyle.Render(base)
}

var spinnerTypes = map[string]spinner.Spinner{
	"dot":      spinner.Dot,
	"line":     spinner.Line,
	"minidot":  spinner.MiniDot,
	"pulse":    spinner.Pulse,
	"points":   spinner.Points,
	"meter":    spinner.Meter,
	"ellipsis": spinner.Ellipsis,
	"globe":    spinner.Globe,
}

// ResolveSpinnerType maps a theme spinner name to a bubbles spinner,
// falling back to minidot.
func ResolveSpinnerType(name string) spinner.Spinner {
	if sp, ok := spinnerTypes[strings.ToLower(name)]; ok {
		return sp
	}
	return spinner.MiniDot
}

// SpinnerType is the spinner used by activity indicators.
var SpinnerType = spinner.MiniDot

// Apply sets up styles and the spinner from a config.
func Apply(cfg config.Config) {
	theme := cfg.ResolvedTheme()
	InitStyles(theme)
	SpinnerType = ResolveSpinnerType(theme.SpinnerType)
}

func init() {
	InitStyles(config.DefaultTheme())
}
