package shared

import "github.com/charmbracelet/lipgloss"

// FeedbackLevel controls how a console message is styled.
type FeedbackLevel int

const (
	FeedbackInfo FeedbackLevel = iota
	FeedbackSuccess
	FeedbackWarning
	FeedbackError
)

// Feedback represents a user-facing feedback message.
type Feedback struct {
	Level   FeedbackLevel
	Message string
	Detail  string // raw tool output, shown dimmed under the message
}

// Style returns the style for a feedback level.
func (l FeedbackLevel) Style() lipgloss.Style {
	switch l {
	case FeedbackSuccess:
		return FeedbackSuccessStyle
	case FeedbackWarning:
		return FeedbackWarningStyle
	case FeedbackError:
		return FeedbackErrorStyle
	default:
		return FeedbackInfoStyle
	}
}

// Render renders the message line in the level's style.
func (f Feedback) Render() string {
	s := f.Level.Style().Render(f.Message)
	if f.Detail != "" {
		s += "\n" + DimStyle.Render(f.Detail)
	}
	return s
}
