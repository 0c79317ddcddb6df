package dashboard

import "github.com/charmbracelet/lipgloss"

// Role names the semantic purpose of a rendered line so themes can be
// swapped without touching the block builders.
type Role int

const (
	RoleHeader Role = iota
	RoleTitle
	RoleMetric
	RoleTemp
	RoleAlert
	RoleStatus
	RoleTotal
	RoleAverage
)

// Theme maps semantic roles to terminal styles.
type Theme map[Role]lipgloss.Style

// DefaultTheme is the stock color scheme.
func DefaultTheme() Theme {
	return Theme{
		RoleHeader:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		RoleTitle:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		RoleMetric:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		RoleTemp:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		RoleAlert:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		RoleStatus:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		RoleTotal:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		RoleAverage: lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	}
}

// Render styles text for a role. Unknown roles render unstyled.
func (t Theme) Render(role Role, text string) string {
	style, ok := t[role]
	if !ok {
		return text
	}

	return style.Render(text)
}
