package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/evanschultz/ucm/internal/domain"
)

var statusColors = map[domain.Status]lipgloss.Color{
	domain.StatusPlanned:     lipgloss.Color("245"),
	domain.StatusInProgress:  lipgloss.Color("214"),
	domain.StatusImplemented: lipgloss.Color("39"),
	domain.StatusTested:      lipgloss.Color("141"),
	domain.StatusDeployed:    lipgloss.Color("42"),
	domain.StatusDeprecated:  lipgloss.Color("160"),
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// StatusBadge renders a status as a colored label.
func StatusBadge(status domain.Status) string {
	color, ok := statusColors[status]
	if !ok {
		color = lipgloss.Color("250")
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(string(status))
}

// UseCaseTable renders use cases as a bordered table with status badges.
func UseCaseTable(useCases []domain.UseCase) string {
	rows := make([][]string, 0, len(useCases))
	for _, uc := range useCases {
		rows = append(rows, []string{
			uc.ID,
			uc.Title,
			uc.Category,
			string(uc.Priority),
			StatusBadge(uc.Status),
			fmt.Sprintf("%d", len(uc.ScenarioIDs)),
		})
	}
	return newTable("ID", "Title", "Category", "Priority", "Status", "Scenarios").Rows(rows...).Render()
}

// ScenarioTable renders scenarios as a bordered table with status badges.
func ScenarioTable(scenarios []domain.Scenario) string {
	rows := make([][]string, 0, len(scenarios))
	for _, sc := range scenarios {
		rows = append(rows, []string{
			sc.ID,
			sc.Title,
			string(sc.Type),
			StatusBadge(sc.Status),
			sc.ActorID,
			fmt.Sprintf("%d", len(sc.Steps)),
		})
	}
	return newTable("ID", "Title", "Type", "Status", "Actor", "Steps").Rows(rows...).Render()
}

// ActorTable renders actors as a bordered table.
func ActorTable(actors []domain.Actor) string {
	rows := make([][]string, 0, len(actors))
	for _, a := range actors {
		detail := a.Persona.Role
		if a.Kind == domain.ActorSystem {
			detail = string(a.System.Type)
		}
		rows = append(rows, []string{a.ID, actorLabel(a), string(a.Kind), detail})
	}
	return newTable("ID", "Name", "Kind", "Role / Type").Rows(rows...).Render()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
