package flow

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tyemirov/gitflow/internal/gitflow"
)

const (
	statusColumnSeparator = "  "
	blockedStateLabel     = "blocked"
	emptyCellPlaceholder  = "-"
)

var (
	statusHeaderStyle  = lipgloss.NewStyle().Bold(true)
	statusBlockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	statusColumnTitles = []string{"WORKFLOW", "BRANCH", "STATE", "NEXT", "TARGET", "VERSION", "NOTE"}
)

// RenderStatusTable lays the status reports out as aligned columns, one row per workflow.
func RenderStatusTable(reports []gitflow.StatusReport) string {
	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		rows = append(rows, statusRow(report))
	}

	columnWidths := make([]int, len(statusColumnTitles))
	for columnIndex, title := range statusColumnTitles {
		columnWidths[columnIndex] = lipgloss.Width(title)
	}
	for _, row := range rows {
		for columnIndex, cell := range row {
			if cellWidth := lipgloss.Width(cell); cellWidth > columnWidths[columnIndex] {
				columnWidths[columnIndex] = cellWidth
			}
		}
	}

	var builder strings.Builder
	builder.WriteString(statusHeaderStyle.Render(joinColumns(statusColumnTitles, columnWidths)))
	builder.WriteString("\n")
	for rowIndex, row := range rows {
		line := joinColumns(row, columnWidths)
		if reports[rowIndex].Blocked != nil {
			line = statusBlockedStyle.Render(line)
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	return builder.String()
}

func statusRow(report gitflow.StatusReport) []string {
	plan := report.Plan
	row := []string{
		plan.Workflow.String(),
		cellValue(plan.Branch),
		plan.State.String(),
		plan.TargetState.String(),
		cellValue(plan.TargetBranch),
		cellValue(plan.Version.MajorMinorPatch()),
		emptyCellPlaceholder,
	}
	if report.Blocked != nil {
		row[2] = blockedStateLabel
		row[3] = emptyCellPlaceholder
		row[4] = emptyCellPlaceholder
		row[5] = emptyCellPlaceholder
		row[6] = report.Blocked.Error()
	}
	return row
}

func joinColumns(cells []string, columnWidths []int) string {
	padded := make([]string, len(cells))
	lastIndex := len(cells) - 1
	for cellIndex, cell := range cells {
		if cellIndex == lastIndex {
			padded[cellIndex] = cell
			continue
		}
		padded[cellIndex] = lipgloss.NewStyle().Width(columnWidths[cellIndex]).Render(cell)
	}
	return strings.Join(padded, statusColumnSeparator)
}

func cellValue(value string) string {
	if len(strings.TrimSpace(value)) == 0 {
		return emptyCellPlaceholder
	}
	return value
}
