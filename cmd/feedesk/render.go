package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/reconciler"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)

	statusColors = map[models.FeeStatus]lipgloss.Color{
		models.StatusFullyPaid:     lipgloss.Color("42"),
		models.StatusPartiallyPaid: lipgloss.Color("214"),
		models.StatusPending:       lipgloss.Color("39"),
		models.StatusOverdue:       lipgloss.Color("196"),
	}
)

const statusCol = 6

func renderFees(fees []models.FeeRecord) string {
	rows := make([][]string, 0, len(fees))
	for _, f := range fees {
		rows = append(rows, []string{
			strconv.FormatInt(f.StudentID, 10),
			f.FullName(),
			f.RoomNumber,
			models.MonthLabel(f.FeeMonth),
			models.FormatMoney(f.Amount),
			models.FormatMoney(f.Balance),
			string(f.FeeStatus),
			f.DueDate,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "Name", "Room", "Month", "Amount", "Balance", "Status", "Due").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusCol && row >= 0 && row < len(fees) {
				if c, ok := statusColors[fees[row].FeeStatus]; ok {
					return cellStyle.Foreground(c)
				}
			}
			return cellStyle
		})

	return t.String()
}

func renderSummary(agg reconciler.Aggregates) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("Collected", models.FormatMoney(agg.TotalPaid))
	line("Pending", models.FormatMoney(agg.TotalPending))
	line("Total", models.FormatMoney(agg.TotalAmt))
	line("Progress", fmt.Sprintf("%s %d%%", progressBar(agg.CollectionPct, 20), agg.CollectionPct))
	line("Records", fmt.Sprintf("%d paid, %d partial, %d unpaid", agg.PaidCount, agg.PartialCount, agg.UnpaidCount))
	return strings.TrimRight(b.String(), "\n")
}

func renderModes(modes []models.PaymentMode) string {
	rows := make([][]string, 0, len(modes))
	for _, m := range modes {
		rows = append(rows, []string{strconv.FormatInt(m.ID, 10), m.Name})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "Mode").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func progressBar(pct int64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct) * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
