package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dd0wney/cluso-anomaly/pkg/evaluation"
	"github.com/dd0wney/cluso-anomaly/pkg/linkpred"
	"github.com/dd0wney/cluso-anomaly/pkg/ranking"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
}

func renderRanking(t *ranking.Table) string {
	return newTable(t.Header(), t.Rows()).Render()
}

func renderValidation(s linkpred.Scores) string {
	rows := [][]string{
		{"precision", ranking.FormatScore(s.Precision)},
		{"accuracy", ranking.FormatScore(s.Accuracy)},
		{"f1", ranking.FormatScore(s.F1)},
	}
	if s.HasAUC {
		rows = append(rows, []string{"auc", ranking.FormatScore(s.AUC)})
	}
	rows = append(rows, []string{"confusion (tn fp fn tp)", fmt.Sprintf("%d %d %d %d", s.TN, s.FP, s.FN, s.TP)})
	return titleStyle.Render("Validation") + "\n" + newTable([]string{"score", "value"}, rows).Render()
}

func renderEvaluation(results []evaluation.Result) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		order := "low"
		if r.Reversed {
			order = "high"
		}
		rows[i] = []string{
			r.Column,
			order,
			ranking.FormatScore(r.AveragePrecision),
			fmt.Sprintf("%s (k=%d)", ranking.FormatScore(r.PrecisionAtK), r.K),
		}
	}
	return newTable([]string{"column", "anomalous", "average precision", "precision@k"}, rows).Render()
}
