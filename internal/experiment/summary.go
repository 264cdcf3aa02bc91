// internal/experiment/summary.go
package experiment

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mwiater/miasma/internal/classify"
)

// SummaryRow aggregates every record sharing a difficulty, model and
// pollution level.
type SummaryRow struct {
	Difficulty     string
	Model          string
	PollutionLevel float64
	STC            int
	FNC            int
	FWT            int
	FH             int
	Total          int
	SuccessRate    float64
	AvgLatencyMS   float64
}

// Summarize groups records by difficulty, model and pollution level.
// Difficulties sort alphabetically, models keep first-seen order and
// levels sort ascending, matching the rendered table.
func Summarize(records []Record) []SummaryRow {
	type key struct {
		difficulty string
		model      string
		level      float64
	}
	type bucket struct {
		counts     map[classify.Classification]int
		total      int
		latencySum int64
	}

	buckets := map[key]*bucket{}
	var diffOrder []string
	modelOrder := map[string][]string{}
	levelSet := map[[2]string]map[float64]bool{}

	for _, rec := range records {
		k := key{rec.Difficulty, rec.Model, rec.PollutionLevel}
		b := buckets[k]
		if b == nil {
			b = &bucket{counts: map[classify.Classification]int{}}
			buckets[k] = b
		}
		b.counts[rec.Evaluation.Classification]++
		b.total++
		b.latencySum += rec.LatencyMS

		if _, seen := modelOrder[rec.Difficulty]; !seen {
			diffOrder = append(diffOrder, rec.Difficulty)
		}
		pair := [2]string{rec.Difficulty, rec.Model}
		if levelSet[pair] == nil {
			modelOrder[rec.Difficulty] = append(modelOrder[rec.Difficulty], rec.Model)
			levelSet[pair] = map[float64]bool{}
		}
		levelSet[pair][rec.PollutionLevel] = true
	}
	sort.Strings(diffOrder)

	var rows []SummaryRow
	for _, diff := range diffOrder {
		for _, model := range modelOrder[diff] {
			var levels []float64
			for level := range levelSet[[2]string{diff, model}] {
				levels = append(levels, level)
			}
			sort.Float64s(levels)
			for _, level := range levels {
				b := buckets[key{diff, model, level}]
				row := SummaryRow{
					Difficulty:     diff,
					Model:          model,
					PollutionLevel: level,
					STC:            b.counts[classify.STC],
					FNC:            b.counts[classify.FNC],
					FWT:            b.counts[classify.FWT],
					FH:             b.counts[classify.FH],
					Total:          b.total,
				}
				if b.total > 0 {
					row.SuccessRate = float64(row.STC) / float64(b.total) * 100
					row.AvgLatencyMS = float64(b.latencySum) / float64(b.total)
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

var (
	summaryTitleStyle  = lipgloss.NewStyle().Bold(true)
	summaryBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	summaryHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	summaryCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rateGoodStyle      = summaryCellStyle.Foreground(lipgloss.Color("2"))
	rateWarnStyle      = summaryCellStyle.Foreground(lipgloss.Color("3"))
	rateBadStyle       = summaryCellStyle.Foreground(lipgloss.Color("1"))
)

// PrintSummary renders rows as the experiment results table. The
// difficulty column only appears when rows span more than one
// difficulty. Success rates at or above 80% render green, at or above
// 50% yellow, anything lower red.
func PrintSummary(w io.Writer, rows []SummaryRow) {
	PrintSummaryTitled(w, "Resultados do Experimento", rows)
}

// PrintSummaryTitled is PrintSummary with a caller-chosen title.
func PrintSummaryTitled(w io.Writer, title string, rows []SummaryRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Sem resultados.")
		return
	}

	multiDifficulty := false
	for _, row := range rows[1:] {
		if row.Difficulty != rows[0].Difficulty {
			multiDifficulty = true
			break
		}
	}

	headers := []string{"Modelo", "Poluição", "STC", "FNC", "FWT", "FH", "Taxa Sucesso", "Latência Média"}
	if multiDifficulty {
		headers = append([]string{"Dificuldade"}, headers...)
	}
	rateCol := len(headers) - 2

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(summaryBorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return summaryHeaderStyle
			}
			if col == rateCol && row >= 0 && row < len(rows) {
				switch rate := rows[row].SuccessRate; {
				case rate >= 80:
					return rateGoodStyle
				case rate >= 50:
					return rateWarnStyle
				default:
					return rateBadStyle
				}
			}
			return summaryCellStyle
		})

	for _, row := range rows {
		cells := []string{
			row.Model,
			fmt.Sprintf("%.0f%%", row.PollutionLevel),
			strconv.Itoa(row.STC),
			strconv.Itoa(row.FNC),
			strconv.Itoa(row.FWT),
			strconv.Itoa(row.FH),
			fmt.Sprintf("%.0f%%", row.SuccessRate),
			fmt.Sprintf("%.1fs", row.AvgLatencyMS/1000),
		}
		if multiDifficulty {
			cells = append([]string{row.Difficulty}, cells...)
		}
		t.Row(cells...)
	}

	fmt.Fprintln(w, summaryTitleStyle.Render(title))
	fmt.Fprintln(w, t.String())
}
