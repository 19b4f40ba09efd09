package tui

import (
	"sort"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/vpntools/vpnconsole/internal/model"
)

// minuteCounts holds per-category record counts for one minute bucket.
type minuteCounts struct {
	Minute time.Time
	Counts map[model.Category]int
	Total  int
}

// bucketByMinute folds records into per-minute buckets, oldest first.
// Records with unparsable timestamps are dropped.
func bucketByMinute(records []model.LogRecord) []minuteCounts {
	byMinute := make(map[time.Time]*minuteCounts)
	for _, r := range records {
		t := r.Time()
		if t.IsZero() {
			continue
		}
		minute := t.Truncate(time.Minute)
		bucket, ok := byMinute[minute]
		if !ok {
			bucket = &minuteCounts{Minute: minute, Counts: make(map[model.Category]int)}
			byMinute[minute] = bucket
		}
		bucket.Counts[r.Type]++
		bucket.Total++
	}

	out := make([]minuteCounts, 0, len(byMinute))
	for _, b := range byMinute {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minute.Before(out[j].Minute) })
	return out
}

// barStyles need matching foreground and background so the stacked
// segments render as solid blocks.
var rateBarStyles = map[model.Category]lipgloss.Style{
	model.CategoryConnection:     lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Background(lipgloss.Color("40")),
	model.CategoryAuthentication: lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Background(lipgloss.Color("141")),
	model.CategoryError:          lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Background(lipgloss.Color("196")),
	model.CategoryWarning:        lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Background(lipgloss.Color("208")),
	model.CategoryInfo:           lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("250")),
	model.CategorySystem:         lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39")),
	model.CategoryNetwork:        lipgloss.NewStyle().Foreground(lipgloss.Color("76")).Background(lipgloss.Color("76")),
}

// renderRateChart renders log volume per minute as a stacked bar chart.
func renderRateChart(buckets []minuteCounts, width, height int) string {
	if len(buckets) == 0 {
		return dimStyle.Render("No log activity yet")
	}
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}

	// One bar plus one gap per bucket.
	maxBars := width / 2
	if len(buckets) > maxBars {
		buckets = buckets[len(buckets)-maxBars:]
	}

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)

	for _, b := range buckets {
		var values []barchart.BarValue
		for _, c := range model.Categories() {
			if n := b.Counts[c]; n > 0 {
				values = append(values, barchart.BarValue{
					Name:  string(c),
					Value: float64(n),
					Style: rateBarStyles[c],
				})
			}
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "empty", Value: 0, Style: dimStyle}}
		}
		bc.Push(barchart.BarData{
			Label:  b.Minute.Format("15:04"),
			Values: values,
		})
	}

	bc.Draw()
	return bc.View()
}
