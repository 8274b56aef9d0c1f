// Package chart renders metric mappings as horizontal bar charts for the terminal.
package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/charmbracelet/lipgloss"
)

// NoData is printed under the title when a chart has nothing to plot.
const NoData = "(no data)"

var (
	colorTitle = lipgloss.Color("#20B9B4")
	colorBar   = lipgloss.Color("#2CD7C7")
	colorMuted = lipgloss.Color("#2C4A54")
)

// Options controls chart rendering.
type Options struct {
	// Width is the length of the longest bar in cells.
	Width int
	// Color enables ANSI styling. Leave it off when output is not a terminal.
	Color bool
}

// DefaultOptions returns a 40-cell uncoloured chart.
func DefaultOptions() Options { return Options{Width: 40} }

type styles struct {
	title, bar, muted lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{title: lipgloss.NewStyle(), bar: lipgloss.NewStyle(), muted: lipgloss.NewStyle()}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(colorTitle),
		bar:   lipgloss.NewStyle().Foreground(colorBar),
		muted: lipgloss.NewStyle().Foreground(colorMuted),
	}
}

// Bars draws one bar per key, sorted by key, scaled so the largest magnitude fills Width.
func Bars(title string, values map[string]float64, opt Options) string {
	st := newStyles(opt.Color)
	width := opt.Width
	if width <= 0 {
		width = DefaultOptions().Width
	}
	var b strings.Builder
	b.WriteString(st.title.Render(title))
	b.WriteString("\n")
	if len(values) == 0 {
		b.WriteString("  " + st.muted.Render(NoData) + "\n")
		return b.String()
	}

	keys := make([]string, 0, len(values))
	labelW := 0
	peak := 0.0
	for k, v := range values {
		keys = append(keys, k)
		labelW = max(labelW, lipgloss.Width(k))
		peak = math.Max(peak, math.Abs(v))
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(v) / peak * float64(width)))
		}
		bar := strings.Repeat("█", n) + strings.Repeat(" ", width-n)
		pad := strings.Repeat(" ", labelW-lipgloss.Width(k))
		fmt.Fprintf(&b, "  %s%s │%s│ %.4f\n", k, pad, st.bar.Render(bar), v)
	}
	return b.String()
}

// Result renders one chart per metric of an analysis.
func Result(res *fairness.Result, opt Options) string {
	charts := make([]string, 0, len(fairness.MetricNames))
	for _, name := range fairness.MetricNames {
		charts = append(charts, Bars(fairness.Title(name), res.Metric(name), opt))
	}
	return strings.Join(charts, "\n")
}
