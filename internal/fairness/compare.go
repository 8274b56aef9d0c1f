package fairness

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Delta is one metric value before and after mitigation.
type Delta struct {
	Metric    string  `json:"metric" yaml:"metric"`
	Attribute string  `json:"attribute" yaml:"attribute"`
	Before    float64 `json:"before" yaml:"before"`
	After     float64 `json:"after" yaml:"after"`
	// HasBefore/HasAfter are false when the metric was unavailable on that side.
	HasBefore bool `json:"has_before" yaml:"has_before"`
	HasAfter  bool `json:"has_after" yaml:"has_after"`
}

// Change returns After - Before, or NaN when either side is missing.
func (d Delta) Change() float64 {
	if !d.HasBefore || !d.HasAfter {
		return math.NaN()
	}
	return d.After - d.Before
}

// Comparison pairs two results of the same dataset, e.g. before and after mitigation.
type Comparison struct {
	Before *Result `json:"before" yaml:"before"`
	After  *Result `json:"after" yaml:"after"`
	Deltas []Delta `json:"deltas" yaml:"deltas"`
}

// Compare lines up every metric/attribute pair present in either result.
func Compare(before, after *Result) *Comparison {
	c := &Comparison{Before: before, After: after}
	for _, name := range MetricNames {
		b, a := before.Metric(name), after.Metric(name)
		attrs := map[string]struct{}{}
		for k := range b {
			attrs[k] = struct{}{}
		}
		for k := range a {
			attrs[k] = struct{}{}
		}
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d := Delta{Metric: name, Attribute: k}
			d.Before, d.HasBefore = b[k]
			d.After, d.HasAfter = a[k]
			c.Deltas = append(c.Deltas, d)
		}
	}
	return c
}

// Markdown renders the metric deltas and the group distributions side by side.
func (c *Comparison) Markdown() string {
	var b strings.Builder
	b.WriteString("[BEFORE / AFTER]\n")
	b.WriteString(fmt.Sprintf("Rows: %d -> %d\n", c.Before.Rows, c.After.Rows))
	if len(c.Deltas) == 0 {
		b.WriteString("- no metrics available\n")
	}
	for _, d := range c.Deltas {
		b.WriteString(fmt.Sprintf("- %s / %s: %s -> %s", d.Metric, d.Attribute, fmtMaybe(d.Before, d.HasBefore), fmtMaybe(d.After, d.HasAfter)))
		if ch := d.Change(); !math.IsNaN(ch) {
			b.WriteString(fmt.Sprintf(" (%+.4f)", ch))
		}
		b.WriteString("\n")
	}

	attrs := make([]string, 0, len(c.Before.Groups))
	for a := range c.Before.Groups {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)
	if len(attrs) > 0 {
		b.WriteString("\n[GROUP DISTRIBUTION]\n")
	}
	for _, a := range attrs {
		after := map[string]GroupCount{}
		for _, g := range c.After.Groups[a] {
			after[g.Value] = g
		}
		b.WriteString(fmt.Sprintf("- %s:\n", a))
		for _, g := range c.Before.Groups[a] {
			ag := after[g.Value]
			b.WriteString(fmt.Sprintf("  • %s: %d (%.1f%%) -> %d (%.1f%%)\n", g.Value, g.Count, g.Share*100, ag.Count, ag.Share*100))
		}
	}
	return b.String()
}

func fmtMaybe(v float64, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
