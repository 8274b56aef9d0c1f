package fairness

import (
	"fmt"
	"sort"
	"strings"
)

// Metric names, in report order.
const (
	MetricStatisticalParity = "statistical_parity"
	MetricDisparateImpact   = "disparate_impact"
	MetricEqualOpportunity  = "equal_opportunity"
)

// MetricNames lists every metric in report order.
var MetricNames = []string{MetricStatisticalParity, MetricDisparateImpact, MetricEqualOpportunity}

// Metric returns the mapping for one metric name, or nil for an unknown name.
func (r *Result) Metric(name string) map[string]float64 {
	switch name {
	case MetricStatisticalParity:
		return r.StatisticalParity
	case MetricDisparateImpact:
		return r.DisparateImpact
	case MetricEqualOpportunity:
		return r.EqualOpportunity
	}
	return nil
}

// Title returns the human-readable name of a metric.
func Title(metric string) string {
	switch metric {
	case MetricStatisticalParity:
		return "Statistical parity (std-dev of group shares)"
	case MetricDisparateImpact:
		return "Disparate impact (min/max group mean ratio)"
	case MetricEqualOpportunity:
		return "Equal opportunity (spread of positive rate)"
	}
	return metric
}

// Markdown renders a sectioned summary of the result.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[BIAS SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	if len(r.SensitiveAttributes) > 0 {
		b.WriteString(fmt.Sprintf("Sensitive attributes: %s\n", strings.Join(r.SensitiveAttributes, ", ")))
	} else {
		b.WriteString("Sensitive attributes: (none)\n")
	}
	if r.HasTarget() {
		b.WriteString(fmt.Sprintf("Target: %s\n", r.Target))
	} else {
		b.WriteString("Target: (none)\n")
	}

	for _, name := range MetricNames {
		b.WriteString("\n[")
		b.WriteString(strings.ToUpper(strings.ReplaceAll(name, "_", " ")))
		b.WriteString("]\n")
		m := r.Metric(name)
		if len(m) == 0 {
			if name == MetricEqualOpportunity && !r.HasTarget() {
				b.WriteString("- unavailable: no binary target column\n")
			} else {
				b.WriteString("- no data\n")
			}
			continue
		}
		for _, attr := range sortedKeys(m) {
			b.WriteString(fmt.Sprintf("- %s: %.4f\n", attr, m[attr]))
		}
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUPS]\n")
		attrs := make([]string, 0, len(r.Groups))
		for a := range r.Groups {
			attrs = append(attrs, a)
		}
		sort.Strings(attrs)
		for _, a := range attrs {
			b.WriteString(fmt.Sprintf("- %s:", a))
			for i, g := range r.Groups[a] {
				if i > 0 {
					b.WriteString(",")
				}
				b.WriteString(fmt.Sprintf(" %s=%d (%.1f%%)", g.Value, g.Count, g.Share*100))
			}
			b.WriteString("\n")
		}
	}
	if r.HasTarget() && len(r.EqualOpportunity) > 0 {
		b.WriteString("\n[NOTES]\n")
		b.WriteString("- equal opportunity uses the target's own positive rate per group; no prediction column is compared\n")
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
