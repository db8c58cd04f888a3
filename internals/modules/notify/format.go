package notify

import (
	"fmt"
	"sort"
	"strings"

	"project-pulse/internals/modules/alert"
)

func severityEmoji(s alert.Severity) string {
	if s == alert.SeverityCritical {
		return "🔴"
	}
	return "🟡"
}

func subject(service string, a alert.Alert) string {
	return fmt.Sprintf("[%s %s] %s alert", service, strings.ToUpper(string(a.Severity)), a.Type)
}

// details renders the target and numeric context of an alert, one per line.
func details(a alert.Alert) []string {
	var lines []string
	if a.Endpoint != "" {
		lines = append(lines, "Endpoint: "+a.Endpoint)
	}
	if a.Page != "" {
		lines = append(lines, "Page: "+a.Page)
	}
	if a.Query != "" {
		lines = append(lines, "Query: "+a.Query)
	}
	if a.ResponseTime > 0 {
		lines = append(lines, fmt.Sprintf("Response time: %.0fms", a.ResponseTime))
	}
	if a.QueryTime > 0 {
		lines = append(lines, fmt.Sprintf("Query time: %.0fms", a.QueryTime))
	}
	if a.LoadTime > 0 {
		lines = append(lines, fmt.Sprintf("Load time: %.0fms", a.LoadTime))
	}
	if a.MemoryUsage > 0 {
		lines = append(lines, fmt.Sprintf("Memory usage: %.1f%%", a.MemoryUsage))
	}
	return lines
}

func plainText(a alert.Alert) string {
	lines := append([]string{a.Message, ""}, details(a)...)
	return strings.Join(lines, "\n")
}

func digestText(d alert.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alerts in the last 24h: %d\n", d.Total)
	if d.Total == 0 {
		b.WriteString("No alerts were raised.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Critical: %d, warning: %d\n",
		d.BySeverity[alert.SeverityCritical], d.BySeverity[alert.SeverityWarning])

	types := make([]string, 0, len(d.ByType))
	for t := range d.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "  %s: %d\n", t, d.ByType[alert.Type(t)])
	}
	return b.String()
}
