package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"project-pulse/internals/modules/alert"
	"project-pulse/internals/modules/health"
	"project-pulse/internals/modules/performance"
	"project-pulse/pkg/apperror"
)

const (
	HTMLFile    = "index.html"
	SummaryFile = "summary.json"
)

// Summary is the machine-readable twin of the HTML page.
type Summary struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Overall     string                `json:"overall"`
	Health      *health.Snapshot      `json:"health"`
	Performance *performance.Snapshot `json:"performance"`
	Alerts      *alert.Statistics     `json:"alerts"`
}

type Page struct {
	HTML    []byte
	Summary Summary
}

// Generate renders the dashboard. Any input may be nil; missing sections are
// rendered as "no data available".
func Generate(h *health.Snapshot, p *performance.Snapshot, st *alert.Statistics, now time.Time) (Page, error) {
	const op string = "dashboard.generate"

	sum := Summary{
		GeneratedAt: now.UTC(),
		Overall:     "unknown",
		Health:      h,
		Performance: p,
		Alerts:      st,
	}
	if h != nil {
		sum.Overall = string(h.Overall)
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, sum); err != nil {
		return Page{}, apperror.New(apperror.Internal, op, err)
	}
	return Page{HTML: buf.Bytes(), Summary: sum}, nil
}

// Write stores index.html and summary.json in dir, replacing earlier output.
func Write(dir string, page Page) error {
	const op string = "dashboard.write"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.New(apperror.Storage, op, err)
	}

	data, err := json.MarshalIndent(page.Summary, "", "  ")
	if err != nil {
		return apperror.New(apperror.Internal, op, err)
	}

	for name, body := range map[string][]byte{HTMLFile: page.HTML, SummaryFile: data} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path+".tmp", body, 0o644); err != nil {
			return apperror.New(apperror.Storage, op, err)
		}
		if err := os.Rename(path+".tmp", path); err != nil {
			return apperror.New(apperror.Storage, op, err)
		}
	}
	return nil
}

var funcs = template.FuncMap{
	"latency": func(v *int64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%dms", *v)
	},
	"avg": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.0fms", *v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	},
	"mb": func(v float64) string {
		return fmt.Sprintf("%.1f MB", v)
	},
	"ts": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"tsp": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"target": func(a alert.Alert) string {
		return a.Target()
	},
}

var pageTmpl = template.Must(template.New("dashboard").Funcs(funcs).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="300">
<title>Monitoring dashboard</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;background:#f6f7f9;color:#222}
h1{margin-bottom:.2rem}
section{background:#fff;border-radius:8px;padding:1rem 1.5rem;margin:1rem 0;box-shadow:0 1px 3px rgba(0,0,0,.08)}
table{border-collapse:collapse;width:100%}
th,td{text-align:left;padding:.35rem .6rem;border-bottom:1px solid #eee;font-size:.9rem}
.badge{display:inline-block;padding:.2rem .7rem;border-radius:12px;color:#fff;font-weight:600}
.healthy,.ok{background:#27ae60}.warning{background:#f39c12}.critical,.fail{background:#e74c3c}.unknown{background:#95a5a6}
.empty{color:#888;font-style:italic}
</style>
</head>
<body>
<h1>Monitoring dashboard</h1>
<p>Generated {{ts .GeneratedAt}} &middot; overall <span class="badge {{.Overall}}">{{.Overall}}</span></p>

<section>
<h2>Health</h2>
{{with .Health}}
<p>Last run {{ts .Timestamp}}</p>
<table>
<tr><th>Check</th><th>Target</th><th>Result</th><th>Latency</th><th>Status</th><th>Critical</th></tr>
{{range .Checks}}<tr>
<td>{{.Name}}</td><td>{{.Target}}</td>
<td><span class="badge {{if .Succeeded}}ok{{else}}fail{{end}}">{{if .Succeeded}}ok{{else}}failed{{end}}</span></td>
<td>{{latency .LatencyMs}}</td><td>{{.Status}}{{with .Reason}} ({{.}}){{end}}</td><td>{{if .Critical}}yes{{else}}no{{end}}</td>
</tr>{{end}}
</table>
{{else}}<p class="empty">No data available</p>{{end}}
</section>

<section>
<h2>Performance</h2>
{{with .Performance}}
<p>Last run {{ts .Timestamp}} &middot; heap {{mb .SystemMetrics.HeapUsedMb}} of {{mb .SystemMetrics.HeapTotalMb}}</p>
<table>
<tr><th>Group</th><th>Target</th><th>Average</th><th>Success rate</th></tr>
{{range .APIMetrics}}<tr><td>api</td><td>{{.Name}}</td><td>{{avg .AvgLatencyMs}}</td><td>{{pct .SuccessRate}}</td></tr>{{end}}
{{range .DBMetrics}}<tr><td>db</td><td>{{.Name}}</td><td>{{avg .AvgLatencyMs}}</td><td>{{pct .SuccessRate}}</td></tr>{{end}}
{{range .PageMetrics}}<tr><td>page</td><td>{{.Name}}</td><td>{{avg .AvgLatencyMs}}</td><td>{{pct .SuccessRate}}</td></tr>{{end}}
</table>
{{else}}<p class="empty">No data available</p>{{end}}
</section>

<section>
<h2>Alerts</h2>
{{with .Alerts}}
<p>{{.Total}} total &middot; {{.Last24h}} in the last 24h &middot; {{.Last7d}} in the last 7 days &middot; last alert {{tsp .LastAlertAt}}</p>
{{if .Recent}}<table>
<tr><th>Time</th><th>Severity</th><th>Type</th><th>Target</th><th>Message</th></tr>
{{range .Recent}}<tr><td>{{ts .Timestamp}}</td><td><span class="badge {{.Severity}}">{{.Severity}}</span></td><td>{{.Type}}</td><td>{{target .Alert}}</td><td>{{.Message}}</td></tr>{{end}}
</table>{{else}}<p class="empty">No alerts recorded</p>{{end}}
{{else}}<p class="empty">No data available</p>{{end}}
</section>
</body>
</html>
`
