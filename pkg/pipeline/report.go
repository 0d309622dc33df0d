package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// reportTemplate renders the per-run summary page. Layout mirrors the
// operations report the dashboard links to; keep the field names stable.
var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Rampart Prediction Report</title></head>
<body>
<h1>Prediction Report</h1>
<table border="0" class="table table-striped table-bordered">
  <tr><th>Run ID</th><td>{{.RunID}}</td></tr>
  <tr><th>Input file</th><td>{{.Input}}</td></tr>
  <tr><th>Rows</th><td>{{.Rows}}</td></tr>
  <tr><th>Skipped rows</th><td>{{.SkippedRows}}</td></tr>
  <tr><th>Alerts</th><td>{{.Alerts}}</td></tr>
  <tr><th>Whitelisted</th><td>{{.Whitelisted}}</td></tr>
  <tr><th>Suppressed</th><td>{{.Suppressed}}</td></tr>
  <tr><th>Accuracy</th><td>{{.Accuracy}}</td></tr>
  <tr><th>Duration</th><td>{{.DurationSec}} sec</td></tr>
  <tr><th>Generated</th><td>{{.Generated}}</td></tr>
</table>
</body>
</html>
`))

// RenderReport produces the HTML run report for a summary.
func RenderReport(s *Summary) ([]byte, error) {
	data := struct {
		*Summary
		DurationSec string
		Generated   string
	}{
		Summary:     s,
		DurationSec: fmt.Sprintf("%.2f", s.Duration.Seconds()),
		Generated:   time.Now().Format("2006-01-02 15:04:05"),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
