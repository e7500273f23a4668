package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/drorv/scanhook/pkg/webhook"
)

const viewTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Scan Findings</title>
<style>
body { font-family: Arial; margin: 40px; }
h1 { color: #333; }
table { border-collapse: collapse; width: 100%; margin-top: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; }
th { background-color: #f2f2f2; }
</style>
</head>
<body>

<h1>Scan Findings</h1>

{{if .}}
<table>
<tr>
<th>Detector</th>
<th>Confidence</th>
<th>Finding</th>
<th>Location (bytes)</th>
</tr>
{{range .}}
<tr>
<td>{{.Detector.Name}}</td>
<td>{{.Confidence}}</td>
<td>{{.Display}}</td>
<td>{{with .Location.ByteRange}}{{.Start}}&ndash;{{.End}}{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No findings in this file.</p>
{{end}}

</body>
</html>
`

const errorTpl = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Error</title>
<style>
body { font-family: Arial; margin: 40px; }
h1 { color: #c00; }
</style>
</head>
<body>
<h1>Error</h1>
<p>{{.}}</p>
</body>
</html>
`

var (
	viewTemplate  = template.Must(template.New("view").Parse(viewTpl))
	errorTemplate = template.Must(template.New("error").Parse(errorTpl))
)

// viewHandler renders a scanned file's findings as an HTML table. The
// findings are fetched live from the time-limited signed URL in the
// "findings_url" query parameter, never stored.
//
// This handler performs no authentication of its own: anyone who can reach
// the endpoint with a findings URL can render it. The URL itself is the
// credential - it's pre-signed, short-lived, and only ever disclosed in
// notifications for callbacks that passed webhook verification.
func (s *httpServer) viewHandler(w http.ResponseWriter, r *http.Request) {
	l := log.With().Str("url_path", r.URL.EscapedPath()).Logger()

	findingsURL := r.URL.Query().Get("findings_url")
	if findingsURL == "" {
		l.Warn().Msg("bad request: missing findings_url query parameter")
		renderError(w, http.StatusBadRequest, "The findings_url query parameter is required.")
		return
	}

	findings, err := fetchFindings(r.Context(), findingsURL)
	if err != nil {
		l.Warn().Err(err).Msg("failed to fetch findings")
		renderError(w, http.StatusBadGateway, "Failed to download or parse the findings. The link may have expired.")
		return
	}

	l.Info().Int("findings", len(findings)).Msg("rendering findings")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := viewTemplate.Execute(w, findings); err != nil {
		l.Err(err).Msg("failed to render findings")
	}
}

// fetchFindings downloads and parses the findings JSON document, with a
// bounded timeout so a slow remote resource can't stall the handler.
func fetchFindings(ctx context.Context, findingsURL string) ([]webhook.Finding, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, findingsURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("findings download: %s", resp.Status)
	}

	f := new(webhook.FindingsFile)
	if err := json.NewDecoder(resp.Body).Decode(f); err != nil {
		return nil, err
	}

	return f.Findings, nil
}

func renderError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = errorTemplate.Execute(w, msg)
}
