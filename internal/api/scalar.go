package api

import (
	"bytes"
	"html/template"
	"net/http"
)

// scalarPage is rendered with html/template so the title and description are escaped for
// both the HTML and the script context.
var scalarPage = template.Must(template.New("scalar").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}} - API Reference</title>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<style>body { margin: 0; }</style>
</head>
<body>
	<script id="api-reference" data-url="{{.SpecURL}}"></script>
	<script>
		document.getElementById('api-reference').dataset.configuration = JSON.stringify({
			theme: 'default',
			layout: 'modern',
			hideDownloadButton: false,
			metaData: { title: {{.Title}}, description: {{.Description}} },
			servers: [{ url: window.location.origin, description: 'This server' }]
		})
	</script>
	<script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`))

// ScalarHandler serves the Scalar API reference for the OpenAPI document at specURL.
func ScalarHandler(specURL, title, description string) http.Handler {
	var buf bytes.Buffer
	err := scalarPage.Execute(&buf, struct {
		SpecURL     string
		Title       string
		Description string
	}{specURL, title, description})

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, "render api reference: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
