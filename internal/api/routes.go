package api

import (
	"html/template"
	"net/http"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/remap/enable", s.handleEnable)
	mux.HandleFunc("POST /api/remap/disable", s.handleDisable)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleIndex)

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.SetEnabled(true))
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.SetEnabled(false))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.ctrl.Status()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>QwertDvert</title></head>
<body>
<h1>QwertDvert</h1>
<p>State: {{.State}}</p>
<p>Remapping: {{if .Enabled}}enabled{{else}}disabled{{end}}</p>
<p>Keyboards grabbed: {{.DevicesGrabbed}}</p>
<ul>
{{range .Devices}}<li>{{.}}</li>{{end}}
</ul>
<form method="post" action="/api/remap/enable"><button>Enable</button></form>
<form method="post" action="/api/remap/disable"><button>Disable</button></form>
</body>
</html>
`))
