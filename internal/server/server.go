package server

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"pcafe/internal/progress"
)

// Pinger is the health probe the server exposes for the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the progress store to its two public routes: /send for
// reporting and /see for viewing.
type Server struct {
	store  *progress.Store
	pinger Pinger
}

func New(store *progress.Store, pinger Pinger) *Server {
	return &Server{store: store, pinger: pinger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /send/{token}", s.handleSend)
	mux.HandleFunc("GET /see/{token}", s.handleSee)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// handleSend parses every key=value pair of the query string, then applies
// the resulting updates. Parse errors are reported per pair and nothing is
// written unless every pair parses.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var updates []*progress.Update
	var failures []string
	for task, values := range r.URL.Query() {
		for _, value := range values {
			u, err := progress.ParseUpdate(token, task, value)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s=%s: %v", task, value, err))
				continue
			}
			updates = append(updates, u)
		}
	}
	if len(failures) > 0 {
		sort.Strings(failures)
		http.Error(w, "Error: "+strings.Join(failures, "\n"), http.StatusBadRequest)
		return
	}

	for _, u := range updates {
		if err := s.store.Apply(r.Context(), u); err != nil {
			log.Error().Err(err).Str("token", token).Msg("update failed")
			http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	fmt.Fprint(w, "OK")
}

// taskView is one row of the /see response.
type taskView struct {
	Task string `json:"task"`
	progress.Value
}

// handleSee lists every task under the token, reads each record, and
// renders them sorted by task. ?format=json switches the rendering.
func (s *Server) handleSee(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	keys, err := s.store.ListTasks(r.Context(), token, "")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, progress.ErrInvalidCharset) {
			status = http.StatusBadRequest
		}
		http.Error(w, "Error: "+err.Error(), status)
		return
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Task < keys[j].Task })

	rows := make([]taskView, 0, len(keys))
	for _, k := range keys {
		v, err := s.store.ReadState(r.Context(), k)
		if err != nil {
			log.Error().Err(err).Str("token", token).Str("task", k.Task).Msg("read failed")
			http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		rows = append(rows, taskView{Task: k.Task, Value: v})
	}

	if r.URL.Query().Get("format") == "json" {
		data, err := sonic.Marshal(rows)
		if err != nil {
			http.Error(w, "Error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, renderHTML(rows))
}

// renderHTML produces the progress-bar fragment. Missing fields render
// with the presentation defaults 0, 100 and "?"; nothing is written back.
func renderHTML(rows []taskView) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var current, max int64 = 0, 100
		state := "?"
		if row.Current != nil {
			current = *row.Current
		}
		if row.Max != nil {
			max = *row.Max
		}
		if row.State != nil {
			state = html.EscapeString(*row.State)
		}
		lines = append(lines, fmt.Sprintf(
			"<b>%s</b> <progress value='%d' max='%d'>what </progress> <i>%s</i>",
			row.Task, current, max, state))
	}
	return strings.Join(lines, "<br/><br/><br/>\n\n\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	fmt.Fprint(w, "OK")
}
