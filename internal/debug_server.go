package internal

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Kind      string
	Timestamp string
	SessionID string
	Users     string
	Detail    string
}

type StatsProvider func() map[string]any

// RowSource pages through stored rows, newest first.
type RowSource func(cursor *string) ([]InspectRow, *string, error)

type PageData struct {
	Items      []InspectRow
	Stats      map[string]any
	NextCursor string
}

// NewDebugMux exposes /healthz, /stats and, when rows is set, /matches.
func NewDebugMux(log *slog.Logger, statsProvider StatsProvider, rows RowSource) *http.ServeMux {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := map[string]any{}
		if statsProvider != nil {
			stats = statsProvider()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Debug("Unable to encode stats", "error", err)
		}
	})

	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Stats: map[string]any{}}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}
		if rows != nil {
			var cursor *string
			if c := r.URL.Query().Get("cursor"); c != "" {
				cursor = &c
			}
			items, next, err := rows(cursor)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			data.Items = items
			if next != nil {
				data.NextCursor = *next
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Debug("Unable to render matches", "error", err)
		}
	})
	return mux
}

// StartDebugServer serves handler on port until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, handler http.Handler) {
	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info("Debug server available", "url", fmt.Sprintf("http://localhost:%d/matches", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Debug server stopped", "error", err)
		}
	}()
}
