package logging

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// HistoryHandler serves recent log entries and the log file path as JSON.
// The optional limit query parameter bounds the number of entries.
func (l *Logger) HistoryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"path":    l.Path(),
			"entries": l.History(limit),
		})
	})
}
