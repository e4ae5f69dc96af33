package http

import (
	"encoding/json"
	"net/http"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
)

// POST /activity/events — append activity records (views, posts, chat
// messages, module grades) that later feed the enrichment benchmarks.
func RecordActivityHandler(rec *enrich.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var events []enrich.Event
		if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		for _, e := range events {
			if e.StudentID == "" || e.ModuleID == 0 {
				http.Error(w, "student_id and module_id required", http.StatusBadRequest)
				return
			}
			if err := rec.Record(r.Context(), e); err != nil {
				http.Error(w, "record event: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"recorded": len(events)})
	}
}
