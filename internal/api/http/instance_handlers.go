package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/config"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/course"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/grading"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

type startInstanceReq struct {
	DefinitionID int64  `json:"definition_id"`
	RaterID      string `json:"rater_id"`
	ItemID       string `json:"item_id"`
}

// POST /instances — find-or-create the rater's instance for an item.
func StartInstanceHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startInstanceReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.DefinitionID <= 0 || req.RaterID == "" || req.ItemID == "" {
			http.Error(w, "definition_id, rater_id and item_id required", http.StatusBadRequest)
			return
		}
		inst, err := svc.StartGrading(r.Context(), req.DefinitionID, req.RaterID, req.ItemID)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "definition not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "start grading: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(inst)
	}
}

// GET /instances/{instanceID}
func GetInstanceHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "instanceID"))
		if id == "" {
			http.Error(w, "instanceID required", http.StatusBadRequest)
			return
		}
		inst, err := store.GetInstance(r.Context(), id)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "get instance: "+err.Error(), http.StatusInternalServerError)
			return
		}
		fillings, err := store.GetFillings(r.Context(), id)
		if err != nil {
			http.Error(w, "get fillings: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(struct {
			Instance rubric.Instance  `json:"instance"`
			Fillings []rubric.Filling `json:"fillings"`
		}{inst, fillings})
	}
}

// GET /instances/{instanceID}/evaluate?student=...&from=...&to=...
// Benchmarks are recomputed from the current log state on every call.
func EvaluateHandler(svc *grading.Service, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "instanceID"))
		student := strings.TrimSpace(r.URL.Query().Get("student"))
		if id == "" || student == "" {
			http.Error(w, "instanceID and student required", http.StatusBadRequest)
			return
		}
		window, err := parseWindow(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		cat, err := course.Load(r.Context(), db)
		if err != nil {
			http.Error(w, "course catalog: "+err.Error(), http.StatusInternalServerError)
			return
		}
		out, err := svc.Evaluate(r.Context(), id, student, window, cat)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "evaluate: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

type submitReq struct {
	Fillings []rubric.Filling     `json:"fillings"`
	Bounds   *grading.GradeBounds `json:"bounds,omitempty"`
}

// POST /instances/{instanceID}/fillings — submit, compute grade.
func SubmitHandler(svc *grading.Service, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "instanceID"))
		if id == "" {
			http.Error(w, "instanceID required", http.StatusBadRequest)
			return
		}
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		bounds := grading.GradeBounds{
			GradeMin:      cfg.GradeMin,
			GradeMax:      cfg.GradeMax,
			AllowDecimals: cfg.AllowDecimals,
		}
		if req.Bounds != nil {
			bounds = *req.Bounds
		}
		res, err := svc.Submit(r.Context(), id, req.Fillings, bounds)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "instance not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "submit: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /instances/{instanceID}/cancel
func CancelInstanceHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "instanceID"))
		err := svc.Cancel(r.Context(), id)
		switch {
		case errors.Is(err, rubric.ErrNotFound):
			http.Error(w, "instance not found", http.StatusNotFound)
		case errors.Is(err, rubric.ErrInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, "cancel: "+err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

type copyReq struct {
	RaterID string `json:"rater_id"`
	ItemID  string `json:"item_id"`
}

// POST /instances/{instanceID}/copy
func CopyInstanceHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "instanceID"))
		var req copyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.RaterID == "" || req.ItemID == "" {
			http.Error(w, "rater_id and item_id required", http.StatusBadRequest)
			return
		}
		dup, err := svc.Copy(r.Context(), id, req.RaterID, req.ItemID)
		switch {
		case errors.Is(err, rubric.ErrNotFound):
			http.Error(w, "instance not found", http.StatusNotFound)
		case errors.Is(err, rubric.ErrInvalidState):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, "copy: "+err.Error(), http.StatusInternalServerError)
		default:
			_ = json.NewEncoder(w).Encode(dup)
		}
	}
}

func parseWindow(r *http.Request) (enrich.TimeRange, error) {
	var w enrich.TimeRange
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return w, errors.New("from must be RFC3339")
		}
		w.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return w, errors.New("to must be RFC3339")
		}
		w.To = t
	}
	return w, nil
}
