package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/grading"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// GET /definitions
func ListDefinitionsHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		defs, err := store.ListDefinitions(r.Context(), rubric.ListOpts{
			Q:      q.Get("q"),
			Status: q.Get("status"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			http.Error(w, "list definitions: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if defs == nil {
			defs = []rubric.DefinitionSummary{}
		}
		_ = json.NewEncoder(w).Encode(defs)
	}
}

// GET /definitions/{definitionID}
func GetDefinitionHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := definitionID(w, r)
		if !ok {
			return
		}
		d, err := store.GetDefinition(r.Context(), id)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "definition not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "get definition: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(d)
	}
}

// POST /definitions/check — dry-run classification, never mutates.
func CheckDefinitionHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var edit rubric.Definition
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		res, err := svc.CheckDefinition(r.Context(), edit)
		if err != nil {
			http.Error(w, "check definition: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// POST /definitions?confirm=1 — classify-then-commit save. 409 with the
// check result when a disruptive edit lacks confirmation, 422 on
// validation issues.
func SaveDefinitionHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var edit rubric.Definition
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		confirmed := r.URL.Query().Get("confirm") == "1"
		saved, res, err := svc.SaveDefinition(r.Context(), edit, confirmed)
		switch {
		case errors.Is(err, grading.ErrInvalidDefinition):
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(res)
			return
		case errors.Is(err, grading.ErrConfirmationRequired):
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(res)
			return
		case err != nil:
			http.Error(w, "save definition: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(struct {
			Definition rubric.Definition   `json:"definition"`
			Check      grading.CheckResult `json:"check"`
		}{saved, res})
	}
}

// DELETE /definitions/{definitionID}
func DeleteDefinitionHandler(store rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := definitionID(w, r)
		if !ok {
			return
		}
		err := store.DeleteDefinition(r.Context(), id)
		if errors.Is(err, rubric.ErrNotFound) {
			http.Error(w, "definition not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "delete definition: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /definitions/{definitionID}/regrade
func RegradeHandler(svc *grading.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := definitionID(w, r)
		if !ok {
			return
		}
		n, err := svc.Regrade(r.Context(), id)
		if err != nil {
			http.Error(w, "regrade: "+err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"swept": n})
	}
}

func definitionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "definitionID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "definitionID required", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
