// Package course provides an immutable snapshot of course structure: the
// modules a rubric can link against and the cohort of enrolled students.
// The catalog is built once per request and passed in explicitly; nothing
// in the grading path reads course structure from ambient state.
package course

import (
	"context"
	"database/sql"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// ModuleInfo describes one course module.
type ModuleInfo struct {
	Ref      rubric.ModuleRef `json:"ref"`
	Name     string           `json:"name"`
	MaxGrade float64          `json:"max_grade"`
}

// Catalog is a read-only lookup over modules and cohort membership.
type Catalog struct {
	modules map[rubric.ModuleRef]ModuleInfo
	cohort  []string
}

// NewCatalog builds a catalog from pre-fetched data. Both slices are copied.
func NewCatalog(modules []ModuleInfo, cohort []string) *Catalog {
	m := make(map[rubric.ModuleRef]ModuleInfo, len(modules))
	for _, mi := range modules {
		m[mi.Ref] = mi
	}
	c := make([]string, len(cohort))
	copy(c, cohort)
	return &Catalog{modules: m, cohort: c}
}

// Load reads modules and cohort membership from the database.
func Load(ctx context.Context, db *sql.DB) (*Catalog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT module_type, module_id, instance_id, name, max_grade FROM course_modules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []ModuleInfo
	for rows.Next() {
		var mi ModuleInfo
		if err := rows.Scan(&mi.Ref.Type, &mi.Ref.ModuleID, &mi.Ref.InstanceID, &mi.Name, &mi.MaxGrade); err != nil {
			return nil, err
		}
		modules = append(modules, mi)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := db.QueryContext(ctx, `SELECT student_id FROM cohort_members`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	var cohort []string
	for crows.Next() {
		var s string
		if err := crows.Scan(&s); err != nil {
			return nil, err
		}
		cohort = append(cohort, s)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	return NewCatalog(modules, cohort), nil
}

// Module looks up one module by ref.
func (c *Catalog) Module(ref rubric.ModuleRef) (ModuleInfo, bool) {
	mi, ok := c.modules[ref]
	return mi, ok
}

// Modules returns all modules of the given type, or all modules for "".
func (c *Catalog) Modules(moduleType string) []ModuleInfo {
	var out []ModuleInfo
	for _, mi := range c.modules {
		if moduleType == "" || mi.Ref.Type == moduleType {
			out = append(out, mi)
		}
	}
	return out
}

// Cohort returns the enrolled students. The returned slice is shared; do
// not mutate it.
func (c *Catalog) Cohort() []string {
	return c.cohort
}
