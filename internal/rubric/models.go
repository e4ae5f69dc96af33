package rubric

import "sort"

// Enrichment selects how a criterion is evaluated from activity logs.
// EnrichNone means the criterion is graded manually.
type Enrichment string

const (
	EnrichNone          Enrichment = "none"
	EnrichCollaboration Enrichment = "collaboration"
	EnrichGrade         Enrichment = "grade"
	EnrichStudy         Enrichment = "study"
)

// CollabKind is the sub-type of a collaboration criterion.
type CollabKind string

const (
	CollabEntries      CollabKind = "entries"
	CollabFileAdds     CollabKind = "fileadds"
	CollabReplies      CollabKind = "replies"
	CollabInteractions CollabKind = "interactions"
)

// Operator decides how a benchmark is matched against level thresholds.
type Operator string

const (
	OpEqual   Operator = "equal"
	OpAtLeast Operator = "atleast"
)

// Scope decides whether a benchmark is absolute or normalized against the cohort.
type Scope string

const (
	ScopeIndividual Scope = "individual"
	ScopeCohort     Scope = "cohort"
)

// Definition statuses.
const (
	StatusDraft = "draft"
	StatusReady = "ready"
)

// Instance statuses.
const (
	InstanceIncomplete = "incomplete"
	InstanceActive     = "active"
	InstanceNeedUpdate = "needupdate"
)

// ModuleRef identifies one linked course module. Linked modules are stored
// and compared structurally, never as encoded strings.
type ModuleRef struct {
	Type       string `json:"type"` // forum|chat|assign|resource|...
	ModuleID   int64  `json:"module_id"`
	InstanceID int64  `json:"instance_id"`
}

// Level is one scoring band within a criterion. ID 0 marks a row that has
// not been persisted yet. EnrichedValue is the benchmark threshold and is
// set iff the owning criterion is enriched.
type Level struct {
	ID            int64   `json:"id,omitempty"`
	Score         float64 `json:"score"`
	Definition    string  `json:"definition"`
	EnrichedValue *int    `json:"enriched_value,omitempty"`
}

// Criterion is one rubric row. ID 0 marks a pending (unsaved) criterion.
type Criterion struct {
	ID          int64       `json:"id,omitempty"`
	SortOrder   int         `json:"sort_order"`
	Description string      `json:"description"`
	Enrichment  Enrichment  `json:"enrichment"`
	CollabKind  CollabKind  `json:"collab_kind,omitempty"`
	Operator    Operator    `json:"operator,omitempty"`
	Scope       Scope       `json:"scope,omitempty"`
	Modules     []ModuleRef `json:"modules,omitempty"`
	Levels      []Level     `json:"levels"`
}

// Options are the definition-wide toggles that affect grading and display.
type Options struct {
	LockZeroPoints      bool `json:"lock_zero_points"`
	SortLevelsAscending bool `json:"sort_levels_ascending"`
	ShowDescription     bool `json:"show_description"`
	ShowLevelPoints     bool `json:"show_level_points"`
	AllowRemarks        bool `json:"allow_remarks"`
}

// DefaultOptions mirror the defaults applied when a teacher first opens the
// definition editor.
func DefaultOptions() Options {
	return Options{
		SortLevelsAscending: true,
		ShowDescription:     true,
		ShowLevelPoints:     true,
		AllowRemarks:        true,
	}
}

// Definition is a full rubric definition snapshot.
type Definition struct {
	ID          int64       `json:"id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	Options     Options     `json:"options"`
	Criteria    []Criterion `json:"criteria"`
	ModifiedBy  string      `json:"modified_by,omitempty"`
}

// DefinitionSummary is the list-view projection of a definition.
type DefinitionSummary struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Criteria  int    `json:"criteria"`
	Instances int    `json:"instances"`
}

// Instance is one rater's grading of one graded item against a definition.
type Instance struct {
	ID           string `json:"id"`
	DefinitionID int64  `json:"definition_id"`
	RaterID      string `json:"rater_id"`
	ItemID       string `json:"item_id"`
	Status       string `json:"status"`
}

// Filling is the per-criterion state of an instance: the selected level plus
// the benchmarks that were current when the grader filled it.
type Filling struct {
	CriterionID      int64    `json:"criterion_id"`
	LevelID          *int64   `json:"level_id,omitempty"`
	Remark           string   `json:"remark,omitempty"`
	EnrichedBench    *int     `json:"enriched_benchmark,omitempty"`
	StudentBenchmark *float64 `json:"student_benchmark,omitempty"`
	CohortBenchmark  *float64 `json:"cohort_benchmark,omitempty"`
}

// IsEnriched reports whether the criterion is evaluated from activity logs.
func (c *Criterion) IsEnriched() bool {
	return c.Enrichment != "" && c.Enrichment != EnrichNone
}

// MaxScore returns the highest level score, or 0 for a criterion without levels.
func (c *Criterion) MaxScore() float64 {
	max := 0.0
	for i, l := range c.Levels {
		if i == 0 || l.Score > max {
			max = l.Score
		}
	}
	return max
}

// MinScore returns the lowest level score, or 0 for a criterion without levels.
func (c *Criterion) MinScore() float64 {
	min := 0.0
	for i, l := range c.Levels {
		if i == 0 || l.Score < min {
			min = l.Score
		}
	}
	return min
}

// ScoreRange sums min and max level scores over all criteria.
func (d *Definition) ScoreRange() (min, max float64) {
	for i := range d.Criteria {
		min += d.Criteria[i].MinScore()
		max += d.Criteria[i].MaxScore()
	}
	return min, max
}

// SortedLevels returns the levels ordered by score, ascending or descending
// per the definition's display option. The input slice is not mutated.
func SortedLevels(levels []Level, ascending bool) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Score < out[j].Score
		}
		return out[i].Score > out[j].Score
	})
	return out
}

// SameModules reports structural equality of two linked-module sets,
// ignoring order.
func SameModules(a, b []ModuleRef) bool {
	if len(a) != len(b) {
		return false
	}
	as := sortedModules(a)
	bs := sortedModules(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedModules(m []ModuleRef) []ModuleRef {
	out := make([]ModuleRef, len(m))
	copy(out, m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].ModuleID != out[j].ModuleID {
			return out[i].ModuleID < out[j].ModuleID
		}
		return out[i].InstanceID < out[j].InstanceID
	})
	return out
}
