// Package grading orchestrates the rubric engine: the save path (classify,
// validate, commit, regrade sweep) and the grading path (evaluate enriched
// criteria, submit fillings, compute the grade).
package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/course"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// ErrConfirmationRequired is returned by SaveDefinition when the edit would
// disturb existing grades and the caller has not confirmed the regrade.
var ErrConfirmationRequired = errors.New("edit affects existing grades; confirmation required")

// ErrInvalidDefinition is returned when a definition edit has validation
// issues; the issues travel in the CheckResult.
var ErrInvalidDefinition = errors.New("definition has validation issues")

type Service struct {
	store rubric.Store
	agg   *enrich.Aggregator
}

func NewService(store rubric.Store, log enrich.ActivityLog) *Service {
	return &Service{store: store, agg: enrich.NewAggregator(log)}
}

// CheckResult is the outcome of a dry-run or save classification.
type CheckResult struct {
	Severity          rubric.Severity `json:"severity"`
	Changes           []rubric.Change `json:"changes,omitempty"`
	Issues            []rubric.Issue  `json:"issues,omitempty"`
	ActiveInstances   int             `json:"active_instances"`
	NeedsConfirmation bool            `json:"needs_confirmation"`
	SweptInstances    int             `json:"swept_instances,omitempty"`
}

// CheckDefinition classifies an edit against the persisted snapshot without
// mutating anything.
func (s *Service) CheckDefinition(ctx context.Context, edit rubric.Definition) (CheckResult, error) {
	var res CheckResult
	res.Issues = rubric.Validate(&edit)

	var old *rubric.Definition
	if edit.ID != 0 {
		d, err := s.store.GetDefinition(ctx, edit.ID)
		if err != nil && !errors.Is(err, rubric.ErrNotFound) {
			return res, err
		}
		if err == nil {
			old = &d
		}
		active, err := s.store.CountActiveInstances(ctx, edit.ID)
		if err != nil {
			return res, err
		}
		res.ActiveInstances = active
	}

	res.Severity, res.Changes = rubric.Classify(old, edit)
	res.NeedsConfirmation = res.Severity > rubric.SeverityNone && res.ActiveInstances > 0
	return res, nil
}

// SaveDefinition runs the classify-then-commit path. The diff is computed
// against one snapshot read; nothing is written when validation fails or a
// required confirmation is missing. After a confirmed disruptive commit the
// definition's active instances are swept to needupdate.
func (s *Service) SaveDefinition(ctx context.Context, edit rubric.Definition, confirmed bool) (rubric.Definition, CheckResult, error) {
	res, err := s.CheckDefinition(ctx, edit)
	if err != nil {
		return rubric.Definition{}, res, err
	}
	if len(res.Issues) > 0 {
		return rubric.Definition{}, res, ErrInvalidDefinition
	}
	if res.NeedsConfirmation && !confirmed {
		return rubric.Definition{}, res, ErrConfirmationRequired
	}
	if edit.Status == "" {
		edit.Status = rubric.StatusDraft
	}

	saved, err := s.store.SaveDefinition(ctx, edit)
	if err != nil {
		return rubric.Definition{}, res, err
	}
	if res.Severity > rubric.SeverityNone && res.ActiveInstances > 0 {
		n, err := s.store.MarkInstancesNeedUpdate(ctx, saved.ID)
		if err != nil {
			return saved, res, err
		}
		res.SweptInstances = n
	}
	return saved, res, nil
}

// Regrade manually sweeps a definition's active instances to needupdate.
func (s *Service) Regrade(ctx context.Context, defID int64) (int, error) {
	return s.store.MarkInstancesNeedUpdate(ctx, defID)
}

// StartGrading returns the rater's instance for the item, creating an
// incomplete one on first grading action.
func (s *Service) StartGrading(ctx context.Context, defID int64, raterID, itemID string) (rubric.Instance, error) {
	inst, err := s.store.FindInstance(ctx, defID, raterID, itemID)
	if err == nil {
		return inst, nil
	}
	if !errors.Is(err, rubric.ErrNotFound) {
		return rubric.Instance{}, err
	}
	return s.store.CreateInstance(ctx, rubric.Instance{
		DefinitionID: defID,
		RaterID:      raterID,
		ItemID:       itemID,
		Status:       rubric.InstanceIncomplete,
	})
}

// EvaluatedCriterion is one criterion prepared for the grading view: the
// stored filling merged with freshly computed benchmarks and, for enriched
// criteria, the level the benchmark selects.
type EvaluatedCriterion struct {
	Criterion       rubric.Criterion   `json:"criterion"`
	Filling         *rubric.Filling    `json:"filling,omitempty"`
	Benchmarks      *enrich.Benchmarks `json:"benchmarks,omitempty"`
	SelectedLevelID *int64             `json:"selected_level_id,omitempty"`
}

// Evaluate recomputes benchmarks for every enriched criterion of the
// instance's definition and merges them with the stored fillings. Benchmarks
// are never cached; each grading view reflects the current log state.
func (s *Service) Evaluate(ctx context.Context, instanceID, student string, w enrich.TimeRange, cat *course.Catalog) ([]EvaluatedCriterion, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	def, err := s.store.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return nil, err
	}
	fillings, err := s.store.GetFillings(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	byCriterion := make(map[int64]*rubric.Filling, len(fillings))
	for i := range fillings {
		byCriterion[fillings[i].CriterionID] = &fillings[i]
	}

	out := make([]EvaluatedCriterion, 0, len(def.Criteria))
	for i := range def.Criteria {
		c := def.Criteria[i]
		ec := EvaluatedCriterion{Criterion: c, Filling: byCriterion[c.ID]}
		if ec.Filling != nil {
			ec.SelectedLevelID = ec.Filling.LevelID
		}
		if c.IsEnriched() {
			b, err := s.agg.Aggregate(ctx, c, student, w, cat.Cohort())
			if err != nil {
				return nil, fmt.Errorf("criterion %d: %w", c.ID, err)
			}
			ec.Benchmarks = &b
			if ec.SelectedLevelID == nil {
				ordered := rubric.SortedLevels(c.Levels, def.Options.SortLevelsAscending)
				ec.SelectedLevelID = rubric.SelectLevel(ordered, c.Operator, b.Benchmark)
			}
		}
		out = append(out, ec)
	}
	return out, nil
}

// GradeResult is what a submission produces. Unavailable marks a degenerate
// scale; Complete is false while criteria remain unresolved, in which case
// no grade is computed and the instance stays incomplete.
type GradeResult struct {
	Grade       *float64 `json:"grade,omitempty"`
	Unavailable bool     `json:"unavailable,omitempty"`
	Complete    bool     `json:"complete"`
	Status      string   `json:"status"`
}

// GradeBounds carries the grade-item range a definition is attached to.
type GradeBounds struct {
	GradeMin      float64 `json:"grade_min"`
	GradeMax      float64 `json:"grade_max"`
	AllowDecimals bool    `json:"allow_decimals"`
}

// Submit stores the fillings and, when every criterion has a level selected,
// computes the grade and moves the instance to active.
func (s *Service) Submit(ctx context.Context, instanceID string, fillings []rubric.Filling, bounds GradeBounds) (GradeResult, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return GradeResult{}, err
	}
	def, err := s.store.GetDefinition(ctx, inst.DefinitionID)
	if err != nil {
		return GradeResult{}, err
	}

	levelScore := map[int64]map[int64]float64{}
	for i := range def.Criteria {
		c := &def.Criteria[i]
		levelScore[c.ID] = map[int64]float64{}
		for _, l := range c.Levels {
			levelScore[c.ID][l.ID] = l.Score
		}
	}
	selections := map[int64]float64{}
	for _, f := range fillings {
		scores, ok := levelScore[f.CriterionID]
		if !ok {
			return GradeResult{}, fmt.Errorf("filling for unknown criterion %d", f.CriterionID)
		}
		if f.LevelID == nil {
			continue
		}
		score, ok := scores[*f.LevelID]
		if !ok {
			return GradeResult{}, fmt.Errorf("criterion %d has no level %d", f.CriterionID, *f.LevelID)
		}
		selections[f.CriterionID] = score
	}

	if err := s.store.PutFillings(ctx, instanceID, fillings); err != nil {
		return GradeResult{}, err
	}

	res := GradeResult{Complete: len(selections) == len(def.Criteria), Status: inst.Status}
	if !res.Complete {
		return res, nil
	}

	scale := rubric.ScaleFor(&def, bounds.GradeMin, bounds.GradeMax, bounds.AllowDecimals)
	grade, ok := rubric.ComputeGrade(selections, scale)
	if !ok {
		res.Unavailable = true
	} else {
		res.Grade = &grade
	}

	if inst.Status != rubric.InstanceActive {
		if err := s.store.UpdateInstanceStatus(ctx, instanceID, rubric.InstanceActive); err != nil {
			return res, err
		}
	}
	res.Status = rubric.InstanceActive
	return res, nil
}

// Cancel discards a grading instance. Only incomplete instances can be
// cancelled; the instance and its fillings are deleted.
func (s *Service) Cancel(ctx context.Context, instanceID string) error {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.Status != rubric.InstanceIncomplete {
		return fmt.Errorf("%w: cancel requires incomplete, instance is %s", rubric.ErrInvalidState, inst.Status)
	}
	return s.store.DeleteInstance(ctx, instanceID)
}

// Copy duplicates an active instance's fillings unchanged onto a new
// rater/item pair.
func (s *Service) Copy(ctx context.Context, instanceID, newRaterID, newItemID string) (rubric.Instance, error) {
	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return rubric.Instance{}, err
	}
	if inst.Status != rubric.InstanceActive {
		return rubric.Instance{}, fmt.Errorf("%w: copy requires active, instance is %s", rubric.ErrInvalidState, inst.Status)
	}
	fillings, err := s.store.GetFillings(ctx, instanceID)
	if err != nil {
		return rubric.Instance{}, err
	}
	dup, err := s.store.CreateInstance(ctx, rubric.Instance{
		DefinitionID: inst.DefinitionID,
		RaterID:      newRaterID,
		ItemID:       newItemID,
		Status:       rubric.InstanceActive,
	})
	if err != nil {
		return rubric.Instance{}, err
	}
	if err := s.store.PutFillings(ctx, dup.ID, fillings); err != nil {
		return rubric.Instance{}, err
	}
	return dup, nil
}
