package enrich_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

/* ---------------- In-memory fake that satisfies enrich.ActivityLog ---------------- */

type fakeLog struct {
	// counts is keyed by kind|module|student; cohort counts are summed from it.
	counts       map[string]int
	participants map[string][]string // kind|module
	sessions     map[int64][]enrich.Session
	grades       map[string]*float64 // student|module
	maxGrades    map[int64]float64
}

func newFakeLog() *fakeLog {
	return &fakeLog{
		counts:       map[string]int{},
		participants: map[string][]string{},
		sessions:     map[int64][]enrich.Session{},
		grades:       map[string]*float64{},
		maxGrades:    map[int64]float64{},
	}
}

func countKey(kind enrich.EventKind, mod rubric.ModuleRef, student string) string {
	return fmt.Sprintf("%s|%d|%s", kind, mod.ModuleID, student)
}

func (f *fakeLog) setCount(kind enrich.EventKind, mod rubric.ModuleRef, student string, n int) {
	f.counts[countKey(kind, mod, student)] = n
}

func (f *fakeLog) setGrade(student string, mod rubric.ModuleRef, g float64) {
	f.grades[fmt.Sprintf("%s|%d", student, mod.ModuleID)] = &g
}

func (f *fakeLog) CountEvents(_ context.Context, kind enrich.EventKind, mod rubric.ModuleRef, filt enrich.SubjectFilter, _ enrich.TimeRange) (int, error) {
	if filt.Student != "" {
		return f.counts[countKey(kind, mod, filt.Student)], nil
	}
	total := 0
	for _, s := range filt.Cohort {
		total += f.counts[countKey(kind, mod, s)]
	}
	return total, nil
}

func (f *fakeLog) ListParticipants(_ context.Context, kind enrich.EventKind, mod rubric.ModuleRef, _ enrich.TimeRange) ([]string, error) {
	return f.participants[fmt.Sprintf("%s|%d", kind, mod.ModuleID)], nil
}

func (f *fakeLog) ListSessions(_ context.Context, mod rubric.ModuleRef, _ enrich.TimeRange) ([]enrich.Session, error) {
	return f.sessions[mod.ModuleID], nil
}

func (f *fakeLog) GradeOf(_ context.Context, student string, mod rubric.ModuleRef) (*float64, error) {
	return f.grades[fmt.Sprintf("%s|%d", student, mod.ModuleID)], nil
}

func (f *fakeLog) ModuleMaxGrade(_ context.Context, mod rubric.ModuleRef) (float64, error) {
	return f.maxGrades[mod.ModuleID], nil
}

/* ------------------------------------------ Tests ------------------------------------------ */

var (
	forum1 = rubric.ModuleRef{Type: "forum", ModuleID: 1, InstanceID: 1}
	forum2 = rubric.ModuleRef{Type: "forum", ModuleID: 2, InstanceID: 2}
	assign = rubric.ModuleRef{Type: "assign", ModuleID: 3, InstanceID: 3}
	chat   = rubric.ModuleRef{Type: "chat", ModuleID: 4, InstanceID: 4}
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func criterion(e rubric.Enrichment, kind rubric.CollabKind, scope rubric.Scope, mods ...rubric.ModuleRef) rubric.Criterion {
	return rubric.Criterion{
		ID:         42,
		Enrichment: e,
		CollabKind: kind,
		Operator:   rubric.OpAtLeast,
		Scope:      scope,
		Modules:    mods,
	}
}

func TestAggregate_StudyIndividual(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventViewed, forum1, "alice", 3)
	log.setCount(enrich.EventViewed, forum2, "alice", 4)

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichStudy, "", rubric.ScopeIndividual, forum1, forum2)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.StudentRaw == nil || *b.StudentRaw != 7 {
		t.Fatalf("expected student raw 7, got %v", b.StudentRaw)
	}
	if b.CohortRaw != nil {
		t.Fatalf("individual scope must not compute a cohort value")
	}
	if b.Benchmark == nil || *b.Benchmark != 7 {
		t.Fatalf("expected benchmark 7, got %v", b.Benchmark)
	}
}

func TestAggregate_StudyCohort(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventViewed, forum1, "alice", 6)
	log.setCount(enrich.EventViewed, forum1, "bob", 2)
	// carol never viewed; she still counts in the divisor.

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichStudy, "", rubric.ScopeCohort, forum1)
	cohort := []string{"alice", "bob", "carol"}
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, cohort)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.CohortRaw == nil || !almost(*b.CohortRaw, 8.0/3) {
		t.Fatalf("expected cohort raw 8/3, got %v", b.CohortRaw)
	}
	// round(100 * 6 / (8/3)) = round(225)
	if b.Benchmark == nil || *b.Benchmark != 225 {
		t.Fatalf("expected benchmark 225, got %v", b.Benchmark)
	}
	if b.Iterations != 1 {
		t.Fatalf("expected one module iteration, got %d", b.Iterations)
	}
}

func TestAggregate_GradeIndividual(t *testing.T) {
	log := newFakeLog()
	log.maxGrades[assign.ModuleID] = 100
	log.setGrade("alice", assign, 80)

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichGrade, "", rubric.ScopeIndividual, assign)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.StudentRaw == nil || *b.StudentRaw != 80 {
		t.Fatalf("expected student raw 80, got %v", b.StudentRaw)
	}
	if b.Benchmark == nil || *b.Benchmark != 80 {
		t.Fatalf("expected benchmark 80, got %v", b.Benchmark)
	}
}

func TestAggregate_GradeNormalizesAndSkipsUngraded(t *testing.T) {
	log := newFakeLog()
	log.maxGrades[forum1.ModuleID] = 20
	log.maxGrades[assign.ModuleID] = 100
	log.setGrade("alice", forum1, 15) // 75 of 100
	// no grade for alice on assign: the module is skipped entirely

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichGrade, "", rubric.ScopeIndividual, forum1, assign)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Iterations != 1 {
		t.Fatalf("expected 1 graded module, got %d", b.Iterations)
	}
	if b.StudentRaw == nil || *b.StudentRaw != 75 {
		t.Fatalf("expected student raw 75, got %v", b.StudentRaw)
	}
}

func TestAggregate_GradeNoData(t *testing.T) {
	log := newFakeLog()
	log.maxGrades[assign.ModuleID] = 100

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichGrade, "", rubric.ScopeIndividual, assign)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.StudentRaw != nil || b.Benchmark != nil {
		t.Fatalf("no grades anywhere must stay indeterminate, got %+v", b)
	}
}

func TestAggregate_CohortZeroIsIndeterminate(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventViewed, forum1, "alice", 5)
	// Nobody in the cohort viewed anything: cohort average is 0, so the
	// normalized benchmark is undefined rather than infinite.
	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichStudy, "", rubric.ScopeCohort, forum1)
	b, err := agg.Aggregate(context.Background(), c, "dave", enrich.TimeRange{}, []string{"dave", "erin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Benchmark != nil {
		t.Fatalf("zero cohort must not produce a benchmark, got %d", *b.Benchmark)
	}
}

func TestAggregate_CollabEntriesCohort(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventEntry, forum1, "alice", 4)
	log.setCount(enrich.EventEntry, forum1, "bob", 2)
	log.participants["entry|1"] = []string{"alice", "bob"}

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichCollaboration, rubric.CollabEntries, rubric.ScopeCohort, forum1)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Average divides by participants (2), not the full cohort (3).
	if b.CohortRaw == nil || *b.CohortRaw != 3 {
		t.Fatalf("expected cohort raw 3, got %v", b.CohortRaw)
	}
	// round(100 * 4 / 3) = 133
	if b.Benchmark == nil || *b.Benchmark != 133 {
		t.Fatalf("expected benchmark 133, got %v", b.Benchmark)
	}
}

func TestAggregate_FileAddsParticipationIsPosting(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventFileAdd, forum1, "alice", 3)
	log.setCount(enrich.EventFileAdd, forum1, "bob", 1)
	// bob and carol posted but carol attached nothing.
	log.participants["entry|1"] = []string{"alice", "bob", "carol"}

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichCollaboration, rubric.CollabFileAdds, rubric.ScopeCohort, forum1)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, []string{"alice", "bob", "carol"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 4 attachments over 3 posters.
	if b.CohortRaw == nil || !almost(*b.CohortRaw, 4.0/3) {
		t.Fatalf("expected cohort raw 4/3, got %v", b.CohortRaw)
	}
}

func TestAggregate_CollabSumsAcrossModules(t *testing.T) {
	log := newFakeLog()
	log.setCount(enrich.EventEntry, forum1, "alice", 2)
	log.setCount(enrich.EventEntry, forum2, "alice", 5)

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichCollaboration, rubric.CollabEntries, rubric.ScopeIndividual, forum1, forum2)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.StudentRaw == nil || *b.StudentRaw != 7 {
		t.Fatalf("expected student raw 7, got %v", b.StudentRaw)
	}
	if b.Benchmark == nil || *b.Benchmark != 7 {
		t.Fatalf("expected benchmark 7, got %v", b.Benchmark)
	}
}

func TestAggregate_InteractionsPoolsModules(t *testing.T) {
	log := newFakeLog()
	log.sessions[forum1.ModuleID] = []enrich.Session{{"alice", "bob"}}
	log.sessions[chat.ModuleID] = []enrich.Session{{"alice", "carol"}, {"bob", "carol"}}

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichCollaboration, rubric.CollabInteractions, rubric.ScopeIndividual, forum1, chat)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// alice met bob in the forum and carol in chat.
	if b.StudentRaw == nil || *b.StudentRaw != 2 {
		t.Fatalf("expected 2 distinct partners, got %v", b.StudentRaw)
	}
}

func TestAggregate_InteractionsCohort(t *testing.T) {
	log := newFakeLog()
	log.sessions[chat.ModuleID] = []enrich.Session{
		{"alice", "bob", "carol"},
		{"alice", "dave"},
	}

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichCollaboration, rubric.CollabInteractions, rubric.ScopeCohort, chat)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Partner counts: alice 3, bob 2, carol 2, dave 1; mean 2.
	if b.CohortRaw == nil || *b.CohortRaw != 2 {
		t.Fatalf("expected cohort raw 2, got %v", b.CohortRaw)
	}
	if b.Iterations != 4 {
		t.Fatalf("expected 4 distinct students, got %d", b.Iterations)
	}
	// round(100 * 3 / 2)
	if b.Benchmark == nil || *b.Benchmark != 150 {
		t.Fatalf("expected benchmark 150, got %v", b.Benchmark)
	}
}

func TestAggregate_IndividualFloors(t *testing.T) {
	log := newFakeLog()
	log.maxGrades[assign.ModuleID] = 30
	log.setGrade("alice", assign, 20) // 66.67 of 100

	agg := enrich.NewAggregator(log)
	c := criterion(rubric.EnrichGrade, "", rubric.ScopeIndividual, assign)
	b, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Benchmark == nil || *b.Benchmark != 66 {
		t.Fatalf("expected floored benchmark 66, got %v", b.Benchmark)
	}
}

func TestAggregate_RejectsPlainCriterion(t *testing.T) {
	agg := enrich.NewAggregator(newFakeLog())
	c := rubric.Criterion{ID: 1, Enrichment: rubric.EnrichNone}
	if _, err := agg.Aggregate(context.Background(), c, "alice", enrich.TimeRange{}, nil); err == nil {
		t.Fatalf("expected an error for a non-enriched criterion")
	}
}
