package enrich

import (
	"context"
	"fmt"
	"math"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// Benchmarks is the outcome of aggregating one enriched criterion for one
// student. Nil fields mean "indeterminate": no data existed, which is never
// collapsed to zero.
type Benchmarks struct {
	StudentRaw *float64 `json:"student_raw,omitempty"`
	CohortRaw  *float64 `json:"cohort_raw,omitempty"`
	Iterations int      `json:"iterations"`
	Benchmark  *int     `json:"benchmark,omitempty"`
}

// Aggregator computes per-criterion benchmarks from an ActivityLog. It holds
// no state beyond the log handle and may be shared across goroutines.
type Aggregator struct {
	log ActivityLog
}

func NewAggregator(log ActivityLog) *Aggregator {
	return &Aggregator{log: log}
}

// Aggregate computes the raw student and cohort values for one enriched
// criterion and maps them to the final benchmark. cohort is the full set of
// eligible students; it is only consulted for cohort-scoped criteria and for
// collaboration participant averages.
func (a *Aggregator) Aggregate(ctx context.Context, c rubric.Criterion, subject string, w TimeRange, cohort []string) (Benchmarks, error) {
	if !c.IsEnriched() {
		return Benchmarks{}, fmt.Errorf("criterion %d is not enriched", c.ID)
	}

	var (
		b   Benchmarks
		err error
	)
	switch c.Enrichment {
	case rubric.EnrichStudy:
		b, err = a.aggregateStudy(ctx, c, subject, w, cohort)
	case rubric.EnrichGrade:
		b, err = a.aggregateGrade(ctx, c, subject, cohort)
	case rubric.EnrichCollaboration:
		if c.CollabKind == rubric.CollabInteractions {
			b, err = a.aggregateInteractions(ctx, c, subject, w)
		} else {
			b, err = a.aggregateCollab(ctx, c, subject, w)
		}
	default:
		return Benchmarks{}, fmt.Errorf("unknown enrichment %q", c.Enrichment)
	}
	if err != nil {
		return Benchmarks{}, err
	}

	b.Benchmark = finalBenchmark(c.Scope, b.StudentRaw, b.CohortRaw)
	return b, nil
}

// study: views are summed across linked modules. The cohort average divides
// by the full cohort, participants or not.
func (a *Aggregator) aggregateStudy(ctx context.Context, c rubric.Criterion, subject string, w TimeRange, cohort []string) (Benchmarks, error) {
	var b Benchmarks
	student := 0.0
	cohortSum := 0.0
	for _, mod := range c.Modules {
		n, err := a.log.CountEvents(ctx, EventViewed, mod, SubjectFilter{Student: subject}, w)
		if err != nil {
			return b, err
		}
		student += float64(n)

		if c.Scope == rubric.ScopeCohort && len(cohort) > 0 {
			total, err := a.log.CountEvents(ctx, EventViewed, mod, SubjectFilter{Cohort: cohort}, w)
			if err != nil {
				return b, err
			}
			cohortSum += float64(total) / float64(len(cohort))
			b.Iterations++
		}
	}
	b.StudentRaw = &student
	if b.Iterations > 0 {
		b.CohortRaw = &cohortSum
	}
	return b, nil
}

// grade: per-module grades are normalized to 0-100 against the module
// maximum and averaged. Modules where the subject has no grade are skipped,
// for the cohort side too, so both averages cover the same module set.
func (a *Aggregator) aggregateGrade(ctx context.Context, c rubric.Criterion, subject string, cohort []string) (Benchmarks, error) {
	var b Benchmarks
	studentSum := 0.0
	cohortSum := 0.0
	for _, mod := range c.Modules {
		g, err := a.log.GradeOf(ctx, subject, mod)
		if err != nil {
			return b, err
		}
		if g == nil {
			continue
		}
		max, err := a.log.ModuleMaxGrade(ctx, mod)
		if err != nil {
			return b, err
		}
		if max <= 0 {
			continue
		}
		studentSum += *g / max * 100
		b.Iterations++

		if c.Scope == rubric.ScopeCohort {
			avg, n, err := a.cohortGradeAvg(ctx, mod, max, cohort)
			if err != nil {
				return b, err
			}
			if n > 0 {
				cohortSum += avg
			}
		}
	}
	if b.Iterations == 0 {
		return b, nil
	}
	student := studentSum / float64(b.Iterations)
	b.StudentRaw = &student
	if c.Scope == rubric.ScopeCohort {
		avg := cohortSum / float64(b.Iterations)
		b.CohortRaw = &avg
	}
	return b, nil
}

func (a *Aggregator) cohortGradeAvg(ctx context.Context, mod rubric.ModuleRef, max float64, cohort []string) (avg float64, n int, err error) {
	sum := 0.0
	for _, s := range cohort {
		g, err := a.log.GradeOf(ctx, s, mod)
		if err != nil {
			return 0, 0, err
		}
		if g == nil {
			continue
		}
		sum += *g / max * 100
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / float64(n), n, nil
}

// entries, file adds, replies: per-module subject counts are summed; the
// cohort average is restricted to participating students of each module.
func (a *Aggregator) aggregateCollab(ctx context.Context, c rubric.Criterion, subject string, w TimeRange) (Benchmarks, error) {
	kind, partKind := collabKinds(c.CollabKind)
	var b Benchmarks
	student := 0.0
	cohortSum := 0.0
	for _, mod := range c.Modules {
		n, err := a.log.CountEvents(ctx, kind, mod, SubjectFilter{Student: subject}, w)
		if err != nil {
			return b, err
		}
		student += float64(n)

		if c.Scope != rubric.ScopeCohort {
			continue
		}
		participants, err := a.log.ListParticipants(ctx, partKind, mod, w)
		if err != nil {
			return b, err
		}
		if len(participants) == 0 {
			continue
		}
		total, err := a.log.CountEvents(ctx, kind, mod, SubjectFilter{Cohort: participants}, w)
		if err != nil {
			return b, err
		}
		cohortSum += float64(total) / float64(len(participants))
		b.Iterations++
	}
	b.StudentRaw = &student
	if b.Iterations > 0 {
		b.CohortRaw = &cohortSum
	}
	return b, nil
}

// collabKinds maps a collaboration sub-type to the counted event kind and
// to the kind that defines "participating" for the cohort average.
func collabKinds(k rubric.CollabKind) (count, participant EventKind) {
	switch k {
	case rubric.CollabFileAdds:
		// Participation means having posted, not having attached files.
		return EventFileAdd, EventEntry
	case rubric.CollabReplies:
		return EventReplyOther, EventReplyOther
	default:
		return EventEntry, EventEntry
	}
}

// interactions: the partner graph is pooled across all linked modules, and
// the cohort average is taken once per distinct student seen in a session.
func (a *Aggregator) aggregateInteractions(ctx context.Context, c rubric.Criterion, subject string, w TimeRange) (Benchmarks, error) {
	var b Benchmarks
	var sessions []Session
	for _, mod := range c.Modules {
		ss, err := a.log.ListSessions(ctx, mod, w)
		if err != nil {
			return b, err
		}
		sessions = append(sessions, ss...)
	}
	adj := Partners(sessions)

	student := float64(len(adj[subject]))
	b.StudentRaw = &student

	if c.Scope == rubric.ScopeCohort && len(adj) > 0 {
		sum := 0.0
		for _, partners := range adj {
			sum += float64(len(partners))
		}
		avg := sum / float64(len(adj))
		b.CohortRaw = &avg
		b.Iterations = len(adj)
	}
	return b, nil
}

// finalBenchmark applies the reference-scope normalization. Cohort scope
// with a missing or non-positive cohort value is indeterminate, never zero.
func finalBenchmark(scope rubric.Scope, studentRaw, cohortRaw *float64) *int {
	if studentRaw == nil {
		return nil
	}
	if scope == rubric.ScopeCohort {
		if cohortRaw == nil || *cohortRaw <= 0 {
			return nil
		}
		v := int(math.Round(100 * *studentRaw / *cohortRaw))
		return &v
	}
	v := int(math.Floor(*studentRaw))
	return &v
}
