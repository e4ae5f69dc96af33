// Package enrich computes activity-log benchmarks for enriched rubric
// criteria. Raw counts come from an ActivityLog; normalization and level
// selection stay in pure code so they can be tested without storage.
package enrich

import (
	"context"
	"time"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// EventKind names one countable activity signal.
type EventKind string

const (
	// EventViewed is a page/module view (study enrichment).
	EventViewed EventKind = "viewed"
	// EventEntry is a forum post or chat message (collaboration entries).
	EventEntry EventKind = "entry"
	// EventFileAdd is a file attached to a post (collaboration file adds).
	EventFileAdd EventKind = "fileadd"
	// EventReplyOther is a reply to a post written by a different author;
	// self-thread replies never count.
	EventReplyOther EventKind = "reply-other"
	// EventGraded is a module grade upsert; only the Recorder accepts it.
	EventGraded EventKind = "graded"
)

// TimeRange bounds a log query. Zero values mean unbounded on that side;
// filtering happens inside the query, never on fetched rows.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (w TimeRange) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// SubjectFilter restricts a count to one student or to a cohort. Exactly one
// of the fields is set.
type SubjectFilter struct {
	Student string
	Cohort  []string
}

// Session is the set of students that took part in one interaction session
// (a forum thread or a windowed chat run).
type Session []string

// ActivityLog is the read-only collaborator over course activity data.
// Implementations must apply the window at the query boundary. I/O failures
// propagate; missing data is reported as zero counts or nil grades, never as
// an error.
type ActivityLog interface {
	CountEvents(ctx context.Context, kind EventKind, mod rubric.ModuleRef, f SubjectFilter, w TimeRange) (int, error)
	ListParticipants(ctx context.Context, kind EventKind, mod rubric.ModuleRef, w TimeRange) ([]string, error)
	ListSessions(ctx context.Context, mod rubric.ModuleRef, w TimeRange) ([]Session, error)
	GradeOf(ctx context.Context, student string, mod rubric.ModuleRef) (*float64, error)
	ModuleMaxGrade(ctx context.Context, mod rubric.ModuleRef) (float64, error)
}
