package enrich

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Recorder is the append-only write path for activity data. The grading
// engine itself never writes logs; this exists for the ingest endpoint and
// for seeding test fixtures.
type Recorder struct {
	db *sql.DB
}

func NewRecorder(db *sql.DB) *Recorder { return &Recorder{db: db} }

// Event is one ingested activity record. Kind decides which fields matter.
type Event struct {
	Kind        EventKind `json:"kind"`
	ModuleType  string    `json:"module_type"`
	ModuleID    int64     `json:"module_id"`
	StudentID   string    `json:"student_id"`
	ThreadID    int64     `json:"thread_id,omitempty"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Attachments int       `json:"attachments,omitempty"`
	Grade       *float64  `json:"grade,omitempty"`
	At          time.Time `json:"at,omitempty"`
}

// Record appends one event to the right log table.
func (r *Recorder) Record(ctx context.Context, e Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	switch {
	case e.Kind == EventViewed:
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO activity_events (kind,module_type,module_id,student_id,created_at)
			 VALUES ($1,$2,$3,$4,$5)`,
			string(EventViewed), e.ModuleType, e.ModuleID, e.StudentID, at.Unix())
		return err
	case e.Kind == EventEntry && e.ModuleType == ModuleChat:
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO chat_messages (module_id,author,created_at) VALUES ($1,$2,$3)`,
			e.ModuleID, e.StudentID, at.Unix())
		return err
	case e.Kind == EventEntry:
		var parent sql.NullInt64
		if e.ParentID != nil {
			parent = sql.NullInt64{Int64: *e.ParentID, Valid: true}
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO forum_posts (module_id,thread_id,author,parent_id,attachments,created_at)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			e.ModuleID, e.ThreadID, e.StudentID, parent, e.Attachments, at.Unix())
		return err
	case e.Kind == EventGraded && e.Grade != nil:
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO module_grades (module_type,module_id,student_id,grade)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (module_type,module_id,student_id) DO UPDATE SET grade=EXCLUDED.grade`,
			e.ModuleType, e.ModuleID, e.StudentID, *e.Grade)
		return err
	default:
		return fmt.Errorf("event kind %q not recordable", e.Kind)
	}
}
