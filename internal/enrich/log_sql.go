package enrich

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

// Module types with dedicated log tables.
const (
	ModuleForum = "forum"
	ModuleChat  = "chat"
)

// SQLActivityLog reads activity data from the shared database. All window
// filtering happens in SQL.
type SQLActivityLog struct {
	db *sql.DB
}

func NewSQLActivityLog(db *sql.DB) *SQLActivityLog {
	return &SQLActivityLog{db: db}
}

func (l *SQLActivityLog) CountEvents(ctx context.Context, kind EventKind, mod rubric.ModuleRef, f SubjectFilter, w TimeRange) (int, error) {
	from, to := windowBounds(w)
	switch kind {
	case EventViewed:
		q := `SELECT COUNT(*) FROM activity_events
		      WHERE kind=$1 AND module_type=$2 AND module_id=$3 AND created_at>=$4 AND created_at<=$5`
		args := []any{string(EventViewed), mod.Type, mod.ModuleID, from, to}
		return l.countWithSubject(ctx, q, args, "student_id", f)
	case EventEntry:
		if mod.Type == ModuleChat {
			q := `SELECT COUNT(*) FROM chat_messages WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3`
			return l.countWithSubject(ctx, q, []any{mod.ModuleID, from, to}, "author", f)
		}
		q := `SELECT COUNT(*) FROM forum_posts WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3`
		return l.countWithSubject(ctx, q, []any{mod.ModuleID, from, to}, "author", f)
	case EventFileAdd:
		q := `SELECT COALESCE(SUM(attachments),0) FROM forum_posts WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3`
		return l.countWithSubject(ctx, q, []any{mod.ModuleID, from, to}, "author", f)
	case EventReplyOther:
		q := `SELECT COUNT(*) FROM forum_posts p JOIN forum_posts parent ON p.parent_id=parent.id
		      WHERE p.module_id=$1 AND p.created_at>=$2 AND p.created_at<=$3 AND parent.author<>p.author`
		return l.countWithSubject(ctx, q, []any{mod.ModuleID, from, to}, "p.author", f)
	default:
		return 0, fmt.Errorf("unknown event kind %q", kind)
	}
}

// countWithSubject appends the student/cohort predicate to a base count
// query that already binds len(args) placeholders.
func (l *SQLActivityLog) countWithSubject(ctx context.Context, q string, args []any, col string, f SubjectFilter) (int, error) {
	switch {
	case f.Student != "":
		q += fmt.Sprintf(" AND %s=$%d", col, len(args)+1)
		args = append(args, f.Student)
	case len(f.Cohort) > 0:
		in, inArgs := placeholderList(len(args)+1, f.Cohort)
		q += fmt.Sprintf(" AND %s IN (%s)", col, in)
		args = append(args, inArgs...)
	default:
		return 0, errors.New("subject filter is empty")
	}
	var n int
	if err := l.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *SQLActivityLog) ListParticipants(ctx context.Context, kind EventKind, mod rubric.ModuleRef, w TimeRange) ([]string, error) {
	from, to := windowBounds(w)
	var q string
	args := []any{mod.ModuleID, from, to}
	switch kind {
	case EventEntry:
		if mod.Type == ModuleChat {
			q = `SELECT DISTINCT author FROM chat_messages WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3 ORDER BY author`
		} else {
			q = `SELECT DISTINCT author FROM forum_posts WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3 ORDER BY author`
		}
	case EventReplyOther:
		q = `SELECT DISTINCT p.author FROM forum_posts p JOIN forum_posts parent ON p.parent_id=parent.id
		     WHERE p.module_id=$1 AND p.created_at>=$2 AND p.created_at<=$3 AND parent.author<>p.author ORDER BY p.author`
	case EventViewed:
		q = `SELECT DISTINCT student_id FROM activity_events
		     WHERE kind='viewed' AND module_type=$4 AND module_id=$1 AND created_at>=$2 AND created_at<=$3 ORDER BY student_id`
		args = append(args, mod.Type)
	default:
		return nil, fmt.Errorf("no participant query for kind %q", kind)
	}
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSessions fetches the raw rows and hands grouping to the pure session
// builders: thread grouping for forums, gap windowing for chats.
func (l *SQLActivityLog) ListSessions(ctx context.Context, mod rubric.ModuleRef, w TimeRange) ([]Session, error) {
	from, to := windowBounds(w)
	if mod.Type == ModuleChat {
		rows, err := l.db.QueryContext(ctx,
			`SELECT author, created_at FROM chat_messages
			 WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3 ORDER BY created_at, id`,
			mod.ModuleID, from, to)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var msgs []Message
		for rows.Next() {
			var m Message
			var at int64
			if err := rows.Scan(&m.Author, &at); err != nil {
				return nil, err
			}
			m.At = unixTime(at)
			msgs = append(msgs, m)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return ChatSessions(msgs, ChatGap), nil
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT author, thread_id FROM forum_posts
		 WHERE module_id=$1 AND created_at>=$2 AND created_at<=$3`,
		mod.ModuleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.Author, &p.ThreadID); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ThreadSessions(posts), nil
}

func (l *SQLActivityLog) GradeOf(ctx context.Context, student string, mod rubric.ModuleRef) (*float64, error) {
	var g float64
	err := l.db.QueryRowContext(ctx,
		`SELECT grade FROM module_grades WHERE module_type=$1 AND module_id=$2 AND student_id=$3`,
		mod.Type, mod.ModuleID, student).Scan(&g)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (l *SQLActivityLog) ModuleMaxGrade(ctx context.Context, mod rubric.ModuleRef) (float64, error) {
	var max float64
	err := l.db.QueryRowContext(ctx,
		`SELECT max_grade FROM course_modules WHERE module_type=$1 AND module_id=$2`,
		mod.Type, mod.ModuleID).Scan(&max)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return max, err
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }

func windowBounds(w TimeRange) (from, to int64) {
	from = 0
	to = math.MaxInt64
	if !w.From.IsZero() {
		from = w.From.Unix()
	}
	if !w.To.IsZero() {
		to = w.To.Unix()
	}
	return from, to
}

func placeholderList(start int, vals []string) (string, []any) {
	ph := make([]string, len(vals))
	args := make([]any, len(vals))
	for i, v := range vals {
		ph[i] = fmt.Sprintf("$%d", start+i)
		args[i] = v
	}
	return strings.Join(ph, ","), args
}
