package enrich

import (
	"sort"
	"time"
)

// ChatGap is the silence that splits two chat sessions.
const ChatGap = 5 * time.Minute

// Message is one chat message as fetched from the log, ordered or not.
type Message struct {
	Author string
	At     time.Time
}

// Post is one forum post as fetched from the log.
type Post struct {
	Author   string
	ThreadID int64
}

// ChatSessions splits messages into maximal runs where consecutive messages
// are less than gap apart. Runs with fewer than two distinct participants
// are not sessions and are dropped.
func ChatSessions(msgs []Message, gap time.Duration) []Session {
	if len(msgs) == 0 {
		return nil
	}
	ordered := make([]Message, len(msgs))
	copy(ordered, msgs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })

	var out []Session
	run := map[string]bool{ordered[0].Author: true}
	last := ordered[0].At
	flush := func() {
		if len(run) >= 2 {
			out = append(out, setToSession(run))
		}
		run = map[string]bool{}
	}
	for _, m := range ordered[1:] {
		if m.At.Sub(last) >= gap {
			flush()
		}
		run[m.Author] = true
		last = m.At
	}
	flush()
	return out
}

// ThreadSessions groups forum posts by discussion thread: everyone who
// posted in the same thread is pairwise adjacent. Single-author threads are
// dropped.
func ThreadSessions(posts []Post) []Session {
	byThread := map[int64]map[string]bool{}
	for _, p := range posts {
		s, ok := byThread[p.ThreadID]
		if !ok {
			s = map[string]bool{}
			byThread[p.ThreadID] = s
		}
		s[p.Author] = true
	}
	threads := make([]int64, 0, len(byThread))
	for id := range byThread {
		threads = append(threads, id)
	}
	sort.Slice(threads, func(i, j int) bool { return threads[i] < threads[j] })

	var out []Session
	for _, id := range threads {
		if len(byThread[id]) >= 2 {
			out = append(out, setToSession(byThread[id]))
		}
	}
	return out
}

// Partners builds the undirected interaction graph over sessions and returns
// each student's set of distinct partners. All participants of a session are
// pairwise adjacent; every student seen in at least one session has an entry.
func Partners(sessions []Session) map[string]map[string]bool {
	adj := map[string]map[string]bool{}
	for _, s := range sessions {
		for _, a := range s {
			if adj[a] == nil {
				adj[a] = map[string]bool{}
			}
			for _, b := range s {
				if a != b {
					adj[a][b] = true
				}
			}
		}
	}
	return adj
}

func setToSession(set map[string]bool) Session {
	out := make(Session, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
