package enrich_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/enrich"
)

func at(min int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func TestChatSessions_SplitsOnGap(t *testing.T) {
	msgs := []enrich.Message{
		{Author: "alice", At: at(0)},
		{Author: "bob", At: at(2)},
		{Author: "alice", At: at(4)},
		// 6 minutes of silence split here
		{Author: "bob", At: at(10)},
		{Author: "carol", At: at(12)},
	}

	sessions := enrich.ChatSessions(msgs, enrich.ChatGap)
	want := []enrich.Session{
		{"alice", "bob"},
		{"bob", "carol"},
	}
	if !reflect.DeepEqual(sessions, want) {
		t.Fatalf("expected %v, got %v", want, sessions)
	}
}

func TestChatSessions_GapBoundaryIsExclusive(t *testing.T) {
	// A gap of exactly ChatGap already starts a new run.
	msgs := []enrich.Message{
		{Author: "alice", At: at(0)},
		{Author: "bob", At: at(5)},
	}
	if got := enrich.ChatSessions(msgs, enrich.ChatGap); len(got) != 0 {
		t.Fatalf("expected both runs dropped as single-author, got %v", got)
	}

	msgs[1].At = at(0).Add(enrich.ChatGap - time.Second)
	got := enrich.ChatSessions(msgs, enrich.ChatGap)
	if len(got) != 1 {
		t.Fatalf("expected one session just under the gap, got %v", got)
	}
}

func TestChatSessions_UnorderedInput(t *testing.T) {
	msgs := []enrich.Message{
		{Author: "bob", At: at(2)},
		{Author: "alice", At: at(0)},
	}
	got := enrich.ChatSessions(msgs, enrich.ChatGap)
	if len(got) != 1 || !reflect.DeepEqual(got[0], enrich.Session{"alice", "bob"}) {
		t.Fatalf("expected a single alice+bob session, got %v", got)
	}
}

func TestChatSessions_DropsMonologues(t *testing.T) {
	msgs := []enrich.Message{
		{Author: "alice", At: at(0)},
		{Author: "alice", At: at(1)},
		{Author: "alice", At: at(2)},
	}
	if got := enrich.ChatSessions(msgs, enrich.ChatGap); len(got) != 0 {
		t.Fatalf("expected no sessions for a monologue, got %v", got)
	}
}

func TestThreadSessions(t *testing.T) {
	posts := []enrich.Post{
		{Author: "alice", ThreadID: 1},
		{Author: "bob", ThreadID: 1},
		{Author: "alice", ThreadID: 1}, // duplicate author, same thread
		{Author: "carol", ThreadID: 2}, // single-author thread dropped
		{Author: "bob", ThreadID: 3},
		{Author: "dave", ThreadID: 3},
	}
	got := enrich.ThreadSessions(posts)
	want := []enrich.Session{
		{"alice", "bob"},
		{"bob", "dave"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPartners(t *testing.T) {
	sessions := []enrich.Session{
		{"alice", "bob", "carol"},
		{"alice", "dave"},
	}
	adj := enrich.Partners(sessions)

	if got := len(adj["alice"]); got != 3 {
		t.Fatalf("alice should have 3 partners, got %d", got)
	}
	if got := len(adj["bob"]); got != 2 {
		t.Fatalf("bob should have 2 partners, got %d", got)
	}
	if adj["alice"]["alice"] {
		t.Fatalf("nobody is their own partner")
	}
	if _, ok := adj["dave"]; !ok {
		t.Fatalf("every session participant gets an entry")
	}
}
