package rubric_test

import (
	"testing"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

func intp(v int) *int { return &v }

func baseDefinition() rubric.Definition {
	return rubric.Definition{
		ID:      1,
		Name:    "Essay rubric",
		Status:  rubric.StatusReady,
		Options: rubric.DefaultOptions(),
		Criteria: []rubric.Criterion{
			{
				ID:          10,
				SortOrder:   1,
				Description: "Argument quality",
				Enrichment:  rubric.EnrichNone,
				Levels: []rubric.Level{
					{ID: 101, Score: 0, Definition: "Weak"},
					{ID: 102, Score: 5, Definition: "Adequate"},
					{ID: 103, Score: 10, Definition: "Strong"},
				},
			},
			{
				ID:          11,
				SortOrder:   2,
				Description: "Forum participation",
				Enrichment:  rubric.EnrichCollaboration,
				CollabKind:  rubric.CollabEntries,
				Operator:    rubric.OpAtLeast,
				Scope:       rubric.ScopeIndividual,
				Modules:     []rubric.ModuleRef{{Type: "forum", ModuleID: 7, InstanceID: 3}},
				Levels: []rubric.Level{
					{ID: 111, Score: 0, Definition: "None", EnrichedValue: intp(0)},
					{ID: 112, Score: 5, Definition: "Some", EnrichedValue: intp(3)},
				},
			},
		},
	}
}

func TestClassify_IdenticalIsNone(t *testing.T) {
	old := baseDefinition()
	sev, changes := rubric.Classify(&old, baseDefinition())
	if sev != rubric.SeverityNone {
		t.Fatalf("expected severity none, got %s", sev)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestClassify_NilOldIsStructural(t *testing.T) {
	sev, changes := rubric.Classify(nil, baseDefinition())
	if sev != rubric.SeverityStructural {
		t.Fatalf("expected structural for unsaved definition, got %s", sev)
	}
	if len(changes) != 1 {
		t.Fatalf("expected a single change, got %d", len(changes))
	}
}

func TestClassify_NewCriterionIsStructural(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria = append(edit.Criteria, rubric.Criterion{
		Description: "Citations",
		Levels: []rubric.Level{
			{Score: 0, Definition: "Missing"},
			{Score: 2, Definition: "Present"},
		},
	})

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityStructural {
		t.Fatalf("expected structural for added criterion, got %s", sev)
	}
}

func TestClassify_LevelTextIsCosmetic(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels[1].Definition = "Satisfactory"

	sev, changes := rubric.Classify(&old, edit)
	if sev != rubric.SeverityCosmetic {
		t.Fatalf("expected cosmetic for level text edit, got %s", sev)
	}
	if len(changes) != 1 || changes[0].LevelID != 102 {
		t.Fatalf("expected a single change on level 102, got %+v", changes)
	}
}

func TestClassify_LevelRemoved(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels = edit.Criteria[0].Levels[:2]

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityLevelGone {
		t.Fatalf("expected level-removed, got %s", sev)
	}
}

func TestClassify_LevelAddedWithinRange(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels = append(edit.Criteria[0].Levels, rubric.Level{Score: 7, Definition: "Good"})

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityLevelAdded {
		t.Fatalf("expected level-added, got %s", sev)
	}
}

func TestClassify_LevelAddedAboveRange(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels = append(edit.Criteria[0].Levels, rubric.Level{Score: 15, Definition: "Outstanding"})

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityScoreRange {
		t.Fatalf("expected score-changed, got %s", sev)
	}
}

func TestClassify_LevelScoreChanged(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels[2].Score = 12

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityScoreRange {
		t.Fatalf("expected score-changed, got %s", sev)
	}
}

func TestClassify_EnrichedValueChangedIsStructural(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[1].Levels[1].EnrichedValue = intp(5)

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityStructural {
		t.Fatalf("expected structural for enriched threshold change, got %s", sev)
	}
}

func TestClassify_EnrichmentAttributesAreStructural(t *testing.T) {
	old := baseDefinition()

	edit := baseDefinition()
	edit.Criteria[1].Scope = rubric.ScopeCohort
	if sev, _ := rubric.Classify(&old, edit); sev != rubric.SeverityStructural {
		t.Fatalf("scope change: expected structural, got %s", sev)
	}

	edit = baseDefinition()
	edit.Criteria[1].Modules = append(edit.Criteria[1].Modules, rubric.ModuleRef{Type: "chat", ModuleID: 9, InstanceID: 4})
	if sev, _ := rubric.Classify(&old, edit); sev != rubric.SeverityStructural {
		t.Fatalf("module change: expected structural, got %s", sev)
	}
}

func TestClassify_ModuleOrderDoesNotMatter(t *testing.T) {
	old := baseDefinition()
	old.Criteria[1].Modules = []rubric.ModuleRef{
		{Type: "forum", ModuleID: 7, InstanceID: 3},
		{Type: "chat", ModuleID: 9, InstanceID: 4},
	}
	edit := baseDefinition()
	edit.Criteria[1].Modules = []rubric.ModuleRef{
		{Type: "chat", ModuleID: 9, InstanceID: 4},
		{Type: "forum", ModuleID: 7, InstanceID: 3},
	}

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityNone {
		t.Fatalf("reordered modules should not count as a change, got %s", sev)
	}
}

func TestClassify_CriterionRemoved(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria = edit.Criteria[:1]

	sev, changes := rubric.Classify(&old, edit)
	if sev != rubric.SeverityScoreRange {
		t.Fatalf("expected score-changed for removed criterion, got %s", sev)
	}
	found := false
	for _, c := range changes {
		if c.Reason == "criterion removed" && c.CriterionID == 11 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a removed-criterion change for id 11, got %+v", changes)
	}
}

func TestClassify_LockZeroPointsIsStructural(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Options.LockZeroPoints = true

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityStructural {
		t.Fatalf("expected structural for lock-zero-points toggle, got %s", sev)
	}
}

func TestClassify_DisplayOptionsAreCosmetic(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Options.ShowLevelPoints = false
	edit.Name = "Essay rubric v2"

	sev, _ := rubric.Classify(&old, edit)
	if sev != rubric.SeverityCosmetic {
		t.Fatalf("expected cosmetic for name and display options, got %s", sev)
	}
}

func TestClassify_ReportsMaximum(t *testing.T) {
	old := baseDefinition()
	edit := baseDefinition()
	edit.Criteria[0].Levels[0].Definition = "Very weak" // cosmetic
	edit.Criteria[0].Levels[2].Score = 11              // score change
	edit.Criteria[1].Operator = rubric.OpEqual         // structural

	sev, changes := rubric.Classify(&old, edit)
	if sev != rubric.SeverityStructural {
		t.Fatalf("expected max severity structural, got %s", sev)
	}
	if len(changes) != 3 {
		t.Fatalf("expected three changes, got %+v", changes)
	}
}
