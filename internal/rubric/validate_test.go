package rubric_test

import (
	"testing"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

func hasIssue(issues []rubric.Issue, code string, criterion int) bool {
	for _, is := range issues {
		if is.Code == code && is.Criterion == criterion {
			return true
		}
	}
	return false
}

func TestValidate_CleanDefinition(t *testing.T) {
	d := baseDefinition()
	if issues := rubric.Validate(&d); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidate_EmptyDefinition(t *testing.T) {
	d := rubric.Definition{Name: "empty"}
	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueTooFewCriteria, -1) {
		t.Fatalf("expected too-few-criteria, got %+v", issues)
	}
}

func TestValidate_CriterionShape(t *testing.T) {
	d := baseDefinition()
	d.Criteria[0].Description = ""
	d.Criteria[0].Levels = d.Criteria[0].Levels[:1]

	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueEmptyDescription, 0) {
		t.Fatalf("expected empty-description, got %+v", issues)
	}
	if !hasIssue(issues, rubric.IssueTooFewLevels, 0) {
		t.Fatalf("expected too-few-levels, got %+v", issues)
	}
}

func TestValidate_DuplicateScores(t *testing.T) {
	d := baseDefinition()
	d.Criteria[0].Levels[1].Score = 10 // same as level 3

	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueDuplicateScore, 0) {
		t.Fatalf("expected duplicate-score, got %+v", issues)
	}
}

func TestValidate_IncompleteEnrichment(t *testing.T) {
	d := baseDefinition()
	d.Criteria[1].Modules = nil

	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueIncompleteEnrichment, 1) {
		t.Fatalf("expected incomplete-enrichment, got %+v", issues)
	}

	d = baseDefinition()
	d.Criteria[1].CollabKind = ""
	issues = rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueIncompleteEnrichment, 1) {
		t.Fatalf("collaboration without a kind: expected incomplete-enrichment, got %+v", issues)
	}
}

func TestValidate_EnrichedThresholds(t *testing.T) {
	d := baseDefinition()
	d.Criteria[1].Levels[0].EnrichedValue = nil
	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueMissingEnrichedValue, 1) {
		t.Fatalf("expected missing-enriched-value, got %+v", issues)
	}

	d = baseDefinition()
	d.Criteria[1].Levels[0].EnrichedValue = intp(-1)
	issues = rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueMissingEnrichedValue, 1) {
		t.Fatalf("negative threshold: expected missing-enriched-value, got %+v", issues)
	}

	d = baseDefinition()
	d.Criteria[1].Levels[0].EnrichedValue = intp(3) // same as level 2
	issues = rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueDuplicateEnrichedVal, 1) {
		t.Fatalf("expected duplicate-enriched-value, got %+v", issues)
	}
}

func TestValidate_ThresholdOnPlainCriterion(t *testing.T) {
	d := baseDefinition()
	d.Criteria[0].Levels[0].EnrichedValue = intp(2)

	issues := rubric.Validate(&d)
	if !hasIssue(issues, rubric.IssueUnexpectedEnrichedVal, 0) {
		t.Fatalf("expected unexpected-enriched-value, got %+v", issues)
	}
}
