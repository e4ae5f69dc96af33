package rubric

import "fmt"

// Issue codes reported by Validate. Issues are values collected at edit
// time; a definition with issues is simply not committed (it never becomes
// an error or a partial write).
const (
	IssueTooFewCriteria        = "too-few-criteria"
	IssueTooFewLevels          = "too-few-levels"
	IssueDuplicateScore        = "duplicate-score"
	IssueEmptyDescription      = "empty-description"
	IssueIncompleteEnrichment  = "incomplete-enrichment"
	IssueMissingEnrichedValue  = "missing-enriched-value"
	IssueDuplicateEnrichedVal  = "duplicate-enriched-value"
	IssueUnexpectedEnrichedVal = "unexpected-enriched-value"
)

// Issue is one named validation problem, addressed by criterion position so
// the editor can attach it to the right row even for pending criteria.
type Issue struct {
	Code      string `json:"code"`
	Criterion int    `json:"criterion"` // index into Definition.Criteria, -1 for definition-wide
	Message   string `json:"message"`
}

// Validate checks a definition edit for commit. It returns the full set of
// problems rather than stopping at the first.
func Validate(d *Definition) []Issue {
	var issues []Issue
	if len(d.Criteria) == 0 {
		issues = append(issues, Issue{
			Code: IssueTooFewCriteria, Criterion: -1,
			Message: "a rubric needs at least one criterion",
		})
	}
	for i := range d.Criteria {
		issues = append(issues, validateCriterion(&d.Criteria[i], i)...)
	}
	return issues
}

func validateCriterion(c *Criterion, idx int) []Issue {
	var issues []Issue
	at := func(code, msg string) {
		issues = append(issues, Issue{Code: code, Criterion: idx, Message: msg})
	}

	if c.Description == "" {
		at(IssueEmptyDescription, "criterion description is empty")
	}
	if len(c.Levels) < 2 {
		at(IssueTooFewLevels, "a criterion needs at least two levels")
	}

	scores := make(map[float64]bool, len(c.Levels))
	for _, l := range c.Levels {
		if scores[l.Score] {
			at(IssueDuplicateScore, fmt.Sprintf("level score %g appears more than once", l.Score))
			break
		}
		scores[l.Score] = true
	}

	if !c.IsEnriched() {
		for _, l := range c.Levels {
			if l.EnrichedValue != nil {
				at(IssueUnexpectedEnrichedVal, "level carries a threshold but the criterion is not enriched")
				break
			}
		}
		return issues
	}

	// Partial enrichment is invalid: all attributes must be set together.
	incomplete := c.Operator == "" || c.Scope == "" || len(c.Modules) == 0
	if c.Enrichment == EnrichCollaboration && c.CollabKind == "" {
		incomplete = true
	}
	if incomplete {
		at(IssueIncompleteEnrichment, "enriched criterion is missing operator, scope, kind or linked modules")
	}

	vals := make(map[int]bool, len(c.Levels))
	for _, l := range c.Levels {
		if l.EnrichedValue == nil || *l.EnrichedValue < 0 {
			at(IssueMissingEnrichedValue, "enriched criterion needs a non-negative threshold on every level")
			continue
		}
		if vals[*l.EnrichedValue] {
			at(IssueDuplicateEnrichedVal, fmt.Sprintf("threshold %d appears more than once", *l.EnrichedValue))
			continue
		}
		vals[*l.EnrichedValue] = true
	}
	return issues
}
