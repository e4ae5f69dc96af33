package rubric

import "fmt"

// Severity classifies how disruptive a definition edit is to grades that
// already exist. Values are ordered; the classifier reports the maximum
// triggered across the whole diff.
type Severity int

const (
	SeverityNone       Severity = iota // no change
	SeverityCosmetic                   // text or ordering only
	SeverityLevelAdded                 // level added within the old score range
	SeverityScoreRange                 // score changed, or the range shrank
	SeverityLevelGone                  // a level was removed
	SeverityStructural                 // criterion added or enrichment changed
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityCosmetic:
		return "cosmetic"
	case SeverityLevelAdded:
		return "level-added"
	case SeverityScoreRange:
		return "score-changed"
	case SeverityLevelGone:
		return "level-removed"
	case SeverityStructural:
		return "structural"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Change is one diff event emitted while comparing two definition snapshots.
// CriterionID/LevelID are zero when the event is not tied to a row (or the
// row is pending).
type Change struct {
	Severity    Severity `json:"severity"`
	Reason      string   `json:"reason"`
	CriterionID int64    `json:"criterion_id,omitempty"`
	LevelID     int64    `json:"level_id,omitempty"`
}

// Classify diffs the persisted snapshot old against the submitted edit and
// returns the maximum severity plus the individual changes that produced it.
// It never mutates either argument. old == nil means the definition has
// never been persisted, which is always structural; callers decide whether
// that needs a regrade confirmation.
func Classify(old *Definition, edit Definition) (Severity, []Change) {
	if old == nil {
		return SeverityStructural, []Change{{
			Severity: SeverityStructural,
			Reason:   "definition not yet persisted",
		}}
	}

	var changes []Change
	add := func(c Change) { changes = append(changes, c) }

	oldByID := make(map[int64]*Criterion, len(old.Criteria))
	for i := range old.Criteria {
		oldByID[old.Criteria[i].ID] = &old.Criteria[i]
	}
	seen := make(map[int64]bool, len(edit.Criteria))

	for i := range edit.Criteria {
		nc := &edit.Criteria[i]
		if nc.ID == 0 {
			add(Change{Severity: SeverityStructural, Reason: "criterion added"})
			continue
		}
		oc, ok := oldByID[nc.ID]
		if !ok {
			// Submitted id unknown to the snapshot: treat like a new criterion.
			add(Change{Severity: SeverityStructural, Reason: "criterion added", CriterionID: nc.ID})
			continue
		}
		seen[nc.ID] = true
		diffCriterion(oc, nc, add)
	}

	for i := range old.Criteria {
		oc := &old.Criteria[i]
		if !seen[oc.ID] {
			add(Change{Severity: SeverityScoreRange, Reason: "criterion removed", CriterionID: oc.ID})
		}
	}

	diffDefinitionFields(old, &edit, add)

	max := SeverityNone
	for _, c := range changes {
		if c.Severity > max {
			max = c.Severity
		}
	}
	return max, changes
}

func diffCriterion(oc, nc *Criterion, add func(Change)) {
	if oc.Enrichment != nc.Enrichment ||
		oc.CollabKind != nc.CollabKind ||
		oc.Operator != nc.Operator ||
		oc.Scope != nc.Scope ||
		!SameModules(oc.Modules, nc.Modules) {
		add(Change{Severity: SeverityStructural, Reason: "criterion enrichment changed", CriterionID: nc.ID})
	} else if oc.Description != nc.Description || oc.SortOrder != nc.SortOrder {
		add(Change{Severity: SeverityCosmetic, Reason: "criterion text or order changed", CriterionID: nc.ID})
	}

	oldMax := oc.MaxScore()
	oldByID := make(map[int64]*Level, len(oc.Levels))
	for i := range oc.Levels {
		oldByID[oc.Levels[i].ID] = &oc.Levels[i]
	}
	seen := make(map[int64]bool, len(nc.Levels))

	for i := range nc.Levels {
		nl := &nc.Levels[i]
		if nl.ID == 0 || oldByID[nl.ID] == nil {
			sev := SeverityLevelAdded
			reason := "level added within score range"
			if nl.Score > oldMax {
				sev = SeverityScoreRange
				reason = "level added above score range"
			}
			if nl.EnrichedValue != nil {
				sev = SeverityStructural
				reason = "enriched level added"
			}
			add(Change{Severity: sev, Reason: reason, CriterionID: nc.ID})
			continue
		}
		seen[nl.ID] = true
		diffLevel(oldByID[nl.ID], nl, nc.ID, add)
	}

	for i := range oc.Levels {
		ol := &oc.Levels[i]
		if !seen[ol.ID] {
			add(Change{Severity: SeverityLevelGone, Reason: "level removed", CriterionID: oc.ID, LevelID: ol.ID})
		}
	}
}

func diffLevel(ol, nl *Level, criterionID int64, add func(Change)) {
	scoreDiff := ol.Score != nl.Score
	enrichDiff := !sameIntPtr(ol.EnrichedValue, nl.EnrichedValue)
	textDiff := ol.Definition != nl.Definition

	switch {
	case scoreDiff && (enrichDiff || textDiff):
		add(Change{Severity: SeverityStructural, Reason: "level score and attributes changed", CriterionID: criterionID, LevelID: nl.ID})
	case scoreDiff:
		add(Change{Severity: SeverityScoreRange, Reason: "level score changed", CriterionID: criterionID, LevelID: nl.ID})
	case enrichDiff:
		add(Change{Severity: SeverityStructural, Reason: "level enriched value changed", CriterionID: criterionID, LevelID: nl.ID})
	case textDiff:
		add(Change{Severity: SeverityCosmetic, Reason: "level text changed", CriterionID: criterionID, LevelID: nl.ID})
	}
}

func diffDefinitionFields(old, edit *Definition, add func(Change)) {
	if old.Options.LockZeroPoints != edit.Options.LockZeroPoints {
		add(Change{Severity: SeverityStructural, Reason: "lock-zero-points toggled"})
	}
	if old.Name != edit.Name || old.Description != edit.Description ||
		old.Status != edit.Status || old.ModifiedBy != edit.ModifiedBy {
		add(Change{Severity: SeverityCosmetic, Reason: "definition fields changed"})
	}
	o, e := old.Options, edit.Options
	o.LockZeroPoints, e.LockZeroPoints = false, false
	if o != e {
		add(Change{Severity: SeverityCosmetic, Reason: "display options changed"})
	}
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
