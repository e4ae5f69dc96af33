package rubric

// SelectLevel maps a computed benchmark onto one of the criterion's levels.
// Levels must already be in the active display order (SortedLevels); the
// scan is a literal first match over that order. For OpAtLeast the winning
// threshold therefore depends on whether levels arrive ascending or
// descending.
//
// A nil benchmark, or no qualifying level, yields nil: the criterion stays
// unresolved for the grader to decide.
func SelectLevel(levels []Level, op Operator, benchmark *int) *int64 {
	if benchmark == nil {
		return nil
	}
	for i := range levels {
		v := levels[i].EnrichedValue
		if v == nil {
			continue
		}
		switch op {
		case OpEqual:
			if *v == *benchmark {
				id := levels[i].ID
				return &id
			}
		case OpAtLeast:
			if *v <= *benchmark {
				id := levels[i].ID
				return &id
			}
		}
	}
	return nil
}
