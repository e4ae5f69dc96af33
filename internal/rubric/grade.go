package rubric

import "math"

// Scale carries everything the grade formula needs besides the selections
// themselves. MinScore/MaxScore come from the definition's level scores,
// GradeMin/GradeMax from the grade item the rubric is attached to.
type Scale struct {
	MinScore       float64
	MaxScore       float64
	GradeMin       float64
	GradeMax       float64
	LockZeroPoints bool
	AllowDecimals  bool
}

// ScaleFor derives the score range part of a Scale from a definition.
func ScaleFor(d *Definition, gradeMin, gradeMax float64, allowDecimals bool) Scale {
	min, max := d.ScoreRange()
	return Scale{
		MinScore:       min,
		MaxScore:       max,
		GradeMin:       gradeMin,
		GradeMax:       gradeMax,
		LockZeroPoints: d.Options.LockZeroPoints,
		AllowDecimals:  allowDecimals,
	}
}

// ComputeGrade converts the level scores selected across all criteria into a
// final grade. ok is false when the scale is degenerate (empty score range
// or empty grade range); no grade can be produced then.
//
// With LockZeroPoints the grade is proportional to the achieved share of the
// maximum score, floored at GradeMin; otherwise the score range is mapped
// linearly onto the grade range.
func ComputeGrade(selections map[int64]float64, s Scale) (grade float64, ok bool) {
	if s.MaxScore <= s.MinScore || s.GradeMax <= s.GradeMin {
		return 0, false
	}
	cur := 0.0
	for _, v := range selections {
		cur += v
	}
	if s.LockZeroPoints {
		grade = cur / s.MaxScore * s.GradeMax
		if grade < s.GradeMin {
			grade = s.GradeMin
		}
	} else {
		grade = s.GradeMin + (cur-s.MinScore)/(s.MaxScore-s.MinScore)*(s.GradeMax-s.GradeMin)
	}
	if !s.AllowDecimals {
		grade = math.Round(grade)
	}
	return grade, true
}
