package rubric_test

import (
	"testing"

	"github.com/johndimopoulos/moodle-gradingform-erubric-sub000/internal/rubric"
)

func TestComputeGrade_LinearMapping(t *testing.T) {
	s := rubric.Scale{MinScore: 0, MaxScore: 20, GradeMin: 0, GradeMax: 100}
	grade, ok := rubric.ComputeGrade(map[int64]float64{10: 5, 11: 5}, s)
	if !ok {
		t.Fatalf("expected a grade")
	}
	if grade != 50 {
		t.Fatalf("expected 50, got %v", grade)
	}
}

func TestComputeGrade_NonZeroMinScore(t *testing.T) {
	// Criteria whose lowest levels already carry points shift the range.
	s := rubric.Scale{MinScore: 4, MaxScore: 20, GradeMin: 0, GradeMax: 100}
	grade, ok := rubric.ComputeGrade(map[int64]float64{10: 12}, s)
	if !ok {
		t.Fatalf("expected a grade")
	}
	if grade != 50 {
		t.Fatalf("expected 50, got %v", grade)
	}
}

func TestComputeGrade_LockZeroPoints(t *testing.T) {
	s := rubric.Scale{MinScore: 4, MaxScore: 20, GradeMin: 0, GradeMax: 100, LockZeroPoints: true}
	grade, ok := rubric.ComputeGrade(map[int64]float64{10: 10}, s)
	if !ok {
		t.Fatalf("expected a grade")
	}
	if grade != 50 {
		t.Fatalf("expected 50 (share of max), got %v", grade)
	}
}

func TestComputeGrade_LockZeroPointsFloorsAtGradeMin(t *testing.T) {
	s := rubric.Scale{MinScore: 0, MaxScore: 20, GradeMin: 40, GradeMax: 100, LockZeroPoints: true}
	grade, ok := rubric.ComputeGrade(map[int64]float64{10: 2}, s)
	if !ok {
		t.Fatalf("expected a grade")
	}
	if grade != 40 {
		t.Fatalf("expected floor at grade min 40, got %v", grade)
	}
}

func TestComputeGrade_Endpoints(t *testing.T) {
	s := rubric.Scale{MinScore: 4, MaxScore: 20, GradeMin: 10, GradeMax: 90}
	if grade, _ := rubric.ComputeGrade(map[int64]float64{10: 4}, s); grade != 10 {
		t.Fatalf("min score must map to grade min, got %v", grade)
	}
	if grade, _ := rubric.ComputeGrade(map[int64]float64{10: 20}, s); grade != 90 {
		t.Fatalf("max score must map to grade max, got %v", grade)
	}

	s.LockZeroPoints = true
	if grade, _ := rubric.ComputeGrade(map[int64]float64{10: 20}, s); grade != 90 {
		t.Fatalf("all-maximum selection must reach grade max, got %v", grade)
	}
}

func TestComputeGrade_Rounding(t *testing.T) {
	s := rubric.Scale{MinScore: 0, MaxScore: 3, GradeMin: 0, GradeMax: 10}
	grade, _ := rubric.ComputeGrade(map[int64]float64{10: 1}, s)
	if grade != 3 {
		t.Fatalf("expected rounded grade 3, got %v", grade)
	}

	s.AllowDecimals = true
	grade, _ = rubric.ComputeGrade(map[int64]float64{10: 1}, s)
	if grade <= 3.3 || grade >= 3.4 {
		t.Fatalf("expected ~3.33, got %v", grade)
	}
}

func TestComputeGrade_DegenerateScale(t *testing.T) {
	if _, ok := rubric.ComputeGrade(nil, rubric.Scale{MinScore: 5, MaxScore: 5, GradeMax: 100}); ok {
		t.Fatalf("empty score range must not produce a grade")
	}
	if _, ok := rubric.ComputeGrade(nil, rubric.Scale{MaxScore: 10, GradeMin: 100, GradeMax: 100}); ok {
		t.Fatalf("empty grade range must not produce a grade")
	}
}

func TestScaleFor(t *testing.T) {
	d := baseDefinition()
	d.Options.LockZeroPoints = true
	s := rubric.ScaleFor(&d, 0, 100, true)
	if s.MinScore != 0 || s.MaxScore != 15 {
		t.Fatalf("unexpected score range: %v..%v", s.MinScore, s.MaxScore)
	}
	if !s.LockZeroPoints || !s.AllowDecimals {
		t.Fatalf("options not carried: %+v", s)
	}
}
