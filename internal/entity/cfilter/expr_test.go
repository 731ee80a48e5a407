package cfilter

import "testing"

func TestParseAndEvalShapesStylePredicate(t *testing.T) {
	expr, err := Parse("x > 50 and x < 100 and y > 50 and y < 100")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cases := []struct {
		x, y float64
		want bool
	}{
		{75, 75, true},
		{50, 75, false},  // x boundary excluded by strict ">"
		{100, 75, false}, // x boundary excluded by strict "<"
		{75, 200, false},
		{0, 0, false},
	}
	for _, c := range cases {
		got := expr.Eval(map[string]float64{"x": c.x, "y": c.y})
		if got != c.want {
			t.Errorf("Eval(x=%v,y=%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
}

func TestParseOrAcrossConjuncts(t *testing.T) {
	expr, err := Parse("color = 1 or color = 2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !expr.Eval(map[string]float64{"color": 2}) {
		t.Fatal("expected color=2 to satisfy the second disjunct")
	}
	if expr.Eval(map[string]float64{"color": 3}) {
		t.Fatal("expected color=3 to satisfy neither disjunct")
	}
}

func TestEvalMissingFieldIsFalse(t *testing.T) {
	expr, err := Parse("x >= 10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if expr.Eval(map[string]float64{"y": 99}) {
		t.Fatal("expected a predicate over a missing field to not match")
	}
}

func TestParseRejectsMissingOperator(t *testing.T) {
	if _, err := Parse("just-a-field"); err == nil {
		t.Fatal("expected an error for a clause with no operator")
	}
}

func TestParseRejectsBadLiteral(t *testing.T) {
	if _, err := Parse("x > not-a-number"); err == nil {
		t.Fatal("expected an error for a non-numeric literal")
	}
}
