package tokenusage

import "testing"

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{float64(42), 42, true},
		{float64(42.7), 42, true},
		{float64(0), 0, true},
		{float64(-1), 0, false},
		{"1234", 1234, true},
		{"1,234,567", 1234567, true},
		{" 88 ", 88, true},
		{"12.5", 12, true},
		{"-3", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{true, 0, false},
		{false, 0, false},
		{nil, 0, false},
		{map[string]any{}, 0, false},
	}
	for _, tc := range cases {
		got, ok := Coerce(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Coerce(%v) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestResolveRunLevelBeatsNestedContainer(t *testing.T) {
	run := map[string]any{"promptTokens": float64(10)}
	outcome := map[string]any{
		"usage": map[string]any{"input_tokens": float64(99)},
	}
	u := Resolve(run, outcome)
	if u.Input == nil || *u.Input != 10 {
		t.Fatalf("input = %v, want 10", u.Input)
	}
}

func TestResolveQuantitiesIndependently(t *testing.T) {
	run := map[string]any{"inputTokens": float64(5)}
	outcome := map[string]any{
		"usage": map[string]any{"output_tokens": float64(7)},
	}
	u := Resolve(run, outcome)
	if u.Input == nil || *u.Input != 5 {
		t.Fatalf("input = %v, want 5", u.Input)
	}
	if u.Output == nil || *u.Output != 7 {
		t.Fatalf("output = %v, want 7", u.Output)
	}
	if u.Total == nil || *u.Total != 12 {
		t.Fatalf("total = %v, want derived 12", u.Total)
	}
}

func TestResolveContainerPriority(t *testing.T) {
	// "usage" is probed before "stats"; run containers before outcome ones.
	run := map[string]any{
		"stats": map[string]any{"totalTokens": float64(300)},
	}
	outcome := map[string]any{
		"usage": map[string]any{"totalTokens": float64(100)},
	}
	u := Resolve(run, outcome)
	if u.Total == nil || *u.Total != 100 {
		t.Fatalf("total = %v, want 100 from usage container", u.Total)
	}
}

func TestResolveExplicitTotalWins(t *testing.T) {
	run := map[string]any{
		"inputTokens":  float64(5),
		"outputTokens": float64(7),
		"totalTokens":  float64(999),
	}
	u := Resolve(run, nil)
	if u.Total == nil || *u.Total != 999 {
		t.Fatalf("total = %v, want explicit 999", u.Total)
	}
}

func TestResolveNegativeTreatedAsAbsent(t *testing.T) {
	run := map[string]any{"inputTokens": float64(-5)}
	outcome := map[string]any{"input_tokens": float64(3)}
	u := Resolve(run, outcome)
	if u.Input == nil || *u.Input != 3 {
		t.Fatalf("input = %v, want 3 from outcome after skipping negative", u.Input)
	}
}

func TestResolveNothing(t *testing.T) {
	u := Resolve(map[string]any{"label": "x"}, map[string]any{"status": "ok"})
	if !u.Empty() {
		t.Fatalf("expected empty usage, got %+v", u)
	}
}

func TestResolveEntry(t *testing.T) {
	u := ResolveEntry(map[string]any{
		"sessionId":    "abc",
		"inputTokens":  float64(5),
		"outputTokens": float64(7),
	})
	if u.Input == nil || *u.Input != 5 || u.Output == nil || *u.Output != 7 {
		t.Fatalf("unexpected usage: %+v", u)
	}
	if u.Total == nil || *u.Total != 12 {
		t.Fatalf("total = %v, want 12", u.Total)
	}
}
