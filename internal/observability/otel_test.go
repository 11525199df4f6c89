package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,broken, =x,tenant=t1")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "t1" {
		t.Fatalf("parseHeaders: got %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty header string must yield nil")
	}
}

func TestClampRatio(t *testing.T) {
	cases := map[string]float64{
		"":     0.1,
		"abc":  0.1,
		"0.5":  0.5,
		"-1":   0,
		"2":    1,
		" 1 ":  1,
		"0.01": 0.01,
	}
	for in, want := range cases {
		if got := clampRatio(in); got != want {
			t.Fatalf("clampRatio(%q): want=%v got=%v", in, want, got)
		}
	}
}
