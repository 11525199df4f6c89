package envutil

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TB_INT", "12")
	t.Setenv("TB_BAD_INT", "x")
	t.Setenv("TB_BOOL", "on")
	t.Setenv("TB_DUR", "250ms")
	t.Setenv("TB_DUR_SECS", "3")
	t.Setenv("TB_STR", "  hello ")

	if got := Int("TB_INT", 1); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
	if got := Int("TB_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: want=7 got=%d", got)
	}
	if got := Bool("TB_BOOL", false); !got {
		t.Fatalf("Bool: want=true got=%v", got)
	}
	if got := Bool("TB_MISSING", true); !got {
		t.Fatalf("Bool default: want=true got=%v", got)
	}
	if got := Duration("TB_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("Duration: want=250ms got=%v", got)
	}
	if got := Duration("TB_DUR_SECS", time.Second); got != 3*time.Second {
		t.Fatalf("Duration secs: want=3s got=%v", got)
	}
	if got := String("TB_STR", "d"); got != "hello" {
		t.Fatalf("String: want=hello got=%q", got)
	}
}
