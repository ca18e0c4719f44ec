package entitlement

import "testing"

func intp(v int) *int { return &v }

func TestNormalizeLimit_NilStaysNil(t *testing.T) {
	if got := NormalizeLimit(nil); got != nil {
		t.Fatalf("NormalizeLimit(nil) = %v, want nil", *got)
	}
}

func TestNormalizeLimit_NegativeBecomesNil(t *testing.T) {
	for _, v := range []int{-1, -5, -1000} {
		if got := NormalizeLimit(intp(v)); got != nil {
			t.Errorf("NormalizeLimit(%d) = %v, want nil", v, *got)
		}
	}
}

func TestNormalizeLimit_ZeroPassesThrough(t *testing.T) {
	got := NormalizeLimit(intp(0))
	if got == nil || *got != 0 {
		t.Fatalf("NormalizeLimit(0) = %v, want 0", got)
	}
}

func TestNormalizeLimit_PositivePassesThrough(t *testing.T) {
	for _, v := range []int{1, 3, 50, 100000} {
		got := NormalizeLimit(intp(v))
		if got == nil || *got != v {
			t.Errorf("NormalizeLimit(%d) = %v, want %d", v, got, v)
		}
	}
}
