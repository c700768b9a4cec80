package rng

import "testing"

func TestDeterminism(t *testing.T) {
	a := New(12345)
	b := New(12345)

	for i := 0; i < 1000; i++ {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatalf("Sequences diverged at step %d: %f != %f", i, va, vb)
		}
		if va < 0 || va >= 1 {
			t.Fatalf("Value out of [0,1) at step %d: %f", i, va)
		}
	}
}

func TestNegativeSeed(t *testing.T) {
	s := New(-98765)
	for i := 0; i < 100; i++ {
		v := s.Next()
		if v < 0 || v >= 1 {
			t.Fatalf("Negative seed produced out-of-range value: %f", v)
		}
	}
}

func TestIntN(t *testing.T) {
	s := New(42)
	for i := 0; i < 1000; i++ {
		v := s.IntN(3)
		if v < 0 || v > 2 {
			t.Fatalf("IntN(3) returned %d", v)
		}
	}

	if got := s.IntN(0); got != 0 {
		t.Errorf("IntN(0) should return 0, got %d", got)
	}
}
