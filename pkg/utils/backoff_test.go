package utils

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	b := NewConstantBackoff(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if b.NextDelay(i) != 100*time.Millisecond {
			t.Fatalf("constant backoff must not vary")
		}
	}
}

func TestLinearBackoffCapped(t *testing.T) {
	b := NewLinearBackoff(100*time.Millisecond, 250*time.Millisecond)
	if b.NextDelay(0) != 100*time.Millisecond {
		t.Fatalf("unexpected first delay")
	}
	if b.NextDelay(1) != 200*time.Millisecond {
		t.Fatalf("unexpected second delay")
	}
	if b.NextDelay(5) != 250*time.Millisecond {
		t.Fatalf("expected cap at max delay")
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := NewExponentialBackoff(50*time.Millisecond, time.Second)
	if b.NextDelay(0) != 50*time.Millisecond {
		t.Fatalf("unexpected first delay")
	}
	if b.NextDelay(2) != 200*time.Millisecond {
		t.Fatalf("unexpected third delay")
	}
	if b.NextDelay(10) != time.Second {
		t.Fatalf("expected cap at max delay")
	}
}

func TestNewBackoffByName(t *testing.T) {
	if _, ok := NewBackoff("exponential", time.Millisecond).(*ExponentialBackoff); !ok {
		t.Fatalf("expected exponential strategy")
	}
	if _, ok := NewBackoff("linear", time.Millisecond).(*LinearBackoff); !ok {
		t.Fatalf("expected linear strategy")
	}
	if _, ok := NewBackoff("bogus", time.Millisecond).(*ConstantBackoff); !ok {
		t.Fatalf("unknown name must fall back to constant")
	}
}
