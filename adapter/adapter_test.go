package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func init() {
	BaseBackoff = time.Millisecond
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), "test", 3, func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	cause := errors.New("down")
	err := Retry(t.Context(), "test", 2, func(context.Context) (bool, error) {
		calls++
		return true, cause
	})
	if !errors.Is(err, cause) || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetriableStops(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), "test", 5, func(context.Context) (bool, error) {
		calls++
		return false, errors.New("bad request")
	})
	if err == nil || !strings.Contains(err.Error(), "non-retriable") {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := Retry(ctx, "test", 3, func(context.Context) (bool, error) {
		t.Fatal("attempt must not run after cancellation")
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
