// Package worker - Test deadline mỗi lần gọi store của reconcile worker.
package worker

import (
	"testing"
	"time"
)

func TestStoreCallTimeout_FromConfig(t *testing.T) {
	if got := storeCallTimeout(2500); got != 2500*time.Millisecond {
		t.Errorf("cấu hình 2500ms phải cho deadline 2.5s, nhận %v", got)
	}
}

func TestStoreCallTimeout_DefaultsWhenUnset(t *testing.T) {
	for _, ms := range []int{0, -1} {
		if got := storeCallTimeout(ms); got != 5*time.Second {
			t.Errorf("cấu hình %d phải fallback 5s, nhận %v", ms, got)
		}
	}
}
