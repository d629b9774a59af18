// Package playbooksvc - Test firstTimestamp và cách ly dispatcher: notifier
// thất bại hay panic đều không được ảnh hưởng luồng hoàn thành step.
package playbooksvc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ts(v int64) *int64 { return &v }

func TestFirstTimestamp_PrefersStartedAt(t *testing.T) {
	started := ts(1000)
	activated := ts(500)
	got := firstTimestamp(started, activated)
	if got == nil || *got != 1000 {
		t.Errorf("mốc đầu tiên hợp lệ phải được chọn, mong 1000, nhận %v", got)
	}
}

func TestFirstTimestamp_FallsBackToActivatedAt(t *testing.T) {
	got := firstTimestamp(nil, ts(500))
	if got == nil || *got != 500 {
		t.Errorf("startedAt nil phải fallback sang activatedAt, nhận %v", got)
	}
}

func TestFirstTimestamp_ZeroIsNotATimestamp(t *testing.T) {
	got := firstTimestamp(ts(0), ts(500))
	if got == nil || *got != 500 {
		t.Errorf("mốc 0 phải bị bỏ qua, nhận %v", got)
	}
}

func TestFirstTimestamp_AllAbsent(t *testing.T) {
	// Không có mốc nào: duration phải bị bỏ trống thay vì mặc định 0
	if got := firstTimestamp(nil, nil); got != nil {
		t.Errorf("không có mốc nào phải trả nil, nhận %v", *got)
	}
}

// ----- Cách ly dispatcher -----

// fakeNotifier ghi lại notification nhận được và báo qua channel để test
// đồng bộ với goroutine dispatch tách rời.
type fakeNotifier struct {
	called chan StepCompletionNotification
	err    error
	panics bool
}

func (f *fakeNotifier) NotifyStepCompletion(ctx context.Context, n StepCompletionNotification) error {
	f.called <- n
	if f.panics {
		panic("orchestrator nổ")
	}
	return f.err
}

func waitForNotify(t *testing.T, ch chan StepCompletionNotification) StepCompletionNotification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("notifier không được gọi trong thời hạn")
		return StepCompletionNotification{}
	}
}

func TestDispatchOrchestrator_FailureDoesNotPropagate(t *testing.T) {
	notifier := &fakeNotifier{called: make(chan StepCompletionNotification, 1), err: errors.New("orchestrator down")}
	s := &StepService{notifier: notifier}

	// Lời gọi phải trả về ngay và không panic dù notifier trả lỗi
	s.dispatchOrchestrator(StepCompletionNotification{RunID: "run-1", StepID: "step-1", StepSequence: 3})

	got := waitForNotify(t, notifier.called)
	if got.RunID != "run-1" || got.StepSequence != 3 {
		t.Errorf("notification sai nội dung: %+v", got)
	}
}

func TestDispatchOrchestrator_PanicIsRecovered(t *testing.T) {
	notifier := &fakeNotifier{called: make(chan StepCompletionNotification, 1), panics: true}
	s := &StepService{notifier: notifier}

	s.dispatchOrchestrator(StepCompletionNotification{RunID: "run-2", StepID: "step-2"})

	waitForNotify(t, notifier.called)
	// Goroutine dispatch tự recover; chờ một nhịp để chắc panic không lan ra test
	time.Sleep(50 * time.Millisecond)
}

func TestDispatchOrchestrator_NilNotifierIsNoop(t *testing.T) {
	s := &StepService{}
	// Không cấu hình ORCHESTRATOR_URL: dispatch phải là no-op an toàn
	s.dispatchOrchestrator(StepCompletionNotification{RunID: "run-3"})
}

func TestConcludeCompletion_NotifierFailureKeepsSuccess(t *testing.T) {
	notifier := &fakeNotifier{called: make(chan StepCompletionNotification, 1), err: errors.New("orchestrator down")}
	s := &StepService{notifier: notifier}
	want := &CompleteStepResult{CompletionEventID: "evt-1"}

	// Hoàn thành đã ghi nhận: notifier trả lỗi vẫn phải trả kết quả thành công
	got, err := s.concludeCompletion(StepCompletionNotification{RunID: "run-4"}, want)
	if err != nil {
		t.Errorf("notifier lỗi không được biến response hoàn thành thành lỗi, nhận %v", err)
	}
	if got != want {
		t.Errorf("kết quả hoàn thành phải được trả nguyên vẹn, nhận %+v", got)
	}
	waitForNotify(t, notifier.called)
}

func TestConcludeCompletion_NotifierPanicKeepsSuccess(t *testing.T) {
	notifier := &fakeNotifier{called: make(chan StepCompletionNotification, 1), panics: true}
	s := &StepService{notifier: notifier}

	got, err := s.concludeCompletion(StepCompletionNotification{RunID: "run-5"}, &CompleteStepResult{})
	if err != nil || got == nil {
		t.Errorf("notifier panic vẫn phải trả kết quả thành công, nhận (%v, %v)", got, err)
	}
	waitForNotify(t, notifier.called)
	time.Sleep(50 * time.Millisecond)
}
