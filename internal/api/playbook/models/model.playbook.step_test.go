// Package models - Test phân loại trạng thái step: terminal và completable
// là hai tập rời nhau, pending không thuộc tập nào.
package models

import "testing"

func TestStepStatusSets(t *testing.T) {
	terminal := []string{StepStatusCompleted, StepStatusFailed, StepStatusCancelled, StepStatusSkipped}
	completable := []string{StepStatusReady, StepStatusInProgress, StepStatusWaitingForInput, StepStatusWaitingForSignal}

	for _, status := range terminal {
		if !IsTerminalStepStatus(status) {
			t.Errorf("'%s' phải là terminal", status)
		}
		if IsCompletableStepStatus(status) {
			t.Errorf("'%s' là terminal, không được completable", status)
		}
	}
	for _, status := range completable {
		if !IsCompletableStepStatus(status) {
			t.Errorf("'%s' phải là completable", status)
		}
		if IsTerminalStepStatus(status) {
			t.Errorf("'%s' là completable, không được terminal", status)
		}
	}

	// pending chưa đủ điều kiện hoàn thành nhưng cũng chưa kết thúc
	if IsTerminalStepStatus(StepStatusPending) || IsCompletableStepStatus(StepStatusPending) {
		t.Error("pending không thuộc tập terminal lẫn completable")
	}
}
