// Package playbooksvc - Test ComputeRunProgress: bộ đếm, phần trăm làm tròn
// và điều kiện run kết thúc.
package playbooksvc

import (
	"testing"

	"playbook_engine/internal/api/playbook/models"
)

func stepWithStatus(seq int, status string) models.PlaybookStep {
	return models.PlaybookStep{Sequence: seq, Status: status}
}

func TestComputeRunProgress_PartialRounding(t *testing.T) {
	// 2/3 completed -> 67%, run chưa done vì còn step chưa terminal
	steps := []models.PlaybookStep{
		stepWithStatus(1, models.StepStatusCompleted),
		stepWithStatus(2, models.StepStatusCompleted),
		stepWithStatus(3, models.StepStatusInProgress),
	}
	p := ComputeRunProgress(steps)
	if p.ProgressPercentage != 67 {
		t.Errorf("2/3 completed phải làm tròn thành 67%%, nhận %d", p.ProgressPercentage)
	}
	if p.Done {
		t.Error("run còn step in_progress không được coi là done")
	}
	if p.Status != models.RunStatusInProgress {
		t.Errorf("run chưa done phải giữ status in_progress, nhận '%s'", p.Status)
	}
	if p.CompletedSteps != 2 || p.InProgressSteps != 1 || p.FailedSteps != 0 {
		t.Errorf("bộ đếm sai: completed=%d inProgress=%d failed=%d", p.CompletedSteps, p.InProgressSteps, p.FailedSteps)
	}
}

func TestComputeRunProgress_DoneWithErrors(t *testing.T) {
	// Mọi step đã terminal, có 1 failed -> completed_with_errors
	steps := []models.PlaybookStep{
		stepWithStatus(1, models.StepStatusCompleted),
		stepWithStatus(2, models.StepStatusCompleted),
		stepWithStatus(3, models.StepStatusFailed),
	}
	p := ComputeRunProgress(steps)
	if !p.Done {
		t.Fatal("mọi step terminal thì run phải done")
	}
	if p.Status != models.RunStatusCompletedWithErrors {
		t.Errorf("run done với failed step phải là completed_with_errors, nhận '%s'", p.Status)
	}
	if p.ProgressPercentage != 67 {
		t.Errorf("progress tính trên completed/total, mong 67%%, nhận %d", p.ProgressPercentage)
	}
}

func TestComputeRunProgress_AllCompleted(t *testing.T) {
	steps := []models.PlaybookStep{
		stepWithStatus(1, models.StepStatusCompleted),
		stepWithStatus(2, models.StepStatusSkipped),
		stepWithStatus(3, models.StepStatusCancelled),
	}
	p := ComputeRunProgress(steps)
	if !p.Done {
		t.Fatal("skipped và cancelled là terminal, run phải done")
	}
	if p.Status != models.RunStatusCompleted {
		t.Errorf("run done không có failed phải là completed, nhận '%s'", p.Status)
	}
	// skipped/cancelled không đóng góp vào completedSteps
	if p.CompletedSteps != 1 {
		t.Errorf("chỉ step completed mới đếm vào completedSteps, nhận %d", p.CompletedSteps)
	}
}

func TestComputeRunProgress_WaitingStatesCountAsInProgress(t *testing.T) {
	steps := []models.PlaybookStep{
		stepWithStatus(1, models.StepStatusInProgress),
		stepWithStatus(2, models.StepStatusWaitingForInput),
		stepWithStatus(3, models.StepStatusWaitingForSignal),
		stepWithStatus(4, models.StepStatusPending),
		stepWithStatus(5, models.StepStatusReady),
	}
	p := ComputeRunProgress(steps)
	if p.InProgressSteps != 3 {
		t.Errorf("waiting_for_input và waiting_for_signal đếm như in_progress, mong 3, nhận %d", p.InProgressSteps)
	}
	if p.Done {
		t.Error("pending/ready chưa terminal, run không được done")
	}
}

func TestComputeRunProgress_EmptyStepSet(t *testing.T) {
	p := ComputeRunProgress(nil)
	if p.Done {
		t.Error("run không có step nào không được coi là done")
	}
	if p.ProgressPercentage != 0 {
		t.Errorf("run rỗng phải 0%%, nhận %d", p.ProgressPercentage)
	}
}

func TestComputeRunProgress_Idempotent(t *testing.T) {
	steps := []models.PlaybookStep{
		stepWithStatus(1, models.StepStatusCompleted),
		stepWithStatus(2, models.StepStatusFailed),
	}
	first := ComputeRunProgress(steps)
	second := ComputeRunProgress(steps)
	if first != second {
		t.Errorf("cùng step set phải cho cùng kết quả: %+v != %+v", first, second)
	}
}
