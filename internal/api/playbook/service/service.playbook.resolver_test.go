// Package playbooksvc - Test resolver: chuỗi dependency A -> B -> C,
// các loại dependency và sequence không tồn tại.
package playbooksvc

import (
	"testing"

	"playbook_engine/internal/api/playbook/models"
)

func step(seq int, status string, deps ...models.StepDependency) models.PlaybookStep {
	return models.PlaybookStep{
		StepID:       "step-" + string(rune('a'+seq-1)),
		Sequence:     seq,
		Status:       status,
		Dependencies: deps,
	}
}

func dep(onSeq int, depType string) models.StepDependency {
	return models.StepDependency{OnSequence: onSeq, DependencyType: depType}
}

func sequences(steps []models.PlaybookStep) []int {
	var out []int
	for _, s := range steps {
		out = append(out, s.Sequence)
	}
	return out
}

func TestFindEligibleSteps_Chain(t *testing.T) {
	// A(1) xong -> B(2, phụ thuộc 1) đủ điều kiện; C(3, phụ thuộc 1 và 2) chưa
	steps := []models.PlaybookStep{
		step(1, models.StepStatusCompleted),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeCompletion)),
		step(3, models.StepStatusPending, dep(1, models.DependencyTypeCompletion), dep(2, models.DependencyTypeCompletion)),
	}
	eligible := FindEligibleSteps(1, steps)
	if len(eligible) != 1 || eligible[0].Sequence != 2 {
		t.Fatalf("sau khi A xong chỉ B đủ điều kiện, nhận được sequences %v", sequences(eligible))
	}

	// B xong -> C đủ điều kiện
	steps[1].Status = models.StepStatusCompleted
	eligible = FindEligibleSteps(2, steps)
	if len(eligible) != 1 || eligible[0].Sequence != 3 {
		t.Fatalf("sau khi B xong chỉ C đủ điều kiện, nhận được sequences %v", sequences(eligible))
	}
}

func TestFindEligibleSteps_OnlyStepsReferencingCompleted(t *testing.T) {
	// D(4) pending không phụ thuộc sequence 1: không phải ứng viên dù mọi
	// dependency của nó đã thỏa mãn
	steps := []models.PlaybookStep{
		step(1, models.StepStatusCompleted),
		step(2, models.StepStatusCompleted),
		step(4, models.StepStatusPending, dep(2, models.DependencyTypeCompletion)),
	}
	eligible := FindEligibleSteps(1, steps)
	if len(eligible) != 0 {
		t.Errorf("step không tham chiếu sequence vừa xong không được trả về, nhận %v", sequences(eligible))
	}
}

func TestFindEligibleSteps_DoesNotMutate(t *testing.T) {
	steps := []models.PlaybookStep{
		step(1, models.StepStatusCompleted),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeCompletion)),
	}
	_ = FindEligibleSteps(1, steps)
	if steps[1].Status != models.StepStatusPending {
		t.Errorf("resolver không được đổi trạng thái step, nhận được '%s'", steps[1].Status)
	}
}

func TestFindEligibleSteps_AnyDependency(t *testing.T) {
	// Dependency 'any' thỏa mãn khi step tham chiếu kết thúc theo bất kỳ hướng nào
	for _, refStatus := range []string{models.StepStatusCompleted, models.StepStatusFailed, models.StepStatusCancelled} {
		steps := []models.PlaybookStep{
			step(1, refStatus),
			step(2, models.StepStatusPending, dep(1, models.DependencyTypeAny)),
		}
		eligible := FindEligibleSteps(1, steps)
		if len(eligible) != 1 {
			t.Errorf("dependency any với ref status '%s' phải thỏa mãn", refStatus)
		}
	}

	// skipped không nằm trong tập thỏa mãn của any
	steps := []models.PlaybookStep{
		step(1, models.StepStatusSkipped),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeAny)),
	}
	if eligible := FindEligibleSteps(1, steps); len(eligible) != 0 {
		t.Error("dependency any với ref status 'skipped' không được thỏa mãn")
	}
}

func TestFindEligibleSteps_SuccessRequiresCompleted(t *testing.T) {
	steps := []models.PlaybookStep{
		step(1, models.StepStatusFailed),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeSuccess)),
	}
	if eligible := FindEligibleSteps(1, steps); len(eligible) != 0 {
		t.Error("dependency success trên step failed không được thỏa mãn")
	}
}

func TestFindEligibleSteps_UnrecognizedTypeRequiresCompleted(t *testing.T) {
	// Loại dependency lạ xử lý như completion: yêu cầu ref đã completed
	steps := []models.PlaybookStep{
		step(1, models.StepStatusFailed),
		step(2, models.StepStatusPending, dep(1, "blocking")),
	}
	if eligible := FindEligibleSteps(1, steps); len(eligible) != 0 {
		t.Error("loại dependency không nhận dạng trên step failed không được thỏa mãn")
	}

	steps[0].Status = models.StepStatusCompleted
	if eligible := FindEligibleSteps(1, steps); len(eligible) != 1 {
		t.Error("loại dependency không nhận dạng trên step completed phải thỏa mãn")
	}
}

func TestFindEligibleSteps_NonexistentSequence(t *testing.T) {
	// Dependency trỏ tới sequence không có trong run: không bao giờ thỏa mãn
	steps := []models.PlaybookStep{
		step(1, models.StepStatusCompleted),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeCompletion), dep(99, models.DependencyTypeCompletion)),
	}
	if eligible := FindEligibleSteps(1, steps); len(eligible) != 0 {
		t.Error("dependency tới sequence không tồn tại không được thỏa mãn")
	}
}

func TestFindActivatableSteps(t *testing.T) {
	steps := []models.PlaybookStep{
		step(1, models.StepStatusCompleted),
		step(2, models.StepStatusPending, dep(1, models.DependencyTypeCompletion)),
		step(3, models.StepStatusPending, dep(2, models.DependencyTypeCompletion)),
		step(4, models.StepStatusPending), // không có dependency
	}
	activatable := FindActivatableSteps(steps)
	if len(activatable) != 2 {
		t.Fatalf("mong đợi 2 step kích hoạt được (2 và 4), nhận %v", sequences(activatable))
	}
	got := map[int]bool{}
	for _, s := range activatable {
		got[s.Sequence] = true
	}
	if !got[2] || !got[4] {
		t.Errorf("mong đợi sequences 2 và 4, nhận %v", sequences(activatable))
	}
}
