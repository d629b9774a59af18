package playbooksvc

import (
	"playbook_engine/internal/api/playbook/models"
	"playbook_engine/internal/logger"
)

// FindEligibleSteps tìm các step pending đủ điều kiện kích hoạt sau khi step
// có sequence completedSequence vừa kết thúc. Hàm thuần: chỉ đọc steps, không
// chỉnh sửa trạng thái — việc ghi ready là quyết định của caller.
//
// Một step là ứng viên nếu đang pending và có ít nhất một dependency tham
// chiếu completedSequence. Ứng viên chỉ đủ điều kiện khi TẤT CẢ dependency
// của nó thỏa mãn trên trạng thái hiện tại của step được tham chiếu.
func FindEligibleSteps(completedSequence int, steps []models.PlaybookStep) []models.PlaybookStep {
	statusBySequence := make(map[int]string, len(steps))
	for _, step := range steps {
		statusBySequence[step.Sequence] = step.Status
	}

	eligible := []models.PlaybookStep{}
	for _, step := range steps {
		if step.Status != models.StepStatusPending {
			continue
		}
		referencesCompleted := false
		for _, dep := range step.Dependencies {
			if dep.OnSequence == completedSequence {
				referencesCompleted = true
				break
			}
		}
		if !referencesCompleted {
			continue
		}
		if allDependenciesSatisfied(step.Dependencies, statusBySequence) {
			eligible = append(eligible, step)
		}
	}
	return eligible
}

// FindActivatableSteps trả về mọi step pending có toàn bộ dependency thỏa mãn,
// không cần vừa có step nào hoàn thành. Dùng cho endpoint đọc next-steps của run.
func FindActivatableSteps(steps []models.PlaybookStep) []models.PlaybookStep {
	statusBySequence := make(map[int]string, len(steps))
	for _, step := range steps {
		statusBySequence[step.Sequence] = step.Status
	}

	activatable := []models.PlaybookStep{}
	for _, step := range steps {
		if step.Status != models.StepStatusPending {
			continue
		}
		if allDependenciesSatisfied(step.Dependencies, statusBySequence) {
			activatable = append(activatable, step)
		}
	}
	return activatable
}

// allDependenciesSatisfied đánh giá từng dependency trên status hiện tại
// của step được tham chiếu qua sequence.
func allDependenciesSatisfied(deps []models.StepDependency, statusBySequence map[int]string) bool {
	for _, dep := range deps {
		refStatus, exists := statusBySequence[dep.OnSequence]
		if !exists {
			// Tham chiếu sequence không tồn tại: không bao giờ thỏa mãn
			return false
		}
		switch dep.DependencyType {
		case models.DependencyTypeAny:
			if refStatus != models.StepStatusCompleted &&
				refStatus != models.StepStatusFailed &&
				refStatus != models.StepStatusCancelled {
				return false
			}
		default:
			// completion, success và mọi loại không nhận dạng đều yêu cầu
			// step tham chiếu đã completed (mặc định đóng, không mở)
			if dep.DependencyType != models.DependencyTypeCompletion &&
				dep.DependencyType != models.DependencyTypeSuccess {
				logger.GetAppLogger().WithField("dependencyType", dep.DependencyType).
					Warn("Loại dependency không nhận dạng, xử lý như completion")
			}
			if refStatus != models.StepStatusCompleted {
				return false
			}
		}
	}
	return true
}
