package playbooksvc

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"playbook_engine/internal/api/playbook/models"
	basesvc "playbook_engine/internal/api/base/service"
	"playbook_engine/internal/common"
	"playbook_engine/internal/global"
	"playbook_engine/internal/logger"
)

// RunService quản lý playbook run và recompute progress.
// Bộ đếm trên run không bao giờ được tăng/giảm incremental: mọi lần cập nhật
// đều tính lại từ toàn bộ step set để chịu được completion đồng thời.
type RunService struct {
	*basesvc.BaseServiceMongoImpl[models.PlaybookRun]
	stepStore    *basesvc.BaseServiceMongoImpl[models.PlaybookStep]
	eventService *EventService
}

// NewRunService tạo mới RunService
func NewRunService() (*RunService, error) {
	runCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.PlaybookRuns)
	if !exist {
		return nil, fmt.Errorf("failed to get playbook_runs collection: %v", common.ErrNotFound)
	}
	stepCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.PlaybookSteps)
	if !exist {
		return nil, fmt.Errorf("failed to get playbook_steps collection: %v", common.ErrNotFound)
	}
	eventService, err := NewEventService()
	if err != nil {
		return nil, fmt.Errorf("failed to create event service: %v", err)
	}
	return &RunService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.PlaybookRun](runCollection),
		stepStore:            basesvc.NewBaseServiceMongo[models.PlaybookStep](stepCollection),
		eventService:         eventService,
	}, nil
}

// FindRunInScope tìm run theo id trong phạm vi các tổ chức caller được phép.
// allowedOrgIDs nil nghĩa là quyền toàn cục (Administrator); danh sách rỗng
// nghĩa là không thấy gì - run ngoài phạm vi trả NotFound, không phải Forbidden.
func (s *RunService) FindRunInScope(ctx context.Context, runID primitive.ObjectID, allowedOrgIDs []primitive.ObjectID) (*models.PlaybookRun, error) {
	filter := bson.M{"_id": runID}
	if allowedOrgIDs != nil {
		filter["ownerOrganizationId"] = bson.M{"$in": allowedOrgIDs}
	}
	run, err := s.BaseServiceMongoImpl.FindOne(ctx, filter, nil)
	if err != nil {
		if err == common.ErrNotFound {
			return nil, common.NewRunNotFoundError("run", runID.Hex())
		}
		return nil, err
	}
	return &run, nil
}

// runProgress là kết quả thuần của một lần recompute từ step set
type runProgress struct {
	TotalSteps         int
	CompletedSteps     int
	FailedSteps        int
	InProgressSteps    int
	ProgressPercentage int
	Done               bool
	Status             string
}

// ComputeRunProgress tính bộ đếm và trạng thái run từ step set. Hàm thuần,
// tách riêng để test không cần Mongo. Run là done khi MỌI step đã terminal.
func ComputeRunProgress(steps []models.PlaybookStep) runProgress {
	p := runProgress{TotalSteps: len(steps), Done: len(steps) > 0, Status: models.RunStatusInProgress}
	for _, step := range steps {
		switch step.Status {
		case models.StepStatusCompleted:
			p.CompletedSteps++
		case models.StepStatusFailed:
			p.FailedSteps++
		case models.StepStatusInProgress, models.StepStatusWaitingForInput, models.StepStatusWaitingForSignal:
			p.InProgressSteps++
		}
		if !models.IsTerminalStepStatus(step.Status) {
			p.Done = false
		}
	}
	if p.TotalSteps > 0 {
		p.ProgressPercentage = int(math.Round(100 * float64(p.CompletedSteps) / float64(p.TotalSteps)))
	}
	if p.Done {
		if p.FailedSteps > 0 {
			p.Status = models.RunStatusCompletedWithErrors
		} else {
			p.Status = models.RunStatusCompleted
		}
	}
	return p
}

// RecomputeRunProgress đọc lại TOÀN BỘ step của run, tính lại bộ đếm và trạng
// thái, persist vào run header và append event progress_recomputed. Idempotent:
// gọi hai lần liên tiếp không có step nào đổi trạng thái cho ra cùng kết quả.
func (s *RunService) RecomputeRunProgress(ctx context.Context, runID primitive.ObjectID) (*models.PlaybookRun, error) {
	run, err := s.BaseServiceMongoImpl.FindOneById(ctx, runID)
	if err != nil {
		if err == common.ErrNotFound {
			return nil, common.NewRunNotFoundError("run", runID.Hex())
		}
		return nil, err
	}

	steps, err := s.stepStore.Find(ctx, bson.M{"runId": runID}, nil)
	if err != nil {
		return nil, err
	}

	progress := ComputeRunProgress(steps)

	set := map[string]interface{}{
		"status":             progress.Status,
		"progressPercentage": progress.ProgressPercentage,
		"totalSteps":         progress.TotalSteps,
		"completedSteps":     progress.CompletedSteps,
		"failedSteps":        progress.FailedSteps,
		"inProgressSteps":    progress.InProgressSteps,
	}
	if progress.Done && run.CompletedAt == nil {
		now := time.Now().UnixMilli()
		set["completedAt"] = now
		if run.StartedAt > 0 {
			set["totalDurationMinutes"] = (now - run.StartedAt) / 60000
		}
	}

	updated, err := s.BaseServiceMongoImpl.FindOneAndUpdate(ctx, bson.M{"_id": runID}, &basesvc.UpdateData{Set: set}, afterUpdateOptions())
	if err != nil {
		return nil, err
	}

	if _, err := s.eventService.AppendProgressRecomputed(ctx, &updated); err != nil {
		// Event chỉ phục vụ audit, lỗi ghi không làm hỏng recompute
		logger.GetAppLogger().WithError(err).WithField("run_id", runID.Hex()).Warn("📈 [PROGRESS] Không ghi được event progress_recomputed")
	}

	return &updated, nil
}
