package playbooksvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	playbookdto "playbook_engine/internal/api/playbook/dto"
	"playbook_engine/internal/api/playbook/models"
	basesvc "playbook_engine/internal/api/base/service"
	"playbook_engine/internal/common"
	"playbook_engine/internal/global"
	"playbook_engine/internal/logger"
)

// StepCompletionNotification là payload engine gửi orchestrator sau khi một
// step hoàn thành. Định nghĩa ở đây để orchestrator package implement interface
// mà không tạo import cycle.
type StepCompletionNotification struct {
	RunID          string                 `json:"run_id"`
	StepID         string                 `json:"step_id"`
	StepSequence   int                    `json:"step_sequence"`
	OrganizationID string                 `json:"organization_id"`
	Outputs        map[string]interface{} `json:"outputs"`
	AIConfidence   *float64               `json:"ai_confidence,omitempty"`
}

// OrchestratorNotifier gửi notification tới orchestrator bên ngoài.
// Implement chịu trách nhiệm timeout và retry của riêng nó.
type OrchestratorNotifier interface {
	NotifyStepCompletion(ctx context.Context, notification StepCompletionNotification) error
}

// defaultNotifier được gán một lần từ nơi khởi tạo app (cùng cơ chế với
// basesvc.SetIsAdminFromContextFunc). Nil = tắt dispatch.
var defaultNotifier OrchestratorNotifier

// SetDefaultOrchestratorNotifier gắn notifier dùng chung cho mọi StepService
// tạo sau lời gọi này.
func SetDefaultOrchestratorNotifier(notifier OrchestratorNotifier) {
	defaultNotifier = notifier
}

// StepService quản lý playbook step và giao thức hoàn thành step
type StepService struct {
	*basesvc.BaseServiceMongoImpl[models.PlaybookStep]
	runService   *RunService
	eventService *EventService
	notifier     OrchestratorNotifier
}

// NewStepService tạo mới StepService
func NewStepService() (*StepService, error) {
	stepCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.PlaybookSteps)
	if !exist {
		return nil, fmt.Errorf("failed to get playbook_steps collection: %v", common.ErrNotFound)
	}
	runService, err := NewRunService()
	if err != nil {
		return nil, fmt.Errorf("failed to create run service: %v", err)
	}
	eventService, err := NewEventService()
	if err != nil {
		return nil, fmt.Errorf("failed to create event service: %v", err)
	}
	return &StepService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.PlaybookStep](stepCollection),
		runService:           runService,
		eventService:         eventService,
		notifier:             defaultNotifier,
	}, nil
}

// SetOrchestratorNotifier gắn notifier, gọi từ nơi khởi tạo app.
// Nil = tắt dispatch (ví dụ môi trường không cấu hình ORCHESTRATOR_URL).
func (s *StepService) SetOrchestratorNotifier(notifier OrchestratorNotifier) {
	s.notifier = notifier
}

// afterUpdateOptions trả về option lấy document SAU khi update
func afterUpdateOptions() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// FindStepInRun tìm step theo stepId (ổn định) hoặc _id trong một run
func (s *StepService) FindStepInRun(ctx context.Context, runID primitive.ObjectID, stepID string) (*models.PlaybookStep, error) {
	filter := bson.M{"runId": runID}
	if objID, err := primitive.ObjectIDFromHex(stepID); err == nil {
		filter["$or"] = []bson.M{{"_id": objID}, {"stepId": stepID}}
	} else {
		filter["stepId"] = stepID
	}
	step, err := s.BaseServiceMongoImpl.FindOne(ctx, filter, nil)
	if err != nil {
		if err == common.ErrNotFound {
			return nil, common.NewRunNotFoundError("step", stepID)
		}
		return nil, err
	}
	return &step, nil
}

// CompleteStepResult gói kết quả trả về cho caller của CompleteStep
type CompleteStepResult struct {
	Step              *models.PlaybookStep
	NextSteps         []models.PlaybookStep
	CompletionEventID string
}

// CompleteStep thực hiện giao thức hoàn thành một step:
//  1. Run và step phải tồn tại trong phạm vi tổ chức của caller.
//  2. Step phải ở trạng thái cho phép hoàn thành; terminal trả Conflict,
//     trạng thái sai khác trả InvalidState để client phân biệt race với lỗi logic.
//  3. Step human có assignedIdentity khác caller cần quyền override.
//  4. Outputs phải thỏa output contract nếu step khai báo.
//  5. Chuyển trạng thái bằng conditional update trên status đã quan sát:
//     hai request đồng thời cho cùng step thì request thua trả Conflict.
//
// Progress được recompute đồng bộ nhưng lỗi recompute không rollback step
// (bộ đếm tự lành ở lần recompute kế tiếp). Orchestrator được notify best-effort
// trên goroutine tách rời, thất bại chỉ ghi log.
func (s *StepService) CompleteStep(
	ctx context.Context,
	runID primitive.ObjectID,
	stepID string,
	input *playbookdto.CompleteStepInput,
	actingIdentity string,
	canOverrideAssignment bool,
	allowedOrgIDs []primitive.ObjectID,
) (*CompleteStepResult, error) {
	storeTimeout := time.Duration(global.MongoDB_ServerConfig.StoreTimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	run, err := s.runService.FindRunInScope(ctx, runID, allowedOrgIDs)
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "đọc run")
	}

	step, err := s.FindStepInRun(ctx, run.ID, stepID)
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "đọc step")
	}

	if models.IsTerminalStepStatus(step.Status) {
		return nil, common.NewRunAlreadyTerminalError(step.Status)
	}
	if !models.IsCompletableStepStatus(step.Status) {
		return nil, common.NewRunInvalidStateError(step.Status)
	}

	if step.StepType == models.StepTypeHuman &&
		step.AssignedIdentity != "" &&
		step.AssignedIdentity != actingIdentity &&
		!canOverrideAssignment {
		return nil, common.NewRunForbiddenError(
			fmt.Sprintf("Step được gán cho '%s', cần quyền override để hoàn thành thay", step.AssignedIdentity))
	}

	outputs := input.Outputs
	if outputs == nil {
		outputs = map[string]interface{}{}
	}
	if err := ValidateOutputs(step.OutputContract, outputs); err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()
	set := map[string]interface{}{
		"status":      models.StepStatusCompleted,
		"completedAt": now,
		"completedBy": actingIdentity,
		"outputs":     outputs,
	}
	if input.AIConfidence != nil {
		set["aiConfidence"] = *input.AIConfidence
	}
	if input.AIInsights != "" {
		set["aiInsights"] = input.AIInsights
	}
	// Thời lượng tính từ startedAt, fallback activatedAt; không có mốc nào
	// thì bỏ trống thay vì mặc định 0
	if startedAt := firstTimestamp(step.StartedAt, step.ActivatedAt); startedAt != nil {
		set["actualDurationMinutes"] = (now - *startedAt) / 60000
	}

	// Conditional update trên status đã quan sát: đây là điểm serialize duy
	// nhất giữa hai request hoàn thành cùng step
	casFilter := bson.M{"_id": step.ID, "status": step.Status}
	completed, err := s.BaseServiceMongoImpl.FindOneAndUpdate(ctx, casFilter, &basesvc.UpdateData{Set: set}, afterUpdateOptions())
	if err != nil {
		return nil, s.resolveCompletionConflict(ctx, step.ID, err)
	}

	// Progress recompute đồng bộ, lỗi chỉ ghi log
	recomputedRun, err := s.runService.RecomputeRunProgress(ctx, run.ID)
	if err != nil {
		logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
			"run_id":  run.ID.Hex(),
			"step_id": completed.StepID,
		}).Warn("📈 [PROGRESS] Recompute progress thất bại sau khi hoàn thành step")
		recomputedRun = run
	}

	eventID := ""
	event, err := s.eventService.AppendStepCompleted(ctx, recomputedRun, &completed)
	if err != nil {
		logger.GetAppLogger().WithError(err).WithField("run_id", run.ID.Hex()).Warn("📈 [PROGRESS] Không ghi được completion event")
	} else {
		eventID = event.ID.Hex()
	}

	// Đọc lại toàn bộ step set để resolver đánh giá trên trạng thái mới nhất
	allSteps, err := s.BaseServiceMongoImpl.Find(ctx, bson.M{"runId": run.ID}, nil)
	if err != nil {
		logger.GetAppLogger().WithError(err).WithField("run_id", run.ID.Hex()).Warn("📈 [PROGRESS] Không đọc được step set cho resolver")
		allSteps = []models.PlaybookStep{}
	}
	nextSteps := FindEligibleSteps(completed.Sequence, allSteps)

	return s.concludeCompletion(StepCompletionNotification{
		RunID:          run.ID.Hex(),
		StepID:         completed.StepID,
		StepSequence:   completed.Sequence,
		OrganizationID: run.OwnerOrganizationID.Hex(),
		Outputs:        outputs,
		AIConfidence:   input.AIConfidence,
	}, &CompleteStepResult{
		Step:              &completed,
		NextSteps:         nextSteps,
		CompletionEventID: eventID,
	})
}

// concludeCompletion gửi notification best-effort rồi trả kết quả cho caller.
// Kết quả trả về không phụ thuộc vào dispatch: step đã ghi nhận hoàn thành
// thì notifier hỏng cũng không được biến response thành lỗi.
func (s *StepService) concludeCompletion(notification StepCompletionNotification, result *CompleteStepResult) (*CompleteStepResult, error) {
	s.dispatchOrchestrator(notification)
	return result, nil
}

// firstTimestamp trả về con trỏ đầu tiên khác nil và dương
func firstTimestamp(candidates ...*int64) *int64 {
	for _, ts := range candidates {
		if ts != nil && *ts > 0 {
			return ts
		}
	}
	return nil
}

// mapStoreError đổi lỗi đọc record store thành Timeout khi deadline đã hết
func (s *StepService) mapStoreError(ctx context.Context, err error, operation string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return common.NewRunTimeoutError(operation)
	}
	return err
}

// resolveCompletionConflict phân loại lỗi của conditional update: request thua
// race đọc lại trạng thái hiện tại để trả Conflict đúng loại thay vì lỗi chung.
func (s *StepService) resolveCompletionConflict(ctx context.Context, stepObjID primitive.ObjectID, casErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return common.NewRunTimeoutError("cập nhật step")
	}
	current, err := s.BaseServiceMongoImpl.FindOneById(ctx, stepObjID)
	if err != nil {
		if err == common.ErrNotFound {
			return common.NewRunNotFoundError("step", stepObjID.Hex())
		}
		return casErr
	}
	if models.IsTerminalStepStatus(current.Status) {
		return common.NewRunAlreadyTerminalError(current.Status)
	}
	if !models.IsCompletableStepStatus(current.Status) {
		return common.NewRunInvalidStateError(current.Status)
	}
	return casErr
}

// dispatchOrchestrator gửi notification trên goroutine tách rời. Đây là điểm
// duy nhất trong engine chủ động nuốt lỗi: orchestrator có vòng reconciliation
// riêng làm lưới an toàn, nên thất bại ở đây không được ảnh hưởng kết quả
// của request hoàn thành step.
func (s *StepService) dispatchOrchestrator(notification StepCompletionNotification) {
	if s.notifier == nil {
		return
	}
	notifier := s.notifier
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.GetAppLogger().WithField("run_id", notification.RunID).Errorf("🚀 [ORCHESTRATOR] Panic khi dispatch: %v", r)
			}
		}()
		if err := notifier.NotifyStepCompletion(context.Background(), notification); err != nil {
			logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
				"run_id":  notification.RunID,
				"step_id": notification.StepID,
			}).Warn("🚀 [ORCHESTRATOR] Notify step completion thất bại")
		}
	}()
}
