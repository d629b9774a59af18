package playbooksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"playbook_engine/internal/api/playbook/models"
	basesvc "playbook_engine/internal/api/base/service"
	"playbook_engine/internal/common"
	"playbook_engine/internal/global"
)

// EventService quản lý completion events. Collection này là append-only:
// mọi thao tác update/delete đều bị chặn ở tầng service.
type EventService struct {
	*basesvc.BaseServiceMongoImpl[models.PlaybookCompletionEvent]
}

// NewEventService tạo mới EventService
func NewEventService() (*EventService, error) {
	eventCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.PlaybookCompletionEvents)
	if !exist {
		return nil, fmt.Errorf("failed to get playbook_completion_events collection: %v", common.ErrNotFound)
	}
	return &EventService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.PlaybookCompletionEvent](eventCollection),
	}, nil
}

// errEventImmutable dùng chung cho mọi thao tác bị chặn trên event
func errEventImmutable() error {
	return common.NewError(common.ErrCodeBusinessOperation, "Completion event là bản ghi audit, không thể sửa hoặc xóa", common.StatusConflict, nil)
}

// AppendStepCompleted ghi event hoàn thành step kèm snapshot bộ đếm của run
func (s *EventService) AppendStepCompleted(ctx context.Context, run *models.PlaybookRun, step *models.PlaybookStep) (*models.PlaybookCompletionEvent, error) {
	now := time.Now().UnixMilli()
	event := models.PlaybookCompletionEvent{
		ID:                    primitive.NewObjectID(),
		EventKey:              uuid.NewString(),
		EventType:             models.EventTypeStepCompleted,
		RunID:                 run.ID,
		StepID:                step.ID,
		StepSequence:          step.Sequence,
		StepName:              step.Name,
		StepType:              step.StepType,
		NewStatus:             step.Status,
		CompletedBy:           step.CompletedBy,
		CompletedAt:           step.CompletedAt,
		Outputs:               step.Outputs,
		AIConfidence:          step.AIConfidence,
		AIInsights:            step.AIInsights,
		ActualDurationMinutes: step.ActualDurationMinutes,
		TotalSteps:            run.TotalSteps,
		CompletedSteps:        run.CompletedSteps,
		FailedSteps:           run.FailedSteps,
		ProgressPercentage:    run.ProgressPercentage,
		OwnerOrganizationID:   run.OwnerOrganizationID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	created, err := s.BaseServiceMongoImpl.InsertOne(ctx, event)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return &created, nil
}

// AppendProgressRecomputed ghi event recompute progress của run
func (s *EventService) AppendProgressRecomputed(ctx context.Context, run *models.PlaybookRun) (*models.PlaybookCompletionEvent, error) {
	now := time.Now().UnixMilli()
	event := models.PlaybookCompletionEvent{
		ID:                  primitive.NewObjectID(),
		EventKey:            uuid.NewString(),
		EventType:           models.EventTypeProgressRecomputed,
		RunID:               run.ID,
		TotalSteps:          run.TotalSteps,
		CompletedSteps:      run.CompletedSteps,
		FailedSteps:         run.FailedSteps,
		ProgressPercentage:  run.ProgressPercentage,
		OwnerOrganizationID: run.OwnerOrganizationID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	created, err := s.BaseServiceMongoImpl.InsertOne(ctx, event)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return &created, nil
}

// UpdateOne override - chặn sửa event
func (s *EventService) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts *options.UpdateOptions) (models.PlaybookCompletionEvent, error) {
	var zero models.PlaybookCompletionEvent
	return zero, errEventImmutable()
}

// UpdateMany override - chặn sửa event
func (s *EventService) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts *options.UpdateOptions) (int64, error) {
	return 0, errEventImmutable()
}

// UpdateById override - chặn sửa event
func (s *EventService) UpdateById(ctx context.Context, id primitive.ObjectID, data interface{}) (models.PlaybookCompletionEvent, error) {
	var zero models.PlaybookCompletionEvent
	return zero, errEventImmutable()
}

// Upsert override - chặn sửa event
func (s *EventService) Upsert(ctx context.Context, filter interface{}, data interface{}) (models.PlaybookCompletionEvent, error) {
	var zero models.PlaybookCompletionEvent
	return zero, errEventImmutable()
}

// DeleteOne override - chặn xóa event
func (s *EventService) DeleteOne(ctx context.Context, filter interface{}) error {
	return errEventImmutable()
}

// DeleteMany override - chặn xóa event
func (s *EventService) DeleteMany(ctx context.Context, filter interface{}) (int64, error) {
	return 0, errEventImmutable()
}

// DeleteById override - chặn xóa event
func (s *EventService) DeleteById(ctx context.Context, id primitive.ObjectID) error {
	return errEventImmutable()
}
