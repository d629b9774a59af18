package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Loại completion event
const (
	EventTypeStepCompleted      = "step_completed"
	EventTypeProgressRecomputed = "progress_recomputed"
)

// PlaybookCompletionEvent là bản ghi audit append-only cho mỗi lần hoàn thành
// step hoặc recompute progress. EventKey unique để phát hiện ghi trùng.
type PlaybookCompletionEvent struct {
	ID                    primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	EventKey              string                 `json:"eventKey" bson:"eventKey" index:"unique"`
	EventType             string                 `json:"eventType" bson:"eventType" index:"single:1"`
	RunID                 primitive.ObjectID     `json:"runId" bson:"runId" index:"single:1"`
	StepID                primitive.ObjectID     `json:"stepId,omitempty" bson:"stepId,omitempty" index:"single:1"`
	StepSequence          int                    `json:"stepSequence,omitempty" bson:"stepSequence,omitempty"`
	StepName              string                 `json:"stepName,omitempty" bson:"stepName,omitempty"`
	StepType              string                 `json:"stepType,omitempty" bson:"stepType,omitempty"`
	NewStatus             string                 `json:"newStatus,omitempty" bson:"newStatus,omitempty"`
	CompletedBy           string                 `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	CompletedAt           *int64                 `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Outputs               map[string]interface{} `json:"outputs,omitempty" bson:"outputs,omitempty"`
	AIConfidence          *float64               `json:"aiConfidence,omitempty" bson:"aiConfidence,omitempty"`
	AIInsights            string                 `json:"aiInsights,omitempty" bson:"aiInsights,omitempty"`
	ActualDurationMinutes *int64                 `json:"actualDurationMinutes,omitempty" bson:"actualDurationMinutes,omitempty"`
	// Snapshot bộ đếm của run tại thời điểm ghi event
	TotalSteps          int                `json:"totalSteps" bson:"totalSteps"`
	CompletedSteps      int                `json:"completedSteps" bson:"completedSteps"`
	FailedSteps         int                `json:"failedSteps" bson:"failedSteps"`
	ProgressPercentage  int                `json:"progressPercentage" bson:"progressPercentage"`
	OwnerOrganizationID primitive.ObjectID `json:"ownerOrganizationId" bson:"ownerOrganizationId" index:"single:1"`
	CreatedAt           int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt           int64              `json:"updatedAt" bson:"updatedAt"`
}
