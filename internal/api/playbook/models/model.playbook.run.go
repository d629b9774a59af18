// Package models - các model thuộc domain playbook (run engine).
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của một run. Run chỉ rời in_progress khi mọi step đã kết thúc.
const (
	RunStatusInProgress          = "in_progress"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
)

// PlaybookRun là header của một lần chạy playbook. Các counter và status
// do Progress Aggregator sở hữu: luôn được recompute từ toàn bộ step set,
// không bao giờ cộng dồn incremental.
type PlaybookRun struct {
	ID                  primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PlaybookID          primitive.ObjectID `json:"playbookId" bson:"playbookId" index:"single:1"`
	Name                string             `json:"name" bson:"name"`
	Status              string             `json:"status" bson:"status" index:"single:1" default:"in_progress"`
	ProgressPercentage  int                `json:"progressPercentage" bson:"progressPercentage"`
	TotalSteps          int                `json:"totalSteps" bson:"totalSteps"`
	CompletedSteps      int                `json:"completedSteps" bson:"completedSteps"`
	FailedSteps         int                `json:"failedSteps" bson:"failedSteps"`
	InProgressSteps     int                `json:"inProgressSteps" bson:"inProgressSteps"`
	StartedAt           int64              `json:"startedAt" bson:"startedAt"`
	CompletedAt         *int64             `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	TotalDurationMinutes *int64            `json:"totalDurationMinutes,omitempty" bson:"totalDurationMinutes,omitempty"`
	OwnerOrganizationID primitive.ObjectID `json:"ownerOrganizationId" bson:"ownerOrganizationId" index:"single:1"`
	CreatedAt           int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt           int64              `json:"updatedAt" bson:"updatedAt" index:"single:1"`
}
