package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái của một step. Closed set: mọi điểm chuyển trạng thái phải
// match tường minh, không để status mới rơi vào nhánh default.
const (
	StepStatusPending          = "pending"
	StepStatusReady            = "ready"
	StepStatusInProgress       = "in_progress"
	StepStatusWaitingForInput  = "waiting_for_input"
	StepStatusWaitingForSignal = "waiting_for_signal"
	StepStatusCompleted        = "completed"
	StepStatusFailed           = "failed"
	StepStatusCancelled        = "cancelled"
	StepStatusSkipped          = "skipped"
)

// Loại step. Step human có thể mang assignedIdentity.
const (
	StepTypeHuman     = "human"
	StepTypeAutomated = "automated"
)

// Loại dependency giữa các step, đánh giá trên trạng thái hiện tại của step được tham chiếu.
const (
	DependencyTypeCompletion = "completion"
	DependencyTypeSuccess    = "success"
	DependencyTypeAny        = "any"
)

// IsTerminalStepStatus trả về true nếu status là trạng thái kết thúc
func IsTerminalStepStatus(status string) bool {
	switch status {
	case StepStatusCompleted, StepStatusFailed, StepStatusCancelled, StepStatusSkipped:
		return true
	}
	return false
}

// IsCompletableStepStatus trả về true nếu step ở trạng thái cho phép hoàn thành
func IsCompletableStepStatus(status string) bool {
	switch status {
	case StepStatusReady, StepStatusInProgress, StepStatusWaitingForInput, StepStatusWaitingForSignal:
		return true
	}
	return false
}

// OutputContract khai báo các field bắt buộc và kiểu mong đợi của outputs khi hoàn thành step.
// FieldTypes dùng tên kiểu: string | number | boolean | object | array.
type OutputContract struct {
	RequiredFields []string          `json:"requiredFields" bson:"requiredFields"`
	FieldTypes     map[string]string `json:"fieldTypes,omitempty" bson:"fieldTypes,omitempty"`
}

// StepDependency tham chiếu step khác theo sequence kèm quy tắc thỏa mãn.
type StepDependency struct {
	OnSequence     int    `json:"onSequence" bson:"onSequence"`
	DependencyType string `json:"dependencyType" bson:"dependencyType"`
}

// PlaybookStep là một đơn vị công việc trong run. Sequence là duy nhất trong
// run và không bao giờ được gán lại; dependency tham chiếu nhau qua sequence.
type PlaybookStep struct {
	ID                    primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	RunID                 primitive.ObjectID     `json:"runId" bson:"runId" index:"single:1,compound:step_run_sequence_unique"`
	StepID                string                 `json:"stepId" bson:"stepId" index:"single:1"`
	Sequence              int                    `json:"sequence" bson:"sequence" index:"compound:step_run_sequence_unique"`
	Name                  string                 `json:"name" bson:"name"`
	StepType              string                 `json:"stepType" bson:"stepType"`
	Status                string                 `json:"status" bson:"status" index:"single:1" default:"pending"`
	AssignedIdentity      string                 `json:"assignedIdentity,omitempty" bson:"assignedIdentity,omitempty"`
	Outputs               map[string]interface{} `json:"outputs,omitempty" bson:"outputs,omitempty"`
	OutputContract        *OutputContract        `json:"outputContract,omitempty" bson:"outputContract,omitempty"`
	Dependencies          []StepDependency       `json:"dependencies,omitempty" bson:"dependencies,omitempty"`
	ActivatedAt           *int64                 `json:"activatedAt,omitempty" bson:"activatedAt,omitempty"`
	StartedAt             *int64                 `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt           *int64                 `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CompletedBy           string                 `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	ActualDurationMinutes *int64                 `json:"actualDurationMinutes,omitempty" bson:"actualDurationMinutes,omitempty"`
	AIConfidence          *float64               `json:"aiConfidence,omitempty" bson:"aiConfidence,omitempty"`
	AIInsights            string                 `json:"aiInsights,omitempty" bson:"aiInsights,omitempty"`
	OwnerOrganizationID   primitive.ObjectID     `json:"ownerOrganizationId" bson:"ownerOrganizationId" index:"single:1"`
	CreatedAt             int64                  `json:"createdAt" bson:"createdAt"`
	UpdatedAt             int64                  `json:"updatedAt" bson:"updatedAt"`
}
