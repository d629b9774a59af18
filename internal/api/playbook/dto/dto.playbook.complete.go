package playbookdto

// NextStepOutput mô tả một step đủ điều kiện kích hoạt. Status luôn là
// "ready_to_activate": danh sách chỉ mang tính advisory, engine không tự
// chuyển trạng thái các step này.
type NextStepOutput struct {
	StepID       string `json:"step_id"`
	StepSequence int    `json:"step_sequence"`
	StepName     string `json:"step_name"`
	StepType     string `json:"step_type"`
	Status       string `json:"status"`
}

// CompleteStepOutput là payload trả về khi hoàn thành step thành công
type CompleteStepOutput struct {
	RunID                 string                 `json:"run_id"`
	StepID                string                 `json:"step_id"`
	StepSequence          int                    `json:"step_sequence"`
	Status                string                 `json:"status"`
	Outputs               map[string]interface{} `json:"outputs"`
	AIConfidence          *float64               `json:"ai_confidence,omitempty"`
	AIInsights            string                 `json:"ai_insights,omitempty"`
	CompletedAt           *int64                 `json:"completed_at"`
	ActualDurationMinutes *int64                 `json:"actual_duration_minutes,omitempty"`
	CompletionEventID     string                 `json:"completion_event_id"`
	NextSteps             []NextStepOutput       `json:"next_steps"`
	OrchestratorNotified  bool                   `json:"orchestrator_notified"`
}
