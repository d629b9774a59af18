package playbookdto

// StepDependencyInput khai báo dependency theo sequence
type StepDependencyInput struct {
	OnSequence     int    `json:"onSequence" validate:"min=0"`
	DependencyType string `json:"dependencyType" validate:"required,oneof=completion success any"`
}

// OutputContractInput khai báo contract outputs của step
type OutputContractInput struct {
	RequiredFields []string          `json:"requiredFields"`
	FieldTypes     map[string]string `json:"fieldTypes,omitempty" validate:"omitempty,dive,oneof=string number boolean object array"`
}

// PlaybookStepCreateInput dữ liệu đầu vào khi tạo step trong một run
type PlaybookStepCreateInput struct {
	RunID               string                 `json:"runId" validate:"required" transform:"str_objectid"`
	StepID              string                 `json:"stepId" validate:"required"`
	Sequence            int                    `json:"sequence" validate:"min=0"`
	Name                string                 `json:"name" validate:"required"`
	StepType            string                 `json:"stepType,omitempty" transform:"string,default=human" validate:"omitempty,oneof=human automated"`
	Status              string                 `json:"status,omitempty" transform:"string,default=pending" validate:"omitempty,oneof=pending ready in_progress waiting_for_input waiting_for_signal completed failed cancelled skipped"`
	AssignedIdentity    string                 `json:"assignedIdentity,omitempty"`
	OutputContract      *OutputContractInput   `json:"outputContract,omitempty"`
	Dependencies        []StepDependencyInput  `json:"dependencies,omitempty" validate:"omitempty,dive"`
	Outputs             map[string]interface{} `json:"outputs,omitempty"`
	OwnerOrganizationID string                 `json:"ownerOrganizationId,omitempty" transform:"str_objectid,optional"`
}

// PlaybookStepUpdateInput dữ liệu đầu vào khi cập nhật step
type PlaybookStepUpdateInput struct {
	Name             string `json:"name,omitempty"`
	Status           string `json:"status,omitempty" validate:"omitempty,oneof=pending ready in_progress waiting_for_input waiting_for_signal completed failed cancelled skipped"`
	AssignedIdentity string `json:"assignedIdentity,omitempty"`
}

// CompleteStepInput dữ liệu đầu vào khi hoàn thành step
type CompleteStepInput struct {
	Outputs      map[string]interface{} `json:"outputs,omitempty"`
	AIConfidence *float64               `json:"ai_confidence,omitempty" validate:"omitempty,min=0,max=1"`
	AIInsights   string                 `json:"ai_insights,omitempty"`
}
