package playbookdto

// PlaybookRunCreateInput dữ liệu đầu vào khi tạo playbook run
type PlaybookRunCreateInput struct {
	PlaybookID          string `json:"playbookId" validate:"required" transform:"str_objectid"`
	Name                string `json:"name" validate:"required"`
	Status              string `json:"status,omitempty" transform:"string,default=in_progress" validate:"omitempty,oneof=in_progress completed completed_with_errors"`
	StartedAt           int64  `json:"startedAt,omitempty"`
	OwnerOrganizationID string `json:"ownerOrganizationId,omitempty" transform:"str_objectid,optional"`
}

// PlaybookRunUpdateInput dữ liệu đầu vào khi cập nhật playbook run.
// Các bộ đếm và progress không nhận từ client, chúng do engine recompute.
type PlaybookRunUpdateInput struct {
	Name string `json:"name,omitempty"`
}
