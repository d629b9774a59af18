package playbookdto

// PlaybookEventCreateInput dùng làm type parameter cho BaseHandler của
// completion event. Collection là append-only và chỉ expose route đọc:
// engine tự ghi event qua EventService, client không tạo được qua API.
type PlaybookEventCreateInput struct {
	RunID     string `json:"runId" validate:"required" transform:"str_objectid"`
	EventType string `json:"eventType" validate:"required,oneof=step_completed progress_recomputed"`
}

// PlaybookEventUpdateInput rỗng có chủ đích: completion event không sửa được.
type PlaybookEventUpdateInput struct{}
