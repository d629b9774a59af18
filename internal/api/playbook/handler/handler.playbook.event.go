package playbookhdl

import (
	"fmt"

	basehdl "playbook_engine/internal/api/base/handler"
	playbookdto "playbook_engine/internal/api/playbook/dto"
	"playbook_engine/internal/api/playbook/models"
	playbooksvc "playbook_engine/internal/api/playbook/service"
)

// PlaybookEventHandler xử lý các route đọc completion event. Collection là
// append-only: chỉ đăng ký route đọc, mọi route ghi đều không tồn tại và
// EventService chặn mutation ở tầng service.
type PlaybookEventHandler struct {
	*basehdl.BaseHandler[models.PlaybookCompletionEvent, playbookdto.PlaybookEventCreateInput, playbookdto.PlaybookEventUpdateInput]
}

// NewPlaybookEventHandler tạo mới PlaybookEventHandler
func NewPlaybookEventHandler() (*PlaybookEventHandler, error) {
	eventService, err := playbooksvc.NewEventService()
	if err != nil {
		return nil, fmt.Errorf("failed to create event service: %v", err)
	}
	return &PlaybookEventHandler{
		BaseHandler: basehdl.NewBaseHandler[models.PlaybookCompletionEvent, playbookdto.PlaybookEventCreateInput, playbookdto.PlaybookEventUpdateInput](eventService),
	}, nil
}
