// Package router đăng ký các route thuộc domain playbook: runs, steps,
// completion protocol và completion events.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"playbook_engine/internal/api/middleware"
	playbookhdl "playbook_engine/internal/api/playbook/handler"
	apirouter "playbook_engine/internal/api/router"
)

// Register đăng ký tất cả route playbook lên v1
func Register(v1 fiber.Router, r *apirouter.Router) error {
	runHandler, err := playbookhdl.NewPlaybookRunHandler()
	if err != nil {
		return fmt.Errorf("failed to create playbook run handler: %w", err)
	}
	stepHandler, err := playbookhdl.NewPlaybookStepHandler()
	if err != nil {
		return fmt.Errorf("failed to create playbook step handler: %w", err)
	}

	// Giao thức hoàn thành step: permission Complete để gọi, CompleteAny
	// (kiểm tra trong handler) để hoàn thành thay người được gán
	completeMiddleware := middleware.AuthMiddleware("PlaybookRun.Complete")
	orgContextMiddleware := middleware.OrganizationContextMiddleware()
	apirouter.RegisterRouteWithMiddleware(v1, "/playbook/runs", "POST", "/:id/steps/:stepId/complete",
		[]fiber.Handler{completeMiddleware, orgContextMiddleware}, stepHandler.HandleCompleteStep)

	// Đọc trạng thái run: next-steps advisory và completion events
	readMiddleware := middleware.AuthMiddleware("PlaybookRun.Read")
	apirouter.RegisterRouteWithMiddleware(v1, "/playbook/runs", "GET", "/:id/next-steps",
		[]fiber.Handler{readMiddleware, orgContextMiddleware}, runHandler.HandleGetNextSteps)
	eventsMiddleware := middleware.AuthMiddleware("PlaybookEvent.Read")
	apirouter.RegisterRouteWithMiddleware(v1, "/playbook/runs", "GET", "/:id/events",
		[]fiber.Handler{eventsMiddleware, orgContextMiddleware}, runHandler.HandleGetRunEvents)

	// Recompute thủ công khi counters nghi stale
	recomputeMiddleware := middleware.AuthMiddleware("PlaybookRun.Update")
	apirouter.RegisterRouteWithMiddleware(v1, "/playbook/runs", "POST", "/:id/recompute-progress",
		[]fiber.Handler{recomputeMiddleware, orgContextMiddleware}, runHandler.HandleRecomputeProgress)

	// CRUD: run/step cần đường ghi để tạo dữ liệu (tạo run từ template nằm
	// ngoài hệ thống này, client đẩy run + step set đã dựng sẵn vào qua đây)
	r.RegisterCRUDRoutes(v1, "/playbook/run", runHandler, apirouter.ReadWriteConfig, "PlaybookRun")
	r.RegisterCRUDRoutes(v1, "/playbook/step", stepHandler, apirouter.ReadWriteConfig, "PlaybookStep")

	// Completion event: append-only, chỉ route đọc
	eventHandler, err := playbookhdl.NewPlaybookEventHandler()
	if err != nil {
		return fmt.Errorf("failed to create playbook event handler: %w", err)
	}
	r.RegisterCRUDRoutes(v1, "/playbook/completion-event", eventHandler, apirouter.ReadOnlyConfig, "PlaybookEvent")

	return nil
}
