// Package playbookhdl xử lý HTTP request cho domain playbook
package playbookhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	authsvc "playbook_engine/internal/api/auth/service"
	basehdl "playbook_engine/internal/api/base/handler"
	playbookdto "playbook_engine/internal/api/playbook/dto"
	"playbook_engine/internal/api/playbook/models"
	playbooksvc "playbook_engine/internal/api/playbook/service"
	"playbook_engine/internal/common"
	"playbook_engine/internal/utility"
)

// PlaybookRunHandler xử lý các request liên quan playbook run
type PlaybookRunHandler struct {
	*basehdl.BaseHandler[models.PlaybookRun, playbookdto.PlaybookRunCreateInput, playbookdto.PlaybookRunUpdateInput]
	RunService   *playbooksvc.RunService
	StepService  *playbooksvc.StepService
	EventService *playbooksvc.EventService
}

// NewPlaybookRunHandler tạo mới PlaybookRunHandler
func NewPlaybookRunHandler() (*PlaybookRunHandler, error) {
	runService, err := playbooksvc.NewRunService()
	if err != nil {
		return nil, fmt.Errorf("failed to create run service: %v", err)
	}
	stepService, err := playbooksvc.NewStepService()
	if err != nil {
		return nil, fmt.Errorf("failed to create step service: %v", err)
	}
	eventService, err := playbooksvc.NewEventService()
	if err != nil {
		return nil, fmt.Errorf("failed to create event service: %v", err)
	}

	hdl := &PlaybookRunHandler{
		RunService:   runService,
		StepService:  stepService,
		EventService: eventService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[models.PlaybookRun, playbookdto.PlaybookRunCreateInput, playbookdto.PlaybookRunUpdateInput](runService)

	return hdl, nil
}

// allowedOrgIDsForRequest tính danh sách tổ chức caller được phép thao tác với
// permission cho trước. Administrator trả về nil = phạm vi toàn cục.
func allowedOrgIDsForRequest(c fiber.Ctx, permissionName string) ([]primitive.ObjectID, error) {
	userIDStr, _ := c.Locals("user_id").(string)
	if userIDStr == "" {
		return []primitive.ObjectID{}, nil
	}
	userID := utility.String2ObjectID(userIDStr)

	isAdmin, err := authsvc.IsUserAdministrator(c.Context(), userID)
	if err == nil && isAdmin {
		return nil, nil
	}

	roleIDStr, _ := c.Locals("active_role_id").(string)
	roleID, err := primitive.ObjectIDFromHex(roleIDStr)
	if err != nil {
		return []primitive.ObjectID{}, nil
	}
	return authsvc.GetAllowedOrganizationIDsFromRole(c.Context(), roleID, permissionName)
}

// HandleGetNextSteps trả về các step pending của run có toàn bộ dependency
// thỏa mãn tại thời điểm đọc
// GET /api/v1/playbook/runs/:id/next-steps
func (h *PlaybookRunHandler) HandleGetNextSteps(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		runID, err := primitive.ObjectIDFromHex(h.GetIDFromContext(c))
		if err != nil {
			h.HandleResponse(c, nil, common.ErrInvalidInput)
			return nil
		}

		allowedOrgIDs, err := allowedOrgIDsForRequest(c, "PlaybookRun.Read")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		run, err := h.RunService.FindRunInScope(c.Context(), runID, allowedOrgIDs)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		steps, err := h.StepService.Find(c.Context(), bson.M{"runId": run.ID}, nil)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		nextSteps := []playbookdto.NextStepOutput{}
		for _, step := range playbooksvc.FindActivatableSteps(steps) {
			nextSteps = append(nextSteps, playbookdto.NextStepOutput{
				StepID:       step.StepID,
				StepSequence: step.Sequence,
				StepName:     step.Name,
				StepType:     step.StepType,
				Status:       "ready_to_activate",
			})
		}

		h.HandleResponse(c, fiber.Map{
			"run_id":     run.ID.Hex(),
			"next_steps": nextSteps,
		}, nil)
		return nil
	})
}

// HandleRecomputeProgress recompute bộ đếm và trạng thái của run từ step set.
// Idempotent, dùng khi client nghi counters đang stale.
// POST /api/v1/playbook/runs/:id/recompute-progress
func (h *PlaybookRunHandler) HandleRecomputeProgress(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		runID, err := primitive.ObjectIDFromHex(h.GetIDFromContext(c))
		if err != nil {
			h.HandleResponse(c, nil, common.ErrInvalidInput)
			return nil
		}

		allowedOrgIDs, err := allowedOrgIDsForRequest(c, "PlaybookRun.Update")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if _, err := h.RunService.FindRunInScope(c.Context(), runID, allowedOrgIDs); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		run, err := h.RunService.RecomputeRunProgress(c.Context(), runID)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		h.HandleResponse(c, run, nil)
		return nil
	})
}

// HandleGetRunEvents trả về completion events của run theo thứ tự thời gian
// GET /api/v1/playbook/runs/:id/events
func (h *PlaybookRunHandler) HandleGetRunEvents(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		runID, err := primitive.ObjectIDFromHex(h.GetIDFromContext(c))
		if err != nil {
			h.HandleResponse(c, nil, common.ErrInvalidInput)
			return nil
		}

		allowedOrgIDs, err := allowedOrgIDsForRequest(c, "PlaybookEvent.Read")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		run, err := h.RunService.FindRunInScope(c.Context(), runID, allowedOrgIDs)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		page, limit := h.ParsePagination(c)
		findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
		events, err := h.EventService.FindWithPagination(c.Context(), bson.M{"runId": run.ID}, page, limit, findOpts)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		h.HandleResponse(c, events, nil)
		return nil
	})
}
