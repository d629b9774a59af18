package playbookhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	authmodels "playbook_engine/internal/api/auth/models"
	basehdl "playbook_engine/internal/api/base/handler"
	"playbook_engine/internal/api/middleware"
	playbookdto "playbook_engine/internal/api/playbook/dto"
	"playbook_engine/internal/api/playbook/models"
	playbooksvc "playbook_engine/internal/api/playbook/service"
	"playbook_engine/internal/common"
)

// PlaybookStepHandler xử lý các request liên quan playbook step
type PlaybookStepHandler struct {
	*basehdl.BaseHandler[models.PlaybookStep, playbookdto.PlaybookStepCreateInput, playbookdto.PlaybookStepUpdateInput]
	StepService *playbooksvc.StepService
}

// NewPlaybookStepHandler tạo mới PlaybookStepHandler
func NewPlaybookStepHandler() (*PlaybookStepHandler, error) {
	stepService, err := playbooksvc.NewStepService()
	if err != nil {
		return nil, fmt.Errorf("failed to create step service: %v", err)
	}

	hdl := &PlaybookStepHandler{
		StepService: stepService,
	}
	hdl.BaseHandler = basehdl.NewBaseHandler[models.PlaybookStep, playbookdto.PlaybookStepCreateInput, playbookdto.PlaybookStepUpdateInput](stepService)

	return hdl, nil
}

// HandleCompleteStep hoàn thành một step trong run.
// POST /api/v1/playbook/runs/:id/steps/:stepId/complete
//
// Response thành công luôn mang orchestrator_notified=true với nghĩa "đã gửi
// notification best-effort", không phải "orchestrator đã xác nhận" - vòng
// reconciliation của orchestrator là lưới an toàn cho notification thất bại.
func (h *PlaybookStepHandler) HandleCompleteStep(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		runID, err := primitive.ObjectIDFromHex(c.Params("id"))
		if err != nil {
			h.HandleResponse(c, nil, common.ErrInvalidInput)
			return nil
		}
		stepID := c.Params("stepId")
		if stepID == "" {
			h.HandleResponse(c, nil, common.ErrInvalidInput)
			return nil
		}

		var input playbookdto.CompleteStepInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		user, ok := c.Locals("user").(authmodels.User)
		if !ok {
			h.HandleResponse(c, nil, common.ErrTokenInvalid)
			return nil
		}
		actingIdentity := user.Email

		allowedOrgIDs, err := allowedOrgIDsForRequest(c, "PlaybookRun.Complete")
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		// Quyền override assignment: cho phép hoàn thành step human được gán
		// cho người khác
		canOverride := false
		if roleIDStr, _ := c.Locals("active_role_id").(string); roleIDStr != "" {
			if roleID, err := primitive.ObjectIDFromHex(roleIDStr); err == nil {
				canOverride = middleware.GetAuthManager().HasPermission(user.ID.Hex(), &roleID, "PlaybookRun.CompleteAny")
			}
		}

		result, err := h.StepService.CompleteStep(c.Context(), runID, stepID, &input, actingIdentity, canOverride, allowedOrgIDs)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		nextSteps := []playbookdto.NextStepOutput{}
		for _, step := range result.NextSteps {
			nextSteps = append(nextSteps, playbookdto.NextStepOutput{
				StepID:       step.StepID,
				StepSequence: step.Sequence,
				StepName:     step.Name,
				StepType:     step.StepType,
				Status:       "ready_to_activate",
			})
		}

		output := playbookdto.CompleteStepOutput{
			RunID:                 runID.Hex(),
			StepID:                result.Step.StepID,
			StepSequence:          result.Step.Sequence,
			Status:                result.Step.Status,
			Outputs:               result.Step.Outputs,
			AIConfidence:          result.Step.AIConfidence,
			AIInsights:            result.Step.AIInsights,
			CompletedAt:           result.Step.CompletedAt,
			ActualDurationMinutes: result.Step.ActualDurationMinutes,
			CompletionEventID:     result.CompletionEventID,
			NextSteps:             nextSteps,
			OrchestratorNotified:  true,
		}

		h.HandleResponse(c, output, nil)
		return nil
	})
}
