package authhdl

import (
	"fmt"
	authdto "playbook_engine/internal/api/auth/dto"
	authsvc "playbook_engine/internal/api/auth/service"
	basehdl "playbook_engine/internal/api/base/handler"
	models "playbook_engine/internal/api/auth/models"
)

// OrganizationHandler xử lý các request liên quan đến Organization
type OrganizationHandler struct {
	*basehdl.BaseHandler[models.Organization, authdto.OrganizationCreateInput, authdto.OrganizationUpdateInput]
	OrganizationService *authsvc.OrganizationService
}

// NewOrganizationHandler tạo mới OrganizationHandler
func NewOrganizationHandler() (*OrganizationHandler, error) {
	organizationService, err := authsvc.NewOrganizationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create organization service: %v", err)
	}
	base := basehdl.NewBaseHandler[models.Organization, authdto.OrganizationCreateInput, authdto.OrganizationUpdateInput](organizationService)
	h := &OrganizationHandler{
		BaseHandler:         base,
		OrganizationService: organizationService,
	}
	h.SetFilterOptions(basehdl.FilterOptions{
		DeniedFields: []string{"password", "token", "secret", "key", "hash"},
	})
	return h, nil
}
