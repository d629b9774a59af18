// Package initsvc chứa InitService dùng để khởi tạo dữ liệu ban đầu
// (permissions, roles, organization gốc, admin user). Tách ra package riêng
// để tránh import cycle giữa auth/service và các domain khác.
package initsvc

import (
	"context"
	"fmt"

	authdto "playbook_engine/internal/api/auth/dto"
	authmodels "playbook_engine/internal/api/auth/models"
	authsvc "playbook_engine/internal/api/auth/service"
	basesvc "playbook_engine/internal/api/base/service"
	"playbook_engine/internal/common"
	"playbook_engine/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InitService là cấu trúc chứa các phương thức khởi tạo dữ liệu ban đầu cho hệ thống
// Bao gồm khởi tạo người dùng, vai trò, quyền và các quan hệ giữa chúng
type InitService struct {
	userService           *authsvc.UserService           // Service xử lý người dùng
	roleService           *authsvc.RoleService           // Service xử lý vai trò
	permissionService     *authsvc.PermissionService     // Service xử lý quyền
	rolePermissionService *authsvc.RolePermissionService // Service xử lý quan hệ vai trò-quyền
	userRoleService       *authsvc.UserRoleService       // Service xử lý quan hệ người dùng-vai trò
	organizationService   *authsvc.OrganizationService   // Service xử lý tổ chức
}

// NewInitService tạo mới một đối tượng InitService
func NewInitService() (*InitService, error) {
	userService, err := authsvc.NewUserService()
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %v", err)
	}

	roleService, err := authsvc.NewRoleService()
	if err != nil {
		return nil, fmt.Errorf("failed to create role service: %v", err)
	}

	permissionService, err := authsvc.NewPermissionService()
	if err != nil {
		return nil, fmt.Errorf("failed to create permission service: %v", err)
	}

	rolePermissionService, err := authsvc.NewRolePermissionService()
	if err != nil {
		return nil, fmt.Errorf("failed to create role permission service: %v", err)
	}

	userRoleService, err := authsvc.NewUserRoleService()
	if err != nil {
		return nil, fmt.Errorf("failed to create user role service: %v", err)
	}

	organizationService, err := authsvc.NewOrganizationService()
	if err != nil {
		return nil, fmt.Errorf("failed to create organization service: %v", err)
	}

	// Đăng ký callback kiểm tra admin cho base service (tránh import cycle base -> auth)
	basesvc.SetIsAdminFromContextFunc(authsvc.IsUserAdministratorFromContext)

	return &InitService{
		userService:           userService,
		roleService:           roleService,
		permissionService:     permissionService,
		rolePermissionService: rolePermissionService,
		userRoleService:       userRoleService,
		organizationService:   organizationService,
	}, nil
}

// InitialPermissions định nghĩa danh sách các quyền mặc định của hệ thống
// Được chia thành các module: Auth (xác thực, RBAC) và Playbook (run engine)
var InitialPermissions = []authmodels.Permission{
	// ====================================  AUTH MODULE =============================================
	// Quản lý người dùng: Thêm, xem, sửa, xóa, khóa và phân quyền
	{Name: "User.Insert", Describe: "Quyền tạo người dùng", Group: "Auth", Category: "User"},
	{Name: "User.Read", Describe: "Quyền xem danh sách người dùng", Group: "Auth", Category: "User"},
	{Name: "User.Update", Describe: "Quyền cập nhật thông tin người dùng", Group: "Auth", Category: "User"},
	{Name: "User.Delete", Describe: "Quyền xóa người dùng", Group: "Auth", Category: "User"},
	{Name: "User.Block", Describe: "Quyền khóa/mở khóa người dùng", Group: "Auth", Category: "User"},
	{Name: "User.SetRole", Describe: "Quyền phân quyền cho người dùng", Group: "Auth", Category: "User"},

	// Quản lý tổ chức: Thêm, xem, sửa, xóa
	{Name: "Organization.Insert", Describe: "Quyền tạo tổ chức", Group: "Auth", Category: "Organization"},
	{Name: "Organization.Read", Describe: "Quyền xem danh sách tổ chức", Group: "Auth", Category: "Organization"},
	{Name: "Organization.Update", Describe: "Quyền cập nhật tổ chức", Group: "Auth", Category: "Organization"},
	{Name: "Organization.Delete", Describe: "Quyền xóa tổ chức", Group: "Auth", Category: "Organization"},

	// Quản lý vai trò: Thêm, xem, sửa, xóa
	{Name: "Role.Insert", Describe: "Quyền tạo vai trò", Group: "Auth", Category: "Role"},
	{Name: "Role.Read", Describe: "Quyền xem danh sách vai trò", Group: "Auth", Category: "Role"},
	{Name: "Role.Update", Describe: "Quyền cập nhật vai trò", Group: "Auth", Category: "Role"},
	{Name: "Role.Delete", Describe: "Quyền xóa vai trò", Group: "Auth", Category: "Role"},

	// Quyền hệ thống: chỉ xem
	{Name: "Permission.Read", Describe: "Quyền xem danh sách quyền", Group: "Auth", Category: "Permission"},

	// Quản lý phân quyền vai trò: Thêm, xem, sửa, xóa
	{Name: "RolePermission.Insert", Describe: "Quyền gán quyền cho vai trò", Group: "Auth", Category: "RolePermission"},
	{Name: "RolePermission.Read", Describe: "Quyền xem phân quyền của vai trò", Group: "Auth", Category: "RolePermission"},
	{Name: "RolePermission.Update", Describe: "Quyền cập nhật phân quyền của vai trò", Group: "Auth", Category: "RolePermission"},
	{Name: "RolePermission.Delete", Describe: "Quyền xóa phân quyền của vai trò", Group: "Auth", Category: "RolePermission"},

	// Quản lý vai trò người dùng: Thêm, xem, sửa, xóa
	{Name: "UserRole.Insert", Describe: "Quyền gán vai trò cho người dùng", Group: "Auth", Category: "UserRole"},
	{Name: "UserRole.Read", Describe: "Quyền xem vai trò của người dùng", Group: "Auth", Category: "UserRole"},
	{Name: "UserRole.Update", Describe: "Quyền cập nhật vai trò của người dùng", Group: "Auth", Category: "UserRole"},
	{Name: "UserRole.Delete", Describe: "Quyền xóa vai trò của người dùng", Group: "Auth", Category: "UserRole"},

	// Khởi tạo hệ thống
	{Name: "Init.SetAdmin", Describe: "Quyền thiết lập administrator khi hệ thống đã có admin", Group: "Auth", Category: "Init"},

	// ====================================  PLAYBOOK MODULE =========================================
	// Run: header của một lần chạy playbook
	{Name: "PlaybookRun.Insert", Describe: "Quyền tạo playbook run", Group: "Playbook", Category: "PlaybookRun"},
	{Name: "PlaybookRun.Read", Describe: "Quyền xem playbook run", Group: "Playbook", Category: "PlaybookRun"},
	{Name: "PlaybookRun.Update", Describe: "Quyền cập nhật playbook run", Group: "Playbook", Category: "PlaybookRun"},
	{Name: "PlaybookRun.Delete", Describe: "Quyền xóa playbook run", Group: "Playbook", Category: "PlaybookRun"},
	{Name: "PlaybookRun.Complete", Describe: "Quyền hoàn thành step trong playbook run", Group: "Playbook", Category: "PlaybookRun"},
	{Name: "PlaybookRun.CompleteAny", Describe: "Quyền hoàn thành step human được gán cho người khác", Group: "Playbook", Category: "PlaybookRun"},

	// Step: bản ghi step của run
	{Name: "PlaybookStep.Insert", Describe: "Quyền tạo step cho playbook run", Group: "Playbook", Category: "PlaybookStep"},
	{Name: "PlaybookStep.Read", Describe: "Quyền xem step của playbook run", Group: "Playbook", Category: "PlaybookStep"},
	{Name: "PlaybookStep.Update", Describe: "Quyền cập nhật step của playbook run", Group: "Playbook", Category: "PlaybookStep"},
	{Name: "PlaybookStep.Delete", Describe: "Quyền xóa step của playbook run", Group: "Playbook", Category: "PlaybookStep"},

	// Completion event: audit log append-only, chỉ đọc
	{Name: "PlaybookEvent.Read", Describe: "Quyền xem completion event của playbook run", Group: "Playbook", Category: "PlaybookEvent"},
}

// InitPermission khởi tạo các quyền mặc định, bỏ qua quyền đã tồn tại
func (h *InitService) InitPermission() error {
	for _, permission := range InitialPermissions {
		filter := bson.M{"name": permission.Name}
		_, err := h.permissionService.BaseServiceMongoImpl.FindOne(context.TODO(), filter, nil)

		// Bỏ qua nếu có lỗi khác ErrNotFound
		if err != nil && err != common.ErrNotFound {
			continue
		}

		if err == common.ErrNotFound {
			// Permissions tạo trong init là dữ liệu hệ thống
			permission.IsSystem = true
			initCtx := basesvc.WithSystemDataInsertAllowed(context.TODO())
			_, err = h.permissionService.BaseServiceMongoImpl.InsertOne(initCtx, permission)
			if err != nil {
				return fmt.Errorf("failed to insert permission %s: %v", permission.Name, err)
			}
		}
	}
	return nil
}

// InitRootOrganization khởi tạo Organization System (Level -1)
// System organization là tổ chức cấp cao nhất, chứa Administrator, không có parent, không thể xóa
func (h *InitService) InitRootOrganization() error {
	log := logger.GetAppLogger()

	systemFilter := bson.M{
		"type":  authmodels.OrganizationTypeSystem,
		"level": -1,
		"code":  "SYSTEM",
	}

	_, err := h.organizationService.BaseServiceMongoImpl.FindOne(context.TODO(), systemFilter, nil)
	if err != nil && err != common.ErrNotFound {
		log.Errorf("❌ [INIT] Failed to check system organization: %v", err)
		return fmt.Errorf("failed to check system organization: %v", err)
	}

	if err == nil {
		log.Info("✅ [INIT] System Organization already exists, skipping creation")
		return nil
	}

	log.Info("🔄 [INIT] Creating new System Organization...")
	systemOrgModel := authmodels.Organization{
		Name:     "Hệ Thống",
		Code:     "SYSTEM",
		Type:     authmodels.OrganizationTypeSystem,
		ParentID: nil,
		Path:     "/SYSTEM",
		Level:    -1,
		IsActive: true,
		IsSystem: true,
	}

	initCtx := basesvc.WithSystemDataInsertAllowed(context.TODO())
	_, err = h.organizationService.BaseServiceMongoImpl.InsertOne(initCtx, systemOrgModel)
	if err != nil {
		log.Errorf("❌ [INIT] Failed to create system organization: %v", err)
		return fmt.Errorf("failed to create system organization: %v", err)
	}

	log.Info("✅ [INIT] System Organization created successfully")
	return nil
}

// GetRootOrganization lấy System Organization (Level -1) - tổ chức cấp cao nhất
func (h *InitService) GetRootOrganization() (*authmodels.Organization, error) {
	filter := bson.M{
		"type":  authmodels.OrganizationTypeSystem,
		"level": -1,
		"code":  "SYSTEM",
	}
	org, err := h.organizationService.BaseServiceMongoImpl.FindOne(context.TODO(), filter, nil)
	if err != nil {
		return nil, fmt.Errorf("system organization not found: %v", err)
	}
	return &org, nil
}

// InitRole khởi tạo vai trò Administrator mặc định thuộc System Organization
// và gán tất cả các quyền hiện có cho vai trò này với Scope = 1
func (h *InitService) InitRole() error {
	rootOrg, err := h.GetRootOrganization()
	if err != nil {
		return fmt.Errorf("failed to get system organization: %v", err)
	}

	adminRole, err := h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
	if err != nil && err != common.ErrNotFound {
		return err
	}

	if err == common.ErrNotFound {
		newAdminRole := authmodels.Role{
			Name:                "Administrator",
			Describe:            "Vai trò quản trị hệ thống",
			OwnerOrganizationID: rootOrg.ID,
			IsSystem:            true,
		}
		initCtx := basesvc.WithSystemDataInsertAllowed(context.TODO())
		adminRole, err = h.roleService.BaseServiceMongoImpl.InsertOne(initCtx, newAdminRole)
		if err != nil {
			return fmt.Errorf("failed to create administrator role: %v", err)
		}
	} else if adminRole.OwnerOrganizationID.IsZero() {
		// Role cũ chưa gắn organization, cập nhật
		_, err = h.roleService.BaseServiceMongoImpl.UpdateOne(context.TODO(),
			bson.M{"_id": adminRole.ID},
			bson.M{"$set": bson.M{"ownerOrganizationId": rootOrg.ID}}, nil)
		if err != nil {
			return fmt.Errorf("failed to update administrator role with organization: %v", err)
		}
	}

	return h.grantAllPermissionsToRole(adminRole.ID)
}

// grantAllPermissionsToRole gán tất cả quyền hiện có cho một role với Scope = 1
// (tổ chức đó và tất cả tổ chức con). Quyền đã gán với Scope 0 được nâng lên 1.
func (h *InitService) grantAllPermissionsToRole(roleID primitive.ObjectID) error {
	permissions, err := h.permissionService.BaseServiceMongoImpl.Find(context.TODO(), bson.M{}, nil)
	if err != nil {
		return fmt.Errorf("failed to get permissions: %v", err)
	}

	for _, permission := range permissions {
		filter := bson.M{
			"roleId":       roleID,
			"permissionId": permission.ID,
		}

		existingRP, err := h.rolePermissionService.BaseServiceMongoImpl.FindOne(context.TODO(), filter, nil)
		if err != nil && err != common.ErrNotFound {
			continue
		}

		if err == common.ErrNotFound {
			rolePermission := authmodels.RolePermission{
				RoleID:       roleID,
				PermissionID: permission.ID,
				Scope:        1, // Tổ chức đó và tất cả tổ chức con
			}
			_, err = h.rolePermissionService.BaseServiceMongoImpl.InsertOne(context.TODO(), rolePermission)
			if err != nil {
				continue
			}
		} else if existingRP.Scope == 0 {
			updateData := bson.M{"$set": bson.M{"scope": 1}}
			_, _ = h.rolePermissionService.BaseServiceMongoImpl.UpdateOne(context.TODO(), bson.M{"_id": existingRP.ID}, updateData, nil)
		}
	}

	return nil
}

// CheckPermissionForAdministrator đảm bảo vai trò Administrator có đầy đủ
// tất cả các quyền trong hệ thống
func (h *InitService) CheckPermissionForAdministrator() error {
	role, err := h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
	if err != nil && err != common.ErrNotFound {
		return err
	}
	if err == common.ErrNotFound {
		return h.InitRole()
	}
	return h.grantAllPermissionsToRole(role.ID)
}

// SetAdministrator gán quyền Administrator cho một người dùng
// Trả về lỗi nếu người dùng không tồn tại hoặc đã có quyền Administrator
func (h *InitService) SetAdministrator(userID primitive.ObjectID) (result interface{}, err error) {
	user, err := h.userService.BaseServiceMongoImpl.FindOneById(context.TODO(), userID)
	if err != nil {
		return nil, err
	}

	role, err := h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
	if err != nil && err != common.ErrNotFound {
		return nil, err
	}

	if err == common.ErrNotFound {
		if err = h.InitRole(); err != nil {
			return nil, err
		}
		role, err = h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
		if err != nil {
			return nil, err
		}
	}

	_, err = h.userRoleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"userId": user.ID, "roleId": role.ID}, nil)
	if err == nil {
		return nil, common.ErrUserAlreadyAdmin
	}
	if err != common.ErrNotFound {
		return nil, err
	}

	userRole := authmodels.UserRole{
		UserID: user.ID,
		RoleID: role.ID,
	}
	result, err = h.userRoleService.BaseServiceMongoImpl.InsertOne(context.TODO(), userRole)
	if err != nil {
		return nil, err
	}

	// Đảm bảo role Administrator có đầy đủ quyền. Role đã được gán nên
	// lỗi ở đây chỉ log, không fail việc set administrator.
	if err = h.CheckPermissionForAdministrator(); err != nil {
		logger.GetAppLogger().Warnf("⚠️ [INIT] Failed to sync permissions for administrator: %v", err)
	}

	return result, nil
}

// InitAdminUser tạo user admin bằng email/mật khẩu và gán role Administrator.
// Nếu email đã tồn tại thì chỉ gán role.
func (h *InitService) InitAdminUser(name, email, password string) error {
	if email == "" {
		return nil
	}

	filter := bson.M{"email": email}
	existingUser, err := h.userService.BaseServiceMongoImpl.FindOne(context.TODO(), filter, nil)
	if err != nil && err != common.ErrNotFound {
		return fmt.Errorf("failed to check existing admin user: %v", err)
	}

	var userID primitive.ObjectID
	if err == common.ErrNotFound {
		created, err := h.userService.Register(context.TODO(), &authdto.UserRegisterInput{
			Name:     name,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin user: %v", err)
		}
		userID = created.ID
	} else {
		userID = existingUser.ID
	}

	_, err = h.SetAdministrator(userID)
	if err != nil && err != common.ErrUserAlreadyAdmin {
		return fmt.Errorf("failed to set administrator role: %v", err)
	}
	return nil
}

// GetInitStatus kiểm tra trạng thái khởi tạo hệ thống
// Trả về thông tin về các đơn vị cơ bản đã được khởi tạo chưa
func (h *InitService) GetInitStatus() (map[string]interface{}, error) {
	status := make(map[string]interface{})

	_, err := h.GetRootOrganization()
	status["organization"] = map[string]interface{}{
		"initialized": err == nil,
		"error": func() string {
			if err != nil {
				return err.Error()
			}
			return ""
		}(),
	}

	permissions, err := h.permissionService.BaseServiceMongoImpl.Find(context.TODO(), bson.M{}, nil)
	permissionCount := 0
	if err == nil {
		permissionCount = len(permissions)
	}
	status["permissions"] = map[string]interface{}{
		"initialized": err == nil && permissionCount > 0,
		"count":       permissionCount,
		"error": func() string {
			if err != nil {
				return err.Error()
			}
			return ""
		}(),
	}

	adminRole, err := h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
	status["roles"] = map[string]interface{}{
		"initialized": err == nil,
		"error": func() string {
			if err != nil && err != common.ErrNotFound {
				return err.Error()
			}
			return ""
		}(),
	}

	adminUserCount := 0
	if err == nil {
		userRoles, err := h.userRoleService.BaseServiceMongoImpl.Find(context.TODO(), bson.M{"roleId": adminRole.ID}, nil)
		if err == nil {
			adminUserCount = len(userRoles)
		}
	}
	status["adminUsers"] = map[string]interface{}{
		"count":    adminUserCount,
		"hasAdmin": adminUserCount > 0,
	}

	return status, nil
}

// HasAnyAdministrator kiểm tra xem hệ thống đã có administrator chưa
func (h *InitService) HasAnyAdministrator() (bool, error) {
	adminRole, err := h.roleService.BaseServiceMongoImpl.FindOne(context.TODO(), bson.M{"name": "Administrator"}, nil)
	if err != nil {
		if err == common.ErrNotFound {
			return false, nil
		}
		return false, err
	}

	userRoles, err := h.userRoleService.BaseServiceMongoImpl.Find(context.TODO(), bson.M{"roleId": adminRole.ID}, nil)
	if err != nil {
		return false, err
	}
	return len(userRoles) > 0, nil
}
