package main

import (
	"playbook_engine/internal/api/initsvc"
	"playbook_engine/internal/global"
	"playbook_engine/internal/logger"
)

func InitDefaultData() {
	log := logger.GetAppLogger()
	log.Info("🔄 [INIT] Starting InitDefaultData...")

	initService, err := initsvc.NewInitService()
	if err != nil {
		log.Fatalf("Failed to initialize init service: %v", err)
	}

	// 1. Khởi tạo Organization Root (PHẢI LÀM TRƯỚC)
	log.Info("🔄 [INIT] Step 1: Initializing root organization...")
	if err := initService.InitRootOrganization(); err != nil {
		log.Fatalf("Failed to initialize root organization: %v", err)
	}
	log.Info("✅ [INIT] Step 1: Root organization initialized")

	// 2. Khởi tạo Permissions (tạo các quyền mới nếu chưa có, bao gồm PlaybookRun, PlaybookStep, ...)
	log.Info("🔄 [INIT] Step 2: Initializing permissions...")
	if err := initService.InitPermission(); err != nil {
		log.Fatalf("Failed to initialize permissions: %v", err)
	}
	log.Info("✅ [INIT] Step 2: Permissions initialized/updated successfully")

	// 3. Tạo Role Administrator (nếu chưa có) + Đảm bảo đầy đủ Permission cho Administrator
	// Tự động gán tất cả quyền trong hệ thống (bao gồm quyền mới) cho role Administrator
	if err := initService.CheckPermissionForAdministrator(); err != nil {
		log.Warnf("Failed to check permissions for administrator: %v", err)
	} else {
		log.Info("Administrator role permissions synchronized successfully")
	}

	// 4. Tạo user admin từ env (nếu có config) - Tùy chọn
	// Nếu không có ADMIN_EMAIL/ADMIN_PASSWORD, user đầu tiên login sẽ tự động trở thành admin
	cfg := global.MongoDB_ServerConfig
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := initService.InitAdminUser(cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Warnf("Failed to initialize admin user from env: %v", err)
			log.Info("User đầu tiên login sẽ tự động trở thành admin")
		} else {
			log.Info("Admin user initialized successfully from env")
		}
	} else {
		log.Info("ADMIN_EMAIL/ADMIN_PASSWORD not set")
		log.Info("User đầu tiên login sẽ tự động trở thành admin (First user becomes admin)")
	}

	log.Info("✅ [INIT] InitDefaultData completed successfully")
}
