package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	authsvc "playbook_engine/internal/api/auth/service"
	basehdl "playbook_engine/internal/api/base/handler"
	playbooksvc "playbook_engine/internal/api/playbook/service"
	"playbook_engine/internal/global"
	"playbook_engine/internal/logger"
	"playbook_engine/internal/orchestrator"
	"playbook_engine/internal/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Khởi tạo logger với cấu hình mặc định
	// Logger sẽ tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Log thông tin khởi tạo bằng logger mới
	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// main_thread khởi tạo và chạy Fiber server
func main_thread() {
	// Khởi tạo app với cấu hình
	app := InitFiberApp()

	// Khởi động server với cấu hình listen
	cfg := global.MongoDB_ServerConfig
	address := ":" + cfg.Address

	log := logger.GetAppLogger()
	log.Info("Starting Fiber server...")

	// Helper function để resolve đường dẫn từ thư mục gốc của service
	resolvePath := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		// Tìm thư mục chứa config/env
		currentDir, err := os.Getwd()
		if err != nil {
			return path
		}
		for {
			envDir := filepath.Join(currentDir, "config", "env")
			if _, err := os.Stat(envDir); err == nil {
				return filepath.Join(currentDir, path)
			}
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				return path
			}
			currentDir = parentDir
		}
	}

	// Kiểm tra xem có bật TLS không
	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		// Resolve đường dẫn certificate và key
		certPath := resolvePath(cfg.TLSCertFile)
		keyPath := resolvePath(cfg.TLSKeyFile)

		// Kiểm tra file certificate và key tồn tại
		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			log.Fatalf("TLS certificate file not found: %s (resolved from: %s)", certPath, cfg.TLSCertFile)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			log.Fatalf("TLS key file not found: %s (resolved from: %s)", keyPath, cfg.TLSKeyFile)
		}

		// Load certificate và key
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			log.Fatalf("Error loading TLS certificate: %v", err)
		}

		// Tạo listener với TLS
		ln, err := net.Listen("tcp", address)
		if err != nil {
			log.Fatalf("Error creating listener: %v", err)
		}

		// Cấu hình TLS
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}

		// Wrap listener với TLS
		tlsListener := tls.NewListener(ln, tlsConfig)

		log.WithFields(map[string]interface{}{
			"address": address,
			"cert":    certPath,
			"key":     keyPath,
		}).Info("Starting server with HTTPS/TLS")

		// Khởi động server với TLS listener
		if err := app.Listener(tlsListener); err != nil {
			log.Fatalf("Error in Fiber Listener with TLS: %v", err)
		}
	} else {
		// Khởi động server HTTP thông thường
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")

		listenConfig := fiber.ListenConfig{}
		if err := app.Listen(address, listenConfig); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	// Khởi tạo dữ liệu mặc định
	InitDefaultData()

	log := logger.GetAppLogger()
	cfg := global.MongoDB_ServerConfig

	// Đăng ký callback resolve danh sách organization được phép theo role
	// (base/handler không import được auth/service vì import cycle)
	basehdl.GetAllowedOrganizationIDsFromRoleFunc = func(c fiber.Ctx, roleID primitive.ObjectID, permissionName string) ([]primitive.ObjectID, error) {
		return authsvc.GetAllowedOrganizationIDsFromRole(c.Context(), roleID, permissionName)
	}

	// Khởi tạo orchestrator dispatcher (nếu có cấu hình ORCHESTRATOR_URL)
	// PHẢI wire trước khi đăng ký routes vì StepService đọc notifier lúc khởi tạo
	if dispatcher := orchestrator.NewDispatcher(cfg.OrchestratorURL, cfg.OrchestratorTimeoutMs, cfg.OrchestratorRetry); dispatcher != nil {
		playbooksvc.SetDefaultOrchestratorNotifier(dispatcher)
		log.WithFields(map[string]interface{}{
			"url":   cfg.OrchestratorURL,
			"retry": cfg.OrchestratorRetry,
		}).Info("🚀 [ORCHESTRATOR] Dispatcher initialized")
	} else {
		log.Info("🚀 [ORCHESTRATOR] ORCHESTRATOR_URL not set, step completion dispatch disabled")
	}

	// Khởi tạo và chạy Progress Reconcile Worker (background worker)
	// Worker quét các run in_progress lâu không cập nhật và tính lại progress
	interval := time.Duration(cfg.ProgressWorkerIntervalSec) * time.Second
	reconcileWorker, err := worker.NewProgressReconcileWorker(interval, 0)
	if err != nil {
		log.WithError(err).Error("Failed to create progress reconcile worker, continuing without it")
	} else {
		// Tạo context với cancel để có thể dừng worker khi cần
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Chạy worker trong goroutine riêng với recover
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(map[string]interface{}{
						"panic": r,
					}).Error("📈 [PROGRESS_RECONCILE] Worker goroutine panic")
				}
			}()

			log.Info("📈 [PROGRESS_RECONCILE] Starting progress reconcile worker...")
			reconcileWorker.Start(ctx)
			log.Warn("📈 [PROGRESS_RECONCILE] Worker đã dừng (có thể do context cancelled)")
		}()

		log.Info("📈 [PROGRESS_RECONCILE] Progress reconcile worker started successfully")
	}

	// Chạy Fiber server trên main thread
	main_thread()
}
