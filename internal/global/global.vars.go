package global

import (
	"playbook_engine/config"
	"playbook_engine/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	Users           string // Tên collection cho người dùng
	Permissions     string // Tên collection cho quyền
	Roles           string // Tên collection cho vai trò
	RolePermissions string // Tên collection cho vai trò và quyền
	UserRoles       string // Tên collection cho người dùng và vai trò
	Organizations   string // Tên collection cho tổ chức

	// Playbook Run Engine Collections
	PlaybookRuns             string // Tên collection cho run header
	PlaybookSteps            string // Tên collection cho step records của run
	PlaybookCompletionEvents string // Tên collection cho completion events (append-only)
}

// Các biến toàn cục
var Validate *validator.Validate                                          // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client                                         // Phiên kết nối tới MongoDB
var MongoDB_ServerConfig *config.Configuration                            // Cấu hình của server
var MongoDB_ColNames MongoDB_CollectionName = *new(MongoDB_CollectionName) // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
