// Package middleware - Test flush cache permission khi dữ liệu RBAC thay đổi.
package middleware

import (
	"context"
	"testing"
	"time"

	"playbook_engine/internal/api/events"
	"playbook_engine/internal/global"
	"playbook_engine/internal/utility"
)

func TestRBACCacheInvalidation_FlushesOnRBACChange(t *testing.T) {
	global.MongoDB_ColNames.Roles = "auth_roles"
	global.MongoDB_ColNames.Permissions = "auth_permissions"
	global.MongoDB_ColNames.RolePermissions = "auth_role_permissions"
	global.MongoDB_ColNames.UserRoles = "auth_user_roles"

	cache := utility.NewCache(5*time.Minute, 10*time.Minute)
	handler := rbacCacheInvalidationHandler(cache)

	for _, col := range []string{"auth_roles", "auth_permissions", "auth_role_permissions", "auth_user_roles"} {
		cache.Set("user_permissions:u1", map[string]byte{"PlaybookRun.Read": 1})
		handler(context.Background(), events.DataChangeEvent{CollectionName: col, Operation: events.OpUpdate})
		if _, found := cache.Get("user_permissions:u1"); found {
			t.Errorf("thay đổi collection %s phải flush cache permission", col)
		}
	}
}

func TestRBACCacheInvalidation_IgnoresOtherCollections(t *testing.T) {
	global.MongoDB_ColNames.UserRoles = "auth_user_roles"
	global.MongoDB_ColNames.PlaybookSteps = "playbook_steps"

	cache := utility.NewCache(5*time.Minute, 10*time.Minute)
	handler := rbacCacheInvalidationHandler(cache)

	cache.Set("user_permissions:u1", map[string]byte{"PlaybookRun.Read": 1})
	handler(context.Background(), events.DataChangeEvent{CollectionName: "playbook_steps", Operation: events.OpInsert})
	if _, found := cache.Get("user_permissions:u1"); !found {
		t.Error("thay đổi collection ngoài RBAC không được flush cache permission")
	}
}
