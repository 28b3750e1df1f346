package services

import (
	"context"
	"strconv"
	"testing"

	"homeserve/internal/models"
	"homeserve/internal/testutil"
)

func TestGetUserAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("union_of_role_permissions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		testutil.SeedTestRoles(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AssignTestRole(t, db, user, models.RoleHousekeeper)
		testutil.AssignTestRole(t, db, user, models.RoleUser)

		access, err := svc.GetUserAccess(ctx, user.ID)
		testutil.AssertNoError(t, err)

		if len(access.Roles) != 2 || access.Roles[0] != models.RoleHousekeeper || access.Roles[1] != models.RoleUser {
			t.Errorf("unexpected roles %v", access.Roles)
		}
		// housekeeper: view-orders, edit-orders, view-services
		// user: view-services, create-orders, view-orders
		want := []string{"create-orders", "edit-orders", "view-orders", "view-services"}
		if len(access.Permissions) != len(want) {
			t.Fatalf("expected %v, got %v", want, access.Permissions)
		}
		for i := range want {
			if access.Permissions[i] != want[i] {
				t.Errorf("expected %v, got %v", want, access.Permissions)
			}
		}
	})

	t.Run("super_admin_has_everything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		testutil.SeedTestRoles(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.AssignTestRole(t, db, user, models.RoleSuperAdmin)

		for _, perm := range []string{models.PermManageUsers, models.PermManageServices, "view-analytics"} {
			ok, err := svc.HasPermission(ctx, user.ID, perm)
			testutil.AssertNoError(t, err)
			if !ok {
				t.Errorf("super-admin should have %s", perm)
			}
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		_, err := svc.GetUserAccess(ctx, 9999)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestPermissionCache(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	store, mr := testutil.SetupTestStore(t)
	svc := NewRoleService(db, NewPermissionCache(store))

	testutil.SeedTestRoles(t, db)
	user := testutil.CreateTestUser(t, db)
	testutil.AssignTestRole(t, db, user, models.RoleUser)

	ok, err := svc.HasPermission(ctx, user.ID, models.PermManageServices)
	testutil.AssertNoError(t, err)
	if ok {
		t.Fatal("plain users cannot manage services")
	}

	key := "perm:user:" + itoa(user.ID)
	if !mr.Exists(key) {
		t.Fatal("permission set should be cached")
	}
	if ttl := mr.TTL(key); ttl != PermissionCacheTTL {
		t.Errorf("expected ttl %s, got %s", PermissionCacheTTL, ttl)
	}

	t.Run("stale_until_invalidated", func(t *testing.T) {
		// A write that bypasses AssignRole is not seen until invalidation.
		testutil.AssignTestRole(t, db, user, models.RoleAdmin)

		ok, _ := svc.HasPermission(ctx, user.ID, models.PermManageServices)
		if ok {
			t.Fatal("expected cached answer before invalidation")
		}

		testutil.AssertNoError(t, svc.InvalidateUserPermissions(ctx, user.ID))

		ok, _ = svc.HasPermission(ctx, user.ID, models.PermManageServices)
		if !ok {
			t.Fatal("expected fresh answer after invalidation")
		}
	})
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()

	t.Run("grants_and_invalidates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		testutil.SeedTestRoles(t, db)
		user := testutil.CreateTestUser(t, db)

		// Warm the cache with an empty permission set.
		ok, _ := svc.HasRole(ctx, user.ID, models.RoleAdmin)
		if ok {
			t.Fatal("user starts without roles")
		}

		access, err := svc.AssignRole(ctx, user.ID, models.RoleAdmin)
		testutil.AssertNoError(t, err)
		if len(access.Roles) != 1 || access.Roles[0] != models.RoleAdmin {
			t.Errorf("unexpected roles %v", access.Roles)
		}

		ok, err = svc.HasPermission(ctx, user.ID, models.PermManageServices)
		testutil.AssertNoError(t, err)
		if !ok {
			t.Error("admin should manage services right after assignment")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		testutil.SeedTestRoles(t, db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AssignRole(ctx, user.ID, models.RoleSupport)
		testutil.AssertNoError(t, err)
		access, err := svc.AssignRole(ctx, user.ID, models.RoleSupport)
		testutil.AssertNoError(t, err)
		if len(access.Roles) != 1 {
			t.Errorf("expected a single role, got %v", access.Roles)
		}
	})

	t.Run("unknown_role", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		testutil.SeedTestRoles(t, db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AssignRole(ctx, user.ID, "janitor")
		testutil.AssertAppError(t, err, "ROLE_NOT_FOUND")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store, _ := testutil.SetupTestStore(t)
		svc := NewRoleService(db, NewPermissionCache(store))

		_, err := svc.AssignRole(ctx, 4242, models.RoleAdmin)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
