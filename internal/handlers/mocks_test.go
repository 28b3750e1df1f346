package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"homeserve/internal/middleware"
	"homeserve/internal/models"
	"homeserve/internal/pagination"
	"homeserve/internal/services"
	"homeserve/internal/validator"
)

// --- mock user service ---

type mockUserService struct {
	registerFn          func(in services.RegisterInput) (*models.User, error)
	usernameExistsFn    func(username string) (bool, error)
	attemptLoginFn      func(username, password string) (*models.User, error)
	getUserByIdentityFn func(username, email string) (*models.User, error)
	getUserByIDFn       func(id uint) (*models.User, error)
	resetPasswordFn     func(username, email, newPassword string) error
	listUsersFn         func(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)

	mu          sync.Mutex
	refreshHash map[uint]string
	logins      []uint
}

func (m *mockUserService) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(in)
	}
	return &models.User{Username: in.Username, Name: in.Name, Status: models.UserStatusActive}, nil
}

func (m *mockUserService) UsernameExists(_ context.Context, username string) (bool, error) {
	if m.usernameExistsFn != nil {
		return m.usernameExistsFn(username)
	}
	return false, nil
}

func (m *mockUserService) AttemptLogin(_ context.Context, username, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(username, password)
	}
	return activeUser(1, username), nil
}

func (m *mockUserService) GetUserByIdentity(_ context.Context, username, email string) (*models.User, error) {
	if m.getUserByIdentityFn != nil {
		return m.getUserByIdentityFn(username, email)
	}
	return activeUser(1, username), nil
}

func (m *mockUserService) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return activeUser(id, "alice"), nil
}

func (m *mockUserService) ResetPassword(_ context.Context, username, email, newPassword string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(username, email, newPassword)
	}
	return nil
}

func (m *mockUserService) RecordLogin(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, userID)
	return nil
}

func (m *mockUserService) StoreRefreshTokenHash(_ context.Context, userID uint, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshHash == nil {
		m.refreshHash = make(map[uint]string)
	}
	m.refreshHash[userID] = tokenHash
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(_ context.Context, userID uint) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshHash[userID], nil
}

func (m *mockUserService) ListUsers(_ context.Context, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(page)
	}
	resp := pagination.NewPageResponse([]models.User{}, 1, 20, 0)
	return &resp, nil
}

// --- mock verification service ---

type mockVerificationService struct {
	verifyFn      func(id services.Identity, purpose, candidate string) (bool, error)
	requestCodeFn func(id services.Identity, purpose, sourceAddress string) (*services.IssuedCode, error)
	clearFn       func(id services.Identity, purpose string) (bool, error)
}

func (m *mockVerificationService) Generate(_ context.Context, _ services.Identity, _, _ string) (*services.IssuedCode, error) {
	return &services.IssuedCode{Code: "123456", ExpiresIn: 300}, nil
}

func (m *mockVerificationService) CanSendNew(_ context.Context, _ services.Identity, _ string) (bool, error) {
	return true, nil
}

func (m *mockVerificationService) Verify(_ context.Context, id services.Identity, purpose, candidate string) (bool, error) {
	if m.verifyFn != nil {
		return m.verifyFn(id, purpose, candidate)
	}
	return true, nil
}

func (m *mockVerificationService) TimeToLive(_ context.Context, _ services.Identity, _ string) (int, bool, error) {
	return 0, false, nil
}

func (m *mockVerificationService) SendLimitTimeToLive(_ context.Context, _ services.Identity, _ string) (int, bool, error) {
	return 0, false, nil
}

func (m *mockVerificationService) Clear(_ context.Context, id services.Identity, purpose string) (bool, error) {
	if m.clearFn != nil {
		return m.clearFn(id, purpose)
	}
	return true, nil
}

func (m *mockVerificationService) RequestCode(_ context.Context, id services.Identity, purpose, sourceAddress string) (*services.IssuedCode, error) {
	if m.requestCodeFn != nil {
		return m.requestCodeFn(id, purpose, sourceAddress)
	}
	return &services.IssuedCode{Code: "123456", ExpiresIn: 300, IssuedAt: time.Now()}, nil
}

// --- mock category service ---

type mockCategoryService struct {
	listFn        func(filter services.CategoryFilter) ([]*services.CategoryTreeNode, int, error)
	getFn         func(id uint) (*services.CategoryDetail, error)
	createFn      func(in services.CreateCategoryInput) (*models.ServiceCategory, error)
	updateFn      func(id uint, in services.UpdateCategoryInput) (*models.ServiceCategory, error)
	deleteFn      func(id uint) error
	batchDeleteFn func(ids []uint) (int, error)
	toggleFn      func(id uint, enabled bool) (*models.ServiceCategory, error)
	restoreFn     func(id uint) (*models.ServiceCategory, error)
}

func (m *mockCategoryService) ListCategories(_ context.Context, filter services.CategoryFilter) ([]*services.CategoryTreeNode, int, error) {
	if m.listFn != nil {
		return m.listFn(filter)
	}
	return []*services.CategoryTreeNode{}, 0, nil
}

func (m *mockCategoryService) GetCategory(_ context.Context, id uint) (*services.CategoryDetail, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return &services.CategoryDetail{ServiceCategory: category(id, "Cleaning", 0, 1)}, nil
}

func (m *mockCategoryService) CreateCategory(_ context.Context, in services.CreateCategoryInput) (*models.ServiceCategory, error) {
	if m.createFn != nil {
		return m.createFn(in)
	}
	c := category(1, in.Name, in.ParentID, 1)
	return &c, nil
}

func (m *mockCategoryService) UpdateCategory(_ context.Context, id uint, in services.UpdateCategoryInput) (*models.ServiceCategory, error) {
	if m.updateFn != nil {
		return m.updateFn(id, in)
	}
	c := category(id, "Cleaning", 0, 1)
	return &c, nil
}

func (m *mockCategoryService) DeleteCategory(_ context.Context, id uint) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return nil
}

func (m *mockCategoryService) BatchDeleteCategories(_ context.Context, ids []uint) (int, error) {
	if m.batchDeleteFn != nil {
		return m.batchDeleteFn(ids)
	}
	return len(ids), nil
}

func (m *mockCategoryService) ToggleCategoryStatus(_ context.Context, id uint, enabled bool) (*models.ServiceCategory, error) {
	if m.toggleFn != nil {
		return m.toggleFn(id, enabled)
	}
	c := category(id, "Cleaning", 0, 1)
	c.IsEnabled = enabled
	return &c, nil
}

func (m *mockCategoryService) RestoreCategory(_ context.Context, id uint) (*models.ServiceCategory, error) {
	if m.restoreFn != nil {
		return m.restoreFn(id)
	}
	c := category(id, "Cleaning", 0, 1)
	return &c, nil
}

// --- mock role service ---

type mockRoleService struct {
	assignRoleFn    func(userID uint, roleName string) (*services.UserAccess, error)
	getUserAccessFn func(userID uint) (*services.UserAccess, error)
}

func (m *mockRoleService) AssignRole(_ context.Context, userID uint, roleName string) (*services.UserAccess, error) {
	if m.assignRoleFn != nil {
		return m.assignRoleFn(userID, roleName)
	}
	return &services.UserAccess{UserID: userID, Roles: []string{roleName}}, nil
}

func (m *mockRoleService) GetUserAccess(_ context.Context, userID uint) (*services.UserAccess, error) {
	if m.getUserAccessFn != nil {
		return m.getUserAccessFn(userID)
	}
	return &services.UserAccess{UserID: userID, Roles: []string{}, Permissions: []string{}}, nil
}

func (m *mockRoleService) HasPermission(_ context.Context, _ uint, _ string) (bool, error) {
	return true, nil
}

func (m *mockRoleService) HasRole(_ context.Context, _ uint, _ string) (bool, error) {
	return true, nil
}

func (m *mockRoleService) InvalidateUserPermissions(_ context.Context, _ uint) error {
	return nil
}

// --- mock audit service ---

type auditEntry struct {
	userID     uint
	action     string
	resourceID uint
	changes    map[string]interface{}
}

type mockAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *mockAuditService) Log(_ context.Context, userID uint, action, _ string, resourceID uint, _ string, changes map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{userID: userID, action: action, resourceID: resourceID, changes: changes})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.action)
	}
	return out
}

// --- mock token revoker ---

type mockRevoker struct {
	revoked map[string]time.Duration
	err     error
}

func (m *mockRevoker) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[jti] = ttl
	return nil
}

// verify interface compliance
var (
	_ services.UserServicer         = (*mockUserService)(nil)
	_ services.VerificationServicer = (*mockVerificationService)(nil)
	_ services.CategoryServicer     = (*mockCategoryService)(nil)
	_ services.RoleServicer         = (*mockRoleService)(nil)
	_ services.AuditServicer        = (*mockAuditService)(nil)
	_ TokenRevoker                  = (*mockRevoker)(nil)
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func activeUser(id uint, username string) *models.User {
	u := &models.User{Username: username, Name: "Test User", Status: models.UserStatusActive}
	u.ID = id
	return u
}

func category(id uint, name string, parentID uint, level int) models.ServiceCategory {
	c := models.ServiceCategory{Name: name, ParentID: parentID, Level: level, IsEnabled: true}
	c.ID = id
	return c
}

func injectUserID(uid uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func assertErrorField(t *testing.T, result map[string]interface{}, field string) {
	t.Helper()
	errObj, _ := result["error"].(map[string]interface{})
	details, _ := errObj["details"].([]interface{})
	for _, d := range details {
		if d.(map[string]interface{})["field"] == field {
			return
		}
	}
	t.Errorf("expected a field error on %q, got %v", field, errObj["details"])
}
