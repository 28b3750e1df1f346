package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "homeserve/internal/errors"
	"homeserve/internal/metrics"
	"homeserve/internal/models"
	"homeserve/internal/services"
)

func setupCategoryRouter(svc *mockCategoryService, audit *mockAuditService) *gin.Engine {
	handler := NewCategoryHandler(svc, audit)

	r := gin.New()
	g := r.Group("/service-categories", injectUserID(1))
	g.GET("", handler.ListCategories)
	g.POST("", handler.CreateCategory)
	g.POST("/batch-delete", handler.BatchDeleteCategories)
	g.GET("/:id", handler.GetCategory)
	g.PUT("/:id", handler.UpdateCategory)
	g.DELETE("/:id", handler.DeleteCategory)
	g.PUT("/:id/status", handler.ToggleCategoryStatus)
	g.POST("/:id/restore", handler.RestoreCategory)
	return r
}

func mutationCount(op, result string) float64 {
	return promtestutil.ToFloat64(metrics.CategoryMutationsTotal.WithLabelValues(op, result))
}

func TestCategoryHandler_ListCategories(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		var got services.CategoryFilter
		svc := &mockCategoryService{listFn: func(f services.CategoryFilter) ([]*services.CategoryTreeNode, int, error) {
			got = f
			child := &services.CategoryTreeNode{ServiceCategory: category(2, "Deep Cleaning", 1, 2)}
			root := &services.CategoryTreeNode{ServiceCategory: category(1, "Cleaning", 0, 1), Children: []*services.CategoryTreeNode{child}}
			return []*services.CategoryTreeNode{root}, 2, nil
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/service-categories?include_disabled=true&level=2", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.IncludeDisabled || got.OnlyTopLevel || got.Level == nil || *got.Level != 2 {
			t.Errorf("unexpected filter %+v", got)
		}
		result := parseJSON(t, rec)
		if result["total"].(float64) != 2 {
			t.Errorf("expected total 2, got %v", result["total"])
		}
		roots := result["categories"].([]interface{})
		children := roots[0].(map[string]interface{})["children"].([]interface{})
		if len(children) != 1 {
			t.Errorf("expected nested child, got %v", roots[0])
		}
	})

	t.Run("leaves level unset by default", func(t *testing.T) {
		var got services.CategoryFilter
		svc := &mockCategoryService{listFn: func(f services.CategoryFilter) ([]*services.CategoryTreeNode, int, error) {
			got = f
			return []*services.CategoryTreeNode{}, 0, nil
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/service-categories", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.Level != nil || got.IncludeDisabled {
			t.Errorf("unexpected filter %+v", got)
		}
		if cats := parseJSON(t, rec)["categories"].([]interface{}); len(cats) != 0 {
			t.Errorf("expected empty list, got %v", cats)
		}
	})

	t.Run("returns 400 on level out of range", func(t *testing.T) {
		r := setupCategoryRouter(&mockCategoryService{}, &mockAuditService{})

		rec := doRequest(r, "GET", "/service-categories?level=4", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorField(t, parseJSON(t, rec), "level")
	})
}

func TestCategoryHandler_GetCategory(t *testing.T) {
	t.Run("returns the detail", func(t *testing.T) {
		svc := &mockCategoryService{getFn: func(id uint) (*services.CategoryDetail, error) {
			return &services.CategoryDetail{
				ServiceCategory: category(id, "Deep Cleaning", 1, 2),
				Parent:          &services.CategoryRef{ID: 1, Name: "Cleaning"},
				Children:        []services.CategoryChild{},
			}, nil
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/service-categories/5", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if cat["id"].(float64) != 5 || cat["parent"].(map[string]interface{})["name"] != "Cleaning" {
			t.Errorf("unexpected detail %v", cat)
		}
	})

	t.Run("returns 400 on bad id", func(t *testing.T) {
		r := setupCategoryRouter(&mockCategoryService{}, &mockAuditService{})
		for _, id := range []string{"abc", "0", "-1"} {
			rec := doRequest(r, "GET", "/service-categories/"+id, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("id %q: expected 400, got %d", id, rec.Code)
			}
		}
	})

	t.Run("returns 404 when missing", func(t *testing.T) {
		svc := &mockCategoryService{getFn: func(uint) (*services.CategoryDetail, error) {
			return nil, apperrors.ErrCategoryNotFound
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/service-categories/9", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 and audits", func(t *testing.T) {
		var got services.CreateCategoryInput
		svc := &mockCategoryService{createFn: func(in services.CreateCategoryInput) (*models.ServiceCategory, error) {
			got = in
			c := category(3, in.Name, in.ParentID, 2)
			return &c, nil
		}}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)
		before := mutationCount("create", "ok")

		rec := doRequest(r, "POST", "/service-categories",
			`{"name":"Deep Cleaning","parent_id":1,"sort_order":2,"icon":"https://cdn.example.com/deep.png"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Name != "Deep Cleaning" || got.ParentID != 1 || got.SortOrder != 2 || got.Icon == nil {
			t.Errorf("unexpected input %+v", got)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditCreateCategory || audit.entries[0].resourceID != 3 {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
		if audit.entries[0].changes["level"] != 2 {
			t.Errorf("expected level in audit changes, got %v", audit.entries[0].changes)
		}
		if mutationCount("create", "ok")-before != 1 {
			t.Error("expected create mutation to be counted")
		}
	})

	t.Run("returns 409 on depth exceeded without audit", func(t *testing.T) {
		svc := &mockCategoryService{createFn: func(services.CreateCategoryInput) (*models.ServiceCategory, error) {
			return nil, apperrors.ErrCategoryDepthExceeded
		}}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)
		before := mutationCount("create", "CATEGORY_DEPTH_EXCEEDED")

		rec := doRequest(r, "POST", "/service-categories", `{"name":"Too Deep","parent_id":7}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_DEPTH_EXCEEDED")
		if len(audit.entries) != 0 {
			t.Error("failed mutations must not be audited")
		}
		if mutationCount("create", "CATEGORY_DEPTH_EXCEEDED")-before != 1 {
			t.Error("expected failed create to be counted")
		}
	})

	t.Run("returns 400 on malformed body", func(t *testing.T) {
		r := setupCategoryRouter(&mockCategoryService{}, &mockAuditService{})
		rec := doRequest(r, "POST", "/service-categories", `{"name":42}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("passes partial fields and audits changes", func(t *testing.T) {
		var got services.UpdateCategoryInput
		var gotID uint
		svc := &mockCategoryService{updateFn: func(id uint, in services.UpdateCategoryInput) (*models.ServiceCategory, error) {
			gotID, got = id, in
			c := category(id, *in.Name, 0, 1)
			return &c, nil
		}}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)

		rec := doRequest(r, "PUT", "/service-categories/4", `{"name":"Home Cleaning","description":""}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != 4 || got.ParentID != nil || got.SortOrder != nil {
			t.Errorf("unexpected update %d %+v", gotID, got)
		}
		if got.Description == nil || *got.Description != "" {
			t.Error("expected explicit empty description to be passed through")
		}
		changes := audit.entries[0].changes
		if changes["name"] != "Home Cleaning" || changes["description"] != "" {
			t.Errorf("unexpected audit changes %v", changes)
		}
		if _, ok := changes["parent_id"]; ok {
			t.Error("untouched fields must not appear in audit changes")
		}
	})

	t.Run("returns 409 on cycle", func(t *testing.T) {
		svc := &mockCategoryService{updateFn: func(uint, services.UpdateCategoryInput) (*models.ServiceCategory, error) {
			return nil, apperrors.ErrCategoryCycle
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "PUT", "/service-categories/1", `{"parent_id":3}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_CYCLE")
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("deletes and audits", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCategoryRouter(&mockCategoryService{}, audit)

		rec := doRequest(r, "DELETE", "/service-categories/3", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditDeleteCategory {
			t.Errorf("unexpected audit %v", got)
		}
	})

	t.Run("returns 409 when children exist", func(t *testing.T) {
		svc := &mockCategoryService{deleteFn: func(uint) error { return apperrors.ErrCategoryHasChildren }}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "DELETE", "/service-categories/1", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_HAS_CHILDREN")
	})
}

func TestCategoryHandler_BatchDeleteCategories(t *testing.T) {
	t.Run("deletes and audits each id", func(t *testing.T) {
		svc := &mockCategoryService{batchDeleteFn: func(ids []uint) (int, error) { return len(ids), nil }}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)

		rec := doRequest(r, "POST", "/service-categories/batch-delete", `{"ids":[4,5]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["deleted"].(float64) != 2 {
			t.Error("expected deleted count 2")
		}
		if len(audit.entries) != 2 || audit.entries[1].resourceID != 5 {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	for name, body := range map[string]string{
		"empty list": `{"ids":[]}`,
		"zero id":    `{"ids":[3,0]}`,
		"missing":    `{}`,
	} {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			called := false
			svc := &mockCategoryService{batchDeleteFn: func([]uint) (int, error) {
				called = true
				return 0, nil
			}}
			r := setupCategoryRouter(svc, &mockAuditService{})

			rec := doRequest(r, "POST", "/service-categories/batch-delete", body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if called {
				t.Error("service must not be called on invalid input")
			}
		})
	}

	t.Run("nothing is audited when the batch is rejected", func(t *testing.T) {
		svc := &mockCategoryService{batchDeleteFn: func([]uint) (int, error) {
			return 0, apperrors.WithMessage(apperrors.ErrCategoryHasChildren, "Category Parent has child categories")
		}}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)

		rec := doRequest(r, "POST", "/service-categories/batch-delete", `{"ids":[1,2]}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if len(audit.entries) != 0 {
			t.Errorf("expected no audit entries, got %d", len(audit.entries))
		}
	})
}

func TestCategoryHandler_ToggleCategoryStatus(t *testing.T) {
	t.Run("disables", func(t *testing.T) {
		var gotEnabled = true
		svc := &mockCategoryService{toggleFn: func(id uint, enabled bool) (*models.ServiceCategory, error) {
			gotEnabled = enabled
			c := category(id, "Cleaning", 0, 1)
			c.IsEnabled = enabled
			return &c, nil
		}}
		audit := &mockAuditService{}
		r := setupCategoryRouter(svc, audit)

		rec := doRequest(r, "PUT", "/service-categories/1/status", `{"is_enabled":false}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotEnabled {
			t.Error("expected disable to reach the service")
		}
		if audit.entries[0].changes["is_enabled"] != false {
			t.Errorf("unexpected audit changes %v", audit.entries[0].changes)
		}
	})

	t.Run("returns 400 without is_enabled", func(t *testing.T) {
		r := setupCategoryRouter(&mockCategoryService{}, &mockAuditService{})

		rec := doRequest(r, "PUT", "/service-categories/1/status", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorField(t, parseJSON(t, rec), "is_enabled")
	})
}

func TestCategoryHandler_RestoreCategory(t *testing.T) {
	t.Run("restores and audits", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCategoryRouter(&mockCategoryService{}, audit)

		rec := doRequest(r, "POST", "/service-categories/6/restore", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != services.AuditRestoreCategory {
			t.Errorf("unexpected audit %v", got)
		}
	})

	t.Run("returns 404 when not deleted", func(t *testing.T) {
		svc := &mockCategoryService{restoreFn: func(uint) (*models.ServiceCategory, error) {
			return nil, apperrors.ErrCategoryNotDeleted
		}}
		r := setupCategoryRouter(svc, &mockAuditService{})

		rec := doRequest(r, "POST", "/service-categories/6/restore", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_DELETED")
	})
}

func TestCategoryHandler_ResponseEnvelopes(t *testing.T) {
	r := setupCategoryRouter(&mockCategoryService{}, &mockAuditService{})

	single := []struct {
		method, path, body string
		status             int
	}{
		{"POST", "/service-categories", `{"name":"Cleaning"}`, http.StatusCreated},
		{"PUT", "/service-categories/3", `{"name":"Cleaning"}`, http.StatusOK},
		{"PUT", "/service-categories/3/status", `{"is_enabled":true}`, http.StatusOK},
		{"POST", "/service-categories/3/restore", "", http.StatusOK},
	}
	for _, tc := range single {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := doRequest(r, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if body := parseJSON(t, rec); len(body) != 1 || body["category"] == nil {
				t.Fatalf("expected only a category key, got %v", body)
			}
			var resp CategoryResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Category == nil || resp.Category.Name != "Cleaning" {
				t.Errorf("unexpected envelope %s (err %v)", rec.Body.String(), err)
			}
		})
	}

	t.Run("GET /service-categories/3", func(t *testing.T) {
		rec := doRequest(r, "GET", "/service-categories/3", "")
		var resp CategoryDetailResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Category == nil || resp.Category.ID != 3 {
			t.Errorf("unexpected envelope %s (err %v)", rec.Body.String(), err)
		}
	})

	t.Run("POST /service-categories/batch-delete", func(t *testing.T) {
		rec := doRequest(r, "POST", "/service-categories/batch-delete", `{"ids":[4,5,6]}`)
		var resp BatchDeleteResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Deleted != 3 {
			t.Errorf("unexpected envelope %s (err %v)", rec.Body.String(), err)
		}
	})
}
