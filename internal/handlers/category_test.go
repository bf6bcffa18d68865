package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gostore-shop/apiserver/types"
)

func TestListCategoriesIsPublic(t *testing.T) {
	env := newTestEnv()
	env.categories.Create(context.Background(), types.Category{Name: "Books"})

	rec := doJSON(t, env.router, http.MethodGet, "/categories/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	categories := decodeBody[[]types.Category](t, rec)
	if len(categories) != 1 || categories[0].Name != "Books" {
		t.Fatalf("unexpected categories: %+v", categories)
	}
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	payload := map[string]any{"name": "Books"}

	rec := doJSON(t, env.router, http.MethodPost, "/categories/", "", payload)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	_, buyerToken := env.seedUser(1, types.RoleBuyer)
	rec = doJSON(t, env.router, http.MethodPost, "/categories/", buyerToken, payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("buyer status = %d, want 403", rec.Code)
	}

	_, sellerToken := env.seedUser(2, types.RoleSeller)
	rec = doJSON(t, env.router, http.MethodPost, "/categories/", sellerToken, payload)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("seller status = %d, want 403", rec.Code)
	}

	_, adminToken := env.seedUser(3, types.RoleAdmin)
	rec = doJSON(t, env.router, http.MethodPost, "/categories/", adminToken, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCategoryWithMissingParent(t *testing.T) {
	env := newTestEnv()
	_, adminToken := env.seedUser(1, types.RoleAdmin)

	rec := doJSON(t, env.router, http.MethodPost, "/categories/", adminToken, map[string]any{
		"name":      "Books",
		"parent_id": 99,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateCategoryCycle(t *testing.T) {
	env := newTestEnv()
	_, adminToken := env.seedUser(1, types.RoleAdmin)

	root, _ := env.categories.Create(context.Background(), types.Category{Name: "Root"})
	child, _ := env.categories.Create(context.Background(), types.Category{Name: "Child", ParentID: &root.ID})

	// Reparenting the root under its own child would make a loop.
	rec := doJSON(t, env.router, http.MethodPut, "/categories/1", adminToken, map[string]any{
		"name":      "Root",
		"parent_id": child.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
	}

	// A self-parent is the degenerate loop.
	rec = doJSON(t, env.router, http.MethodPut, "/categories/1", adminToken, map[string]any{
		"name":      "Root",
		"parent_id": root.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self-parent status = %d, want 400", rec.Code)
	}
}

func TestUpdateMissingCategory(t *testing.T) {
	env := newTestEnv()
	_, adminToken := env.seedUser(1, types.RoleAdmin)

	rec := doJSON(t, env.router, http.MethodPut, "/categories/42", adminToken, map[string]any{
		"name": "Ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteCategoryHidesIt(t *testing.T) {
	env := newTestEnv()
	_, adminToken := env.seedUser(1, types.RoleAdmin)

	created, _ := env.categories.Create(context.Background(), types.Category{Name: "Books"})

	rec := doJSON(t, env.router, http.MethodDelete, "/categories/1", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, env.router, http.MethodGet, "/categories/", "", nil)
	categories := decodeBody[[]types.Category](t, rec)
	for _, c := range categories {
		if c.ID == created.ID {
			t.Fatalf("deleted category still listed: %+v", c)
		}
	}

	// Deleting again reports not found.
	rec = doJSON(t, env.router, http.MethodDelete, "/categories/1", adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}
