//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gostore-shop/apiserver/config"
	"github.com/gostore-shop/apiserver/internal/db"
	"github.com/gostore-shop/apiserver/internal/server"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

// TestShopLifecycle walks the happy path across all resources: an
// admin builds the catalog, a seller lists a product, buyers review
// it, and the admin moderates a review.
func TestShopLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()

	// Admin accounts cannot be self-registered; register a buyer and
	// promote it directly in the database.
	adminEmail := fmt.Sprintf("admin_%d@example.com", suffix)
	registerAndLogin(t, baseURL, adminEmail, "buyer")
	if err := promoteUserToAdmin(adminEmail); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	adminToken := login(t, baseURL, adminEmail)

	sellerToken := registerAndLogin(t, baseURL, fmt.Sprintf("seller_%d@example.com", suffix), "seller")
	buyerToken := registerAndLogin(t, baseURL, fmt.Sprintf("buyer_%d@example.com", suffix), "buyer")
	secondBuyerToken := registerAndLogin(t, baseURL, fmt.Sprintf("buyer2_%d@example.com", suffix), "buyer")

	category := struct {
		ID int `json:"id"`
	}{}
	mustRequest(t, baseURL, http.MethodPost, "/categories/", adminToken,
		map[string]any{"name": fmt.Sprintf("Gadgets %d", suffix)}, http.StatusCreated, &category)

	product := struct {
		ID     int     `json:"id"`
		Rating float64 `json:"rating"`
	}{}
	mustRequest(t, baseURL, http.MethodPost, "/products/", sellerToken, map[string]any{
		"name":        "Solar Charger",
		"description": "Folds flat",
		"price":       49.99,
		"stock":       3,
		"category_id": category.ID,
	}, http.StatusCreated, &product)

	// A buyer cannot create categories.
	mustRequest(t, baseURL, http.MethodPost, "/categories/", buyerToken,
		map[string]any{"name": "Nope"}, http.StatusForbidden, nil)

	review := struct {
		ID int `json:"id"`
	}{}
	mustRequest(t, baseURL, http.MethodPost, "/reviews/", buyerToken,
		map[string]any{"product_id": product.ID, "grade": 5, "comment": "charges fast"}, http.StatusCreated, &review)
	mustRequest(t, baseURL, http.MethodPost, "/reviews/", secondBuyerToken,
		map[string]any{"product_id": product.ID, "grade": 2}, http.StatusCreated, nil)

	// Duplicate review by the same buyer conflicts.
	mustRequest(t, baseURL, http.MethodPost, "/reviews/", buyerToken,
		map[string]any{"product_id": product.ID, "grade": 4}, http.StatusConflict, nil)

	// Out-of-range grade is a validation failure.
	mustRequest(t, baseURL, http.MethodPost, "/reviews/", buyerToken,
		map[string]any{"product_id": product.ID, "grade": 9}, http.StatusUnprocessableEntity, nil)

	fetched := struct {
		Rating float64 `json:"rating"`
	}{}
	mustRequest(t, baseURL, http.MethodGet, fmt.Sprintf("/products/%d", product.ID), "", nil, http.StatusOK, &fetched)
	if fetched.Rating != 3.5 {
		t.Fatalf("rating = %v, want 3.5", fetched.Rating)
	}

	// Only the admin may delete reviews, and the rating follows.
	mustRequest(t, baseURL, http.MethodDelete, fmt.Sprintf("/reviews/%d", review.ID), buyerToken, nil, http.StatusForbidden, nil)
	mustRequest(t, baseURL, http.MethodDelete, fmt.Sprintf("/reviews/%d", review.ID), adminToken, nil, http.StatusOK, nil)

	mustRequest(t, baseURL, http.MethodGet, fmt.Sprintf("/products/%d", product.ID), "", nil, http.StatusOK, &fetched)
	if fetched.Rating != 2 {
		t.Fatalf("rating after moderation = %v, want 2", fetched.Rating)
	}

	// Soft-deleted products vanish from reads.
	mustRequest(t, baseURL, http.MethodDelete, fmt.Sprintf("/products/%d", product.ID), sellerToken, nil, http.StatusOK, nil)
	mustRequest(t, baseURL, http.MethodGet, fmt.Sprintf("/products/%d", product.ID), "", nil, http.StatusNotFound, nil)
}

func registerAndLogin(t *testing.T, baseURL, email, role string) string {
	t.Helper()

	mustRequest(t, baseURL, http.MethodPost, "/users/", "", map[string]string{
		"email":    email,
		"password": "testpass123!",
		"role":     role,
	}, http.StatusCreated, nil)

	return login(t, baseURL, email)
}

func login(t *testing.T, baseURL, email string) string {
	t.Helper()

	token := struct {
		AccessToken string `json:"access_token"`
	}{}
	mustRequest(t, baseURL, http.MethodPost, "/users/token", "", map[string]string{
		"email":    email,
		"password": "testpass123!",
	}, http.StatusOK, &token)

	if token.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return token.AccessToken
}

func mustRequest(t *testing.T, baseURL, method, path, token string, payload any, wantStatus int, out any) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req, err := http.NewRequest(method, baseURL+path, &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
}

// promoteUserToAdmin flips the role directly in the database. There is
// no HTTP endpoint for promotion.
func promoteUserToAdmin(email string) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := conn.Exec(`UPDATE users SET role = 'admin' WHERE email = $1`, email)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return fmt.Errorf("expected to promote 1 user, updated %d", rows)
	}
	return nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	conn, err := sql.Open("postgres", db.DSN(cfg))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, db.DSN(cfg))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "shop")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "shop_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
