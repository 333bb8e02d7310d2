package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bankportal/backend/internal/database"
	"github.com/bankportal/backend/internal/engine"
	"github.com/bankportal/backend/internal/middleware"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/services"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/bankportal/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	sessions *services.SessionService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T, eng engine.Engine) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	if err := database.Seed(db); err != nil {
		t.Fatalf("failed seeding demo data: %v", err)
	}

	pending := services.NewPendingStore()
	sessions := services.NewSessionService(db, time.Hour)
	otp := services.NewOTPIssuer("static", "832194", 5*time.Minute)
	audit := services.NewAuditService(db, nil)
	verification := services.NewVerificationService(db, pending, sessions, eng, otp, audit, nil, 20, 5*time.Second)
	chat := services.NewChatService(eng, 5*time.Second)

	authHandler := NewAuthHandler(verification)
	agentHandler := NewAgentHandler(verification, chat, nil)
	loansHandler := NewLoansHandler(db, audit)
	transfersHandler := NewTransfersHandler(db, audit)
	dashboardHandler := NewDashboardHandler(db)
	activitiesHandler := NewActivitiesHandler(db)

	authMiddleware := middleware.NewAuthMiddleware(sessions)

	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.CallerSession("bp_caller"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/verify-otp", authHandler.VerifyOTP)
	authRoutes.Post("/logout", authMiddleware.OptionalAuth, authHandler.Logout)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	agentRoutes := api.Group("/agent")
	agentRoutes.Post("/security", agentHandler.SecurityTurn)
	agentRoutes.Post("/chat", agentHandler.ChatWebhook)

	api.Get("/dashboard/stats", authMiddleware.RequireAuth, dashboardHandler.Stats)
	api.Get("/activities", authMiddleware.RequireAuth, activitiesHandler.List)

	loanRoutes := api.Group("/loans", authMiddleware.RequireAuth)
	loanRoutes.Get("/", loansHandler.ListPending)
	loanRoutes.Post("/:id/approve", loansHandler.Approve)
	loanRoutes.Post("/:id/reject", loansHandler.Reject)

	transferRoutes := api.Group("/transfers", authMiddleware.RequireAuth)
	transferRoutes.Get("/", transfersHandler.ListPending)
	transferRoutes.Post("/:id/approve", transfersHandler.Approve)
	transferRoutes.Post("/:id/reject", transfersHandler.Reject)

	return &testEnv{app: app, db: db, sessions: sessions}
}

// testClient carries the caller cookie and bearer token across requests, the
// way a browser session would.
type testClient struct {
	t       *testing.T
	env     *testEnv
	cookies []*http.Cookie
	token   string
}

func newTestClient(t *testing.T, env *testEnv) *testClient {
	return &testClient{t: t, env: env}
}

func (c *testClient) request(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()

	req, err := http.NewRequest(method, path, body)
	if err != nil {
		c.t.Fatalf("failed building request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.env.app.Test(req, -1)
	if err != nil {
		c.t.Fatalf("request failed: %v", err)
	}

	if cookies := resp.Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return resp
}

func (c *testClient) postJSON(path string, payload any) *http.Response {
	c.t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("failed marshaling payload: %v", err)
	}
	return c.request(http.MethodPost, path, bytes.NewReader(raw), "application/json")
}

func (c *testClient) postForm(path string, form string) *http.Response {
	c.t.Helper()
	return c.request(http.MethodPost, path, strings.NewReader(form), "application/x-www-form-urlencoded")
}

func (c *testClient) get(path string) *http.Response {
	c.t.Helper()
	return c.request(http.MethodGet, path, nil, "")
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return body
}

func dataObject(t *testing.T, body map[string]any) map[string]any {
	t.Helper()

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %T", body["data"])
	}
	return data
}

func seededEmployee(t *testing.T, env *testEnv) models.Employee {
	t.Helper()

	var employee models.Employee
	if err := env.db.First(&employee, "employee_id = ?", "WB001").Error; err != nil {
		t.Fatalf("failed loading seeded employee: %v", err)
	}
	return employee
}

// authenticate mints a session directly, bypassing the conversational flow,
// for tests that exercise the authenticated surface.
func authenticate(t *testing.T, env *testEnv, client *testClient) {
	t.Helper()

	employee := seededEmployee(t, env)
	token, _, err := env.sessions.Create(employee.ID)
	if err != nil {
		t.Fatalf("failed minting session: %v", err)
	}
	client.token = token
}

func waitForActivityCount(t *testing.T, db *gorm.DB, action string, expected int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		if err := db.Model(&models.Activity{}).Where("action = ?", action).Count(&count).Error; err != nil {
			t.Fatalf("failed counting activities: %v", err)
		}
		if count == expected {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d %q activities, still %d after waiting", expected, action, count)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
