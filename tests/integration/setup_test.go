package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wealthmachine/internal/handlers"
	"wealthmachine/internal/ledger"
	"wealthmachine/internal/logger"
	"wealthmachine/internal/middleware"
	"wealthmachine/internal/models"
	"wealthmachine/internal/services"
	"wealthmachine/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Machine{},
		&models.MachineUser{},
		&models.Store{},
		&models.Fund{},
		&models.Wallet{},
		&models.Transaction{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	bookkeeper := ledger.New(db)
	userService := services.NewUserService(db)
	machineService := services.NewMachineService(db)
	fundService := services.NewFundService(db, machineService)
	storeService := services.NewStoreService(db, machineService, fundService)
	walletService := services.NewWalletService(db, machineService)
	transactionService := services.NewTransactionService(db, bookkeeper)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	machineHandler := handlers.NewMachineHandler(machineService)
	storeHandler := handlers.NewStoreHandler(storeService)
	fundHandler := handlers.NewFundHandler(fundService)
	walletHandler := handlers.NewWalletHandler(walletService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, machineService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	machines := protected.Group("/machines")
	machines.GET("", machineHandler.List)
	machines.POST("", machineHandler.Create)
	machines.GET("/:machineId", machineHandler.Get)
	machines.PUT("/:machineId", machineHandler.Update)
	machines.DELETE("/:machineId", machineHandler.Delete)
	machines.POST("/:machineId/stores-funds", machineHandler.SaveStoresFunds)

	stores := machines.Group("/:machineId/stores")
	stores.GET("", storeHandler.List)
	stores.POST("", storeHandler.Create)
	stores.GET("/:id", storeHandler.Get)
	stores.PUT("/:id", storeHandler.Update)
	stores.DELETE("/:id", storeHandler.Delete)
	stores.POST("/:id/funds", storeHandler.CreateFund)

	funds := machines.Group("/:machineId/funds")
	funds.GET("", fundHandler.List)
	funds.POST("", fundHandler.Create)
	funds.GET("/:id", fundHandler.Get)
	funds.PUT("/:id", fundHandler.Update)
	funds.DELETE("/:id", fundHandler.Delete)
	funds.PUT("/:id/balance", fundHandler.UpdateBalance)
	funds.GET("/:id/transactions", fundHandler.GetTransactions)

	wallets := machines.Group("/:machineId/wallets")
	wallets.GET("", walletHandler.List)
	wallets.POST("", walletHandler.Create)
	wallets.GET("/:id", walletHandler.Get)
	wallets.PUT("/:id", walletHandler.Update)
	wallets.DELETE("/:id", walletHandler.Delete)
	wallets.PUT("/:id/balance", walletHandler.UpdateBalance)
	wallets.GET("/:id/transactions", walletHandler.GetTransactions)

	transactions := machines.Group("/:machineId/transactions")
	transactions.GET("", transactionHandler.List)
	transactions.POST("", transactionHandler.Create)
	transactions.POST("/allocate", transactionHandler.Allocate)
	transactions.GET("/report", transactionHandler.Report)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string), result["refresh_token"].(string)
}

// createMachine creates a machine with a standard setup and returns its ID.
func (app *testApp) createMachine(t *testing.T, token string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/machines", `{
		"name": "Household",
		"currency": "USD",
		"un_allocated": "500",
		"stores": [
			{"name": "Income", "type": "income", "funds": [{"name": "Salary", "percent": 100}]},
			{"name": "Expenses", "type": "expense", "funds": [
				{"name": "Essentials", "percent": 60},
				{"name": "Leisure", "percent": 10}
			]},
			{"name": "Reserve", "type": "reserve", "funds": [{"name": "Emergency", "percent": 30}]}
		],
		"wallets": [{"name": "Checking", "type": "bank", "balance": "1000"}]
	}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create machine failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	machine := result["machine"].(map[string]interface{})
	return machine["id"].(string)
}
