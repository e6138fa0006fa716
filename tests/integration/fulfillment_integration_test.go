package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/controllers"
	"github.com/premstore/premstore-api/middleware"
	"github.com/premstore/premstore-api/models"
	"github.com/premstore/premstore-api/services"
)

// FulfillmentIntegrationTestSuite exercises the full storefront flow: admin
// stocks the shop, a buyer checks out, the payment gateway calls back and the
// order gets fulfilled over WhatsApp.
type FulfillmentIntegrationTestSuite struct {
	suite.Suite
	router *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	mockWA *services.MockWhatsAppService
}

// SetupSuite runs once before all tests
func (suite *FulfillmentIntegrationTestSuite) SetupSuite() {
	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Set test environment variables
	os.Setenv("GO_ENV", "test")
	os.Setenv("DATABASE_URL", "sqlite://:memory:")
	os.Setenv("PORT", "8080")
	os.Setenv("APP_BASE_URL", "https://premstore.example")
	os.Setenv("JWT_SECRET", "integration-test-secret")
	os.Setenv("PAYMENT_BASE_URL", "https://gateway.example")
	os.Setenv("PAYMENT_PROJECT", "premstore")
	os.Setenv("PAYMENT_API_KEY", "test-api-key")
	os.Setenv("WHATSAPP_API_KEY", "test-wa-key")
	// Mock AWS S3 credentials for testing
	os.Setenv("AWS_REGION", "ap-southeast-1")
	os.Setenv("AWS_S3_BUCKET", "test-bucket")
	os.Setenv("AWS_ACCESS_KEY_ID", "test-key")
	os.Setenv("AWS_SECRET_ACCESS_KEY", "test-secret")

	// Load configuration
	cfg, err := config.Load()
	suite.NoError(err)
	suite.cfg = cfg
}

// SetupTest runs before each test
func (suite *FulfillmentIntegrationTestSuite) SetupTest() {
	// Create in-memory database for testing
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.NoError(err)
	suite.db = db

	// Auto-migrate models
	err = db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.AccountStock{},
		&models.WhatsAppLog{},
		&models.AdminUser{},
	)
	suite.NoError(err)

	// Set the database in config
	config.SetDB(db)

	// Initialize mock external services
	suite.mockWA = services.NewMockWhatsAppService()
	suite.mockWA.SetAsMockForTesting()

	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()

	services.InitPaymentService(suite.cfg)

	// Seed the admin account
	admin := models.AdminUser{Username: "admin"}
	suite.NoError(admin.SetPassword("rahasia-123"))
	suite.NoError(db.Create(&admin).Error)

	// Wire the real route surface
	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	{
		v1.GET("/products", controllers.ListProducts)
		v1.POST("/orders", controllers.CreateOrder)
		v1.GET("/orders/:id", controllers.GetOrder)

		v1.POST("/webhooks/payment", controllers.PaymentWebhook)
		v1.POST("/webhooks/payment/v2", controllers.PaymentWebhookV2)

		v1.POST("/auth/login", controllers.Login)

		adminGroup := v1.Group("/admin", middleware.RequireAdmin(suite.cfg))
		{
			adminGroup.GET("/orders", controllers.ListOrders)
			adminGroup.POST("/orders/mark-paid", controllers.MarkPaid)
			adminGroup.POST("/products", controllers.CreateProduct)
			adminGroup.POST("/stock", controllers.AddStock)
			adminGroup.GET("/stock/count", controllers.StockCount)
		}
	}
}

// TearDownTest runs after each test
func (suite *FulfillmentIntegrationTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (suite *FulfillmentIntegrationTestSuite) postJSON(path string, body map[string]interface{}, token string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

// login authenticates the seeded admin and returns the session token
func (suite *FulfillmentIntegrationTestSuite) login() string {
	w := suite.postJSON("/api/v1/auth/login", map[string]interface{}{
		"username": "admin",
		"password": "rahasia-123",
	}, "")
	suite.Equal(http.StatusOK, w.Code)

	var response map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response["token"].(string)
}

// TestCheckoutToDeliveryWorkflow walks the whole shop lifecycle: admin stocks
// accounts and publishes a product, a buyer places an order, the gateway
// confirms payment and the buyer receives credentials on WhatsApp.
func (suite *FulfillmentIntegrationTestSuite) TestCheckoutToDeliveryWorkflow() {
	token := suite.login()

	// Step 1: Admin loads account stock
	w := suite.postJSON("/api/v1/admin/stock", map[string]interface{}{
		"accounts": []map[string]interface{}{
			{"username": "fresh1@gmail.com", "password": "pw-1"},
			{"username": "fresh2@gmail.com", "password": "pw-2"},
			{"username": "fresh3@gmail.com", "password": "pw-3"},
		},
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	// Step 2: Admin publishes a product worth two accounts per purchase
	w = suite.postJSON("/api/v1/admin/products", map[string]interface{}{
		"name":         "Gmail Fresh 2 Akun",
		"price":        10000,
		"unit_count":   2,
		"product_type": "gmail",
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var productResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &productResponse))
	productID := productResponse["data"].(map[string]interface{})["id"].(float64)

	// Step 3: Buyer checks out from the storefront
	w = suite.postJSON("/api/v1/orders", map[string]interface{}{
		"buyerEmail": "buyer@example.com",
		"buyerPhone": "08123456789",
		"items": []map[string]interface{}{
			{"productId": productID, "quantity": 1},
		},
	}, "")
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var orderResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &orderResponse))
	orderID := orderResponse["orderId"].(string)
	assert.Equal(suite.T(), float64(2), orderResponse["totalUnits"])
	assert.Contains(suite.T(), orderResponse["paymentUrl"],
		"https://gateway.example/pay/premstore/10000")

	// Step 4: Gateway confirms payment on the v2 webhook
	w = suite.postJSON("/api/v1/webhooks/payment/v2", map[string]interface{}{
		"order_id":       orderID,
		"project":        "premstore",
		"status":         "completed",
		"amount":         10000,
		"payment_method": "qris",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var webhookResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &webhookResponse))
	assert.True(suite.T(), webhookResponse["ok"].(bool))

	// Step 5: Order reached its terminal state with the payment method stamped
	var order models.Order
	suite.db.First(&order, "id = ?", orderID)
	assert.Equal(suite.T(), models.OrderStatusCompleted, order.Status)
	assert.NotNil(suite.T(), order.PaymentReference)
	assert.Equal(suite.T(), "qris", *order.PaymentReference)

	// Step 6: Buyer received exactly one message carrying both credentials
	messages := suite.mockWA.SentMessages()
	assert.Len(suite.T(), messages, 1)
	assert.Equal(suite.T(), "628123456789", messages[0].Target)
	assert.Contains(suite.T(), messages[0].Message, "fresh1@gmail.com | pw-1")
	assert.Contains(suite.T(), messages[0].Message, "fresh2@gmail.com | pw-2")

	// Step 7: Stock ledger reflects the consumption
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stock/count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	countW := httptest.NewRecorder()
	suite.router.ServeHTTP(countW, req)
	assert.Equal(suite.T(), http.StatusOK, countW.Code)

	var countResponse map[string]interface{}
	suite.NoError(json.Unmarshal(countW.Body.Bytes(), &countResponse))
	assert.Equal(suite.T(), float64(1), countResponse["available"])
	assert.Equal(suite.T(), float64(3), countResponse["total"])

	// Step 8: A delayed retry of the same callback changes nothing
	w = suite.postJSON("/api/v1/webhooks/payment/v2", map[string]interface{}{
		"order_id":       orderID,
		"project":        "premstore",
		"status":         "completed",
		"amount":         10000,
		"payment_method": "qris",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.mockWA.SentMessages(), 1)

	var used int64
	suite.db.Model(&models.AccountStock{}).Where("is_used = ?", true).Count(&used)
	assert.Equal(suite.T(), int64(2), used)
}

// TestLegacyWebhookWorkflow covers the older gateway callback shape end to end
func (suite *FulfillmentIntegrationTestSuite) TestLegacyWebhookWorkflow() {
	token := suite.login()

	w := suite.postJSON("/api/v1/admin/stock", map[string]interface{}{
		"username": "solo@gmail.com",
		"password": "pw-solo",
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.postJSON("/api/v1/admin/products", map[string]interface{}{
		"name":         "Gmail Fresh",
		"price":        5000,
		"unit_count":   1,
		"product_type": "gmail",
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var productResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &productResponse))
	productID := productResponse["data"].(map[string]interface{})["id"].(float64)

	w = suite.postJSON("/api/v1/orders", map[string]interface{}{
		"buyerEmail": "buyer@example.com",
		"buyerPhone": "+628999888777",
		"items": []map[string]interface{}{
			{"productId": productID, "quantity": 1},
		},
	}, "")
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var orderResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &orderResponse))
	orderID := orderResponse["orderId"].(string)

	// A pending-ish status is acknowledged without touching the order
	w = suite.postJSON("/api/v1/webhooks/payment", map[string]interface{}{
		"order_id": orderID,
		"status":   "pending",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.mockWA.SentMessages(), 0)

	var order models.Order
	suite.db.First(&order, "id = ?", orderID)
	assert.Equal(suite.T(), models.OrderStatusPending, order.Status)

	// The PAID spelling is part of the allow-set
	w = suite.postJSON("/api/v1/webhooks/payment", map[string]interface{}{
		"order_id": orderID,
		"status":   "PAID",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	suite.db.First(&order, "id = ?", orderID)
	assert.Equal(suite.T(), models.OrderStatusCompleted, order.Status)

	messages := suite.mockWA.SentMessages()
	assert.Len(suite.T(), messages, 1)
	assert.Equal(suite.T(), "628999888777", messages[0].Target)
	assert.Contains(suite.T(), messages[0].Message, "solo@gmail.com | pw-solo")
}

// TestStockShortageCancelsOrder verifies the sell-out race outcome: payment
// arrives after the last accounts went to someone else, so the order is
// cancelled and the buyer is told instead of getting a broken delivery.
func (suite *FulfillmentIntegrationTestSuite) TestStockShortageCancelsOrder() {
	token := suite.login()

	w := suite.postJSON("/api/v1/admin/stock", map[string]interface{}{
		"accounts": []map[string]interface{}{
			{"username": "a@gmail.com", "password": "pw-a"},
			{"username": "b@gmail.com", "password": "pw-b"},
		},
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	w = suite.postJSON("/api/v1/admin/products", map[string]interface{}{
		"name":         "Gmail Fresh 2 Akun",
		"price":        10000,
		"unit_count":   2,
		"product_type": "gmail",
	}, token)
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var productResponse map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &productResponse))
	productID := productResponse["data"].(map[string]interface{})["id"].(float64)

	// Both buyers pass checkout admission while stock still looks fine
	placeOrder := func(phone string) string {
		w := suite.postJSON("/api/v1/orders", map[string]interface{}{
			"buyerEmail": "buyer@example.com",
			"buyerPhone": phone,
			"items": []map[string]interface{}{
				{"productId": productID, "quantity": 1},
			},
		}, "")
		assert.Equal(suite.T(), http.StatusCreated, w.Code)

		var response map[string]interface{}
		suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
		return response["orderId"].(string)
	}
	firstOrderID := placeOrder("08111111111")
	secondOrderID := placeOrder("08222222222")

	// First payment wins the remaining stock
	w = suite.postJSON("/api/v1/webhooks/payment/v2", map[string]interface{}{
		"order_id": firstOrderID,
		"project":  "premstore",
		"status":   "completed",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	// Second payment finds nothing left; the gateway still gets a 200 so it
	// stops retrying a terminal order
	w = suite.postJSON("/api/v1/webhooks/payment/v2", map[string]interface{}{
		"order_id": secondOrderID,
		"project":  "premstore",
		"status":   "completed",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var first, second models.Order
	suite.db.First(&first, "id = ?", firstOrderID)
	suite.db.First(&second, "id = ?", secondOrderID)
	assert.Equal(suite.T(), models.OrderStatusCompleted, first.Status)
	assert.Equal(suite.T(), models.OrderStatusCancelled, second.Status)

	// Winner got credentials, loser got the apology
	messages := suite.mockWA.SentMessages()
	assert.Len(suite.T(), messages, 2)
	assert.Equal(suite.T(), "628111111111", messages[0].Target)
	assert.Contains(suite.T(), messages[0].Message, "a@gmail.com | pw-a")
	assert.Equal(suite.T(), "628222222222", messages[1].Target)
	assert.Contains(suite.T(), messages[1].Message, "stok")
}

// TestWebhookRejectsForeignProject verifies the project guard on the v2 callback
func (suite *FulfillmentIntegrationTestSuite) TestWebhookRejectsForeignProject() {
	w := suite.postJSON("/api/v1/webhooks/payment/v2", map[string]interface{}{
		"order_id": "whatever",
		"project":  "someone-elses-shop",
		"status":   "completed",
	}, "")
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	var response map[string]interface{}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(suite.T(), response["ok"].(bool))
}

// TestAdminSurfaceRequiresToken verifies the admin group is closed without a session
func (suite *FulfillmentIntegrationTestSuite) TestAdminSurfaceRequiresToken() {
	w := suite.postJSON("/api/v1/admin/stock", map[string]interface{}{
		"username": "fresh@gmail.com",
		"password": "pw",
	}, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	recorder := httptest.NewRecorder()
	suite.router.ServeHTTP(recorder, req)
	assert.Equal(suite.T(), http.StatusUnauthorized, recorder.Code)
}

// TestFulfillmentIntegrationSuite runs the test suite
func TestFulfillmentIntegrationSuite(t *testing.T) {
	suite.Run(t, new(FulfillmentIntegrationTestSuite))
}
