package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"perks/config"
	"perks/internal/auth"
	"perks/internal/database"
	"perks/internal/domain"
	"perks/pkg/lockstore"
	"perks/pkg/orders"
)

func newTestEngine(t *testing.T) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	cfg := config.Load()
	engine, _ := Setup(cfg, db, lockstore.NewMemoryStore(), orders.AllowAll{}, nil)
	return engine, cfg
}

func do(t *testing.T, engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad response json %q: %v", rec.Body.String(), err)
	}
	return out
}

func num(t *testing.T, m map[string]interface{}, key string) float64 {
	t.Helper()
	v, ok := m[key].(float64)
	if !ok {
		t.Fatalf("field %q missing or not a number in %v", key, m)
	}
	return v
}

func bearerFor(t *testing.T, cfg *config.Config, userID, merchantID uint, role string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(&cfg.JWT, userID, merchantID, role)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func TestLoyaltyFlowThroughRouter(t *testing.T) {
	engine, cfg := newTestEngine(t)
	adminAuth := map[string]string{"Authorization": bearerFor(t, cfg, 1, 0, domain.RoleAdmin)}

	rec := do(t, engine, http.MethodPost, "/api/v1/admin/merchants/7/program",
		`{"points_per_dollar":1,"minimum_redemption":100,"redemption_value":5}`, adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create program: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodPost, "/api/v1/admin/merchants/7/api-keys",
		`{"label":"till 1"}`, adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue key: %d %s", rec.Code, rec.Body.String())
	}
	issued := decode(t, rec)
	apiKey, _ := issued["api_key"].(string)
	if apiKey == "" {
		t.Fatal("issued key missing api_key")
	}
	keyAuth := map[string]string{"X-API-Key": apiKey}

	rec = do(t, engine, http.MethodPost, "/api/v1/merchant/points/award",
		`{"user_id":42,"amount":250}`, keyAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("award: %d %s", rec.Code, rec.Body.String())
	}
	award := decode(t, rec)
	if got := num(t, award, "points_earned"); got != 250 {
		t.Fatalf("points_earned = %v, want 250", got)
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/merchant/users/42/balance", "", keyAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("balance: %d %s", rec.Code, rec.Body.String())
	}
	balance := decode(t, rec)
	if got := num(t, balance, "current_balance"); got != 250 {
		t.Fatalf("current_balance = %v, want 250", got)
	}

	rec = do(t, engine, http.MethodPost, "/api/v1/merchant/points/validate-redemption",
		`{"user_id":42,"points":100}`, keyAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: %d %s", rec.Code, rec.Body.String())
	}
	check := decode(t, rec)
	if valid, _ := check["valid"].(bool); !valid {
		t.Fatalf("validate said invalid: %v", check)
	}

	rec = do(t, engine, http.MethodPost, "/api/v1/merchant/points/redeem",
		`{"user_id":42,"points":100}`, keyAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: %d %s", rec.Code, rec.Body.String())
	}
	redeem := decode(t, rec)
	if got := num(t, redeem, "discount_value"); got != 5 {
		t.Fatalf("discount_value = %v, want 5", got)
	}
	if got := num(t, redeem, "balance_after"); got != 150 {
		t.Fatalf("balance_after = %v, want 150", got)
	}
	redemption, _ := redeem["redemption"].(map[string]interface{})
	if redemption == nil {
		t.Fatalf("redeem response missing redemption: %v", redeem)
	}
	redemptionID := int(num(t, redemption, "id"))

	rec = do(t, engine, http.MethodPost,
		fmt.Sprintf("/api/v1/merchant/redemptions/%d/cancel", redemptionID),
		`{"reason":"order voided"}`, keyAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	cancel := decode(t, rec)
	if got := num(t, cancel, "balance_after"); got != 250 {
		t.Fatalf("balance after cancel = %v, want 250", got)
	}

	userAuth := map[string]string{"Authorization": bearerFor(t, cfg, 42, 0, domain.RoleUser)}
	rec = do(t, engine, http.MethodGet, "/api/v1/me/loyalty/7", "", userAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("my loyalty: %d %s", rec.Code, rec.Body.String())
	}
	mine := decode(t, rec)
	if got := num(t, mine, "current_balance"); got != 250 {
		t.Fatalf("user sees balance %v, want 250", got)
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/me/loyalty/7/transactions", "", userAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("my transactions: %d %s", rec.Code, rec.Body.String())
	}
	history := decode(t, rec)
	txns, _ := history["transactions"].([]interface{})
	if len(txns) != 3 {
		t.Fatalf("transaction count = %d, want 3 (earn, redeem, refund)", len(txns))
	}
}

func TestClaimFlowThroughRouter(t *testing.T) {
	engine, cfg := newTestEngine(t)
	adminAuth := map[string]string{"Authorization": bearerFor(t, cfg, 1, 0, domain.RoleAdmin)}

	rec := do(t, engine, http.MethodPost, "/api/v1/admin/venue-rewards",
		`{"merchant_id":7,"title":"Free espresso","latitude":-1.28333,"longitude":36.81667,"radius_meters":150,"cooldown_hours":24}`,
		adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reward: %d %s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)
	reward, _ := created["reward"].(map[string]interface{})
	if reward == nil {
		t.Fatalf("create response missing reward: %v", created)
	}
	rewardID := int(num(t, reward, "id"))

	userAuth := map[string]string{"Authorization": bearerFor(t, cfg, 42, 0, domain.RoleUser)}
	claimPath := fmt.Sprintf("/api/v1/me/rewards/%d/claim", rewardID)

	rec = do(t, engine, http.MethodPost, claimPath,
		`{"latitude":-1.28333,"longitude":36.81667}`, userAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim: %d %s", rec.Code, rec.Body.String())
	}
	claim := decode(t, rec)
	if claim["claim"] == nil {
		t.Fatalf("claim response missing claim row: %v", claim)
	}

	rec = do(t, engine, http.MethodPost, claimPath,
		`{"latitude":-1.28333,"longitude":36.81667}`, userAuth)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second claim = %d, want 429: %s", rec.Code, rec.Body.String())
	}
	blocked := decode(t, rec)
	if num(t, blocked, "retry_after_seconds") <= 0 {
		t.Fatalf("429 missing retry_after_seconds: %v", blocked)
	}

	rec = do(t, engine, http.MethodGet,
		fmt.Sprintf("/api/v1/me/rewards/%d/cooldown", rewardID), "", userAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("cooldown status: %d %s", rec.Code, rec.Body.String())
	}
	status := decode(t, rec)
	if active, _ := status["cooldown_active"].(bool); !active {
		t.Fatalf("cooldown should be active: %v", status)
	}

	rec = do(t, engine, http.MethodPost, claimPath,
		`{"latitude":-1.30,"longitude":36.90}`, userAuth)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("cooldown must win before geofence: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthBoundaries(t *testing.T) {
	engine, cfg := newTestEngine(t)

	rec := do(t, engine, http.MethodPost, "/api/v1/merchant/points/award",
		`{"user_id":42,"amount":10}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("award without key = %d, want 401", rec.Code)
	}

	rec = do(t, engine, http.MethodPost, "/api/v1/merchant/points/award",
		`{"user_id":42,"amount":10}`, map[string]string{"X-API-Key": "pk_deadbeef_bogus"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("award with bogus key = %d, want 401", rec.Code)
	}

	userAuth := map[string]string{"Authorization": bearerFor(t, cfg, 42, 0, domain.RoleUser)}
	rec = do(t, engine, http.MethodPost, "/api/v1/admin/venue-rewards",
		`{"merchant_id":7,"title":"x","latitude":1,"longitude":1}`, userAuth)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin route with user token = %d, want 403", rec.Code)
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/me/claims", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me route without token = %d, want 401", rec.Code)
	}
}

func TestRevokedKeyRejected(t *testing.T) {
	engine, cfg := newTestEngine(t)
	adminAuth := map[string]string{"Authorization": bearerFor(t, cfg, 1, 0, domain.RoleAdmin)}

	rec := do(t, engine, http.MethodPost, "/api/v1/admin/merchants/7/api-keys", "", adminAuth)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue key: %d %s", rec.Code, rec.Body.String())
	}
	issued := decode(t, rec)
	apiKey, _ := issued["api_key"].(string)
	credID := int(num(t, issued, "id"))
	keyAuth := map[string]string{"X-API-Key": apiKey}

	rec = do(t, engine, http.MethodGet, "/api/v1/merchant/users/1/balance", "", keyAuth)
	if rec.Code == http.StatusUnauthorized {
		t.Fatalf("fresh key rejected: %s", rec.Body.String())
	}

	rec = do(t, engine, http.MethodPost,
		fmt.Sprintf("/api/v1/admin/api-keys/%d/revoke", credID), "", adminAuth)
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, engine, http.MethodGet, "/api/v1/merchant/users/1/balance", "", keyAuth)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked key accepted: %d %s", rec.Code, rec.Body.String())
	}
}
