//nolint:noctx // Test file uses http.NewRequest for simplicity
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/mystery-box/internal/api/admin"
	"github.com/aimd54/mystery-box/internal/api/dashboard"
	"github.com/aimd54/mystery-box/internal/api/webhook"
	"github.com/aimd54/mystery-box/internal/auth"
	"github.com/aimd54/mystery-box/internal/catalog"
	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/allocation"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/internal/service/payments"
	"github.com/aimd54/mystery-box/pkg/logger"
	"github.com/aimd54/mystery-box/test/mocks"
)

const (
	testSecret    = "test-jwt-secret"
	testSignature = "t=1,v1=valid"
)

var (
	adminIdentity = auth.Identity{UserID: "admin_1", Email: "admin@example.com", Name: "Admin"}
	userIdentity  = auth.Identity{UserID: "user_1", Email: "ash@example.com", Name: "Ash"}
)

type testEnv struct {
	router   *gin.Engine
	verifier *auth.TokenVerifier
	claims   *repository.ClaimRepository
	notifier *mocks.MockNotifier
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := mocks.NewTestDB(t)
	log := logger.NewNop()

	claimRepo := repository.NewClaimRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	notifier := mocks.NewMockNotifier()

	engine := allocation.NewEngine(catalog.Default(), allocation.DefaultWeightConstant, repository.NewPrizeTypeRepository(db))
	claimService := claims.NewService(claimRepo, userRepo, paymentRepo, notificationRepo, engine, notifier, log)
	paymentService := payments.NewServiceWithInterfaces(mocks.NewMockGateway(testSignature), paymentRepo, userRepo, claimService, log)

	verifier := auth.NewTokenVerifier(testSecret, "")
	router := NewRouter(RouterConfig{
		Admin:     admin.NewHandler(claimService, notificationRepo, log),
		Dashboard: dashboard.NewHandler(paymentService, claimService, log),
		Webhook:   webhook.NewHandler(paymentService, log),
		Verifier:  verifier,
		Users:     userRepo,
		Gate: auth.NewGate(config.AuthConfig{
			EnableAccessControl: true,
			AuthorizedEmail:     adminIdentity.Email,
		}),
		Database: db,
		Log:      log,
	})

	return &testEnv{router: router, verifier: verifier, claims: claimRepo, notifier: notifier}
}

func (e *testEnv) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, err := e.verifier.Sign(id, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, id *auth.Identity, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, *id))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) webhook(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, signature)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := setupRouter(t)

	for _, path := range []string{"/payments", "/boxes", "/admin/pending-users"} {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, path, nil, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthorized", decode(t, w)["code"])
		})
	}

	t.Run("forged token", func(t *testing.T) {
		forged, err := auth.NewTokenVerifier("another-secret", "").Sign(adminIdentity, time.Hour)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, "/admin/pending-users", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+forged)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("session cookie", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, "/boxes", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "session", Value: env.token(t, userIdentity)})
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminEndpointsDenyNonAdmins(t *testing.T) {
	env := setupRouter(t)

	endpoints := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/admin/prize-claims", nil},
		{http.MethodGet, "/admin/prize-claims?format=boxes", nil},
		{http.MethodPost, "/admin/open-prize", map[string]string{"claimId": "x"}},
		{http.MethodPost, "/admin/manual-open-prize", map[string]string{"userEmail": "ash@example.com"}},
		{http.MethodPost, "/admin/direct-box-opening", map[string]any{"boxNumber": 1, "prizeName": "Random Pack"}},
		{http.MethodPost, "/admin/mark-delivered", map[string]string{"claimId": "x"}},
		{http.MethodPost, "/admin/cancel-claim", map[string]string{"claimId": "x"}},
		{http.MethodGet, "/admin/pending-users", nil},
		{http.MethodGet, "/admin/notifications", nil},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := env.do(t, ep.method, ep.path, &userIdentity, ep.body)

			assert.Equal(t, http.StatusForbidden, w.Code)
			body := decode(t, w)
			assert.Equal(t, "Access denied", body["error"])
			assert.Equal(t, "forbidden", body["code"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}

	claims, err := env.claims.ListByStatus()
	require.NoError(t, err)
	assert.Empty(t, claims, "denied requests must not mutate anything")
	assert.Empty(t, env.notifier.Messages())
}

func TestPaymentToDeliveryFlow(t *testing.T) {
	env := setupRouter(t)

	// The user signs in once so their row exists, then pays.
	w := env.do(t, http.MethodPost, "/create-checkout-session", &userIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cs_mock_1", decode(t, w)["sessionId"])

	w = env.webhook(t, mocks.CompletedCheckoutPayload("cs_mock_1", userIdentity.UserID, models.PaymentStatusPaid, 500), testSignature)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payments.ResultProcessed, decode(t, w)["result"])

	w = env.do(t, http.MethodGet, "/payments", &userIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["payments"], 1)

	w = env.do(t, http.MethodGet, "/admin/pending-users", &adminIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	pending := body["pendingUsers"].([]any)[0].(map[string]any)
	assert.Equal(t, userIdentity.Email, pending["email"])
	claimID := pending["claimId"].(string)

	// Delivering before opening is a conflict and changes nothing.
	w = env.do(t, http.MethodPost, "/admin/mark-delivered", &adminIdentity, map[string]string{"claimId": claimID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["code"])

	w = env.do(t, http.MethodPost, "/admin/open-prize", &adminIdentity, map[string]string{"claimId": claimID})
	require.Equal(t, http.StatusOK, w.Code)
	opened := decode(t, w)["prizeClaim"].(map[string]any)
	assert.Equal(t, string(models.ClaimStatusOpened), opened["status"])
	assert.NotEmpty(t, opened["prizeName"])
	assert.Equal(t, adminIdentity.Email, opened["openedBy"])

	w = env.do(t, http.MethodPost, "/admin/open-prize", &adminIdentity, map[string]string{"claimId": claimID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/admin/mark-delivered", &adminIdentity, map[string]string{"claimId": claimID})
	require.Equal(t, http.StatusOK, w.Code)
	delivered := decode(t, w)["prizeClaim"].(map[string]any)
	assert.Equal(t, string(models.ClaimStatusDelivered), delivered["status"])
	assert.NotNil(t, delivered["deliveredAt"])

	w = env.do(t, http.MethodGet, "/admin/prize-claims?filter=delivered", &adminIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = env.do(t, http.MethodGet, "/admin/notifications", &adminIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	assert.Equal(t, []string{
		models.NotificationNewPayment,
		models.NotificationPrizeOpened,
		models.NotificationPrizeDelivered,
	}, env.notifier.Types())
}

func TestDirectOpeningAppearsOnBoards(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodPost, "/admin/direct-box-opening", &adminIdentity, map[string]any{
		"boxNumber": 42,
		"prizeName": "151 ETB",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Direct box opening tracked: Box #42 - 151 ETB", decode(t, w)["message"])

	w = env.do(t, http.MethodPost, "/admin/direct-box-opening", &adminIdentity, map[string]any{
		"boxNumber": 42,
		"prizeName": "Random Pack",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", decode(t, w)["code"])

	w = env.do(t, http.MethodGet, "/admin/prize-claims?format=boxes", &adminIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["totalOpened"])
	box := body["openedBoxes"].(map[string]any)["42"].(map[string]any)
	assert.Equal(t, "151 ETB", box["prize"])
	assert.Equal(t, true, box["opened"])

	w = env.do(t, http.MethodGet, "/boxes", &userIdentity, nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)
	assert.Equal(t, float64(1000), board["total"])
	assert.Equal(t, float64(1), board["opened"])
	slot := board["boxes"].([]any)[41].(map[string]any)
	assert.Equal(t, float64(42), slot["number"])
	assert.Equal(t, "151 ETB", slot["prize"])
}

func TestValidationErrors(t *testing.T) {
	env := setupRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"unknown filter", http.MethodGet, "/admin/prize-claims?filter=lost", nil, http.StatusBadRequest, "validation_error"},
		{"missing claim id", http.MethodPost, "/admin/open-prize", map[string]string{}, http.StatusBadRequest, "validation_error"},
		{"unknown claim", http.MethodPost, "/admin/open-prize", map[string]string{"claimId": "nope"}, http.StatusNotFound, "not_found"},
		{"manual without target", http.MethodPost, "/admin/manual-open-prize", map[string]string{"prizeName": "Random Pack"}, http.StatusBadRequest, "validation_error"},
		{"manual unknown user", http.MethodPost, "/admin/manual-open-prize", map[string]string{"userEmail": "ghost@example.com"}, http.StatusNotFound, "not_found"},
		{"direct without prize", http.MethodPost, "/admin/direct-box-opening", map[string]any{"boxNumber": 3}, http.StatusBadRequest, "validation_error"},
		{"direct out of range", http.MethodPost, "/admin/direct-box-opening", map[string]any{"boxNumber": 1001, "prizeName": "Random Pack"}, http.StatusBadRequest, "validation_error"},
		{"bad limit", http.MethodGet, "/admin/notifications?limit=0", nil, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, &adminIdentity, tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, decode(t, w)["code"])
		})
	}
}

func TestWebhookSignature(t *testing.T) {
	env := setupRouter(t)

	w := env.webhook(t, mocks.CompletedCheckoutPayload("cs_1", "user_1", models.PaymentStatusPaid, 500), "t=1,v1=forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	pending, err := env.claims.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}
