package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/controllers"
	"github.com/HSouheill/affiliate_backend/middleware"
	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/services"
	"github.com/HSouheill/affiliate_backend/websocket"
)

const testSecret = "routes-test-secret"

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

type apiResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	ledger := repositories.NewMemoryLedger()
	notifier := services.NewNotificationService(repositories.NewMemoryNotificationStore(), ledger, nil)
	hub := websocket.NewHub(func(token string) (string, error) {
		claims, err := middleware.ParseToken(testSecret, token)
		if err != nil {
			return "", err
		}
		return claims.Subject(), nil
	}, notifier)
	notifier.SetDispatcher(hub)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	engine := services.NewQualificationService(ledger, services.DefaultTierTable(), notifier, nil, nil)
	marketers := services.NewMarketerService(ledger)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	RegisterOpsRoutes(e, "memory")
	RegisterSalesRoutes(e, testSecret, controllers.NewSalesController(engine))
	RegisterNotificationRoutes(e, testSecret, controllers.NewNotificationController(notifier, marketers), hub)
	RegisterAdminRoutes(e, testSecret, controllers.NewAdminController(notifier, marketers))
	return e
}

func token(t *testing.T, userID, userType string) string {
	t.Helper()
	tok, err := middleware.GenerateJWT(testSecret, userID, "", userType, time.Hour)
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, e *echo.Echo, method, path, tok, body string, header ...string) (int, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	if resp.Data == nil {
		resp.Data = rec.Body.Bytes()
	}
	return rec.Code, resp
}

func TestSaleToAdminQualificationFlow(t *testing.T) {
	e := newServer(t)
	admin := token(t, "", middleware.UserTypeAdmin)
	checkout := token(t, "checkout", middleware.UserTypeService)

	code, resp := call(t, e, http.MethodPost, "/api/admin/marketers", admin, `{"name":"Ada Obi","email":"ADA@example.com"}`)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var marketer models.Marketer
	require.NoError(t, json.Unmarshal(resp.Data, &marketer))
	assert.Regexp(t, `^MKT-[A-Z2-7]{6}$`, marketer.ReferralCode)
	assert.Equal(t, 1, marketer.Level)

	sale := `{"referralCode":"` + strings.ToLower(marketer.ReferralCode) + `","amount":5000000,"productId":"p1","customerId":"c1"}`
	code, _ = call(t, e, http.MethodPost, "/api/sales", checkout, sale, controllers.IdempotencyKeyHeader, "order-1")
	require.Equal(t, http.StatusOK, code)

	// retried delivery with the same key is answered from the first result
	code, _ = call(t, e, http.MethodPost, "/api/sales", checkout, sale, controllers.IdempotencyKeyHeader, "order-1")
	require.Equal(t, http.StatusOK, code)

	code, resp = call(t, e, http.MethodGet, "/api/admin/notifications?status=unread", admin, "")
	require.Equal(t, http.StatusOK, code)
	var overview struct {
		Notifications []models.Notification     `json:"notifications"`
		Counts        models.NotificationCounts `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &overview))
	require.Len(t, overview.Notifications, 1)
	assert.Equal(t, models.NotificationTypePaymentQualification, overview.Notifications[0].Type)
	assert.Equal(t, marketer.ID.Hex(), overview.Notifications[0].Payload["marketer_id"])
	assert.EqualValues(t, 1, overview.Counts.PaymentQualification)
	assert.EqualValues(t, 1, overview.Counts.Unread)

	own := token(t, marketer.ID.Hex(), middleware.UserTypeMarketer)
	code, resp = call(t, e, http.MethodGet, "/api/notifications", own, "")
	require.Equal(t, http.StatusOK, code)
	var page models.NotificationPage
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.NotificationTypeSaleRecorded, page.Items[0].Type)

	code, _ = call(t, e, http.MethodPut, "/api/notifications/"+page.Items[0].ID.Hex()+"/read", own, "")
	assert.Equal(t, http.StatusOK, code)
	code, resp = call(t, e, http.MethodGet, "/api/notifications?status=unread", own, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Empty(t, page.Items)

	code, resp = call(t, e, http.MethodGet, "/api/sales?marketerId=ignored", own, "")
	require.Equal(t, http.StatusOK, code)
	var sales []models.Sale
	require.NoError(t, json.Unmarshal(resp.Data, &sales))
	assert.Len(t, sales, 1)
}

func TestSaleErrors(t *testing.T) {
	e := newServer(t)
	checkout := token(t, "checkout", middleware.UserTypeService)

	code, resp := call(t, e, http.MethodPost, "/api/sales", checkout, `{"referralCode":"MKT-NOPE22","amount":10,"productId":"p","customerId":"c"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Message, "unknown referral code")

	code, _ = call(t, e, http.MethodPost, "/api/sales", checkout, `{"referralCode":"MKT-NOPE22","amount":-1,"productId":"p","customerId":"c"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodPost, "/api/sales", checkout, `{"referralCode":"MKT-NOPE22","amount":1.005,"productId":"p","customerId":"c"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodPost, "/api/sales", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	marketer := token(t, "64b7f0f0f0f0f0f0f0f0f0f0", middleware.UserTypeMarketer)
	code, _ = call(t, e, http.MethodPost, "/api/sales", marketer, `{}`)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, e, http.MethodGet, "/api/admin/notifications", marketer, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNotificationErrors(t *testing.T) {
	e := newServer(t)
	admin := token(t, "", middleware.UserTypeAdmin)

	code, _ := call(t, e, http.MethodGet, "/api/notifications?cursor=!!!", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodGet, "/api/notifications?limit=0", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodPut, "/api/notifications/not-an-id/read", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodDelete, "/api/notifications/64b7f0f0f0f0f0f0f0f0f0f0", admin, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, e, http.MethodGet, "/api/admin/notifications?status=bogus", admin, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, e, http.MethodPost, "/api/notifications/fcm-token", admin, `{"fcmToken":"abc"}`)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestOpsRoutes(t *testing.T) {
	e := newServer(t)

	code, resp := call(t, e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(resp.Data), `"store":"memory"`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
