package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateJWT("s3cret", "64b7f0f0f0f0f0f0f0f0f0f0", "m@example.com", UserTypeMarketer, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0f0f0f0f0f0f0f0f0f0", claims.Subject())

	_, err = ParseToken("other", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = ParseToken("s3cret", "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	admin, err := GenerateJWT("s3cret", "", "", UserTypeAdmin, 0)
	require.NoError(t, err)
	claims, err = ParseToken("s3cret", admin)
	require.NoError(t, err)
	assert.Equal(t, models.AdminSubject, claims.Subject())
}

func TestExpiredToken(t *testing.T) {
	claims := JwtCustomClaims{UserID: "u", UserType: UserTypeMarketer}
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	assert.Error(t, claims.Valid())

	assert.Error(t, JwtCustomClaims{UserType: UserTypeMarketer}.Valid(), "marketer without id")
}

func TestJWTMiddlewareSetsSubject(t *testing.T) {
	tok, err := GenerateJWT("s3cret", "64b7f0f0f0f0f0f0f0f0f0f0", "", UserTypeMarketer, time.Hour)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, GetSubjectID(c)+"|"+ExtractUserType(c))
	}, JWTMiddleware("s3cret"))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "64b7f0f0f0f0f0f0f0f0f0f0|marketer", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not.a.token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireUserType(t *testing.T) {
	e := echo.New()
	guard := RequireUserType(UserTypeAdmin)
	handler := guard(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for userType, want := range map[string]int{
		"":               http.StatusUnauthorized,
		UserTypeMarketer: http.StatusForbidden,
		UserTypeAdmin:    http.StatusNoContent,
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if userType != "" {
			c.Set("userType", userType)
		}
		require.NoError(t, handler(c))
		assert.Equal(t, want, rec.Code, userType)
	}
}
