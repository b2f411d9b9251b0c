package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicops/internal/model"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "clinicops-test"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(model.Caller{ID: "d1", Name: "Dana", Role: model.RoleDirector}, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := Parse(tok.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, model.Caller{ID: "d1", Name: "Dana", Role: model.RoleDirector}, claims.Caller())
}

func TestParse_Rejects(t *testing.T) {
	tok, err := Issue(model.Caller{ID: "s1", Role: model.RoleStudent}, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	_, err = Parse(tok.AccessToken, "other-key", testIssuer)
	assert.Error(t, err)
	_, err = Parse(tok.AccessToken, testKey, "someone-else")
	assert.Error(t, err)

	expired, err := Issue(model.Caller{ID: "s1", Role: model.RoleStudent}, testIssuer, testKey, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, testKey, testIssuer)
	assert.Error(t, err)
}

func TestIssue_UnknownRole(t *testing.T) {
	_, err := Issue(model.Caller{ID: "x", Role: "client"}, testIssuer, testKey, time.Hour)
	assert.Error(t, err)
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Bearer(testKey, testIssuer), func(c *gin.Context) {
		caller, _ := CallerFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": caller.ID})
	})
	r.GET("/staff", Bearer(testKey, testIssuer), RequireRole(model.RoleDirector, model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func request(t *testing.T, r http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	r := newRouter()
	student, err := Issue(model.Caller{ID: "s1", Role: model.RoleStudent}, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	admin, err := Issue(model.Caller{ID: "a1", Role: model.RoleAdmin}, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, "/me", "garbage").Code)

	w := request(t, r, "/me", student.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"s1"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, request(t, r, "/staff", student.AccessToken).Code)
	assert.Equal(t, http.StatusNoContent, request(t, r, "/staff", admin.AccessToken).Code)
}
