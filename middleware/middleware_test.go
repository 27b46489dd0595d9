package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariebrainware/sehatec/config"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	util.SetJWTSecret("middleware-test-secret")
}

func setGinTestMode() {
	gin.SetMode(gin.TestMode)
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(func() {
		config.ResetRedisClientForTest()
	})
	return mock
}

func newTestServices() *Services {
	return &Services{Sessions: session.NewStore(time.Hour, nil)}
}

func openSession(t *testing.T, svc *Services, role model.Role, userID string) string {
	t.Helper()
	token, _, err := svc.Sessions.Open(context.Background(), role, userID, "Test User")
	require.NoError(t, err)
	return token
}

func runGuardedRequest(svc *Services, token string, guard gin.HandlerFunc, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := gin.New()
	if svc != nil {
		r.Use(ServiceMiddleware(svc))
	}
	r.GET("/test", guard, handler)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set(SessionTokenHeader, token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSetCorsHeadersDefaults(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	setCorsHeaders(c)

	assert.Equal(t, "*", c.Writer.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, c.Writer.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, c.Writer.Header().Get("Access-Control-Allow-Headers"), "session-token")
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceMiddlewareAndGetServices(t *testing.T) {
	setGinTestMode()
	svc := newTestServices()
	r := gin.New()
	r.Use(ServiceMiddleware(svc))
	r.GET("/svc", func(c *gin.Context) {
		got, ok := GetServices(c)
		if !ok || got != svc {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/svc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_MissingServices(t *testing.T) {
	setGinTestMode()
	w := runGuardedRequest(nil, "token", RequireRole(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireRole_MissingToken(t *testing.T) {
	setGinTestMode()
	w := runGuardedRequest(newTestServices(), "", RequireRole(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp util.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"redirect": "/"}, resp.Data)
}

func TestRequireRole_InvalidToken(t *testing.T) {
	setGinTestMode()
	w := runGuardedRequest(newTestServices(), "garbage", RequireRole(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	setGinTestMode()
	svc := newTestServices()
	token := openSession(t, svc, model.RolePatient, "12345678901234")

	w := runGuardedRequest(svc, token, RequireRole(model.RoleDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_SetsContext(t *testing.T) {
	setGinTestMode()
	svc := newTestServices()
	token := openSession(t, svc, model.RoleDoctor, "sara@example.com")

	w := runGuardedRequest(svc, token, RequireRole(model.RoleDoctor, model.RolePharmacist), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetRole(c)
		got, _ := GetToken(c)
		sess, ok := GetSession(c)
		if userID != "sara@example.com" || role != model.RoleDoctor || got != token || !ok || sess.Tab != model.TabDashboard {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole_BearerToken(t *testing.T) {
	setGinTestMode()
	svc := newTestServices()
	token := openSession(t, svc, model.RolePharmacist, "ph@example.com")

	r := gin.New()
	r.Use(ServiceMiddleware(svc))
	r.GET("/test", RequireRole(model.RolePharmacist), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetters_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)
	_, ok = GetRole(c)
	assert.False(t, ok)
	_, ok = GetSession(c)
	assert.False(t, ok)
	_, ok = GetServices(c)
	assert.False(t, ok)
}
