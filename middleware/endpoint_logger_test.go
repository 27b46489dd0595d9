package middleware

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func captureSecurityLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := util.GetSecurityLoggerForTest()
	util.SetSecurityLoggerForTest(log.New(&buf, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix))
	t.Cleanup(func() { util.SetSecurityLoggerForTest(original) })
	return &buf
}

func TestEndpointCallLogger_BasicRequest(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil)
	req.RemoteAddr = "192.168.1.100:1234"
	req.Header.Set("User-Agent", "TestAgent/1.0")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	out := buf.String()
	assert.Contains(t, out, "Event=ENDPOINT_CALL")
	assert.Contains(t, out, "GET /test -> 200")
	assert.Contains(t, out, "192.168.1.100")
	assert.Contains(t, out, "TestAgent/1.0")
	assert.Contains(t, out, "UserID= ")
}

func TestEndpointCallLogger_WithSession(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)
	svc := newTestServices()
	token := openSession(t, svc, model.RoleDoctor, "sara@example.com")

	r := gin.New()
	r.Use(ServiceMiddleware(svc), EndpointCallLogger())
	r.GET("/doctor/dashboard", RequireRole(model.RoleDoctor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/doctor/dashboard", nil)
	req.Header.Set(SessionTokenHeader, token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "UserID=sara@example.com")
	assert.Contains(t, buf.String(), "Role=doctor")
}

func TestEndpointCallLogger_RecordSubject(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)
	svc := newTestServices()
	doctor := openSession(t, svc, model.RoleDoctor, "sara@example.com")
	patient := openSession(t, svc, model.RolePatient, "12345678901234")

	r := gin.New()
	r.Use(ServiceMiddleware(svc), EndpointCallLogger())
	r.GET("/doctor/patients/:nid", RequireRole(model.RoleDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/patient/overview", RequireRole(model.RolePatient), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/doctor/patients/55555555555555", nil)
	req.Header.Set(SessionTokenHeader, doctor)
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "Subject=55555555555555")
	assert.Contains(t, out, "GET /doctor/patients/:nid -> 200")
	assert.NotContains(t, out, "/doctor/patients/55555555555555")

	buf.Reset()
	req = httptest.NewRequest(http.MethodGet, "/patient/overview", nil)
	req.Header.Set(SessionTokenHeader, patient)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), "Subject=12345678901234")
}

func TestEndpointCallLogger_UnmatchedRoute(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/12345678901234", nil))

	assert.Contains(t, buf.String(), "GET unmatched -> 404")
	assert.NotContains(t, buf.String(), "12345678901234")
}

func TestEndpointCallLogger_ErrorStatus(t *testing.T) {
	buf := captureSecurityLog(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"data":"test"}`)))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), "POST /test -> 404")
}

func TestEndpointCallLogger_Persists(t *testing.T) {
	captureSecurityLog(t)
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:endpoint_logger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.SecurityLog{}))
	util.SetSecurityLoggerDB(db)
	t.Cleanup(func() { util.SetSecurityLoggerDB(nil) })

	r := gin.New()
	r.Use(EndpointCallLogger())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7", nil))

	var entries []model.SecurityLog
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, string(util.EventEndpointCall), entries[0].EventType)
	assert.Contains(t, string(entries[0].Details), `"route":"/items/:id"`)
}
