package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ariebrainware/sehatec/assistant"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/repository"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/storage"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware in this package.
const (
	ServicesKey = "services"
	SessionKey  = "session"
	TokenKey    = "session_token"
	UserIDKey   = "user_id"
	RoleKey     = "role"
)

// SessionTokenHeader carries the token issued at login.
const SessionTokenHeader = "session-token"

// Services bundles what the handlers need. It is built once in main.
type Services struct {
	Storage        storage.Storage
	Patients       *repository.PatientRepository
	Accounts       *repository.AccountStore
	Sessions       *session.Store
	Conversations  *assistant.ConversationStore
	MaxUploadBytes int64
}

func setCorsHeaders(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Authorization, session-token")
	c.Writer.Header().Set("Access-Control-Max-Age", "86400")
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Content-Type", "application/json")
}

// CORSMiddleware configures CORS headers for incoming requests.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		setCorsHeaders(c)

		// For preflight requests, respond with 204 and abort further processing.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// ServiceMiddleware makes svc available to handlers through GetServices.
func ServiceMiddleware(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ServicesKey, svc)
		c.Next()
	}
}

// GetServices returns the services set by ServiceMiddleware.
func GetServices(c *gin.Context) (*Services, bool) {
	v, ok := c.Get(ServicesKey)
	if !ok {
		return nil, false
	}
	svc, ok := v.(*Services)
	return svc, ok && svc != nil
}

// sessionToken reads the token from the session-token header, or from an
// "Authorization: Bearer" header.
func sessionToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(SessionTokenHeader)); token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// RequireRole only lets requests through that carry a live session for one of
// roles. With no roles any signed-in user passes. Rejected requests get a 401
// pointing back at the sign-in view.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc, ok := GetServices(c)
		if !ok {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Services are not configured",
				Err: errors.New("services missing from context"),
			})
			c.Abort()
			return
		}

		token := sessionToken(c)
		if token == "" {
			reject(c, "", "", errors.New("session token required"))
			return
		}
		sess, err := svc.Sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			reject(c, "", "", err)
			return
		}
		if len(roles) > 0 && !roleAllowed(sess.Role, roles) {
			reject(c, sess.UserID, sess.Role, errors.New("role not allowed"))
			return
		}

		c.Set(SessionKey, sess)
		c.Set(TokenKey, token)
		c.Set(UserIDKey, sess.UserID)
		c.Set(RoleKey, sess.Role)
		c.Next()
	}
}

func roleAllowed(role model.Role, roles []model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func reject(c *gin.Context, userID string, role model.Role, err error) {
	util.LogUnauthorizedAccess(util.UnauthorizedAccessParams{
		UserID:   userID,
		Role:     string(role),
		IP:       c.ClientIP(),
		Resource: c.Request.URL.Path,
		Reason:   err.Error(),
	})
	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Please sign in to continue",
		Err: err,
	})
	c.Abort()
}

// GetSession returns the session set by RequireRole.
func GetSession(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}

// GetToken returns the raw token of the current session.
func GetToken(c *gin.Context) (string, bool) {
	return getString(c, TokenKey)
}

// GetUserID returns the signed-in user's id: an email or a national ID.
func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, UserIDKey)
}

// GetRole returns the signed-in user's role.
func GetRole(c *gin.Context) (model.Role, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok
}

func getString(c *gin.Context, key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
