package middleware

import (
	"fmt"
	"time"

	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/util"
	"github.com/gin-gonic/gin"
)

const unmatchedRoute = "unmatched"

// EndpointCallLogger audits every request against its route template. Raw
// paths carry national IDs, so the patient a request touches goes into the
// event subject instead of the message.
func EndpointCallLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()

		event := util.SecurityEvent{
			EventType: util.EventEndpointCall,
			Subject:   recordSubject(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Message:   fmt.Sprintf("%s %s -> %d", c.Request.Method, route, status),
			Details: map[string]interface{}{
				"method":      c.Request.Method,
				"route":       route,
				"status":      status,
				"duration_ms": time.Since(start).Milliseconds(),
			},
		}
		if sess, ok := GetSession(c); ok {
			event.UserID = sess.UserID
			event.Role = string(sess.Role)
			event.Details["tab"] = string(sess.Tab)
		}
		if last := c.Errors.Last(); last != nil {
			event.Details["error"] = last.Error()
		}

		util.LogSecurityEvent(event)
	}
}

// recordSubject is the national ID named in the path, or the signed-in
// patient's own ID on patient routes.
func recordSubject(c *gin.Context) string {
	if nid := c.Param("nid"); nid != "" {
		return nid
	}
	if role, ok := GetRole(c); ok && role == model.RolePatient {
		userID, _ := GetUserID(c)
		return userID
	}
	return ""
}
