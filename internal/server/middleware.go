package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thywilljoshua/scholar-refine/internal/session"
)

const (
	sessionCookie = "scholarrefine_session"
	sessionKey    = "session"
)

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// sessionMiddleware attaches the caller's session, creating one when the
// cookie is missing or refers to an expired session.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session.Session
		if id, err := c.Cookie(sessionCookie); err == nil {
			sess, _ = s.store.Get(id)
		}
		if sess == nil {
			sess = s.store.Create()
			s.log.Debug("session created", "session", sess.ID())
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}
