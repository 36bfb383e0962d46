package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"flowershop/internal/apperr"
)

const (
	sessionName    = "fs_session"
	sessionAdminID = "admin_id"
	ctxAdminID     = "currentAdminID"
)

// RequestLogger пишет одну строку на запрос
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

// HandlePanics — ответ на панику в том же формате, что и остальные ошибки
func HandlePanics() gin.RecoveryFunc {
	return func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}
		writeError(c, apperr.Internal(err, "unexpected error"))
	}
}

// sessionAdmin — id админа из сессии
func sessionAdmin(c *gin.Context) (uint, bool) {
	id, ok := sessions.Default(c).Get(sessionAdminID).(uint)
	return id, ok && id != 0
}

// requireAdmin пускает дальше только залогиненного админа
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionAdmin(c)
		if !ok {
			writeError(c, apperr.Unauthorized("Authentication required"))
			return
		}
		c.Set(ctxAdminID, id)
		c.Next()
	}
}

func noop(c *gin.Context) { c.Next() }
