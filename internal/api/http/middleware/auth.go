package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pzerone/webvirt-wizard/internal/guard"
)

// RequireSession sends the operator to the login view unless a session is
// stored. Protected handlers never run without one.
func RequireSession(g *guard.Guard, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.CanEnter() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
