package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/University-Of-Livingstonia/ems/internal/auth"
	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/session"
)

const sessionContextKey = "ems.session"

// SessionFromContext returns the session stored by RequireLogin, or nil.
func SessionFromContext(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// RequireLogin redirects to the login page when no valid session
// accompanies the request, and otherwise stores the session in the
// request context for the page handler.
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(h.cookie.Name)
		sess, err := h.auth.CurrentUser(c.Request.Context(), token)
		if err != nil {
			h.serverError(c, err)
			return
		}
		if sess == nil || sess.UserID == 0 {
			c.Redirect(http.StatusFound, auth.LoginPath)
			c.Abort()
			return
		}
		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// RequireRole reroutes a session whose role is not permitted for the page
// to that role's own landing page.
func (h *Handler) RequireRole(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := SessionFromContext(c)
		if sess == nil {
			c.Redirect(http.StatusFound, auth.LoginPath)
			c.Abort()
			return
		}
		if !auth.RoleAllowed(sess.Role, allowed...) {
			c.Redirect(http.StatusFound, auth.LandingPath(sess.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}
