package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/University-Of-Livingstonia/ems/internal/auth"
)

const flashCookie = "ems_flash"

// setFlash stores a one-shot message surfaced on the next login page
// render and cleared immediately after.
func (h *Handler) setFlash(c *gin.Context, message string) {
	c.SetCookie(flashCookie, message, 60, "/", "", h.cookie.Secure, true)
}

func (h *Handler) takeFlash(c *gin.Context) string {
	message, err := c.Cookie(flashCookie)
	if err != nil || message == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", h.cookie.Secure, true)
	return message
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, remember bool) {
	maxAge := 0 // browser-session cookie
	if remember {
		maxAge = h.cookie.RememberMaxAge
	}
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

func (h *Handler) showLogin(c *gin.Context) {
	// already logged in: straight to the landing page
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		if sess, err := h.auth.CurrentUser(c.Request.Context(), token); err == nil && sess != nil {
			c.Redirect(http.StatusFound, auth.LandingPath(sess.Role))
			return
		}
	}

	flash := h.takeFlash(c)
	if flash == "" && c.Query("registered") == "1" {
		flash = "Registration successful. You can log in now."
	}
	if flash == "" && c.Query("reset") == "1" {
		flash = "Password updated. You can log in now."
	}
	c.HTML(http.StatusOK, "login.tmpl", gin.H{"Flash": flash})
}

func (h *Handler) postLogin(c *gin.Context) {
	if c.PostForm("login") == "" {
		c.HTML(http.StatusBadRequest, "login.tmpl", gin.H{"Error": "Invalid form submission."})
		return
	}

	identifier := c.PostForm("identifier")
	password := c.PostForm("password")
	remember := c.PostForm("remember") != ""

	_, sess, err := h.auth.Login(c.Request.Context(), identifier, password, remember, h.client(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountInactive) {
			c.HTML(http.StatusUnauthorized, "login.tmpl", gin.H{
				"Error":      err.Error(),
				"Identifier": identifier,
			})
			return
		}
		h.serverError(c, err)
		return
	}

	h.setSessionCookie(c, sess.Token, remember)
	c.Redirect(http.StatusFound, auth.LandingPath(sess.Role))
}

func (h *Handler) showRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", gin.H{})
}

func (h *Handler) postRegister(c *gin.Context) {
	if c.PostForm("register") == "" {
		c.HTML(http.StatusBadRequest, "register.tmpl", gin.H{"Errors": []string{"Invalid form submission."}})
		return
	}

	form := auth.RegisterForm{
		Username:        c.PostForm("username"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
		FirstName:       c.PostForm("first_name"),
		LastName:        c.PostForm("last_name"),
		Department:      c.PostForm("department"),
		Phone:           c.PostForm("phone"),
		Role:            c.PostForm("role"),
		TermsAccepted:   c.PostForm("terms") != "",
	}

	if _, err := h.auth.Register(c.Request.Context(), form); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			c.HTML(http.StatusUnprocessableEntity, "register.tmpl", gin.H{
				"Errors": verr.Violations,
				"Form":   form,
			})
			return
		}
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, auth.LoginPath+"?registered=1")
}

func (h *Handler) logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	if err := h.auth.Logout(c.Request.Context(), token, h.client(c)); err != nil {
		// teardown failed server-side; the cookie still gets cleared
		h.log.Warnf("logout: %v", err)
	}
	h.clearSessionCookie(c)
	h.setFlash(c, "You have been logged out.")

	if c.Query("now") == "1" {
		c.Redirect(http.StatusFound, auth.LoginPath)
		return
	}
	// brief confirmation, then the page sends the browser to /login
	c.HTML(http.StatusOK, "logout.tmpl", gin.H{"RedirectTo": auth.LoginPath})
}

func (h *Handler) showForgotPassword(c *gin.Context) {
	c.HTML(http.StatusOK, "forgot_password.tmpl", gin.H{})
}

func (h *Handler) postForgotPassword(c *gin.Context) {
	email := c.PostForm("email")
	token, err := h.auth.RequestPasswordReset(c.Request.Context(), email)
	if err != nil {
		h.serverError(c, err)
		return
	}
	if token != "" {
		// no mail relay is configured in this deployment; the link goes
		// to the server log the way an operator expects in development
		h.log.Infof("password reset link for %s: /reset-password?token=%s", email, token)
	}
	// identical answer whether or not the address is registered
	c.HTML(http.StatusOK, "forgot_password.tmpl", gin.H{
		"Flash": "If that email is registered, a reset link has been sent.",
	})
}

func (h *Handler) showResetPassword(c *gin.Context) {
	token := c.Query("token")
	if _, err := h.auth.VerifyResetToken(token); err != nil {
		c.HTML(http.StatusBadRequest, "error.tmpl", gin.H{"Message": "This reset link is invalid or has expired."})
		return
	}
	c.HTML(http.StatusOK, "reset_password.tmpl", gin.H{"Token": token})
}

func (h *Handler) postResetPassword(c *gin.Context) {
	token := c.PostForm("token")
	err := h.auth.ResetPassword(c.Request.Context(), token, c.PostForm("password"), c.PostForm("confirm_password"))
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			c.HTML(http.StatusUnprocessableEntity, "reset_password.tmpl", gin.H{
				"Token":  token,
				"Errors": verr.Violations,
			})
		case errors.Is(err, auth.ErrInvalidResetToken):
			c.HTML(http.StatusBadRequest, "error.tmpl", gin.H{"Message": "This reset link is invalid or has expired."})
		default:
			h.serverError(c, err)
		}
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath+"?reset=1")
}
