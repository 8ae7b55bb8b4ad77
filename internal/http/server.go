package http

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/University-Of-Livingstonia/ems/internal/auth"
	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/service"
)

// CookieOptions controls the session cookie the handler issues.
type CookieOptions struct {
	Name string
	// RememberMaxAge is the cookie Max-Age (seconds) when remember-me is
	// ticked; plain logins get a browser-session cookie.
	RememberMaxAge int
	Secure         bool
}

// Handler wires the server-rendered pages to the auth manager and the
// event service.
type Handler struct {
	auth   *auth.Manager
	events service.EventService
	cookie CookieOptions
	log    *logrus.Logger
}

func NewHandler(authMgr *auth.Manager, events service.EventService, cookie CookieOptions, logger *logrus.Logger) *Handler {
	if cookie.Name == "" {
		cookie.Name = "ems_session"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		auth:   authMgr,
		events: events,
		cookie: cookie,
		log:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.tmpl")))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, auth.LoginPath)
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/login", h.showLogin)
	router.POST("/login", h.postLogin)
	router.GET("/register", h.showRegister)
	router.POST("/register", h.postRegister)
	router.GET("/logout", h.logout)
	router.GET("/forgot-password", h.showForgotPassword)
	router.POST("/forgot-password", h.postForgotPassword)
	router.GET("/reset-password", h.showResetPassword)
	router.POST("/reset-password", h.postResetPassword)

	// every protected page starts with the login guard, then its role
	// guard; a misrouted user is rerouted to their own landing page,
	// never shown a 403
	user := router.Group("", h.RequireLogin())
	{
		user.GET("/dashboard", h.userDashboard)
		user.GET("/events", h.listEvents)
		user.POST("/events/:id/register", h.registerForEvent)
	}

	organizer := router.Group("/organizer", h.RequireLogin(), h.RequireRole(domain.RoleOrganizer))
	{
		organizer.GET("/dashboard", h.organizerDashboard)
		organizer.POST("/events", h.proposeEvent)
	}

	admin := router.Group("/admin", h.RequireLogin(), h.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/dashboard", h.adminDashboard)
		admin.POST("/events/:id/approve", h.approveEvent)
		admin.POST("/events/:id/reject", h.rejectEvent)
	}
}

func (h *Handler) client(c *gin.Context) auth.Client {
	return auth.Client{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// serverError logs the cause and renders the generic try-again page;
// internal detail never reaches the user.
func (h *Handler) serverError(c *gin.Context, err error) {
	h.log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.HTML(http.StatusInternalServerError, "error.tmpl", gin.H{
		"Message": "Something went wrong. Please try again later.",
	})
	c.Abort()
}
