package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/University-Of-Livingstonia/ems/internal/auth"
	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/service"
)

// datetime-local inputs post in this layout
const formTimeLayout = "2006-01-02T15:04"

func (h *Handler) userDashboard(c *gin.Context) {
	sess := SessionFromContext(c)

	events, err := h.events.ListApproved(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	tickets, err := h.events.ListTickets(c.Request.Context(), sess.UserID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	c.HTML(http.StatusOK, "dashboard.tmpl", gin.H{
		"Session": sess,
		"Name":    sess.FullName(),
		"Events":  events,
		"Tickets": tickets,
	})
}

func (h *Handler) listEvents(c *gin.Context) {
	sess := SessionFromContext(c)
	events, err := h.events.ListApproved(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.HTML(http.StatusOK, "events.tmpl", gin.H{
		"Session": sess,
		"Events":  events,
		"Flash":   h.takeFlash(c),
	})
}

func (h *Handler) registerForEvent(c *gin.Context) {
	sess := SessionFromContext(c)
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		c.HTML(http.StatusBadRequest, "error.tmpl", gin.H{"Message": "Invalid event."})
		return
	}

	_, err = h.events.RegisterForEvent(c.Request.Context(), eventID, sess.UserID)
	switch {
	case err == nil:
		h.setFlash(c, "You are registered. Your ticket is on your dashboard.")
	case errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrEventFull),
		errors.Is(err, service.ErrEventNotApproved):
		h.setFlash(c, err.Error())
	default:
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/events")
}

func (h *Handler) organizerDashboard(c *gin.Context) {
	sess := SessionFromContext(c)
	events, err := h.events.ListByOrganizer(c.Request.Context(), sess.UserID)
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.HTML(http.StatusOK, "organizer_dashboard.tmpl", gin.H{
		"Session": sess,
		"Name":    sess.FullName(),
		"Events":  events,
		"Error":   c.Query("error"),
	})
}

func (h *Handler) proposeEvent(c *gin.Context) {
	sess := SessionFromContext(c)

	start, startErr := time.Parse(formTimeLayout, c.PostForm("start_time"))
	end, endErr := time.Parse(formTimeLayout, c.PostForm("end_time"))
	capacity, _ := strconv.Atoi(c.DefaultPostForm("capacity", "0"))

	if startErr != nil || endErr != nil {
		c.Redirect(http.StatusFound, auth.OrganizerLandingPath+"?error=invalid+event+times")
		return
	}

	event := &domain.Event{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Location:    c.PostForm("location"),
		StartTime:   start,
		EndTime:     end,
		Capacity:    capacity,
	}

	if _, err := h.events.Propose(c.Request.Context(), sess.UserID, event); err != nil {
		c.Redirect(http.StatusFound, auth.OrganizerLandingPath+"?error="+errQuery(err))
		return
	}
	c.Redirect(http.StatusFound, auth.OrganizerLandingPath)
}

func (h *Handler) adminDashboard(c *gin.Context) {
	sess := SessionFromContext(c)
	pending, err := h.events.ListPending(c.Request.Context())
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.HTML(http.StatusOK, "admin_dashboard.tmpl", gin.H{
		"Session": sess,
		"Name":    sess.FullName(),
		"Pending": pending,
	})
}

func (h *Handler) approveEvent(c *gin.Context) {
	h.decideEvent(c, true)
}

func (h *Handler) rejectEvent(c *gin.Context) {
	h.decideEvent(c, false)
}

func (h *Handler) decideEvent(c *gin.Context, approve bool) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		c.HTML(http.StatusBadRequest, "error.tmpl", gin.H{"Message": "Invalid event."})
		return
	}

	if approve {
		err = h.events.Approve(c.Request.Context(), eventID)
	} else {
		err = h.events.Reject(c.Request.Context(), eventID)
	}
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, auth.AdminLandingPath)
}

func errQuery(err error) string {
	return url.QueryEscape(err.Error())
}
