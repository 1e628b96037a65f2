package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	sessionCookie   = "nutri_session"
	landingInfoWait = 2 * time.Second

	statsUnavailableMessage   = "could not load model statistics"
	serviceUnavailableMessage = "prediction service unavailable"
)

type Handler struct {
	svc        *Service
	sessionTTL time.Duration
}

// NewHandler builds the dashboard handler. sessionTTL sets the cookie
// lifetime and should match the session store.
func NewHandler(svc *Service, sessionTTL time.Duration) *Handler {
	return &Handler{svc: svc, sessionTTL: sessionTTL}
}

// RegisterRoutes mounts the HTML screens on pages and the JSON API on api.
// submit is applied to every route that reaches the prediction service.
func (h *Handler) RegisterRoutes(pages *echo.Group, api *echo.Group, submit ...echo.MiddlewareFunc) {
	pages.GET("/", h.Home)
	pages.GET("/dashboard", h.Dashboard)
	pages.POST("/dashboard", h.SubmitDashboard, submit...)
	pages.POST("/dashboard/reset", h.ResetDashboard)

	api.GET("/schema", h.GetSchema)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.PATCH("/sessions/:id/fields", h.EditSessionFields)
	api.POST("/sessions/:id/submit", h.SubmitSession, submit...)
	api.POST("/sessions/:id/reset", h.ResetSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.POST("/evaluations", h.CreateEvaluation, submit...)
	api.GET("/model/stats", h.GetModelStats)
	api.GET("/model/health", h.GetModelHealth)
}

// -- JSON API ----------------------------------------------------------------

func (h *Handler) GetSchema(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"schema": h.svc.Schema(),
		"marker": h.svc.Schema().MarkerField(),
		"fields": h.svc.Schema().Fields(),
	})
}

func (h *Handler) CreateSession(c echo.Context) error {
	sess, err := h.svc.NewSession()
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusCreated, sess.Snapshot())
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// EditSessionFields applies {"field": value, ...}. Values may be JSON
// strings or numbers.
func (h *Handler) EditSessionFields(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	var edits map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&edits); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object of field values")
	}
	for field, raw := range edits {
		if err := sess.Edit(field, RawFieldValue(raw)); err != nil {
			return sessionError(err, field)
		}
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) SubmitSession(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	view, err := h.svc.Submit(c.Request().Context(), sess)
	return c.JSON(submitStatus(err), view)
}

func (h *Handler) ResetSession(c echo.Context) error {
	sess, err := h.lookup(c)
	if err != nil {
		return err
	}
	if err := sess.Reset(); err != nil {
		return sessionError(err, "")
	}
	return c.JSON(http.StatusOK, sess.Snapshot())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.svc.CloseSession(c.Param("id")); err != nil {
		return sessionError(err, "")
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateEvaluation validates and predicts in one call without a session.
func (h *Handler) CreateEvaluation(c echo.Context) error {
	var in FormInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	eval, errs, err := h.svc.Evaluate(c.Request().Context(), in)
	switch {
	case errors.Is(err, ErrInvalidInput):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
	case err != nil:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": UserMessage(err)})
	}
	return c.JSON(http.StatusOK, eval)
}

func (h *Handler) GetModelStats(c echo.Context) error {
	stats, err := h.svc.ModelStats(c.Request().Context())
	if err != nil {
		h.svc.logger.Warn().Err(err).Msg("model stats passthrough failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": statsUnavailableMessage})
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetModelHealth(c echo.Context) error {
	status, err := h.svc.ServiceHealth(c.Request().Context())
	if err != nil {
		h.svc.logger.Warn().Err(err).Msg("model health passthrough failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": serviceUnavailableMessage})
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) lookup(c echo.Context) (*Session, error) {
	sess, err := h.svc.Session(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return sess, nil
}

func sessionError(err error, field string) error {
	switch {
	case errors.Is(err, ErrUnknownField):
		return echo.NewHTTPError(http.StatusBadRequest, "unknown form field: "+field)
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// submitStatus maps a Submit outcome to an HTTP status. The body is always
// the session view, so clients read errors from it.
func submitStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrSessionClosed), errors.Is(err, ErrSubmissionDiscarded):
		return http.StatusGone
	default:
		return http.StatusBadGateway
	}
}

// -- HTML screens --------------------------------------------------------------

type homePage struct {
	Stats   *ModelStats
	Healthy bool
	Schema  Schema
}

type fieldView struct {
	FieldRule
	Value string
	Error string
}

type dashboardPage struct {
	Session SessionView
	Fields  []fieldView
	Notice  string
}

func (h *Handler) Home(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), landingInfoWait)
	defer cancel()

	page := homePage{Schema: h.svc.Schema()}
	if stats, err := h.svc.ModelStats(ctx); err == nil {
		page.Stats = stats
	}
	if health, err := h.svc.ServiceHealth(ctx); err == nil && health.Status != "" {
		page.Healthy = true
	}
	return c.Render(http.StatusOK, "home", page)
}

func (h *Handler) Dashboard(c echo.Context) error {
	sess, err := h.pageSession(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "dashboard", h.dashboardPage(sess.Snapshot(), ""))
}

func (h *Handler) SubmitDashboard(c echo.Context) error {
	sess, err := h.pageSession(c)
	if err != nil {
		return err
	}
	var in FormInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	for _, rule := range h.svc.Schema().Fields() {
		if err := sess.Edit(rule.Name, in.Value(rule.Name)); err != nil {
			return sessionError(err, rule.Name)
		}
	}

	view, err := h.svc.Submit(c.Request().Context(), sess)
	notice := ""
	if errors.Is(err, ErrSubmissionInFlight) {
		notice = "an evaluation is already running, please wait"
	}
	return c.Render(submitStatus(err), "dashboard", h.dashboardPage(view, notice))
}

func (h *Handler) ResetDashboard(c echo.Context) error {
	sess, err := h.pageSession(c)
	if err != nil {
		return err
	}
	if err := sess.Reset(); err != nil {
		return sessionError(err, "")
	}
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// pageSession returns the session named by the cookie, starting a new one
// when the cookie is missing or its session expired. The cookie is reissued
// on every visit so it lives as long as the session.
func (h *Handler) pageSession(c echo.Context) (*Session, error) {
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		if sess, err := h.svc.Session(cookie.Value); err == nil {
			h.setSessionCookie(c, sess)
			return sess, nil
		}
	}
	sess, err := h.svc.NewSession()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	h.setSessionCookie(c, sess)
	return sess, nil
}

func (h *Handler) setSessionCookie(c echo.Context, sess *Session) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID(),
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) dashboardPage(view SessionView, notice string) dashboardPage {
	page := dashboardPage{Session: view, Notice: notice}
	for _, rule := range h.svc.Schema().Fields() {
		page.Fields = append(page.Fields, fieldView{
			FieldRule: rule,
			Value:     view.Input.Value(rule.Name),
			Error:     view.Errors[rule.Name],
		})
	}
	return page
}
