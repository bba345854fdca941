// Package api is the site's HTTP API: the per-visitor hail map, weather,
// webcams, push opt-in settings and the admin notification panel.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/weather-spectrum/internal/admin"
	"github.com/couchcryptid/weather-spectrum/internal/domain"
	"github.com/couchcryptid/weather-spectrum/internal/hailmap"
	"github.com/couchcryptid/weather-spectrum/internal/mapview"
	"github.com/couchcryptid/weather-spectrum/internal/push"
	"github.com/couchcryptid/weather-spectrum/internal/repository"
	"github.com/couchcryptid/weather-spectrum/internal/weather"
	"github.com/couchcryptid/weather-spectrum/internal/webcams"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	viewSessionName = "spectrum_view"
	viewIDKey       = "id"
	maxWebcams      = 50
)

// Deps are the services behind the API. Admin fields may be nil when the
// panel is not configured.
type Deps struct {
	Views     *ViewRegistry
	Weather   *weather.Service
	Webcams   *webcams.Service
	ViewStore sessions.Store

	Auth     *admin.Authenticator
	Sessions *admin.Sessions
	Admin    *admin.Service

	Logger *slog.Logger
}

// Handler serves the API routes.
type Handler struct {
	views     *ViewRegistry
	weather   *weather.Service
	webcams   *webcams.Service
	viewStore sessions.Store
	auth      *admin.Authenticator
	sessions  *admin.Sessions
	admin     *admin.Service
	logger    *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		views:     d.Views,
		weather:   d.Weather,
		webcams:   d.Webcams,
		viewStore: d.ViewStore,
		auth:      d.Auth,
		sessions:  d.Sessions,
		admin:     d.Admin,
		logger:    d.Logger,
	}
}

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   int
}

// NewRouter builds the gin engine with recovery, request logging, CORS and
// rate limiting in front of the API routes.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}
	if len(opts.AllowedOrigins) == 0 || opts.AllowedOrigins[0] == "*" {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = opts.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if opts.RateLimitRPS > 0 {
		r.Use(RateLimitMiddleware(opts.RateLimitRPS))
	}
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	m := r.Group("/api/map")
	m.GET("", h.getMap)
	m.POST("/range", h.setRange)
	m.POST("/zip", h.searchZIP)
	m.DELETE("/zip", h.clearZIP)
	m.GET("/events/:id", h.getEvent)
	m.POST("/events/:id/select", h.selectEvent)
	m.GET("/render", h.renderMap)

	r.GET("/api/weather", h.getWeather)
	r.GET("/api/webcams", h.getWebcams)
	r.GET("/api/push/config", h.getPushConfig)

	a := r.Group("/api/admin")
	a.POST("/login", h.login)
	a.POST("/logout", h.logout)
	a.GET("/session", h.session)
	a.GET("/templates", h.templates)
	a.POST("/notifications", h.requireAdmin, h.sendNotification)
	a.GET("/notifications", h.requireAdmin, h.history)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// controller returns the visitor's map controller. The view id cookie is
// issued on first contact and re-saved on every access so its MaxAge slides
// with the registry's idle timeout.
func (h *Handler) controller(c *gin.Context) *hailmap.Controller {
	sess, err := h.viewStore.Get(c.Request, viewSessionName)
	if err != nil {
		h.logger.Debug("discarding unreadable view session", "error", err)
	}
	id, _ := sess.Values[viewIDKey].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[viewIDKey] = id
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		h.logger.Warn("save view session", "error", err)
	}
	return h.views.Get(id)
}

func (h *Handler) getMap(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).View())
}

type rangeRequest struct {
	Range string `json:"range"`
	Date  string `json:"date"`
}

func (h *Handler) setRange(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	r, err := domain.ParseDateRange(req.Range)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.controller(c).SetDateRange(c.Request.Context(), r, req.Date)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, hailmap.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "view": view})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": view.Message, "view": view})
	}
}

type zipRequest struct {
	ZIP string `json:"zip"`
}

func (h *Handler) searchZIP(c *gin.Context) {
	var req zipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.controller(c).SearchZIP(c.Request.Context(), req.ZIP)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, view)
	case errors.Is(err, domain.ErrInvalidZIP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 5-digit ZIP code", "view": view})
	case errors.Is(err, domain.ErrZIPNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not find ZIP code. Please try again.", "view": view})
	case errors.Is(err, hailmap.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "view": view})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "view": view})
	}
}

func (h *Handler) clearZIP(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller(c).ClearFilter())
}

func eventID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	d, err := h.controller(c).Detail(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) selectEvent(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	d, err := h.controller(c).Select(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, d)
	case errors.Is(err, hailmap.ErrUnknownEvent):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}

func (h *Handler) renderMap(c *gin.Context) {
	c.JSON(http.StatusOK, mapview.Build(h.controller(c).View()))
}

func (h *Handler) getWeather(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		cond weather.Conditions
		err  error
	)
	if zip := c.Query("zip"); zip != "" {
		cond, err = h.weather.ForZIP(ctx, zip)
	} else {
		lat, lon, label, ok := coordinates(c)
		if !ok {
			return
		}
		cond, err = h.weather.ForCoordinates(ctx, lat, lon, label)
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, cond)
	case errors.Is(err, domain.ErrInvalidZIP):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid 5-digit ZIP code"})
	case errors.Is(err, domain.ErrZIPNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not find ZIP code. Please try again."})
	case errors.Is(err, weather.ErrUnsupportedLocation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("weather lookup failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather data unavailable"})
	}
}

func (h *Handler) getWebcams(c *gin.Context) {
	lat, lon, _, ok := coordinates(c)
	if !ok {
		return
	}
	maxDistance := webcams.DefaultMaxDistance
	if s := c.Query("max"); s != "" {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max distance"})
			return
		}
		maxDistance = d
	}
	limit := maxWebcams
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= maxWebcams {
			limit = n
		}
	}
	c.JSON(http.StatusOK, h.webcams.Near(c.Request.Context(), lat, lon, maxDistance, limit))
}

// coordinates reads lat/lon query parameters, defaulting to Fort Worth when
// both are absent.
func coordinates(c *gin.Context) (lat, lon float64, label string, ok bool) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" && lonStr == "" {
		return domain.DefaultCenter.Lat, domain.DefaultCenter.Lon, weather.DefaultLocation, true
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
		return 0, 0, "", false
	}
	return lat, lon, "", true
}

func (h *Handler) getPushConfig(c *gin.Context) {
	s, err := push.Current()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	if h.auth == nil || !h.auth.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": admin.ErrDisabled.Error()})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.auth.Check(req.Password); err != nil {
		h.logger.Warn("admin login failed", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}
	if err := h.sessions.Login(c.Writer, c.Request); err != nil {
		h.logger.Error("admin login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (h *Handler) logout(c *gin.Context) {
	if h.sessions != nil {
		if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
			h.logger.Warn("admin logout", "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

func (h *Handler) session(c *gin.Context) {
	if h.sessions == nil || !h.sessions.Authenticated(c.Request) {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	resp := gin.H{"authenticated": true}
	if at, ok := h.sessions.LoginTime(c.Request); ok {
		resp["loginAt"] = at.UTC()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) templates(c *gin.Context) {
	c.JSON(http.StatusOK, admin.QuickTemplates())
}

func (h *Handler) sendNotification(c *gin.Context) {
	if h.admin == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": admin.ErrDisabled.Error()})
		return
	}
	var n domain.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rec, err := h.admin.Send(c.Request.Context(), n)
	if rec.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusOK
	if err != nil || rec.Error != "" {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{
		"success":      status == http.StatusOK,
		"message":      admin.ResultMessage(rec),
		"notification": rec,
	})
}

func (h *Handler) history(c *gin.Context) {
	if h.admin == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": admin.ErrDisabled.Error()})
		return
	}
	limit := repository.DefaultListLimit
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := h.admin.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list notification history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notification history"})
		return
	}
	c.JSON(http.StatusOK, records)
}
