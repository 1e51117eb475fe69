package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/roster/internal/pipeline"
	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHeartbeatInterval = 25 * time.Second
	userIDParam              = "id"
)

var errMissingUsersService = errors.New("users service dependency required")

// UsersService is the backing store the API serves.
type UsersService interface {
	List(ctx context.Context) ([]users.User, error)
	Create(ctx context.Context, draft users.Draft) (users.User, error)
	Update(ctx context.Context, id string, draft users.Draft) (users.User, error)
	Delete(ctx context.Context, id string) error
}

type Dependencies struct {
	UsersService UsersService
	Changes      *ChangeDispatcher
	Logger       *zap.Logger
	// AllowedOrigins lists CORS origins; empty or "*" allows any origin.
	AllowedOrigins []string
	// PanelPageSize is the page size of /api/panel/users when none is requested.
	PanelPageSize     int
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	changes := deps.Changes
	if changes == nil {
		changes = NewChangeDispatcher()
	}

	pageSize := deps.PanelPageSize
	if pageSize == 0 {
		pageSize = pipeline.DefaultPageSize
	}
	if !pipeline.IsAllowedPageSize(pageSize) {
		return nil, fmt.Errorf("panel page size: %w: %d", pipeline.ErrInvalidPageSize, pageSize)
	}

	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		usersService:      deps.UsersService,
		changes:           changes,
		logger:            logger,
		panelPageSize:     pageSize,
		heartbeatInterval: heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.GET("/users", handler.handleListUsers)
	api.POST("/users", handler.handleCreateUser)
	api.GET("/users/events", handler.handleUserEvents)
	api.PUT("/users/:"+userIDParam, handler.handleUpdateUser)
	api.DELETE("/users/:"+userIDParam, handler.handleDeleteUser)
	api.GET("/panel/users", handler.handlePanelUsers)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Cache-Control", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(started)))
	}
}

type httpHandler struct {
	usersService      UsersService
	changes           *ChangeDispatcher
	logger            *zap.Logger
	panelPageSize     int
	heartbeatInterval time.Duration
}

type draftPayload struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

func (p draftPayload) draft() users.Draft {
	return users.Draft{Name: p.Name, Email: p.Email, Status: users.Status(p.Status)}
}

type listUsersResponse struct {
	Users []users.User `json:"users"`
}

type changeEventPayload struct {
	UserIDs   []string `json:"userIds"`
	Timestamp int64    `json:"timestamp"`
	Source    string   `json:"source"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleListUsers(c *gin.Context) {
	records, err := h.usersService.List(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, listUsersResponse{Users: records})
}

func (h *httpHandler) handleCreateUser(c *gin.Context) {
	var request draftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	created, err := h.usersService.Create(c.Request.Context(), request.draft())
	if err != nil {
		h.respondServiceError(c, "create", err)
		return
	}
	h.publishChange(created.ID)
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleUpdateUser(c *gin.Context) {
	userID := c.Param(userIDParam)
	var request draftPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, err := h.usersService.Update(c.Request.Context(), userID, request.draft())
	if err != nil {
		h.respondServiceError(c, "update", err)
		return
	}
	h.publishChange(updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteUser(c *gin.Context) {
	userID := c.Param(userIDParam)
	if err := h.usersService.Delete(c.Request.Context(), userID); err != nil {
		h.respondServiceError(c, "delete", err)
		return
	}
	h.publishChange(userID)
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handlePanelUsers(c *gin.Context) {
	state := pipeline.NewState()
	if pipeline.IsAllowedPageSize(h.panelPageSize) {
		_ = state.SetPageSize(h.panelPageSize)
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || state.SetPageSize(size) != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page_size", "allowed": pipeline.AllowedPageSizes()})
			return
		}
	}
	state.SetQuery(c.Query("query"))
	state.SetSortOrder(pipeline.ParseSortOrder(c.Query("sort")))
	if raw := c.Query("page"); raw != "" {
		pageIndex, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page"})
			return
		}
		state.PageIndex = pageIndex
	}

	records, err := h.usersService.List(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, pipeline.Derive(records, state))
}

func (h *httpHandler) handleUserEvents(c *gin.Context) {
	ctx := c.Request.Context()
	events, cleanup := h.changes.Subscribe(ctx)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			c.SSEvent(event.EventType, changeEventPayload{
				UserIDs:   event.UserIDs,
				Timestamp: event.Timestamp.Unix(),
				Source:    changeSourceBackend,
			})
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(changeEventHeartbeat, changeEventPayload{
				UserIDs:   []string{},
				Timestamp: tick.Unix(),
				Source:    changeSourceBackend,
			})
			c.Writer.Flush()
		}
	}
}

func (h *httpHandler) publishChange(userID string) {
	h.changes.Publish(ChangeEvent{
		EventType: ChangeEventUsersChanged,
		UserIDs:   []string{userID},
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) respondServiceError(c *gin.Context, operation string, err error) {
	var fieldErrors users.FieldErrors
	switch {
	case errors.As(err, &fieldErrors):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user", "fields": fieldErrors})
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
	default:
		payload := gin.H{"error": operation + "_failed"}
		var serviceErr *users.ServiceError
		if errors.As(err, &serviceErr) {
			payload["code"] = serviceErr.Code()
		}
		h.logger.Error("user request failed", zap.String("operation", operation), zap.Error(err))
		c.JSON(http.StatusInternalServerError, payload)
	}
}
