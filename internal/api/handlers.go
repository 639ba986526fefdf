package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/service/engine"
	"github.com/voicemon/voicemon/internal/service/ranking"
	"github.com/voicemon/voicemon/pkg/models"
)

// Request/Response types

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// ReadyResponse is the readiness check response
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
}

// DashboardQuery defines query parameters for the dashboard endpoint
type DashboardQuery struct {
	WindowDays int `form:"window_days" binding:"omitempty,min=1,max=366"`
	TopN       int `form:"top" binding:"omitempty,min=1,max=100"`
}

// CostSummaryQuery defines query parameters for the cost summary endpoint
type CostSummaryQuery struct {
	WindowDays int `form:"window_days" binding:"omitempty,min=1,max=366"`
}

// RollupQuery defines query parameters for the rollup endpoint
type RollupQuery struct {
	Group string `form:"group" binding:"required,oneof=client agent provider"`
}

// RankingsQuery defines query parameters for the rankings endpoint
type RankingsQuery struct {
	Group string `form:"group" binding:"omitempty,oneof=client agent provider"`
	N     int    `form:"n" binding:"omitempty,min=1,max=100"`
	By    string `form:"by" binding:"omitempty,oneof=cost volume"`
}

// ConversationsQuery defines query parameters for the conversations endpoint
type ConversationsQuery struct {
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
	Provider    string `form:"provider" binding:"omitempty,max=64"`
	Client      string `form:"client" binding:"omitempty,max=256"`
	WorkspaceID string `form:"workspace_id" binding:"omitempty,max=128"`
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if s.engine != nil {
		response.Services["engine"] = "ok"
	} else {
		response.Services["engine"] = "missing"
	}

	if s.monitor != nil && s.monitor.IsRunning() {
		response.Services["monitor"] = "running"
	} else {
		response.Services["monitor"] = "stopped"
	}

	if !s.ready.Load() {
		response.Status = "unavailable"
		response.Services["ready"] = "false"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response.Services["ready"] = "true"
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleReady(c *gin.Context) {
	response := ReadyResponse{
		Ready:     s.ready.Load(),
		Timestamp: time.Now(),
	}

	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleDashboard(c *gin.Context) {
	var query DashboardQuery
	if !s.bindQuery(c, &query) {
		return
	}

	dashboard, err := s.engine.Dashboard(c.Request.Context(), engine.Params{
		WindowDays: query.WindowDays,
		TopN:       query.TopN,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (s *Server) handleCostSummary(c *gin.Context) {
	var query CostSummaryQuery
	if !s.bindQuery(c, &query) {
		return
	}

	summary, err := s.engine.CostSummary(c.Request.Context(), query.WindowDays)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCostRollup(c *gin.Context) {
	var query RollupQuery
	if !s.bindQuery(c, &query) {
		return
	}

	rollup, err := s.engine.Rollup(c.Request.Context(), models.GroupKey(query.Group))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":    query.Group,
		"entities": rollup,
		"count":    len(rollup),
	})
}

func (s *Server) handleRankings(c *gin.Context) {
	var query RankingsQuery
	if !s.bindQuery(c, &query) {
		return
	}

	group := models.GroupByClient
	if query.Group != "" {
		group = models.GroupKey(query.Group)
	}
	metric := ranking.ByCost
	if query.By != "" {
		metric = ranking.Metric(query.By)
	}

	ranked, err := s.engine.Rankings(c.Request.Context(), group, query.N, metric)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":    group,
		"by":       metric,
		"rankings": ranked,
		"count":    len(ranked),
	})
}

func (s *Server) handleAlerts(c *gin.Context) {
	alerts, err := s.engine.Alerts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleConversations(c *gin.Context) {
	var query ConversationsQuery
	if !s.bindQuery(c, &query) {
		return
	}

	if query.WorkspaceID != "" {
		c.Request = c.Request.WithContext(logging.WithWorkspaceID(c.Request.Context(), query.WorkspaceID))
	}

	conversations, total, err := s.engine.Conversations(c.Request.Context(), engine.ConversationFilter{
		WorkspaceID: query.WorkspaceID,
		Client:      query.Client,
		Provider:    query.Provider,
		Offset:      query.Offset,
		Limit:       query.Limit,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
		"total":         total,
		"offset":        query.Offset,
	})
}

func (s *Server) handleConversation(c *gin.Context) {
	conversation, err := s.engine.Conversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (s *Server) handleQualitySummary(c *gin.Context) {
	summary, err := s.engine.Quality(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// bindQuery binds and validates query parameters, writing a 400 on failure
func (s *Server) bindQuery(c *gin.Context, query any) bool {
	if err := c.ShouldBindQuery(query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     sanitizeValidationError(err),
			RequestID: c.GetString("request_id"),
		})
		return false
	}
	return true
}

// writeError maps engine errors to HTTP status codes
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, models.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		message = "data store unavailable"
	}

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "aggregation pass failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()))
	}

	c.JSON(status, ErrorResponse{
		Error:     message,
		RequestID: c.GetString("request_id"),
	})
}

// sanitizeValidationError converts struct field names to query parameter
// names so messages refer to what the caller sent
func sanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	var messages []string
	for _, fe := range validationErrs {
		name := toSnakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", name))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", name, fe.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", name, fe.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", name, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation (%s)", name, fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

var camelBoundary = regexp.MustCompile("([a-z0-9])([A-Z])")

// toSnakeCase converts a PascalCase field name to its query parameter name
func toSnakeCase(s string) string {
	fieldMappings := map[string]string{
		"WindowDays":  "window_days",
		"TopN":        "top",
		"N":           "n",
		"By":          "by",
		"WorkspaceID": "workspace_id",
	}
	if mapped, ok := fieldMappings[s]; ok {
		return mapped
	}
	return strings.ToLower(camelBoundary.ReplaceAllString(s, "${1}_${2}"))
}
