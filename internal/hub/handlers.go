package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/BotBlake/jellybench/internal/metrics"
	"github.com/BotBlake/jellybench/pkg/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
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

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	if s.store != nil {
		response.Services["storage"] = "ok"
	} else {
		response.Services["storage"] = "unavailable"
	}
	response.Services["platforms"] = strconv.Itoa(len(s.seed.Platforms))

	// Return 503 if not ready (e.g., during startup migration)
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

func (s *Server) handleListPlatforms(c *gin.Context) {
	platforms := s.seed.Platforms
	if platforms == nil {
		platforms = []models.Platform{}
	}

	c.JSON(http.StatusOK, models.PlatformsResponse{Platforms: platforms})
}

func (s *Server) handleGetTestData(c *gin.Context) {
	platformID := c.Query("platform_id")
	if platformID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     "platform_id is required",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	var platform *models.Platform
	for i := range s.seed.Platforms {
		if s.seed.Platforms[i].ID == platformID {
			platform = &s.seed.Platforms[i]
			break
		}
	}
	if platform == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "unknown platform: " + platformID,
			RequestID: c.GetString("request_id"),
		})
		return
	}
	if !platform.Supported {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     fmt.Sprintf("platform %s is not supported", platformID),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	data, ok := s.seed.TestDataFor(platformID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "no test data for platform: " + platformID,
			RequestID: c.GetString("request_id"),
		})
		return
	}

	// Issue a fresh correlation token unless the seed pins one
	if data.Token == "" {
		data.Token = uuid.New().String()
	}

	metrics.RecordTestDataRequest(platformID)
	c.JSON(http.StatusOK, data)
}

func (s *Server) handleSubmitReport(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordSubmission("invalid")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     sanitizeValidationError(err),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	if err := validateReport(req.Report); err != nil {
		metrics.RecordSubmission("invalid")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:     err.Error(),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	record := &models.SubmissionRecord{
		ID:         uuid.New().String(),
		Token:      req.Token,
		ReceivedAt: time.Now().UTC(),
		Report:     req.Report,
	}

	if err := s.store.Create(ctx, record); err != nil {
		metrics.RecordSubmission("storage_error")
		s.logger.Error("failed to store submission",
			slog.String("error", err.Error()),
			slog.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "failed to store submission",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	metrics.RecordSubmission("stored")
	metrics.SubmissionsStored.Inc()
	for _, result := range req.Report.Results {
		metrics.RecordReportedCapacity(string(result.Path), result.MaxConcurrentStreams)
	}

	s.logger.Info("submission stored",
		slog.String("id", record.ID),
		slog.String("cpu_model", req.Report.Hardware.CPUModel),
		slog.Int("results", len(req.Report.Results)))

	c.JSON(http.StatusCreated, models.SubmitResponse{
		ID:      record.ID,
		Message: "submission stored",
	})
}

// validateReport rejects documents the survey cannot use.
func validateReport(report *models.BenchmarkReport) error {
	if report.SchemaVersion != models.SchemaVersion {
		return fmt.Errorf("unsupported schema_version %q, want %q", report.SchemaVersion, models.SchemaVersion)
	}

	seen := make(map[models.HardwarePath]bool, len(report.Results))
	for _, result := range report.Results {
		if !result.Path.Valid() {
			return fmt.Errorf("unknown hardware path %q", result.Path)
		}
		if seen[result.Path] {
			return fmt.Errorf("duplicate result for path %s", result.Path)
		}
		seen[result.Path] = true

		if result.MaxConcurrentStreams < 0 {
			return fmt.Errorf("path %s: negative max_concurrent_streams", result.Path)
		}
	}

	return nil
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     fmt.Sprintf("invalid limit: must be a valid integer, got %q", raw),
				RequestID: c.GetString("request_id"),
			})
			return
		}
		if v < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:     fmt.Sprintf("invalid limit: must be positive, got %d", v),
				RequestID: c.GetString("request_id"),
			})
			return
		}
		if v > maxListLimit {
			v = maxListLimit
		}
		limit = v
	}

	records, err := s.store.List(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list submissions",
			slog.String("error", err.Error()),
			slog.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "failed to list submissions",
			RequestID: c.GetString("request_id"),
		})
		return
	}
	if records == nil {
		records = []models.SubmissionRecord{}
	}

	c.JSON(http.StatusOK, models.SubmissionsResponse{
		Submissions: records,
		Count:       len(records),
	})
}

func (s *Server) handleGetSubmission(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	record, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     "submission not found: " + id,
			RequestID: c.GetString("request_id"),
		})
		return
	}
	if err != nil {
		s.logger.Error("failed to get submission",
			slog.String("error", err.Error()),
			slog.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:     "failed to get submission",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

// sanitizeValidationError converts internal field names to JSON field names
// in validation error messages.
func sanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}

	var messages []string
	for _, fe := range validationErrs {
		jsonFieldName := toSnakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", jsonFieldName))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation (%s)", jsonFieldName, fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}

var snakeCaseRegex = regexp.MustCompile("([a-z0-9])([A-Z])")

// toSnakeCase converts a PascalCase or camelCase string to snake_case
func toSnakeCase(s string) string {
	return strings.ToLower(snakeCaseRegex.ReplaceAllString(s, "${1}_${2}"))
}
