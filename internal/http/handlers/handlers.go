package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/TPSMaidscc/chat-audit/internal/config"
	"github.com/TPSMaidscc/chat-audit/internal/ingest"
	"github.com/TPSMaidscc/chat-audit/internal/models"
	"github.com/TPSMaidscc/chat-audit/internal/service"
	"github.com/TPSMaidscc/chat-audit/internal/tableau"
)

type Handler struct {
	Service   *service.AuditService
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

type DepartmentInfo struct {
	Name        string   `json:"name"`
	ViewName    string   `json:"view_name"`
	SkillFilter []string `json:"skill_filter,omitempty"`
}

// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List configured departments
// @Tags departments
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/departments [get]
func (h *Handler) Departments(c *gin.Context) {
	profiles := config.Departments()
	out := make([]DepartmentInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, DepartmentInfo{Name: p.Name, ViewName: p.ViewName, SkillFilter: p.SkillFilter})
	}
	c.JSON(http.StatusOK, gin.H{"departments": out, "count": len(out)})
}

// @Summary Run repetition analysis for one department
// @Tags analysis
// @Produce json
// @Param department path string true "Department name"
// @Param upload_results query bool false "Write result files" default(true)
// @Param date_override query string false "Analysis date (YYYY-MM-DD)"
// @Success 200 {object} models.AnalysisResult
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/analyze/{department} [post]
func (h *Handler) Analyze(c *gin.Context) {
	upload, dateOverride, ok := h.runParams(c)
	if !ok {
		return
	}
	result, err := h.Service.AnalyzeDepartment(c.Request.Context(), c.Param("department"), upload, dateOverride)
	if err != nil && !errors.Is(err, service.ErrNoData) {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Run repetition analysis for every department
// @Tags analysis
// @Produce json
// @Param upload_results query bool false "Write result files" default(true)
// @Param date_override query string false "Analysis date (YYYY-MM-DD)"
// @Success 200 {object} models.BatchResult
// @Router /api/analyze-all [post]
func (h *Handler) AnalyzeAll(c *gin.Context) {
	upload, dateOverride, ok := h.runParams(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Service.AnalyzeAll(c.Request.Context(), upload, dateOverride))
}

// @Summary Run response-latency analysis for one department
// @Tags delays
// @Produce json
// @Param department path string true "Department name"
// @Param upload_results query bool false "Write result files" default(true)
// @Param date_override query string false "Analysis date (YYYY-MM-DD)"
// @Success 200 {object} models.DelaysResult
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/delays/analyze/{department} [post]
func (h *Handler) Delays(c *gin.Context) {
	upload, dateOverride, ok := h.runParams(c)
	if !ok {
		return
	}
	result, err := h.Service.AnalyzeDelays(c.Request.Context(), c.Param("department"), upload, dateOverride)
	if err != nil && !errors.Is(err, service.ErrNoData) {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Run the combined audit for one department
// @Tags audit
// @Produce json
// @Param department path string true "Department name"
// @Param upload_results query bool false "Write result files" default(true)
// @Param date_override query string false "Analysis date (YYYY-MM-DD)"
// @Success 200 {object} models.AuditResult
// @Failure 400 {object} map[string]any
// @Failure 502 {object} map[string]any
// @Router /api/audit/{department} [post]
func (h *Handler) Audit(c *gin.Context) {
	upload, dateOverride, ok := h.runParams(c)
	if !ok {
		return
	}
	result, err := h.Service.Audit(c.Request.Context(), c.Param("department"), upload, dateOverride)
	if err != nil && !errors.Is(err, service.ErrNoData) {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Run repetition analysis over an uploaded export
// @Tags analysis
// @Accept multipart/form-data
// @Produce json
// @Param department path string true "Department name"
// @Param file formData file true "Message export CSV"
// @Param upload_results query bool false "Write result files" default(true)
// @Param date_override query string false "Analysis date (YYYY-MM-DD)"
// @Success 200 {object} models.AnalysisResult
// @Failure 400 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/analyze/{department}/upload [post]
func (h *Handler) AnalyzeUpload(c *gin.Context) {
	upload, dateOverride, ok := h.runParams(c)
	if !ok {
		return
	}
	profile, err := config.DepartmentByName(c.Param("department"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "UNKNOWN_DEPARTMENT", err.Error(), nil)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "MISSING_FILE", "Upload a CSV file under the 'file' form field", err.Error())
		return
	}
	events, rowErrs, err := parseUpload(file)
	if err != nil {
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(c, http.StatusUnprocessableEntity, "SCHEMA_ERROR", schemaErr.Error(), schemaErr.Missing)
			return
		}
		writeError(c, http.StatusBadRequest, "INVALID_CSV", "Could not parse uploaded file", err.Error())
		return
	}
	if len(rowErrs) > 0 {
		h.Logger.Warn().Str("department", profile.Name).Int("skipped_rows", len(rowErrs)).Msg("upload rows skipped")
	}

	date := dateOverride
	if date == "" {
		date = "uploaded"
	}
	result, err := h.Service.AnalyzeEvents(profile, date, events, upload)
	if err != nil && !errors.Is(err, service.ErrNoData) {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "skipped_rows": rowErrs})
}

// runParams parses the shared query parameters; on a validation failure the
// response is already written.
func (h *Handler) runParams(c *gin.Context) (upload bool, dateOverride string, ok bool) {
	upload, err := strconv.ParseBool(c.DefaultQuery("upload_results", "true"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION", "upload_results must be a boolean", err.Error())
		return false, "", false
	}
	dateOverride = c.Query("date_override")
	if dateOverride != "" {
		if err := h.Validator.Var(dateOverride, "datetime=2006-01-02"); err != nil {
			writeError(c, http.StatusBadRequest, "VALIDATION", "date_override must be YYYY-MM-DD", err.Error())
			return false, "", false
		}
	}
	return upload, dateOverride, true
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	var fetchErr *tableau.FetchError
	switch {
	case errors.As(err, &fetchErr):
		writeError(c, http.StatusBadGateway, "UPSTREAM_FETCH", "Data source fetch failed", err.Error())
	case errors.Is(err, config.ErrUnknownDepartment):
		writeError(c, http.StatusBadRequest, "UNKNOWN_DEPARTMENT", err.Error(), nil)
	default:
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			writeError(c, http.StatusUnprocessableEntity, "SCHEMA_ERROR", schemaErr.Error(), schemaErr.Missing)
			return
		}
		h.Logger.Error().Err(err).Msg("analysis failed")
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Analysis failed", err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func parseUpload(file *multipart.FileHeader) ([]models.MessageEvent, []string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ingest.ParseEvents(f)
}
