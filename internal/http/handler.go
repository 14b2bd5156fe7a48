package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"strata-violations/internal/http/middleware"
	"strata-violations/internal/model"
	"strata-violations/internal/service"
	"strata-violations/internal/storage"
)

const (
	attachmentsField = "attachments"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	queryDateLayout  = "2006-01-02"
)

type Handler struct {
	violationService *service.ViolationService
	disputeService   *service.DisputeService
	reportService    *service.ReportService
	auditService     *service.AuditService
	categories       *service.CategoryCatalog
	maxUploadBytes   int64
	log              zerolog.Logger
}

func NewHandler(
	violationService *service.ViolationService,
	disputeService *service.DisputeService,
	reportService *service.ReportService,
	auditService *service.AuditService,
	categories *service.CategoryCatalog,
	maxUploadBytes int64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		violationService: violationService,
		disputeService:   disputeService,
		reportService:    reportService,
		auditService:     auditService,
		categories:       categories,
		maxUploadBytes:   maxUploadBytes,
		log:              log,
	}
}

func (h *Handler) listViolations(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	opts, err := parseViolationQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	list, err := h.violationService.List(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(list))
}

func (h *Handler) recentViolations(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	records, err := h.violationService.Recent(c.Request.Context(), principal, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"violations": records}))
}

func (h *Handler) pendingApproval(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	records, err := h.violationService.PendingApproval(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"violations": records}))
}

func (h *Handler) getViolation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	record, err := h.violationService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

// createViolation accepts multipart forms with up to five files under
// "attachments", or a plain JSON body without files.
func (h *Handler) createViolation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	var input service.CreateViolationInput
	var uploads []storage.Upload

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		if err := c.ShouldBind(&input); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid multipart form"))
			return
		}
		var closers []multipart.File
		defer func() {
			for _, f := range closers {
				_ = f.Close()
			}
		}()
		for _, header := range form.File[attachmentsField] {
			file, err := header.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("cannot read %s", header.Filename)))
				return
			}
			closers = append(closers, file)
			uploads = append(uploads, storage.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			})
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.violationService.Create(c.Request.Context(), principal, input, uploads)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(record))
}

func (h *Handler) updateViolationStatus(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	id, ok := violationID(c)
	if !ok {
		return
	}

	var req service.ChangeStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	req.Status = model.ViolationStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))

	record, err := h.violationService.ChangeStatus(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) setFine(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	id, ok := violationID(c)
	if !ok {
		return
	}

	var req service.SetFineInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	record, err := h.violationService.SetFine(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) approveViolation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	id, ok := violationID(c)
	if !ok {
		return
	}

	var req service.ApproveInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
	}

	record, err := h.violationService.Approve(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(record))
}

func (h *Handler) addComment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	id, ok := violationID(c)
	if !ok {
		return
	}

	var req service.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	entry, err := h.violationService.AddComment(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(entry))
}

func (h *Handler) violationHistory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	history, err := h.violationService.History(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"history": history}))
}

func (h *Handler) deleteViolation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	if err := h.violationService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) exportViolations(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	opts, err := parseViolationQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	data, err := h.reportService.Export(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("violations-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) listCategories(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	categories, err := h.categories.Active(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"categories": categories}))
}

func (h *Handler) violationStats(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	stats, err := h.reportService.Stats(c.Request.Context(), principal, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

func (h *Handler) repeatUnits(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	minCount, _ := strconv.Atoi(strings.TrimSpace(c.Query("min")))

	units, err := h.reportService.RepeatUnits(c.Request.Context(), principal, minCount, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"units": units}))
}

func (h *Handler) listAuditLogs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	opts := service.AuditListOptions{
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		EntityID:   strings.TrimSpace(c.Query("entity_id")),
		Action:     strings.TrimSpace(c.Query("action")),
	}
	if limit := strings.TrimSpace(c.Query("limit")); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			opts.Limit = v
		}
	}
	if offset := strings.TrimSpace(c.Query("offset")); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil {
			opts.Offset = v
		}
	}

	logs, err := h.auditService.List(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"items": logs}))
}

func (h *Handler) downloadAttachment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return
	}

	file, contentType, err := h.violationService.Attachment(principal, c.Param("name"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition":    fmt.Sprintf(`inline; filename="%s"`, info.Name()),
		"X-Content-Type-Options": "nosniff",
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(service.ErrPermissionDenied.Error()))
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrAttachmentRejected):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(service.ErrNotFound.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func violationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid violation id"))
		return 0, false
	}
	return id, true
}

func parseViolationQuery(c *gin.Context) (service.ListViolationsOptions, error) {
	var opts service.ListViolationsOptions

	if statusParam := c.Query("status"); statusParam != "" {
		for _, val := range splitCSV(statusParam) {
			opts.Statuses = append(opts.Statuses, model.ViolationStatus(strings.ToLower(val)))
		}
	}
	if unitID := queryParam(c, "unitId", "unit_id"); unitID != "" {
		id, err := strconv.ParseInt(unitID, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid unitId")
		}
		opts.UnitID = &id
	}
	if categoryID := queryParam(c, "categoryId", "category_id"); categoryID != "" {
		id, err := strconv.ParseInt(categoryID, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid categoryId")
		}
		opts.CategoryID = &id
	}
	if dateFrom := queryParam(c, "dateFrom", "date_from"); dateFrom != "" {
		ts, err := parseQueryDate(dateFrom)
		if err != nil {
			return opts, fmt.Errorf("invalid dateFrom")
		}
		opts.DateFrom = &ts
	}
	if dateTo := queryParam(c, "dateTo", "date_to"); dateTo != "" {
		ts, err := parseQueryDate(dateTo)
		if err != nil {
			return opts, fmt.Errorf("invalid dateTo")
		}
		opts.DateTo = &ts
	}
	if limit := strings.TrimSpace(c.Query("limit")); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			opts.Limit = v
		}
	}
	if page := strings.TrimSpace(c.Query("page")); page != "" {
		if v, err := strconv.Atoi(page); err == nil {
			opts.Page = v
		}
	}

	opts.Search = strings.TrimSpace(c.Query("search"))
	opts.SortBy = queryParam(c, "sortBy", "sort_by")
	opts.SortOrder = queryParam(c, "sortOrder", "sort_order")

	return opts, nil
}

// queryParam returns the first non-empty value among names. The camelCase
// name comes first; snake_case names are accepted as aliases.
func queryParam(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Query(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		ts, err := parseQueryDate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from")
		}
		from = &ts
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		ts, err := parseQueryDate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to")
		}
		to = &ts
	}
	return from, to, nil
}

// parseQueryDate accepts a calendar date or an RFC 3339 timestamp.
func parseQueryDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(queryDateLayout, raw); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

type responseEnvelope struct {
	Data interface{} `json:"data"`
}

func successResponse(data interface{}) responseEnvelope {
	return responseEnvelope{Data: data}
}

func errorResponse(msg string) gin.H {
	return gin.H{"error": msg}
}
