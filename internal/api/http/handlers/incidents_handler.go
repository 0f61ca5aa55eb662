package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/soporte-bpo/incident-service/internal/api/dto"
	"github.com/soporte-bpo/incident-service/internal/auth"
	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/service"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// IncidentsHandler exposes the incident lifecycle over HTTP.
type IncidentsHandler struct {
	incidents   *service.IncidentService
	assignments *service.AssignmentService
}

// NewIncidentsHandler constructs the handler.
func NewIncidentsHandler(incidents *service.IncidentService, assignments *service.AssignmentService) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, assignments: assignments}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	summary, err := h.incidents.Create(c.Context(), principal.User, service.IncidentCreateInput{
		Sede:            req.Sede,
		Departamento:    req.Departamento,
		SeatNumber:      req.SeatNumber,
		LocationDetails: req.LocationDetails,
		FailureType:     req.FailureType,
		Description:     req.Description,
		AnydeskAddress:  req.AnydeskAddress,
		AdvisorCedula:   req.AdvisorCedula,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": summaryResponse(summary)})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summaries, err := h.incidents.List(c.Context(), principal.User, parseIncidentQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponses(summaries)})
}

// ListMine GET /incidents/mine returns the caller's active workload.
func (h *IncidentsHandler) ListMine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summaries, err := h.incidents.ListAssignedTo(c.Context(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponses(summaries)})
}

// ListReported GET /incidents/reported returns everything the caller
// reported, with per-status counts.
func (h *IncidentsHandler) ListReported(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summaries, counts, err := h.incidents.MyReports(c.Context(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": summaryResponses(summaries),
		"counts": dto.StatusCountsResponse{
			Total:         counts.Total,
			Pending:       counts.Pending,
			InProgress:    counts.InProgress,
			InSupervision: counts.InSupervision,
			Approved:      counts.Approved,
			Returned:      counts.Returned,
		},
	})
}

// ListByStatus backs the queue endpoints (pending, supervision, returned,
// approved).
func (h *IncidentsHandler) ListByStatus(status domain.IncidentStatus) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := auth.PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("user required")
		}
		summaries, err := h.incidents.ListByStatus(c.Context(), principal.User, status, parseIncidentQuery(c))
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": summaryResponses(summaries)})
	}
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	summary, err := h.incidents.Get(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// History GET /incidents/:id/history.
func (h *IncidentsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	entries, err := h.incidents.History(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			Details:   entry.Details,
			Timestamp: entry.Timestamp,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Assign PUT /incidents/:id/assign.
func (h *IncidentsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	technicianID := req.TechnicianID
	if technicianID == "" {
		technicianID = principal.User.ID
	}
	summary, err := h.assignments.Assign(c.Context(), principal.User, c.Params("id"), technicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Reassign PUT /incidents/:id/reassign.
func (h *IncidentsHandler) Reassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AssignIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" {
		return apperrors.NewValidationError("technician_id required", nil)
	}
	summary, err := h.assignments.Reassign(c.Context(), principal.User, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Resolve PUT /incidents/:id/resolve.
func (h *IncidentsHandler) Resolve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ResolveIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	summary, err := h.incidents.Resolve(c.Context(), principal.User, c.Params("id"), req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Approve PUT /incidents/:id/approve.
func (h *IncidentsHandler) Approve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ApproveIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	summary, err := h.incidents.Approve(c.Context(), principal.User, c.Params("id"), req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Reject PUT /incidents/:id/reject.
func (h *IncidentsHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	summary, err := h.incidents.Reject(c.Context(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Return PUT /incidents/:id/return.
func (h *IncidentsHandler) Return(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	summary, err := h.incidents.Return(c.Context(), principal.User, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// Correct PUT /incidents/:id/correct.
func (h *IncidentsHandler) Correct(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CorrectIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	summary, err := h.incidents.Correct(c.Context(), principal.User, c.Params("id"), service.IncidentCorrectionInput{
		Description:    req.Description,
		FailureType:    req.FailureType,
		AnydeskAddress: req.AnydeskAddress,
		AdvisorCedula:  req.AdvisorCedula,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summaryResponse(summary)})
}

// AddAttachment POST /incidents/:id/attachments.
func (h *IncidentsHandler) AddAttachment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.AttachmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ref, err := h.incidents.AddAttachment(c.Context(), principal.User, c.Params("id"), service.AttachmentInput{
		FileName:     req.FileName,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
		SizeBytes:    req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(ref)})
}

// ListAttachments GET /incidents/:id/attachments.
func (h *IncidentsHandler) ListAttachments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	refs, err := h.incidents.ListAttachments(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(refs))
	for i := range refs {
		items = append(items, attachmentResponse(&refs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// StatsBySede GET /stats/by-sede.
func (h *IncidentsHandler) StatsBySede(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	stats, err := h.incidents.StatsBySede(c.Context(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.SedeStatsResponse, 0, len(stats))
	for _, entry := range stats {
		items = append(items, dto.SedeStatsResponse{
			Sede:          entry.Sede,
			Pending:       entry.Pending,
			InProgress:    entry.InProgress,
			InSupervision: entry.InSupervision,
			Approved:      entry.Approved,
			Total:         entry.Total,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseIncidentQuery(c *fiber.Ctx) authz.Query {
	var query authz.Query
	if raw := c.Query("status"); raw != "" {
		status := domain.IncidentStatus(raw)
		query.Status = &status
	}
	if raw := c.Query("assigned_to"); raw != "" {
		query.AssignedToID = &raw
	}
	if raw := c.Query("departamento"); raw != "" {
		dept := domain.Departamento(raw)
		query.Departamento = &dept
	}
	if raw := c.Query("sede"); raw != "" {
		sede := domain.Sede(raw)
		query.Sede = &sede
	}
	if raw := c.Query("creador"); raw != "" {
		role := domain.Role(raw)
		query.CreatorRole = &role
	}
	if raw := c.Query("tiempo_supervision"); raw != "" {
		age := authz.SupervisionAge(raw)
		query.SupervisionAge = &age
	}
	return query
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func summaryResponse(summary *domain.IncidentSummary) dto.IncidentSummary {
	return dto.IncidentSummary{
		ID:              summary.ID,
		FailureType:     summary.FailureType,
		Description:     summary.Description,
		Status:          summary.Status,
		StationCode:     summary.StationCode,
		LocationDetails: summary.LocationDetails,
		Sede:            summary.Sede,
		Departamento:    summary.Departamento,
		ReportedByID:    summary.ReportedByID,
		ReportedByName:  summary.ReportedByName,
		ReporterRole:    summary.ReporterRole,
		AssignedToID:    summary.AssignedToID,
		AssignedToName:  summary.AssignedToName,
		ReturnReason:    summary.ReturnReason,
		ReturnCount:     summary.ReturnCount,
		ReturnedAt:      summary.ReturnedAt,
		CreatedAt:       summary.CreatedAt,
		UpdatedAt:       summary.UpdatedAt,
	}
}

func summaryResponses(summaries []domain.IncidentSummary) []dto.IncidentSummary {
	items := make([]dto.IncidentSummary, 0, len(summaries))
	for i := range summaries {
		items = append(items, summaryResponse(&summaries[i]))
	}
	return items
}

func attachmentResponse(ref *domain.AttachmentReference) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:           ref.ID,
		FileName:     ref.FileName,
		OriginalName: ref.OriginalName,
		MimeType:     ref.MimeType,
		SizeBytes:    ref.SizeBytes,
		UploadedByID: ref.UploadedByID,
		CreatedAt:    ref.CreatedAt,
	}
}
