package controllers

import (
	"log/slog"
	"net/http"

	"admissionscheduling/internal/delivery/http/helpers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

type EnrollmentController struct {
	Logger  *slog.Logger
	Service domain.EnrollmentService
}

func NewEnrollmentController(logger *slog.Logger, svc domain.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *EnrollmentController) logError(r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
}

// RegisterRequest is the request body for POST /events/{eventID}/registrations.
// user_id defaults to the authenticated user; only coordinators may
// register someone else.
type RegisterRequest struct {
	UserID string `json:"user_id"`
	Notes  string `json:"notes"`
}

// RegisterSuccessResponse is the success response envelope for POST /events/{eventID}/registrations (201).
type RegisterSuccessResponse struct {
	Data  *domain.EventAttendance `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// Register godoc
// @Summary Register for an event
// @Description Registers a user for a multiple or unlimited capacity event. For bounded events registration is capacity checked under a row lock, so concurrent registrations never overshoot max_capacity (409 when full). Single capacity events refuse with 422; use slot booking instead.
// @Tags enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RegisterRequest true "Registration data"
// @Success 201 {object} controllers.RegisterSuccessResponse "data contains the attendance record"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (registering someone else)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (full or already registered)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event uses slots)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *EnrollmentController) Register(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = actor.ID
	}
	att, err := c.Service.Register(r.Context(), actor, eventID, userID, req.Notes)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, att)
}

// UnregisterResponse is the data payload for DELETE /events/{eventID}/registrations/{userID} (200).
type UnregisterResponse struct {
	Status string `json:"status"`
}

// UnregisterSuccessResponse is the success response envelope for DELETE /events/{eventID}/registrations/{userID} (200).
type UnregisterSuccessResponse struct {
	Data  UnregisterResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// Unregister godoc
// @Summary Unregister from an event
// @Description Removes a registration, freeing capacity for bounded events. Users may unregister themselves; coordinators may unregister anyone.
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} controllers.UnregisterSuccessResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no registration)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations/{userID} [delete]
func (c *EnrollmentController) Unregister(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	userID := r.PathValue("userID")
	if eventID == "" || userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or userID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.Unregister(r.Context(), actor, eventID, userID); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UnregisterResponse{Status: "unregistered"})
}

// MarkAttendanceRequest is the request body for PATCH /events/{eventID}/registrations/{userID}/attendance.
type MarkAttendanceRequest struct {
	Attended bool   `json:"attended"`
	Notes    string `json:"notes"`
	Reset    bool   `json:"reset"`
}

// MarkAttendanceSuccessResponse is the success response envelope for PATCH /events/{eventID}/registrations/{userID}/attendance (200).
type MarkAttendanceSuccessResponse struct {
	Data  *domain.EventAttendance `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// MarkAttendance godoc
// @Summary Mark attendance for a registration
// @Description Marks a registered user as attended or no_show. reset=true returns the record to registered and clears the attended timestamp. Coordinator or admin role required.
// @Tags enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID (UUID)"
// @Param body body MarkAttendanceRequest true "Attendance outcome"
// @Success 200 {object} controllers.MarkAttendanceSuccessResponse "data contains the updated attendance record"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no registration)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations/{userID}/attendance [patch]
func (c *EnrollmentController) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	userID := r.PathValue("userID")
	if eventID == "" || userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or userID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req MarkAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	att, err := c.Service.MarkAttendance(r.Context(), actor, eventID, userID, req.Attended, req.Notes, req.Reset)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, att)
}

// ListAttendanceResponse is the data payload for GET /events/{eventID}/registrations (200).
type ListAttendanceResponse struct {
	Items      []*domain.EventAttendance `json:"items"`
	Pagination helpers.PaginationMeta    `json:"pagination"`
}

// ListAttendanceSuccessResponse is the success response envelope for GET /events/{eventID}/registrations (200).
type ListAttendanceSuccessResponse struct {
	Data  ListAttendanceResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// ListAttendance godoc
// @Summary List registrations for an event
// @Description Returns a paginated list of attendance records. Coordinator or admin role required.
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListAttendanceSuccessResponse "data contains items and pagination"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [get]
func (c *EnrollmentController) ListAttendance(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	params := helpers.ParsePagination(r)
	atts, total, err := c.Service.ListAttendance(r.Context(), actor, eventID, params)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if atts == nil {
		atts = []*domain.EventAttendance{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListAttendanceResponse{Items: atts, Pagination: meta})
}
