package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"admissionscheduling/internal/delivery/http/helpers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	ProgramID           *string    `json:"program_id"`
	Category            string     `json:"category"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Location            string     `json:"location"`
	Visible             bool       `json:"visible"`
	CapacityModel       string     `json:"capacity_model"`
	MaxCapacity         *int       `json:"max_capacity"`
	RequireRegistration bool       `json:"require_registration"`
	TrackAttendance     bool       `json:"track_attendance"`
	StartsAt            *time.Time `json:"starts_at"`
	EndsAt              *time.Time `json:"ends_at"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Title == "" {
		errs = append(errs, "title is required")
	}
	if !domain.CapacityModel(c.CapacityModel).IsValid() {
		errs = append(errs, "capacity_model must be single, multiple or unlimited")
	}
	if c.MaxCapacity != nil && *c.MaxCapacity < 1 {
		errs = append(errs, "max_capacity must be positive")
	}
	return errs
}

// CreateEventSuccessResponse is the success response envelope for POST /events (201).
type CreateEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *EventController) logError(r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Create a bookable event (interview round, workshop, info session). max_capacity is required for the multiple capacity model and must be absent otherwise. Coordinator or admin role required.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event := &domain.Event{
		ProgramID:           req.ProgramID,
		Category:            req.Category,
		Title:               req.Title,
		Description:         req.Description,
		Location:            req.Location,
		Visible:             req.Visible,
		CapacityModel:       domain.CapacityModel(req.CapacityModel),
		MaxCapacity:         req.MaxCapacity,
		RequireRegistration: req.RequireRegistration,
		TrackAttendance:     req.TrackAttendance,
		StartsAt:            req.StartsAt,
		EndsAt:              req.EndsAt,
	}
	if err := c.Service.CreateEvent(r.Context(), actor, event); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEventSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type GetEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.GetEventSuccessResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEventsResponse is the data payload for GET /events (200).
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListEvents godoc
// @Summary List events
// @Description Returns a paginated list of events, optionally filtered by program_id.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param program_id query string false "Filter by program ID"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains items and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	var programID *string
	if s := r.URL.Query().Get("program_id"); s != "" {
		programID = &s
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), programID, params)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Location      *string    `json:"location"`
	Visible       *bool      `json:"visible"`
	Status        *string    `json:"status"`
	CapacityModel *string    `json:"capacity_model"`
	MaxCapacity   *int       `json:"max_capacity"`
	StartsAt      *time.Time `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Title != nil && *u.Title == "" {
		errs = append(errs, "title cannot be empty")
	}
	if u.CapacityModel != nil && !domain.CapacityModel(*u.CapacityModel).IsValid() {
		errs = append(errs, "capacity_model must be single, multiple or unlimited")
	}
	if u.MaxCapacity != nil && *u.MaxCapacity < 1 {
		errs = append(errs, "max_capacity must be positive")
	}
	return errs
}

// UpdateEventSuccessResponse is the success response envelope for PATCH /events/{eventID} (200).
type UpdateEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Updates mutable event fields. Changing capacity_model or max_capacity is rejected with 409 once the event has slots or registrations. Coordinator or admin role required.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.UpdateEventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (capacity model frozen)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
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
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	upd := domain.EventUpdate{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Visible:     req.Visible,
		MaxCapacity: req.MaxCapacity,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	if req.Status != nil {
		status := domain.EventStatus(*req.Status)
		upd.Status = &status
	}
	if req.CapacityModel != nil {
		model := domain.CapacityModel(*req.CapacityModel)
		upd.CapacityModel = &model
	}
	event, err := c.Service.UpdateEvent(r.Context(), actor, eventID, upd)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEventResponse is the data payload for DELETE /events/{eventID} (200).
type DeleteEventResponse struct {
	Status string `json:"status"`
}

// DeleteEventSuccessResponse is the success response envelope for DELETE /events/{eventID} (200).
type DeleteEventSuccessResponse struct {
	Data  DeleteEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes the event with its windows, slots and registrations. Refuses with 409 while scheduled appointments exist unless force=true, in which case they are cancelled first. Coordinator or admin role required.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param force query bool false "Cancel scheduled appointments instead of refusing"
// @Success 200 {object} controllers.DeleteEventSuccessResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (scheduled appointments exist)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
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
	force := r.URL.Query().Get("force") == "true"
	if err := c.Service.DeleteEvent(r.Context(), actor, eventID, force); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}
