package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"admissionscheduling/internal/delivery/http/helpers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

type ScheduleController struct {
	Logger  *slog.Logger
	Service domain.ScheduleService
}

func NewScheduleController(logger *slog.Logger, svc domain.ScheduleService) *ScheduleController {
	return &ScheduleController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *ScheduleController) logError(r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
}

// AddWindowRequest is the request body for POST /events/{eventID}/windows.
type AddWindowRequest struct {
	Date        time.Time `json:"date"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	SlotMinutes int       `json:"slot_minutes"`
	Timezone    string    `json:"timezone"`
}

// Validate implements Validator.
func (a AddWindowRequest) Validate() []string {
	var errs []string
	if !a.StartsAt.Before(a.EndsAt) {
		errs = append(errs, "starts_at must be before ends_at")
	}
	if !domain.AllowedSlotMinutes[a.SlotMinutes] {
		errs = append(errs, "slot_minutes must be one of 15, 20, 30, 45, 60")
	}
	if a.Timezone == "" {
		errs = append(errs, "timezone is required")
	}
	return errs
}

// AddWindowSuccessResponse is the success response envelope for POST /events/{eventID}/windows (201).
type AddWindowSuccessResponse struct {
	Data  *domain.Window    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AddWindow godoc
// @Summary Add a scheduling window to an event
// @Description Adds a contiguous time range from which interview slots are generated. Only valid for single capacity events (422 otherwise). Coordinator or admin role required.
// @Tags schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AddWindowRequest true "Window definition"
// @Success 201 {object} controllers.AddWindowSuccessResponse "data contains the created window"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event does not use slots)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/windows [post]
func (c *ScheduleController) AddWindow(w http.ResponseWriter, r *http.Request) {
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
	var req AddWindowRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	window := &domain.Window{
		EventID:     eventID,
		Date:        req.Date,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		SlotMinutes: req.SlotMinutes,
		Timezone:    req.Timezone,
	}
	if err := c.Service.AddWindow(r.Context(), actor, window); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, window)
}

// ListWindowsSuccessResponse is the success response envelope for GET /events/{eventID}/windows (200).
type ListWindowsSuccessResponse struct {
	Data  []*domain.WindowWithCapacity `json:"data"`
	Error *helpers.APIError            `json:"error"`
}

// ListWindows godoc
// @Summary List windows for an event
// @Description Returns the event's windows with derived free/booked slot counts.
// @Tags schedule
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ListWindowsSuccessResponse "data is an array of windows with capacity"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/windows [get]
func (c *ScheduleController) ListWindows(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	windows, err := c.Service.ListWindows(r.Context(), eventID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if windows == nil {
		windows = []*domain.WindowWithCapacity{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, windows)
}

// GenerateSlotsRequest is the request body for POST /windows/{windowID}/slots.
type GenerateSlotsRequest struct {
	OverwriteFree bool `json:"overwrite_free"`
}

// GenerateSlotsSuccessResponse is the success response envelope for POST /windows/{windowID}/slots (200).
type GenerateSlotsSuccessResponse struct {
	Data  *domain.GenerateResult `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// GenerateSlots godoc
// @Summary Generate slots for a window
// @Description Tiles the window into fixed-length slots. Idempotent: re-running never duplicates or destroys booked slots; existing slots count as skipped. overwrite_free refreshes the end boundary of existing free slots. Coordinator or admin role required.
// @Tags schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param windowID path string true "Window ID (UUID)"
// @Param body body GenerateSlotsRequest true "Generation options"
// @Success 200 {object} controllers.GenerateSlotsSuccessResponse "data contains created and skipped counts"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /windows/{windowID}/slots [post]
func (c *ScheduleController) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	windowID := r.PathValue("windowID")
	if windowID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing windowID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req GenerateSlotsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Service.GenerateSlots(r.Context(), actor, windowID, req.OverwriteFree)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, result)
}

// ListSlotsSuccessResponse is the success response envelope for GET /events/{eventID}/slots (200).
type ListSlotsSuccessResponse struct {
	Data  []*domain.Slot    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListSlots godoc
// @Summary List slots for an event
// @Description Returns all slots across the event's windows, optionally filtered by status (free or booked).
// @Tags schedule
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Filter by slot status (free or booked)"
// @Success 200 {object} controllers.ListSlotsSuccessResponse "data is an array of slots"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/slots [get]
func (c *ScheduleController) ListSlots(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var status *domain.SlotStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := domain.SlotStatus(s)
		if v != domain.SlotFree && v != domain.SlotBooked {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "status must be free or booked")
			return
		}
		status = &v
	}
	slots, err := c.Service.ListSlots(r.Context(), eventID, status)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if slots == nil {
		slots = []*domain.Slot{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, slots)
}

// DeleteWindowResponse is the data payload for DELETE /windows/{windowID} (200).
type DeleteWindowResponse struct {
	Status string `json:"status"`
}

// DeleteWindowSuccessResponse is the success response envelope for DELETE /windows/{windowID} (200).
type DeleteWindowSuccessResponse struct {
	Data  DeleteWindowResponse `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// DeleteWindow godoc
// @Summary Delete a window and its slots
// @Description Deletes the window and all its slots. Refuses with 409 while scheduled appointments are bound to its slots unless force=true, in which case they are cancelled in the same transaction. Coordinator or admin role required.
// @Tags schedule
// @Produce json
// @Security BearerAuth
// @Param windowID path string true "Window ID (UUID)"
// @Param force query bool false "Cancel bound appointments instead of refusing"
// @Success 200 {object} controllers.DeleteWindowSuccessResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (scheduled appointments bound)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /windows/{windowID} [delete]
func (c *ScheduleController) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	windowID := r.PathValue("windowID")
	if windowID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing windowID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	if err := c.Service.DeleteWindow(r.Context(), actor, windowID, force); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteWindowResponse{Status: "deleted"})
}

// DeleteSlot godoc
// @Summary Delete a slot
// @Description Deletes one slot. Refuses with 409 while a scheduled appointment is bound to it unless force=true, in which case the appointment is cancelled in the same transaction. Coordinator or admin role required.
// @Tags schedule
// @Produce json
// @Security BearerAuth
// @Param slotID path string true "Slot ID (UUID)"
// @Param force query bool false "Cancel the bound appointment instead of refusing"
// @Success 200 {object} controllers.DeleteWindowSuccessResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (scheduled appointment bound)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /slots/{slotID} [delete]
func (c *ScheduleController) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID := r.PathValue("slotID")
	if slotID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing slotID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	if err := c.Service.DeleteSlot(r.Context(), actor, slotID, force); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteWindowResponse{Status: "deleted"})
}
