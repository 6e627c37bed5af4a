package controllers

import (
	"log/slog"
	"net/http"

	"admissionscheduling/internal/delivery/http/helpers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

type BookingController struct {
	Logger  *slog.Logger
	Booking domain.BookingService
	Changes domain.ChangeRequestService
}

func NewBookingController(logger *slog.Logger, booking domain.BookingService, changes domain.ChangeRequestService) *BookingController {
	return &BookingController{
		Logger:  logger,
		Booking: booking,
		Changes: changes,
	}
}

func (c *BookingController) logError(r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
}

// AssignSlotRequest is the request body for POST /events/{eventID}/appointments.
// applicant_id defaults to the authenticated user; only coordinators may
// book on behalf of someone else.
type AssignSlotRequest struct {
	SlotID      string `json:"slot_id"`
	ApplicantID string `json:"applicant_id"`
	Notes       string `json:"notes"`
}

// Validate implements Validator.
func (a AssignSlotRequest) Validate() []string {
	var errs []string
	if a.SlotID == "" {
		errs = append(errs, "slot_id is required")
	}
	return errs
}

// AssignSlotSuccessResponse is the success response envelope for POST /events/{eventID}/appointments (201).
type AssignSlotSuccessResponse struct {
	Data  *domain.Appointment `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// AssignSlot godoc
// @Summary Book a slot
// @Description Books a free slot for an applicant, creating a scheduled appointment. Exactly one booking can win a slot; losers get 409. An applicant can hold at most one scheduled appointment per event (409 otherwise).
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AssignSlotRequest true "Slot to book"
// @Success 201 {object} controllers.AssignSlotSuccessResponse "data contains the appointment"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (booking for someone else)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (slot taken or already booked)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event does not use slots, or slot belongs to another event)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/appointments [post]
func (c *BookingController) AssignSlot(w http.ResponseWriter, r *http.Request) {
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
	var req AssignSlotRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	applicantID := req.ApplicantID
	if applicantID == "" {
		applicantID = actor.ID
	}
	appt, err := c.Booking.Assign(r.Context(), actor, eventID, req.SlotID, applicantID, req.Notes)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, appt)
}

// CancelAppointmentRequest is the request body for POST /appointments/{appointmentID}/cancel.
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// CancelAppointmentResponse is the data payload for POST /appointments/{appointmentID}/cancel (200).
type CancelAppointmentResponse struct {
	Status string `json:"status"`
}

// CancelAppointmentSuccessResponse is the success response envelope for POST /appointments/{appointmentID}/cancel (200).
type CancelAppointmentSuccessResponse struct {
	Data  CancelAppointmentResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// CancelAppointment godoc
// @Summary Cancel an appointment
// @Description Cancels a scheduled appointment and frees its slot in the same transaction. The applicant may cancel their own appointment; coordinators may cancel any.
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appointmentID path string true "Appointment ID (UUID)"
// @Param body body CancelAppointmentRequest true "Cancellation reason"
// @Success 200 {object} controllers.CancelAppointmentSuccessResponse "data contains status"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not scheduled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /appointments/{appointmentID}/cancel [post]
func (c *BookingController) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("appointmentID")
	if appointmentID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing appointmentID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CancelAppointmentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Booking.Cancel(r.Context(), actor, appointmentID, req.Reason); err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CancelAppointmentResponse{Status: "cancelled"})
}

// ListAppointmentsResponse is the data payload for GET /events/{eventID}/appointments (200).
type ListAppointmentsResponse struct {
	Items      []*domain.Appointment  `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListAppointmentsSuccessResponse is the success response envelope for GET /events/{eventID}/appointments (200).
type ListAppointmentsSuccessResponse struct {
	Data  ListAppointmentsResponse `json:"data"`
	Error *helpers.APIError        `json:"error"`
}

// ListAppointments godoc
// @Summary List appointments for an event
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Filter by appointment status (scheduled, done, no_show, cancelled)"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListAppointmentsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/appointments [get]
func (c *BookingController) ListAppointments(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var status *domain.AppointmentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := domain.AppointmentStatus(s)
		switch v {
		case domain.AppointmentScheduled, domain.AppointmentDone, domain.AppointmentNoShow, domain.AppointmentCancelled:
		default:
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid status filter")
			return
		}
		status = &v
	}
	params := helpers.ParsePagination(r)
	appts, total, err := c.Booking.ListAppointments(r.Context(), eventID, status, params)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if appts == nil {
		appts = []*domain.Appointment{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListAppointmentsResponse{Items: appts, Pagination: meta})
}

// RequestChangeRequest is the request body for POST /appointments/{appointmentID}/change-requests.
type RequestChangeRequest struct {
	Reason      string `json:"reason"`
	Suggestions string `json:"suggestions"`
}

// Validate implements Validator.
func (rc RequestChangeRequest) Validate() []string {
	var errs []string
	if rc.Reason == "" {
		errs = append(errs, "reason is required")
	}
	return errs
}

// RequestChangeSuccessResponse is the success response envelope for POST /appointments/{appointmentID}/change-requests (201).
type RequestChangeSuccessResponse struct {
	Data  *domain.ChangeRequest `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// RequestChange godoc
// @Summary Request a change to an appointment
// @Description Files a pending change request for a scheduled appointment. No effect on the appointment until a coordinator decides.
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param appointmentID path string true "Appointment ID (UUID)"
// @Param body body RequestChangeRequest true "Reason and optional suggested alternatives"
// @Success 201 {object} controllers.RequestChangeSuccessResponse "data contains the change request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (appointment not scheduled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /appointments/{appointmentID}/change-requests [post]
func (c *BookingController) RequestChange(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("appointmentID")
	if appointmentID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing appointmentID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req RequestChangeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	cr, err := c.Changes.Request(r.Context(), actor, appointmentID, req.Reason, req.Suggestions)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, cr)
}

// ListChangeRequestsSuccessResponse is the success response envelope for GET /appointments/{appointmentID}/change-requests (200).
type ListChangeRequestsSuccessResponse struct {
	Data  []*domain.ChangeRequest `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// ListChangeRequests godoc
// @Summary List change requests for an appointment
// @Tags booking
// @Produce json
// @Security BearerAuth
// @Param appointmentID path string true "Appointment ID (UUID)"
// @Success 200 {object} controllers.ListChangeRequestsSuccessResponse "data is an array of change requests"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /appointments/{appointmentID}/change-requests [get]
func (c *BookingController) ListChangeRequests(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("appointmentID")
	if appointmentID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing appointmentID")
		return
	}
	reqs, err := c.Changes.ListForAppointment(r.Context(), appointmentID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if reqs == nil {
		reqs = []*domain.ChangeRequest{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reqs)
}

// DecideChangeRequest is the request body for POST /change-requests/{requestID}/decision.
// new_slot_id is required when status is accepted.
type DecideChangeRequest struct {
	Status    string  `json:"status"`
	NewSlotID *string `json:"new_slot_id"`
}

// Validate implements Validator.
func (d DecideChangeRequest) Validate() []string {
	var errs []string
	switch domain.ChangeRequestStatus(d.Status) {
	case domain.ChangeRequestAccepted, domain.ChangeRequestRejected, domain.ChangeRequestCancelled:
	default:
		errs = append(errs, "status must be accepted, rejected or cancelled")
	}
	if domain.ChangeRequestStatus(d.Status) == domain.ChangeRequestAccepted && (d.NewSlotID == nil || *d.NewSlotID == "") {
		errs = append(errs, "new_slot_id is required when accepting")
	}
	return errs
}

// DecideChangeSuccessResponse is the success response envelope for POST /change-requests/{requestID}/decision (200).
type DecideChangeSuccessResponse struct {
	Data  *domain.ChangeRequest `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// DecideChange godoc
// @Summary Decide a change request
// @Description Resolves a pending change request. Accepting moves the appointment to new_slot_id atomically (old slot freed, new slot booked, appointment repointed); on any failure the original booking is untouched. Coordinator or admin role required.
// @Tags booking
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestID path string true "Change request ID (UUID)"
// @Param body body DecideChangeRequest true "Decision"
// @Success 200 {object} controllers.DecideChangeSuccessResponse "data contains the decided change request"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not pending, or new slot taken)"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (new slot belongs to another event)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /change-requests/{requestID}/decision [post]
func (c *BookingController) DecideChange(w http.ResponseWriter, r *http.Request) {
	requestID := r.PathValue("requestID")
	if requestID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing requestID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req DecideChangeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	cr, err := c.Changes.Decide(r.Context(), actor, requestID, domain.ChangeRequestStatus(req.Status), req.NewSlotID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, cr)
}
