package controllers

import (
	"log/slog"
	"net/http"

	"admissionscheduling/internal/delivery/http/helpers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

type InvitationController struct {
	Logger  *slog.Logger
	Service domain.InvitationService
}

func NewInvitationController(logger *slog.Logger, svc domain.InvitationService) *InvitationController {
	return &InvitationController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *InvitationController) logError(r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
}

// InviteUsersRequest is the request body for POST /events/{eventID}/invitations.
type InviteUsersRequest struct {
	UserIDs []string `json:"user_ids"`
	Notes   string   `json:"notes"`
}

// Validate implements Validator.
func (i InviteUsersRequest) Validate() []string {
	var errs []string
	if len(i.UserIDs) == 0 {
		errs = append(errs, "user_ids is required")
	}
	for _, id := range i.UserIDs {
		if id == "" {
			errs = append(errs, "user_ids must not contain empty values")
			break
		}
	}
	return errs
}

// InviteUsersSuccessResponse is the success response envelope for POST /events/{eventID}/invitations (200).
type InviteUsersSuccessResponse struct {
	Data  []domain.InviteResult `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// InviteUsers godoc
// @Summary Invite users to an event
// @Description Creates pending invitations for each user. Users outside the event's program, already registered, or already invited are skipped with a per-user outcome instead of failing the batch. Only valid for multiple or unlimited capacity events (422 otherwise). Coordinator or admin role required.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body InviteUsersRequest true "Users to invite"
// @Success 200 {object} controllers.InviteUsersSuccessResponse "data is an array of per-user outcomes"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: unprocessable (event uses slots)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [post]
func (c *InvitationController) InviteUsers(w http.ResponseWriter, r *http.Request) {
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
	var req InviteUsersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	results, err := c.Service.Invite(r.Context(), actor, eventID, req.UserIDs, req.Notes)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, results)
}

// ListInvitationsSuccessResponse is the success response envelope for GET /events/{eventID}/invitations (200).
type ListInvitationsSuccessResponse struct {
	Data  []*domain.EventInvitation `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// ListInvitations godoc
// @Summary List invitations for an event
// @Description Returns all invitations for the event. Coordinator or admin role required.
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ListInvitationsSuccessResponse "data is an array of invitations"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/invitations [get]
func (c *InvitationController) ListInvitations(w http.ResponseWriter, r *http.Request) {
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
	invs, err := c.Service.ListInvitations(r.Context(), actor, eventID)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	if invs == nil {
		invs = []*domain.EventInvitation{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, invs)
}

// RespondToInvitationRequest is the request body for POST /invitations/{invitationID}/respond.
type RespondToInvitationRequest struct {
	Accept bool `json:"accept"`
}

// RespondToInvitationSuccessResponse is the success response envelope for POST /invitations/{invitationID}/respond (200).
type RespondToInvitationSuccessResponse struct {
	Data  *domain.EventInvitation `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// RespondToInvitation godoc
// @Summary Respond to an invitation
// @Description Accepts or rejects a pending invitation. Only the invited user may respond; repeat responses get 409. Accepting registers the user for the event in the same transaction; if the event filled up in the meantime the invitation ends rejected and the response is 409.
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param invitationID path string true "Invitation ID (UUID)"
// @Param body body RespondToInvitationRequest true "Response"
// @Success 200 {object} controllers.RespondToInvitationSuccessResponse "data contains the resolved invitation"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the invited user)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already responded, or event full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /invitations/{invitationID}/respond [post]
func (c *InvitationController) RespondToInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID := r.PathValue("invitationID")
	if invitationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing invitationID")
		return
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req RespondToInvitationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := c.Service.Respond(r.Context(), actor, invitationID, req.Accept)
	if err != nil {
		if !helpers.WriteDomainError(w, err) {
			c.logError(r, err)
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, inv)
}
