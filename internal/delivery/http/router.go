package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"admissionscheduling/internal/delivery/http/controllers"
	"admissionscheduling/internal/delivery/http/middleware"
	"admissionscheduling/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
// Every route except the swagger UI requires a Bearer token.
func NewRouter(
	verifier domain.TokenVerifier,
	logger *slog.Logger,
	events *controllers.EventController,
	schedule *controllers.ScheduleController,
	booking *controllers.BookingController,
	enrollment *controllers.EnrollmentController,
	invitations *controllers.InvitationController,
) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(events.CreateEvent))
	mux.HandleFunc("GET /events", auth(events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(events.DeleteEvent))

	// Windows and slots
	mux.HandleFunc("POST /events/{eventID}/windows", auth(schedule.AddWindow))
	mux.HandleFunc("GET /events/{eventID}/windows", auth(schedule.ListWindows))
	mux.HandleFunc("POST /windows/{windowID}/slots", auth(schedule.GenerateSlots))
	mux.HandleFunc("DELETE /windows/{windowID}", auth(schedule.DeleteWindow))
	mux.HandleFunc("GET /events/{eventID}/slots", auth(schedule.ListSlots))
	mux.HandleFunc("DELETE /slots/{slotID}", auth(schedule.DeleteSlot))

	// Appointments and change requests
	mux.HandleFunc("POST /events/{eventID}/appointments", auth(booking.AssignSlot))
	mux.HandleFunc("GET /events/{eventID}/appointments", auth(booking.ListAppointments))
	mux.HandleFunc("POST /appointments/{appointmentID}/cancel", auth(booking.CancelAppointment))
	mux.HandleFunc("POST /appointments/{appointmentID}/change-requests", auth(booking.RequestChange))
	mux.HandleFunc("GET /appointments/{appointmentID}/change-requests", auth(booking.ListChangeRequests))
	mux.HandleFunc("POST /change-requests/{requestID}/decision", auth(booking.DecideChange))

	// Registrations and invitations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(enrollment.Register))
	mux.HandleFunc("GET /events/{eventID}/registrations", auth(enrollment.ListAttendance))
	mux.HandleFunc("DELETE /events/{eventID}/registrations/{userID}", auth(enrollment.Unregister))
	mux.HandleFunc("PATCH /events/{eventID}/registrations/{userID}/attendance", auth(enrollment.MarkAttendance))
	mux.HandleFunc("POST /events/{eventID}/invitations", auth(invitations.InviteUsers))
	mux.HandleFunc("GET /events/{eventID}/invitations", auth(invitations.ListInvitations))
	mux.HandleFunc("POST /invitations/{invitationID}/respond", auth(invitations.RespondToInvitation))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
