package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"admissionscheduling/internal/domain"
)

// memStore is an in-memory backing store shared by the fake repositories.
// The tx mutex emulates the database's transaction serialization: WithinTx
// holds it for the whole closure, so concurrent transactions see committed
// state only. Individual repo calls take the data mutex per operation.
type memStore struct {
	mu sync.Mutex // data access
	tx sync.Mutex // transaction serialization

	events       map[string]*domain.Event
	windows      map[string]*domain.Window
	slots        map[string]*domain.Slot
	appointments map[string]*domain.Appointment
	changes      map[string]*domain.ChangeRequest
	attendances  map[string]*domain.EventAttendance
	invitations  map[string]*domain.EventInvitation
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		events:       make(map[string]*domain.Event),
		windows:      make(map[string]*domain.Window),
		slots:        make(map[string]*domain.Slot),
		appointments: make(map[string]*domain.Appointment),
		changes:      make(map[string]*domain.ChangeRequest),
		attendances:  make(map[string]*domain.EventAttendance),
		invitations:  make(map[string]*domain.EventInvitation),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type memTxManager struct{ s *memStore }

func (m *memTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.s.tx.Lock()
	defer m.s.tx.Unlock()
	return fn(ctx)
}

type fakeEventRepo struct{ s *memStore }

func (r *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event.ID = r.s.nextID("evt")
	cp := *event
	r.s.events[event.ID] = &cp
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (r *fakeEventRepo) LockForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeEventRepo) List(_ context.Context, programID *string, _ domain.PaginationParams) ([]*domain.Event, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Event
	for _, event := range r.s.events {
		if programID != nil && (event.ProgramID == nil || *event.ProgramID != *programID) {
			continue
		}
		cp := *event
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeEventRepo) Update(_ context.Context, id string, upd domain.EventUpdate) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	event, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		event.Title = *upd.Title
	}
	if upd.Status != nil {
		event.Status = *upd.Status
	}
	if upd.CapacityModel != nil {
		event.CapacityModel = *upd.CapacityModel
	}
	if upd.MaxCapacity != nil {
		event.MaxCapacity = upd.MaxCapacity
	}
	cp := *event
	return &cp, nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.events, id)
	return nil
}

func (r *fakeEventRepo) HasSchedulingActivity(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.windows {
		if w.EventID != id {
			continue
		}
		for _, slot := range r.s.slots {
			if slot.WindowID == w.ID {
				return true, nil
			}
		}
	}
	for _, att := range r.s.attendances {
		if att.EventID == id {
			return true, nil
		}
	}
	return false, nil
}

type fakeWindowRepo struct{ s *memStore }

func (r *fakeWindowRepo) Create(_ context.Context, window *domain.Window) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	window.ID = r.s.nextID("win")
	cp := *window
	r.s.windows[window.ID] = &cp
	return nil
}

func (r *fakeWindowRepo) GetByID(_ context.Context, id string) (*domain.Window, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	window, ok := r.s.windows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *window
	return &cp, nil
}

func (r *fakeWindowRepo) ListByEventID(_ context.Context, eventID string) ([]*domain.Window, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Window
	for _, window := range r.s.windows {
		if window.EventID == eventID {
			cp := *window
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeWindowRepo) MarkSlotsGenerated(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	window, ok := r.s.windows[id]
	if !ok {
		return domain.ErrNotFound
	}
	window.SlotsGenerated = true
	return nil
}

func (r *fakeWindowRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.windows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.windows, id)
	return nil
}

type fakeSlotRepo struct{ s *memStore }

func (r *fakeSlotRepo) Create(_ context.Context, slot *domain.Slot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot.ID = r.s.nextID("slot")
	cp := *slot
	r.s.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) GetByID(_ context.Context, id string) (*domain.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeSlotRepo) LockForUpdate(ctx context.Context, id string) (*domain.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSlotRepo) ListByWindowID(_ context.Context, windowID string) ([]*domain.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Slot
	for _, slot := range r.s.slots {
		if slot.WindowID == windowID {
			cp := *slot
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListByEventID(_ context.Context, eventID string, status *domain.SlotStatus) ([]*domain.Slot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Slot
	for _, slot := range r.s.slots {
		window, ok := r.s.windows[slot.WindowID]
		if !ok || window.EventID != eventID {
			continue
		}
		if status != nil && slot.Status != *status {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSlotRepo) UpdateEndsAt(_ context.Context, id string, endsAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return domain.ErrNotFound
	}
	slot.EndsAt = endsAt
	return nil
}

func (r *fakeSlotRepo) MarkBooked(_ context.Context, id, heldBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return domain.ErrNotFound
	}
	slot.Status = domain.SlotBooked
	slot.HeldBy = &heldBy
	return nil
}

func (r *fakeSlotRepo) MarkFree(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	slot, ok := r.s.slots[id]
	if !ok {
		return domain.ErrNotFound
	}
	slot.Status = domain.SlotFree
	slot.HeldBy = nil
	return nil
}

func (r *fakeSlotRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.slots[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.slots, id)
	return nil
}

func (r *fakeSlotRepo) DeleteByWindowID(_ context.Context, windowID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, slot := range r.s.slots {
		if slot.WindowID == windowID {
			delete(r.s.slots, id)
		}
	}
	return nil
}

func (r *fakeSlotRepo) CountByWindowID(_ context.Context, windowID string) (domain.WindowCapacity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var capacity domain.WindowCapacity
	for _, slot := range r.s.slots {
		if slot.WindowID != windowID {
			continue
		}
		if slot.Status == domain.SlotBooked {
			capacity.Booked++
		} else {
			capacity.Free++
		}
	}
	return capacity, nil
}

type fakeAppointmentRepo struct{ s *memStore }

func (r *fakeAppointmentRepo) Create(_ context.Context, appt *domain.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.appointments {
		if existing.Status != domain.AppointmentScheduled {
			continue
		}
		if existing.SlotID == appt.SlotID {
			return domain.ErrAlreadyBooked
		}
		if existing.EventID == appt.EventID && existing.ApplicantID == appt.ApplicantID {
			return domain.ErrAlreadyBooked
		}
	}
	appt.ID = r.s.nextID("appt")
	cp := *appt
	r.s.appointments[appt.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *fakeAppointmentRepo) GetScheduledBySlotID(_ context.Context, slotID string) (*domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, appt := range r.s.appointments {
		if appt.SlotID == slotID && appt.Status == domain.AppointmentScheduled {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAppointmentRepo) ListByEventID(_ context.Context, eventID string, status *domain.AppointmentStatus, _ domain.PaginationParams) ([]*domain.Appointment, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Appointment
	for _, appt := range r.s.appointments {
		if appt.EventID != eventID {
			continue
		}
		if status != nil && appt.Status != *status {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *fakeAppointmentRepo) ListScheduledByWindowID(_ context.Context, windowID string) ([]*domain.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.Appointment
	for _, appt := range r.s.appointments {
		if appt.Status != domain.AppointmentScheduled {
			continue
		}
		slot, ok := r.s.slots[appt.SlotID]
		if !ok || slot.WindowID != windowID {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id string, status domain.AppointmentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	appt.Status = status
	return nil
}

func (r *fakeAppointmentRepo) Cancel(_ context.Context, id string, note string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	appt.Status = domain.AppointmentCancelled
	if appt.Notes == "" {
		appt.Notes = note
	} else {
		appt.Notes += "\n" + note
	}
	return nil
}

func (r *fakeAppointmentRepo) Repoint(_ context.Context, id, newSlotID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appt, ok := r.s.appointments[id]
	if !ok {
		return domain.ErrNotFound
	}
	appt.SlotID = newSlotID
	appt.Status = domain.AppointmentScheduled
	return nil
}

type fakeChangeRequestRepo struct{ s *memStore }

func (r *fakeChangeRequestRepo) Create(_ context.Context, req *domain.ChangeRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = r.s.nextID("chg")
	cp := *req
	r.s.changes[req.ID] = &cp
	return nil
}

func (r *fakeChangeRequestRepo) GetByID(_ context.Context, id string) (*domain.ChangeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.changes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeChangeRequestRepo) ListByAppointmentID(_ context.Context, appointmentID string) ([]*domain.ChangeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ChangeRequest
	for _, req := range r.s.changes {
		if req.AppointmentID == appointmentID {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeChangeRequestRepo) Decide(_ context.Context, id string, status domain.ChangeRequestStatus, decidedBy string, decidedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.changes[id]
	if !ok || req.Status != domain.ChangeRequestPending {
		return domain.ErrNotFound
	}
	req.Status = status
	req.DecidedBy = &decidedBy
	req.DecidedAt = &decidedAt
	return nil
}

type fakeAttendanceRepo struct{ s *memStore }

func (r *fakeAttendanceRepo) Create(_ context.Context, att *domain.EventAttendance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.attendances {
		if existing.EventID == att.EventID && existing.UserID == att.UserID {
			return domain.ErrAlreadyRegistered
		}
	}
	att.ID = r.s.nextID("att")
	cp := *att
	r.s.attendances[att.ID] = &cp
	return nil
}

func (r *fakeAttendanceRepo) GetByEventAndUser(_ context.Context, eventID, userID string) (*domain.EventAttendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, att := range r.s.attendances {
		if att.EventID == eventID && att.UserID == userID {
			cp := *att
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAttendanceRepo) ListByEventID(_ context.Context, eventID string, _ domain.PaginationParams) ([]*domain.EventAttendance, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.EventAttendance
	for _, att := range r.s.attendances {
		if att.EventID == eventID {
			cp := *att
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *fakeAttendanceRepo) CountRegistered(_ context.Context, eventID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, att := range r.s.attendances {
		if att.EventID == eventID && att.Status == domain.AttendanceRegistered {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttendanceRepo) SetStatus(_ context.Context, id string, status domain.AttendanceStatus, attendedAt *time.Time, notes string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att, ok := r.s.attendances[id]
	if !ok {
		return domain.ErrNotFound
	}
	att.Status = status
	att.AttendedAt = attendedAt
	if notes != "" {
		att.Notes = notes
	}
	return nil
}

func (r *fakeAttendanceRepo) Delete(_ context.Context, eventID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, att := range r.s.attendances {
		if att.EventID == eventID && att.UserID == userID {
			delete(r.s.attendances, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeAttendanceRepo) DeleteByEventID(_ context.Context, eventID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, att := range r.s.attendances {
		if att.EventID == eventID {
			delete(r.s.attendances, id)
		}
	}
	return nil
}

type fakeInvitationRepo struct{ s *memStore }

func (r *fakeInvitationRepo) Create(_ context.Context, inv *domain.EventInvitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invitations {
		if existing.EventID == inv.EventID && existing.UserID == inv.UserID {
			return domain.ErrAlreadyInvited
		}
	}
	inv.ID = r.s.nextID("inv")
	cp := *inv
	r.s.invitations[inv.ID] = &cp
	return nil
}

func (r *fakeInvitationRepo) GetByID(_ context.Context, id string) (*domain.EventInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvitationRepo) GetByEventAndUser(_ context.Context, eventID, userID string) (*domain.EventInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.EventID == eventID && inv.UserID == userID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeInvitationRepo) ListByEventID(_ context.Context, eventID string) ([]*domain.EventInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.EventInvitation
	for _, inv := range r.s.invitations {
		if inv.EventID == eventID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) SetStatus(_ context.Context, id string, status domain.InvitationStatus, respondedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invitations[id]
	if !ok {
		return domain.ErrNotFound
	}
	if inv.Status != domain.InvitationPending {
		return domain.ErrAlreadyResponded
	}
	inv.Status = status
	inv.RespondedAt = &respondedAt
	return nil
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

type noopAuditLog struct{}

func (noopAuditLog) Record(_ context.Context, _ domain.AuditEntry) {}

type staticDirectory struct {
	enrollments map[string][]string // programID -> userIDs
}

func (d *staticDirectory) IsEnrolled(_ context.Context, userID, programID string) (bool, error) {
	for _, id := range d.enrollments[programID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// fixture bundles the in-memory repositories and collaborators a service
// test needs.
type fixture struct {
	store       *memStore
	events      *fakeEventRepo
	windows     *fakeWindowRepo
	slots       *fakeSlotRepo
	appts       *fakeAppointmentRepo
	changes     *fakeChangeRequestRepo
	attendances *fakeAttendanceRepo
	invitations *fakeInvitationRepo
	tx          *memTxManager
	notifier    *recordingNotifier
	logger      *slog.Logger
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:       s,
		events:      &fakeEventRepo{s: s},
		windows:     &fakeWindowRepo{s: s},
		slots:       &fakeSlotRepo{s: s},
		appts:       &fakeAppointmentRepo{s: s},
		changes:     &fakeChangeRequestRepo{s: s},
		attendances: &fakeAttendanceRepo{s: s},
		invitations: &fakeInvitationRepo{s: s},
		tx:          &memTxManager{s: s},
		notifier:    &recordingNotifier{},
		logger:      slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func (f *fixture) addEvent(model domain.CapacityModel, maxCapacity *int) *domain.Event {
	event := &domain.Event{
		Title:         "admissions event",
		CapacityModel: model,
		MaxCapacity:   maxCapacity,
		Status:        domain.EventPublished,
		CreatedBy:     "coord-1",
	}
	_ = f.events.Create(context.Background(), event)
	return event
}

func (f *fixture) addWindow(eventID string, start, end time.Time, slotMinutes int) *domain.Window {
	window := &domain.Window{
		EventID:     eventID,
		Date:        start.Truncate(24 * time.Hour),
		StartsAt:    start,
		EndsAt:      end,
		SlotMinutes: slotMinutes,
		Timezone:    "Europe/Berlin",
	}
	_ = f.windows.Create(context.Background(), window)
	return window
}

func (f *fixture) addSlot(windowID string, start time.Time, minutes int) *domain.Slot {
	slot := &domain.Slot{
		WindowID: windowID,
		StartsAt: start,
		EndsAt:   start.Add(time.Duration(minutes) * time.Minute),
		Status:   domain.SlotFree,
	}
	_ = f.slots.Create(context.Background(), slot)
	return slot
}

var (
	coordinator = domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator}
	applicant   = domain.Actor{ID: "user-1", Role: domain.RoleApplicant}
)

func intPtr(v int) *int { return &v }
