package domain

// Role is the actor's role as asserted by the calling layer. The engine
// trusts it and only applies the ownership checks described per operation.
type Role string

const (
	RoleApplicant   Role = "applicant"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// Actor is the authenticated identity supplied by the calling layer.
type Actor struct {
	ID   string
	Role Role
}

// CanManage reports whether the actor may perform coordinator-level
// operations (event setup, slot generation, assignment on behalf of others).
func (a Actor) CanManage() bool {
	return a.Role == RoleCoordinator || a.Role == RoleAdmin
}

// TokenVerifier validates a bearer token and returns the actor it asserts.
type TokenVerifier interface {
	Verify(token string) (Actor, error)
}
