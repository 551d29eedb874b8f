package models

// Scope is the authorization context passed explicitly into every core
// operation. It is built from verified JWT claims at the handler boundary;
// services never consult ambient user state.
type Scope struct {
	role    UserRole
	actorID string
}

// OwnerScope grants unrestricted access on behalf of the owner actor.
func OwnerScope(actorID string) Scope {
	return Scope{role: RoleOwner, actorID: actorID}
}

// AdminScope restricts access to events created by the admin actor.
func AdminScope(actorID string) Scope {
	return Scope{role: RoleAdmin, actorID: actorID}
}

// ActorID returns the acting user's id.
func (s Scope) ActorID() string {
	return s.actorID
}

// IsOwner reports whether the scope bypasses ownership checks.
func (s Scope) IsOwner() bool {
	return s.role == RoleOwner
}

// CanManage reports whether the actor may act on a resource owned by the
// event creator with the given id.
func (s Scope) CanManage(createdBy string) bool {
	if s.IsOwner() {
		return true
	}
	return createdBy != "" && createdBy == s.actorID
}

// CreatorFilter returns the created_by restriction for listing queries:
// empty for the owner (global view), the actor id for admins.
func (s Scope) CreatorFilter() string {
	if s.IsOwner() {
		return ""
	}
	return s.actorID
}
