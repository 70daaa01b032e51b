package enums

// ActorRole is the marketplace role claim of an access token.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleVendor   ActorRole = "vendor"
)

var actorRoles = []ActorRole{RoleCustomer, RoleVendor}

func (r ActorRole) String() string { return string(r) }
func (r ActorRole) IsValid() bool  { return isOneOf(r, actorRoles) }

// StatusLogActor is the status log actor recorded for changes made in this role.
func (r ActorRole) StatusLogActor() StatusLogActor {
	if r == RoleVendor {
		return ActorVendor
	}
	return ActorCustomer
}

func ParseActorRole(value string) (ActorRole, error) {
	return parseOneOf("actor role", value, actorRoles)
}
