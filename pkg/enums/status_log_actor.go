package enums

// StatusLogActor records who caused an order status change.
type StatusLogActor string

const (
	ActorSystem   StatusLogActor = "system"
	ActorCustomer StatusLogActor = "customer"
	ActorVendor   StatusLogActor = "vendor"
	ActorGateway  StatusLogActor = "gateway"
)

// String implements fmt.Stringer.
func (a StatusLogActor) String() string {
	return string(a)
}
