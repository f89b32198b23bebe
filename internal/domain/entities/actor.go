package entities

// Role is who is calling the API.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
)

// Actor is an authenticated caller.
type Actor struct {
	ID   string
	Role Role
}
