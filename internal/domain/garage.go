package domain

// Garage is the depot every route starts from and returns to.
// Garages are maintained by the fleet-management side; this service only reads them.
type Garage struct {
	ID           string
	Name         string
	Location     Coordinates
	RadiusMeters int
	IsActive     bool
}
