package db

import (
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const LocationsCollection = "locations"

// Locations accesses the drop-off locations collection
type Locations struct {
	*Collection[DropoffLocation]
}

func NewLocations(backend docstore.Backend, logger *zap.Logger) *Locations {
	return &Locations{NewCollection(LocationsCollection, backend, logger,
		WithUpdatable[DropoffLocation]("name", "address", "city", "state", "zipCode",
			"contactName", "contactPhone", "contactEmail", "operatingHours"),
	)}
}
