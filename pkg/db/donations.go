package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const DonationsCollection = "donations"

// Donations accesses the donations collection
type Donations struct {
	*Collection[Donation]
}

func NewDonations(backend docstore.Backend, logger *zap.Logger) *Donations {
	return &Donations{NewCollection(DonationsCollection, backend, logger,
		WithLive[Donation](),
		WithUpdatable[Donation]("donor", "items", "dropoffLocationId", "pickupRequested", "notes", "status", "assignedVolunteer"),
		WithDefaults(func(d *Donation, _ time.Time) {
			if d.Status == "" {
				d.Status = DonationPending
			}
		}),
	)}
}

// ListByStatus retrieves donations with the given status
func (d *Donations) ListByStatus(ctx context.Context, status DonationStatus) ([]Donation, error) {
	return d.List(ctx, docstore.Filter{Field: "status", Value: string(status)})
}

// ListAssignedTo retrieves donations assigned to a volunteer
func (d *Donations) ListAssignedTo(ctx context.Context, volunteerID string) ([]Donation, error) {
	donations, err := d.List(ctx, docstore.Filter{Field: "assignedVolunteer", Value: volunteerID})
	if err != nil {
		return donations, fmt.Errorf("failed to get donations for volunteer %s: %w", volunteerID, err)
	}
	return donations, nil
}
