package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// RegisterVolunteer validates and records a volunteer sign-up
func (s *Services) RegisterVolunteer(ctx context.Context, v db.Volunteer) (string, error) {
	v.ID = ""
	v.Status = db.VolunteerPending
	v.CompletedTasks = 0
	v.Rating = 0

	if err := Validate(v); err != nil {
		return "", err
	}

	id, err := s.stores.Volunteers.Add(ctx, v)
	if err != nil {
		return "", fmt.Errorf("failed to register volunteer: %w", err)
	}

	s.logger.Info("Volunteer registered", zap.String("id", id))
	return id, nil
}

// RemoveVolunteer clears the volunteer from every donation assigned to them
// and then deletes the volunteer. It returns the number of donations that
// were unassigned. A failure part way leaves the volunteer in place.
func (s *Services) RemoveVolunteer(ctx context.Context, volunteerID string) (int, error) {
	s.logger.Debug("Removing volunteer", zap.String("id", volunteerID))

	if err := s.stores.Donations.Fetch(ctx); err != nil {
		return 0, fmt.Errorf("failed to fetch donations: %w", err)
	}

	cleared := 0
	for _, d := range s.stores.Donations.Snapshot() {
		if d.AssignedVolunteer != volunteerID {
			continue
		}
		if err := s.stores.Donations.Mutate(ctx, d.ID, db.Fields{"assignedVolunteer": ""}); err != nil {
			return cleared, fmt.Errorf("failed to unassign donation %s: %w", d.ID, err)
		}
		cleared++
	}

	if err := s.stores.Volunteers.Remove(ctx, volunteerID); err != nil {
		return cleared, fmt.Errorf("failed to delete volunteer: %w", err)
	}

	s.logger.Info("Volunteer removed",
		zap.String("id", volunteerID),
		zap.Int("donations_unassigned", cleared))
	return cleared, nil
}
