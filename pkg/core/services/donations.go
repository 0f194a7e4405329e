package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/metrics"
)

// SubmitDonation validates and records a public donation. A receipt is
// emailed to the donor when a mailer is configured; a failed receipt is
// logged and does not fail the submission.
func (s *Services) SubmitDonation(ctx context.Context, d db.Donation) (string, error) {
	// Public submissions always start at the beginning of the lifecycle
	d.ID = ""
	d.Status = db.DonationPending
	d.AssignedVolunteer = ""

	if err := Validate(d); err != nil {
		return "", err
	}

	s.logger.Debug("Submitting donation",
		zap.String("donor", d.Donor.Email),
		zap.Int("items", len(d.Items)))

	id, err := s.stores.Donations.Add(ctx, d)
	if err != nil {
		return "", fmt.Errorf("failed to create donation: %w", err)
	}
	metrics.DonationsSubmittedTotal.Inc()

	s.logger.Info("Donation submitted", zap.String("id", id))

	if s.mailer != nil {
		d.ID = id
		s.sendReceipt(d)
	}

	return id, nil
}

func (s *Services) sendReceipt(d db.Donation) {
	subject, body := RenderReceipt(d)
	if err := s.mailer.SendEmail(d.Donor.Email, subject, body); err != nil {
		s.logger.Warn("Failed to send donation receipt",
			zap.String("donation_id", d.ID),
			zap.Error(err))
		return
	}
	s.logger.Debug("Sent donation receipt", zap.String("donation_id", d.ID))
}

// AssignVolunteer assigns an approved or active volunteer to a donation
func (s *Services) AssignVolunteer(ctx context.Context, donationID, volunteerID string) error {
	if _, err := find(ctx, s.stores.Donations, donationID); err != nil {
		return err
	}

	volunteer, err := find(ctx, s.stores.Volunteers, volunteerID)
	if err != nil {
		return err
	}
	if volunteer.Status != db.VolunteerApproved && volunteer.Status != db.VolunteerActive {
		return fmt.Errorf("%s (%s): %w", volunteer.Name, volunteer.Status, ErrVolunteerUnavailable)
	}

	if err := s.stores.Donations.Mutate(ctx, donationID, db.Fields{"assignedVolunteer": volunteerID}); err != nil {
		return fmt.Errorf("failed to assign volunteer: %w", err)
	}

	s.logger.Info("Assigned volunteer to donation",
		zap.String("donation_id", donationID),
		zap.String("volunteer_id", volunteerID))
	return nil
}

// UnassignVolunteer clears the assigned volunteer of a donation
func (s *Services) UnassignVolunteer(ctx context.Context, donationID string) error {
	if err := s.stores.Donations.Mutate(ctx, donationID, db.Fields{"assignedVolunteer": ""}); err != nil {
		return fmt.Errorf("failed to unassign volunteer: %w", err)
	}
	return nil
}
