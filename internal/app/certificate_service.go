package app

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/campus-events/internal/adapters/crdb"
	"github.com/robertarktes/campus-events/internal/domain"
	"github.com/robertarktes/campus-events/internal/outbox"
)

type CertificateRequest struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	EventTitle     string `json:"event_title"`
	EventDate      string `json:"event_date"`
	HolderName     string `json:"holder_name"`
	Email          string `json:"email"`
}

// CertificateService hands attendance certificates off to the mailer through
// the outbox. Only redeemed tickets qualify.
type CertificateService struct {
	regs   RegistrationRepository
	outbox Outbox
}

func NewCertificateService(regs RegistrationRepository, outbox Outbox) *CertificateService {
	return &CertificateService{regs: regs, outbox: outbox}
}

func (s *CertificateService) Request(ctx context.Context, registrationID, userID, email string) (CertificateRequest, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return CertificateRequest{}, errors.Wrap(domain.ErrInvalidInput, "email is required")
	}
	reg, err := s.regs.GetRegistration(ctx, registrationID)
	if err != nil {
		return CertificateRequest{}, err
	}
	if reg.UserID != userID {
		return CertificateRequest{}, errors.Wrap(domain.ErrForbidden, "registration belongs to another user")
	}
	if !reg.Utilized {
		return CertificateRequest{}, errors.Wrap(domain.ErrNotEligible, "ticket was never checked in")
	}

	req := CertificateRequest{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		EventTitle:     reg.EventTitle,
		EventDate:      reg.EventDate,
		HolderName:     reg.UserName,
		Email:          email,
	}
	rec, err := crdb.NewOutboxRecord("registration", reg.ID, outbox.EventCertificateRequested, req)
	if err != nil {
		return CertificateRequest{}, err
	}
	if err := s.outbox.Enqueue(ctx, rec); err != nil {
		return CertificateRequest{}, errors.Wrap(err, "enqueue certificate")
	}
	return req, nil
}
