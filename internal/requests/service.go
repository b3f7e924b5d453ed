// Package requests runs the pharmacy signup workflow: the public submits a request and an admin approves
// or rejects it.
package requests

import (
	"context"
	"strings"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
)

const entityType = "pharmacy_request"

// Decision is the outcome of approving or rejecting a request. Pharmacy is nil on rejection.
type Decision struct {
	Request  domain.PharmacyRequest `json:"request"`
	Pharmacy *domain.Pharmacy       `json:"pharmacy,omitempty"`
	Log      domain.ActivityLog     `json:"activity"`
}

type Service struct {
	f   *facade.Facade
	log *logger.Logger
}

func NewService(f *facade.Facade, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{f: f, log: log}
}

// Submit records a new request as pending, whatever status the caller sent.
func (s *Service) Submit(ctx context.Context, req domain.PharmacyRequest) (domain.PharmacyRequest, error) {
	req.ID = ""
	req.Status = domain.RequestPending
	req.AdminNotes = ""
	req.Email = strings.TrimSpace(req.Email)
	return s.f.Requests.Create(ctx, req)
}

// List returns requests newest first, optionally only those with status.
func (s *Service) List(ctx context.Context, status domain.RequestStatus) ([]domain.PharmacyRequest, error) {
	q := facade.Query{Order: []datastore.Order{datastore.Desc("created_at")}}
	if status != "" {
		q.Filters = []datastore.Cond{datastore.Eq("status", string(status))}
	}
	return s.f.Requests.List(ctx, q)
}

// Approve marks the request approved, creates its pharmacy and appends an audit entry. The three writes are
// independent: if a later one fails the earlier ones stay. Only the caller whose status change lands on a
// pending request goes on to create the pharmacy.
func (s *Service) Approve(ctx context.Context, id, notes string) (Decision, error) {
	req, err := s.pending(ctx, id)
	if err != nil {
		return Decision{}, err
	}
	ctx = s.log.WithFields(ctx, map[string]any{"pharmacy_request_id": id, "decision": domain.RequestApproved})

	req, err = s.decide(ctx, id, domain.RequestApproved, notes)
	if err != nil {
		return Decision{}, err
	}

	pharmacy, err := s.f.Pharmacies.Create(ctx, domain.Pharmacy{
		Name:      req.PharmacyName,
		Location:  req.Location,
		Phone:     req.Phone,
		Email:     req.Email,
		Hours:     domain.DefaultHours,
		Available: true,
	})
	if err != nil {
		s.log.Error(ctx, "request approved but pharmacy was not created", err)
		return Decision{Request: req}, err
	}

	entry, err := s.f.Activity.Append(ctx, domain.ActivityLog{
		ActionType: string(domain.RequestApproved),
		EntityType: entityType,
		EntityID:   id,
		Details:    map[string]any{"notes": notes, "pharmacy_id": pharmacy.ID},
	})
	if err != nil {
		s.log.Error(ctx, "request approved but activity log was not written", err)
		return Decision{Request: req, Pharmacy: &pharmacy}, err
	}

	s.log.Info(s.log.WithField(ctx, "pharmacy_id", pharmacy.ID), "pharmacy request approved")
	return Decision{Request: req, Pharmacy: &pharmacy, Log: entry}, nil
}

// Reject marks the request rejected and appends an audit entry. No pharmacy is created.
func (s *Service) Reject(ctx context.Context, id, notes string) (Decision, error) {
	if _, err := s.pending(ctx, id); err != nil {
		return Decision{}, err
	}
	ctx = s.log.WithFields(ctx, map[string]any{"pharmacy_request_id": id, "decision": domain.RequestRejected})

	req, err := s.decide(ctx, id, domain.RequestRejected, notes)
	if err != nil {
		return Decision{}, err
	}

	entry, err := s.f.Activity.Append(ctx, domain.ActivityLog{
		ActionType: string(domain.RequestRejected),
		EntityType: entityType,
		EntityID:   id,
		Details:    map[string]any{"notes": notes},
	})
	if err != nil {
		s.log.Error(ctx, "request rejected but activity log was not written", err)
		return Decision{Request: req}, err
	}

	s.log.Info(ctx, "pharmacy request rejected")
	return Decision{Request: req, Log: entry}, nil
}

// decide moves a pending request to status. A request decided in the meantime fails as already decided.
func (s *Service) decide(ctx context.Context, id string, status domain.RequestStatus, notes string) (domain.PharmacyRequest, error) {
	req, err := s.f.Requests.UpdateWhere(ctx, id, facade.Patch{
		"status":      string(status),
		"admin_notes": notes,
	}, datastore.Eq("status", string(domain.RequestPending)))
	if apperr.Is(err, apperr.KindNotFound) {
		if _, err := s.pending(ctx, id); err != nil {
			return domain.PharmacyRequest{}, err
		}
	}
	return req, err
}

func (s *Service) pending(ctx context.Context, id string) (domain.PharmacyRequest, error) {
	if strings.TrimSpace(id) == "" {
		return domain.PharmacyRequest{}, apperr.New(apperr.KindValidation, "request id is required")
	}
	req, err := s.f.Requests.Get(ctx, id)
	if err != nil {
		return domain.PharmacyRequest{}, err
	}
	if req.Status != domain.RequestPending {
		return domain.PharmacyRequest{}, apperr.Newf(apperr.KindValidation, "request already %s", req.Status).
			WithDetails(map[string]string{"status": string(req.Status)})
	}
	return req, nil
}
