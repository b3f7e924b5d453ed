package notifications

import (
	"context"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
)

// Service manages the notifications addressed to pharmacies.
type Service struct {
	f *facade.Facade
}

func NewService(f *facade.Facade) *Service {
	return &Service{f: f}
}

// List returns pharmacyID's notifications, newest first.
func (s *Service) List(ctx context.Context, pharmacyID string) ([]domain.Notification, error) {
	if err := s.owns(pharmacyID); err != nil {
		return nil, err
	}
	return s.f.Notifications.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("pharmacy_id", pharmacyID)},
		Order:   []datastore.Order{datastore.Desc("created_at")},
	})
}

// Unread counts pharmacyID's unread notifications.
func (s *Service) Unread(ctx context.Context, pharmacyID string) (int, error) {
	if err := s.owns(pharmacyID); err != nil {
		return 0, err
	}
	return s.f.Notifications.Count(ctx, datastore.Eq("pharmacy_id", pharmacyID), datastore.Eq("is_read", false))
}

func (s *Service) Send(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if err := s.owns(n.PharmacyID); err != nil {
		return domain.Notification{}, err
	}
	n.IsRead = false
	return s.f.Notifications.Create(ctx, n)
}

func (s *Service) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	if _, err := s.get(ctx, id); err != nil {
		return domain.Notification{}, err
	}
	return s.f.Notifications.Update(ctx, id, facade.Patch{"is_read": true})
}

// Delete removes a notification. Deleting one that no longer exists succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	return s.f.Notifications.Remove(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.f.Notifications.Get(ctx, id)
	if err != nil {
		return n, err
	}
	return n, s.owns(n.PharmacyID)
}

// owns rejects a pharmacy principal touching another pharmacy's notifications.
func (s *Service) owns(pharmacyID string) error {
	p := s.f.Session().Principal()
	if p.IsAdmin() || (p.IsPharmacy() && p.PharmacyID == pharmacyID) {
		return nil
	}
	return apperr.New(apperr.KindUnauthorized, "notifications belong to another pharmacy")
}
