// Package facade is the typed data access layer. It turns entity operations into single store calls,
// decodes rows into domain records, enforces the row policy for the session's principal and reports every
// failure as an apperr kind.
package facade

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/session"
)

// Facade groups the per-entity tables that share one store and one session.
type Facade struct {
	store    datastore.Store
	session  *session.Session
	metrics  *Metrics
	validate *validator.Validate
	now      func() time.Time
	newID    func() string

	Medicines     *Table[domain.Medicine]
	Pharmacies    *Table[domain.Pharmacy]
	Stock         *Table[domain.StockLink]
	Requests      *Table[domain.PharmacyRequest]
	Activity      *Ledger[domain.ActivityLog]
	Notifications *Table[domain.Notification]
	Searches      *Table[domain.SearchEntry]
	Users         *Table[domain.User]
}

type Option func(*Facade)

func WithMetrics(m *Metrics) Option { return func(f *Facade) { f.metrics = m } }

// WithClock replaces time.Now for created_at and updated_at stamps.
func WithClock(now func() time.Time) Option { return func(f *Facade) { f.now = now } }

func WithIDs(gen func() string) Option { return func(f *Facade) { f.newID = gen } }

func WithValidator(v *validator.Validate) Option { return func(f *Facade) { f.validate = v } }

// New builds a facade over store acting as the principal of sess.
func New(store datastore.Store, sess *session.Session, opts ...Option) *Facade {
	f := &Facade{
		store:    store,
		session:  sess,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newID,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.Medicines = &Table[domain.Medicine]{f: f, codec: medicineCodec}
	f.Pharmacies = &Table[domain.Pharmacy]{f: f, codec: pharmacyCodec}
	f.Stock = &Table[domain.StockLink]{f: f, codec: stockCodec}
	f.Requests = &Table[domain.PharmacyRequest]{f: f, codec: requestCodec}
	f.Activity = &Ledger[domain.ActivityLog]{t: &Table[domain.ActivityLog]{f: f, codec: activityCodec}}
	f.Notifications = &Table[domain.Notification]{f: f, codec: notificationCodec}
	f.Searches = &Table[domain.SearchEntry]{f: f, codec: searchCodec}
	f.Users = &Table[domain.User]{f: f, codec: userCodec}
	return f
}

// As returns a facade over the same store and options acting for another session.
func (f *Facade) As(sess *session.Session) *Facade {
	return New(f.store, sess,
		WithMetrics(f.metrics), WithClock(f.now), WithIDs(f.newID), WithValidator(f.validate))
}

// Session returns the session the facade acts for.
func (f *Facade) Session() *session.Session { return f.session }

// Now is the facade clock.
func (f *Facade) Now() time.Time { return f.now() }

// Ledger is an append-only table: records can be read and appended, never changed.
type Ledger[T any] struct {
	t *Table[T]
}

func (l *Ledger[T]) List(ctx context.Context, q Query) ([]T, error) { return l.t.List(ctx, q) }
func (l *Ledger[T]) Get(ctx context.Context, id string) (T, error) { return l.t.Get(ctx, id) }
func (l *Ledger[T]) Append(ctx context.Context, rec T) (T, error)  { return l.t.Create(ctx, rec) }

func (l *Ledger[T]) Count(ctx context.Context, filters ...datastore.Cond) (int, error) {
	return l.t.Count(ctx, filters...)
}

func validationError(entity string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindValidation, err, "invalid "+entity)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := toSnake(fe.Field())
		fields[name] = fe.Tag()
		names = append(names, name)
	}
	return apperr.Newf(apperr.KindValidation, "invalid %s: %s", entity, strings.Join(names, ", ")).
		WithDetails(fields)
}

func errorLabel(err error) string {
	return strings.ToLower(string(apperr.KindOf(err)))
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
