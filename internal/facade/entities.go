package facade

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
)

// codec binds a record type to its table.
type codec[T any] struct {
	entity string
	table  string
	// required columns must be present and non-null in every row read back.
	required []string
	// nonBlank columns may not be cleared by a patch.
	nonBlank []string
	encode   func(*T) datastore.Row
	stamp    func(rec *T, id string, now time.Time)
	check    func(*T) error
	// checkPatch validates typed values in an update patch.
	checkPatch func(Patch) error
}

var medicineCodec = codec[domain.Medicine]{
	entity:   "medicine",
	table:    datastore.TableMedicines,
	required: []string{"id", "name", "category", "price", "created_at"},
	nonBlank: []string{"name", "category", "price"},
	encode: func(m *domain.Medicine) datastore.Row {
		return datastore.Row{
			"id":          m.ID,
			"name":        m.Name,
			"description": m.Description,
			"category":    m.Category,
			"price":       m.Price.StringFixed(2),
			"unit":        m.Unit,
			"image_url":   m.ImageURL,
			"created_at":  m.CreatedAt,
			"updated_at":  m.UpdatedAt,
		}
	},
	stamp: func(m *domain.Medicine, id string, now time.Time) {
		m.ID, m.CreatedAt, m.UpdatedAt = id, now, now
	},
	check: func(m *domain.Medicine) error {
		if m.Price.IsNegative() {
			return fieldError("price", "must not be negative")
		}
		return nil
	},
	checkPatch: func(p Patch) error {
		v, ok := p["price"]
		if !ok {
			return nil
		}
		price, err := toDecimal(v)
		if err != nil {
			return fieldError("price", "must be a number")
		}
		if price.IsNegative() {
			return fieldError("price", "must not be negative")
		}
		p["price"] = price.StringFixed(2)
		return nil
	},
}

var pharmacyCodec = codec[domain.Pharmacy]{
	entity:   "pharmacy",
	table:    datastore.TablePharmacies,
	required: []string{"id", "name", "created_at"},
	nonBlank: []string{"name", "phone", "hours"},
	encode: func(p *domain.Pharmacy) datastore.Row {
		row := datastore.Row{
			"id":           p.ID,
			"name":         p.Name,
			"location":     p.Location,
			"hours":        p.Hours,
			"weekly_hours": nil,
			"phone":        p.Phone,
			"email":        p.Email,
			"description":  p.Description,
			"image_url":    p.ImageURL,
			"latitude":     p.Latitude,
			"longitude":    p.Longitude,
			"available":    p.Available,
			"created_at":   p.CreatedAt,
			"updated_at":   p.UpdatedAt,
		}
		if len(p.WeeklyHours) > 0 {
			row["weekly_hours"] = p.WeeklyHours
		}
		return row
	},
	stamp: func(p *domain.Pharmacy, id string, now time.Time) {
		p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	},
	check: func(p *domain.Pharmacy) error {
		return checkWeekHours(p.WeeklyHours)
	},
	checkPatch: func(p Patch) error {
		v, ok := p["weekly_hours"]
		if !ok || v == nil {
			return nil
		}
		hours, ok := v.(domain.WeekHours)
		if !ok {
			return fieldError("weekly_hours", "must be a weekly schedule")
		}
		return checkWeekHours(hours)
	},
}

var stockCodec = codec[domain.StockLink]{
	entity:   "stock link",
	table:    datastore.TableStockLinks,
	required: []string{"id", "medicine_id", "pharmacy_id", "quantity"},
	nonBlank: []string{"medicine_id", "pharmacy_id", "quantity"},
	encode: func(l *domain.StockLink) datastore.Row {
		return datastore.Row{
			"id":          l.ID,
			"medicine_id": l.MedicineID,
			"pharmacy_id": l.PharmacyID,
			"quantity":    l.Quantity,
			"created_at":  l.CreatedAt,
			"updated_at":  l.UpdatedAt,
		}
	},
	stamp: func(l *domain.StockLink, id string, now time.Time) {
		l.ID, l.CreatedAt, l.UpdatedAt = id, now, now
	},
	checkPatch: func(p Patch) error {
		v, ok := p["quantity"]
		if !ok {
			return nil
		}
		q, err := cast.ToIntE(v)
		if err != nil {
			return fieldError("quantity", "must be an integer")
		}
		if q < 0 {
			return fieldError("quantity", "must not be negative")
		}
		p["quantity"] = q
		return nil
	},
}

var requestCodec = codec[domain.PharmacyRequest]{
	entity:   "pharmacy request",
	table:    datastore.TablePharmacyRequests,
	required: []string{"id", "pharmacy_name", "status", "created_at"},
	nonBlank: []string{"pharmacy_name", "owner_name", "email", "phone", "location", "license_number", "status"},
	encode: func(r *domain.PharmacyRequest) datastore.Row {
		return datastore.Row{
			"id":             r.ID,
			"pharmacy_name":  r.PharmacyName,
			"owner_name":     r.OwnerName,
			"email":          r.Email,
			"phone":          r.Phone,
			"location":       r.Location,
			"license_number": r.LicenseNumber,
			"status":         string(r.Status),
			"admin_notes":    r.AdminNotes,
			"created_at":     r.CreatedAt,
			"updated_at":     r.UpdatedAt,
		}
	},
	stamp: func(r *domain.PharmacyRequest, id string, now time.Time) {
		r.ID, r.CreatedAt, r.UpdatedAt = id, now, now
		if r.Status == "" {
			r.Status = domain.RequestPending
		}
	},
	checkPatch: func(p Patch) error {
		v, ok := p["status"]
		if !ok {
			return nil
		}
		status := domain.RequestStatus(fmt.Sprint(v))
		switch status {
		case domain.RequestPending, domain.RequestApproved, domain.RequestRejected:
			p["status"] = string(status)
			return nil
		}
		return fieldError("status", "must be pending, approved or rejected")
	},
}

var activityCodec = codec[domain.ActivityLog]{
	entity:   "activity log",
	table:    datastore.TableActivityLogs,
	required: []string{"id", "action_type", "entity_type", "created_at"},
	encode: func(a *domain.ActivityLog) datastore.Row {
		row := datastore.Row{
			"id":          a.ID,
			"action_type": a.ActionType,
			"entity_type": a.EntityType,
			"entity_id":   a.EntityID,
			"details":     nil,
			"created_at":  a.CreatedAt,
		}
		if a.Details != nil {
			row["details"] = a.Details
		}
		return row
	},
	stamp: func(a *domain.ActivityLog, id string, now time.Time) {
		a.ID, a.CreatedAt = id, now
	},
}

var notificationCodec = codec[domain.Notification]{
	entity:   "notification",
	table:    datastore.TableNotifications,
	required: []string{"id", "pharmacy_id", "created_at"},
	nonBlank: []string{"pharmacy_id", "title", "message"},
	encode: func(n *domain.Notification) datastore.Row {
		return datastore.Row{
			"id":          n.ID,
			"pharmacy_id": n.PharmacyID,
			"title":       n.Title,
			"message":     n.Message,
			"type":        n.Type,
			"is_read":     n.IsRead,
			"created_at":  n.CreatedAt,
		}
	},
	stamp: func(n *domain.Notification, id string, now time.Time) {
		n.ID, n.CreatedAt = id, now
		if n.Type == "" {
			n.Type = "info"
		}
	},
}

var searchCodec = codec[domain.SearchEntry]{
	entity:   "search entry",
	table:    datastore.TableSearchHistory,
	required: []string{"id", "medicine_name", "count"},
	nonBlank: []string{"medicine_name"},
	encode: func(s *domain.SearchEntry) datastore.Row {
		return datastore.Row{
			"id":            s.ID,
			"medicine_name": s.MedicineName,
			"count":         s.Count,
			"updated_at":    s.UpdatedAt,
		}
	},
	stamp: func(s *domain.SearchEntry, id string, now time.Time) {
		s.ID, s.UpdatedAt = id, now
		if s.Count == 0 {
			s.Count = 1
		}
	},
}

var userCodec = codec[domain.User]{
	entity:   "user",
	table:    datastore.TableUsers,
	required: []string{"id", "email", "role"},
	nonBlank: []string{"email", "role"},
	encode: func(u *domain.User) datastore.Row {
		row := datastore.Row{
			"id":            u.ID,
			"email":         strings.ToLower(u.Email),
			"password_hash": u.PasswordHash,
			"role":          string(u.Role),
			"pharmacy_id":   nil,
			"display_name":  u.DisplayName,
			"created_at":    u.CreatedAt,
		}
		if u.PharmacyID != "" {
			row["pharmacy_id"] = u.PharmacyID
		}
		return row
	},
	stamp: func(u *domain.User, id string, now time.Time) {
		u.ID, u.CreatedAt = id, now
	},
	check: func(u *domain.User) error {
		if u.Role == domain.RolePharmacy && u.PharmacyID == "" {
			return fieldError("pharmacy_id", "is required for pharmacy users")
		}
		return nil
	},
}

func checkWeekHours(hours domain.WeekHours) error {
	for day, h := range hours {
		known := false
		for _, d := range domain.Weekdays {
			if d == day {
				known = true
				break
			}
		}
		if !known {
			return fieldError("weekly_hours", fmt.Sprintf("unknown day %q", day))
		}
		if h.Closed {
			continue
		}
		open, err := time.Parse("15:04", h.Open)
		if err != nil {
			return fieldError("weekly_hours", fmt.Sprintf("%s open time must be HH:MM", day))
		}
		closing, err := time.Parse("15:04", h.Close)
		if err != nil {
			return fieldError("weekly_hours", fmt.Sprintf("%s close time must be HH:MM", day))
		}
		if !closing.After(open) {
			return fieldError("weekly_hours", fmt.Sprintf("%s closes before it opens", day))
		}
	}
	return nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case *decimal.Decimal:
		if d == nil {
			return decimal.Zero, fmt.Errorf("nil decimal")
		}
		return *d, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

func fieldError(field, problem string) error {
	return apperr.Newf(apperr.KindValidation, "%s %s", field, problem).
		WithDetails(map[string]string{field: problem})
}
