package datastore

const (
	TableMedicines        = "medicines"
	TablePharmacies       = "pharmacies"
	TableStockLinks       = "medicine_pharmacies"
	TablePharmacyRequests = "pharmacy_requests"
	TableActivityLogs     = "activity_logs"
	TableNotifications    = "notifications"
	TableSearchHistory    = "search_history"
	TableUsers            = "users"
)

// schema lists the selectable columns of each table in select order. Every table has an "id" primary key.
var schema = map[string][]string{
	TableMedicines: {
		"id", "name", "description", "category", "price", "unit", "image_url", "created_at", "updated_at",
	},
	TablePharmacies: {
		"id", "name", "location", "hours", "weekly_hours", "phone", "email", "description", "image_url",
		"latitude", "longitude", "available", "created_at", "updated_at",
	},
	TableStockLinks: {
		"id", "medicine_id", "pharmacy_id", "quantity", "created_at", "updated_at",
	},
	TablePharmacyRequests: {
		"id", "pharmacy_name", "owner_name", "email", "phone", "location", "license_number", "status",
		"admin_notes", "created_at", "updated_at",
	},
	TableActivityLogs: {
		"id", "action_type", "entity_type", "entity_id", "details", "created_at",
	},
	TableNotifications: {
		"id", "pharmacy_id", "title", "message", "type", "is_read", "created_at",
	},
	TableSearchHistory: {
		"id", "medicine_name", "count", "updated_at",
	},
	TableUsers: {
		"id", "email", "password_hash", "role", "pharmacy_id", "display_name", "created_at",
	},
}

// Columns returns the columns of table, or nil when the table is unknown.
func Columns(table string) []string {
	return schema[table]
}

func hasColumn(table, column string) bool {
	for _, c := range schema[table] {
		if c == column {
			return true
		}
	}
	return false
}
