package facade

import (
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/session"
)

// Op names a facade operation.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCount  Op = "count"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

func (o Op) read() bool { return o == OpList || o == OpGet || o == OpCount }

// access describes one rule check. id is the target row of update and remove; record is the row being
// created or the update patch.
type access struct {
	table  string
	op     Op
	id     string
	record datastore.Row
}

// allowed mirrors the row policies of the hosted store this facade replaces.
func allowed(p session.Principal, a access) bool {
	if p.IsAdmin() {
		return true
	}
	pharmacy := p.IsPharmacy()

	switch a.table {
	case datastore.TableMedicines:
		return a.op.read() || (pharmacy && (a.op == OpCreate || a.op == OpUpdate))
	case datastore.TablePharmacies:
		return a.op.read() || (pharmacy && a.op == OpUpdate && a.id == p.PharmacyID)
	case datastore.TableStockLinks:
		return a.op.read() || (pharmacy && ownsRecord(p, a))
	case datastore.TablePharmacyRequests:
		return a.op == OpCreate
	case datastore.TableSearchHistory:
		return a.op != OpRemove
	case datastore.TableNotifications:
		return pharmacy && ownsRecord(p, a)
	}
	return false
}

// ownsRecord checks the pharmacy_id a create or patch writes. The stored row is checked separately by
// ownerColumn.
func ownsRecord(p session.Principal, a access) bool {
	if v, ok := a.record["pharmacy_id"]; ok || a.op == OpCreate {
		return v == p.PharmacyID
	}
	return true
}

// ownerColumn names the column of an existing row that must equal a pharmacy principal's pharmacy id for
// op to reach that row. Empty means every row is reachable.
func ownerColumn(p session.Principal, table string, op Op) string {
	if !p.IsPharmacy() {
		return ""
	}
	switch table {
	case datastore.TableStockLinks:
		if op == OpUpdate || op == OpRemove {
			return "pharmacy_id"
		}
	case datastore.TableNotifications:
		if op != OpCreate {
			return "pharmacy_id"
		}
	}
	return ""
}
