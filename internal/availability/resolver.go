// Package availability answers where a medicine can be found and what a pharmacy has on its shelves.
package availability

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"campusrx/m/domain"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
)

type PharmacyStock struct {
	Pharmacy domain.Pharmacy `json:"pharmacy"`
	Quantity int             `json:"quantity"`
}

type MedicineStock struct {
	Medicine domain.Medicine `json:"medicine"`
	Quantity int             `json:"quantity"`
}

// MedicineAvailability is one search hit with the pharmacies currently stocking it.
type MedicineAvailability struct {
	Medicine   domain.Medicine `json:"medicine"`
	Pharmacies []PharmacyStock `json:"pharmacies"`
}

type Resolver struct {
	f   *facade.Facade
	log *logger.Logger
}

func New(f *facade.Facade, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{f: f, log: log}
}

// PharmaciesStocking lists pharmacies holding medicineID in quantity > 0, most stock first.
func (r *Resolver) PharmaciesStocking(ctx context.Context, medicineID string) ([]PharmacyStock, error) {
	links, err := r.f.Stock.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("medicine_id", medicineID), datastore.Gt("quantity", 0)},
	})
	if err != nil {
		return nil, err
	}
	pharmacies, err := r.pharmaciesByID(ctx, links)
	if err != nil {
		return nil, err
	}

	out := make([]PharmacyStock, 0, len(links))
	for _, l := range links {
		p, ok := pharmacies[l.PharmacyID]
		if !ok {
			continue
		}
		out = append(out, PharmacyStock{Pharmacy: p, Quantity: l.Quantity})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out, nil
}

// MedicinesAt lists medicines pharmacyID holds in quantity > 0, most stock first.
func (r *Resolver) MedicinesAt(ctx context.Context, pharmacyID string) ([]MedicineStock, error) {
	links, err := r.f.Stock.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("pharmacy_id", pharmacyID), datastore.Gt("quantity", 0)},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.MedicineID)
	}
	medicines, err := r.f.Medicines.List(ctx, facade.Query{Filters: []datastore.Cond{datastore.In("id", ids)}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Medicine, len(medicines))
	for _, m := range medicines {
		byID[m.ID] = m
	}

	out := make([]MedicineStock, 0, len(links))
	for _, l := range links {
		m, ok := byID[l.MedicineID]
		if !ok {
			continue
		}
		out = append(out, MedicineStock{Medicine: m, Quantity: l.Quantity})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	return out, nil
}

// SearchMedicines matches query case-insensitively against name or description, in store order, and
// attaches the pharmacies stocking each hit. A blank query lists every medicine by name.
func (r *Resolver) SearchMedicines(ctx context.Context, query string) ([]MedicineAvailability, error) {
	query = strings.TrimSpace(query)
	q := facade.Query{Order: []datastore.Order{datastore.Asc("name")}}
	if query != "" {
		q = facade.Query{Any: []datastore.Cond{
			datastore.Contains("name", query),
			datastore.Contains("description", query),
		}}
	}
	medicines, err := r.f.Medicines.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if query != "" {
		r.recordSearch(ctx, query)
	}

	ids := make([]string, 0, len(medicines))
	for _, m := range medicines {
		ids = append(ids, m.ID)
	}
	links, err := r.f.Stock.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.In("medicine_id", ids), datastore.Gt("quantity", 0)},
	})
	if err != nil {
		return nil, err
	}
	pharmacies, err := r.pharmaciesByID(ctx, links)
	if err != nil {
		return nil, err
	}

	stocking := make(map[string][]PharmacyStock, len(medicines))
	for _, l := range links {
		p, ok := pharmacies[l.PharmacyID]
		if !ok {
			continue
		}
		stocking[l.MedicineID] = append(stocking[l.MedicineID], PharmacyStock{Pharmacy: p, Quantity: l.Quantity})
	}

	out := make([]MedicineAvailability, 0, len(medicines))
	for _, m := range medicines {
		ps := stocking[m.ID]
		if ps == nil {
			ps = []PharmacyStock{}
		}
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Quantity > ps[j].Quantity })
		out = append(out, MedicineAvailability{Medicine: m, Pharmacies: ps})
	}
	return out, nil
}

func (r *Resolver) pharmaciesByID(ctx context.Context, links []domain.StockLink) (map[string]domain.Pharmacy, error) {
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.PharmacyID)
	}
	list, err := r.f.Pharmacies.List(ctx, facade.Query{Filters: []datastore.Cond{datastore.In("id", ids)}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Pharmacy, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// recordSearch bumps the search history counter. Failures are logged and dropped.
func (r *Resolver) recordSearch(ctx context.Context, query string) {
	if err := r.bumpSearch(ctx, strings.ToLower(query)); err != nil {
		r.log.Warn(r.log.WithField(ctx, "error", err.Error()), "recording search history failed")
	}
}

func (r *Resolver) bumpSearch(ctx context.Context, name string) error {
	existing, err := r.f.Searches.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("medicine_name", name)},
		Limit:   1,
	})
	if err != nil {
		return fmt.Errorf("looking up search entry: %w", err)
	}
	if len(existing) == 0 {
		_, err = r.f.Searches.Create(ctx, domain.SearchEntry{MedicineName: name, Count: 1})
		return err
	}
	_, err = r.f.Searches.Update(ctx, existing[0].ID, facade.Patch{"count": existing[0].Count + 1})
	return err
}
