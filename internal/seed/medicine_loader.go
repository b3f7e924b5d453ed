// Package seed imports a medicine catalogue from CSV.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"campusrx/m/domain"
	"campusrx/m/internal/facade"
	"campusrx/m/internal/logger"
)

//go:embed data/medicines.csv
var defaultCatalogue string

type medicineRecord struct {
	Name        string `csv:"name"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
	Price       string `csv:"price"`
	Unit        string `csv:"unit"`
}

// Result tallies one catalogue import.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// LoadMedicines creates every catalogue row whose name is not already present. A bad row is logged and
// counted, it does not stop the import.
func LoadMedicines(ctx context.Context, f *facade.Facade, r io.Reader, log *logger.Logger) (Result, error) {
	var res Result
	var records []medicineRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return res, fmt.Errorf("parsing medicine catalogue: %w", err)
	}

	existing, err := f.Medicines.List(ctx, facade.Query{})
	if err != nil {
		return res, fmt.Errorf("listing medicines: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[strings.ToLower(m.Name)] = true
	}

	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" || seen[strings.ToLower(name)] {
			res.Skipped++
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(rec.Price))
		if err != nil {
			log.Warn(log.WithFields(ctx, map[string]any{"row": i + 2, "name": name}), "unreadable medicine price")
			res.Failed++
			continue
		}
		_, err = f.Medicines.Create(ctx, domain.Medicine{
			Name:        name,
			Category:    strings.TrimSpace(rec.Category),
			Description: strings.TrimSpace(rec.Description),
			Price:       &price,
			Unit:        strings.TrimSpace(rec.Unit),
		})
		if err != nil {
			log.Error(log.WithFields(ctx, map[string]any{"row": i + 2, "name": name}), "unable to insert medicine", err)
			res.Failed++
			continue
		}
		seen[strings.ToLower(name)] = true
		res.Inserted++
	}

	log.Info(log.WithFields(ctx, map[string]any{
		"inserted": res.Inserted, "skipped": res.Skipped, "failed": res.Failed,
	}), "seeded medicine catalogue")
	return res, nil
}

// LoadMedicinesFile imports path, or the bundled catalogue when path is empty.
func LoadMedicinesFile(ctx context.Context, f *facade.Facade, path string, log *logger.Logger) (Result, error) {
	if path == "" {
		return LoadMedicines(ctx, f, strings.NewReader(defaultCatalogue), log)
	}
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening medicine catalogue %s: %w", path, err)
	}
	defer file.Close()
	return LoadMedicines(ctx, f, file, log)
}
