// Package aggregate reduces already fetched records into the figures the dashboards chart. Nothing here does
// I/O. Malformed input fails with an apperr ShapeError instead of counting as zero.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cast"

	"campusrx/m/domain"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
)

// DefaultLowStockThreshold is the quantity below which an in-stock link counts as low.
const DefaultLowStockThreshold = 10

const dayLayout = "2006-01-02"

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CountByCategory counts medicines per category, ordered by first appearance.
func CountByCategory(medicines []domain.Medicine) ([]CategoryCount, error) {
	out := []CategoryCount{}
	index := map[string]int{}
	for i, m := range medicines {
		if strings.TrimSpace(m.Category) == "" {
			return nil, shapeError("medicine %d (%s) has no category", i, m.ID)
		}
		if at, ok := index[m.Category]; ok {
			out[at].Count++
			continue
		}
		index[m.Category] = len(out)
		out = append(out, CategoryCount{Category: m.Category, Count: 1})
	}
	return out, nil
}

// LowStock counts links with 0 < quantity < threshold.
func LowStock(links []domain.StockLink, threshold int) (int, error) {
	n := 0
	for i, l := range links {
		if l.Quantity < 0 {
			return 0, shapeError("stock link %d (%s) has negative quantity %d", i, l.ID, l.Quantity)
		}
		if l.Quantity > 0 && l.Quantity < threshold {
			n++
		}
	}
	return n, nil
}

// NewWithin counts pharmacies created in [now-days, now]. Future timestamps are excluded.
func NewWithin(pharmacies []domain.Pharmacy, days int, now time.Time) (int, error) {
	since := now.AddDate(0, 0, -days)
	n := 0
	for i, p := range pharmacies {
		if p.CreatedAt.IsZero() {
			return 0, shapeError("pharmacy %d (%s) has no created_at", i, p.ID)
		}
		if !p.CreatedAt.Before(since) && !p.CreatedAt.After(now) {
			n++
		}
	}
	return n, nil
}

// DayTotal is the sum of one calendar day (UTC).
type DayTotal struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
}

// Trend groups rows by the UTC calendar day of dateField and sums valueField, oldest day first. Dates may be
// time.Time values or strings in any common layout.
func Trend(rows []datastore.Row, dateField, valueField string) ([]DayTotal, error) {
	totals := map[string]float64{}
	for i, row := range rows {
		rawDate, ok := row[dateField]
		if !ok || rawDate == nil {
			return nil, shapeError("row %d missing %s", i, dateField)
		}
		day, err := toDay(rawDate)
		if err != nil {
			return nil, shapeError("row %d has unreadable %s %v", i, dateField, rawDate)
		}
		rawValue, ok := row[valueField]
		if !ok || rawValue == nil {
			return nil, shapeError("row %d missing %s", i, valueField)
		}
		v, err := cast.ToFloat64E(rawValue)
		if err != nil {
			return nil, shapeError("row %d has non-numeric %s %v", i, valueField, rawValue)
		}
		totals[day] += v
	}

	out := make([]DayTotal, 0, len(totals))
	for day, total := range totals {
		out = append(out, DayTotal{Day: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// FillDays returns one entry per day from `from` through `to`, zero where totals has none.
func FillDays(totals []DayTotal, from, to time.Time) []DayTotal {
	byDay := make(map[string]float64, len(totals))
	for _, t := range totals {
		byDay[t.Day] = t.Total
	}
	out := []DayTotal{}
	end := to.UTC().Format(dayLayout)
	for d := from.UTC(); ; d = d.AddDate(0, 0, 1) {
		day := d.Format(dayLayout)
		if day > end {
			break
		}
		out = append(out, DayTotal{Day: day, Total: byDay[day]})
	}
	return out
}

// Summary describes the quantities of a set of stock links.
type Summary struct {
	Links      int     `json:"links"`
	InStock    int     `json:"in_stock"`
	OutOfStock int     `json:"out_of_stock"`
	TotalUnits int     `json:"total_units"`
	Mean       float64 `json:"mean_quantity"`
	Median     float64 `json:"median_quantity"`
}

func StockSummary(links []domain.StockLink) (Summary, error) {
	s := Summary{Links: len(links)}
	if len(links) == 0 {
		return s, nil
	}
	data := make(stats.Float64Data, 0, len(links))
	for i, l := range links {
		if l.Quantity < 0 {
			return Summary{}, shapeError("stock link %d (%s) has negative quantity %d", i, l.ID, l.Quantity)
		}
		if l.Quantity > 0 {
			s.InStock++
		} else {
			s.OutOfStock++
		}
		s.TotalUnits += l.Quantity
		data = append(data, float64(l.Quantity))
	}

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return Summary{}, apperr.Wrap(apperr.KindInternal, err, "computing mean quantity")
	}
	if s.Median, err = data.Median(); err != nil {
		return Summary{}, apperr.Wrap(apperr.KindInternal, err, "computing median quantity")
	}
	s.Mean, _ = stats.Round(s.Mean, 2)
	return s, nil
}

func toDay(v any) (string, error) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return "", errZeroTime
		}
		return d.UTC().Format(dayLayout), nil
	case string:
		t, err := dateparse.ParseIn(d, time.UTC)
		if err != nil {
			return "", err
		}
		return t.UTC().Format(dayLayout), nil
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(dayLayout), nil
}

var errZeroTime = apperr.New(apperr.KindShape, "zero time")

func shapeError(format string, args ...any) error {
	return apperr.Newf(apperr.KindShape, format, args...)
}
