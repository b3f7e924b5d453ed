package facade

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"campusrx/m/internal/apperr"
	"campusrx/m/internal/datastore"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// decodeRow turns a loosely typed row into T. Every column in required must be present and non-null.
func decodeRow[T any](entity string, row datastore.Row, required []string) (T, error) {
	var out T
	for _, col := range required {
		if v, ok := row[col]; !ok || v == nil {
			return out, apperr.Newf(apperr.KindShape, "%s row missing %s", entity, col).
				WithDetails(map[string]any{"entity": entity, "column": col})
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decimalHook,
			timeHook,
			jsonHook,
		),
	})
	if err != nil {
		return out, apperr.Wrap(apperr.KindInternal, err, "building row decoder")
	}
	if err := dec.Decode(map[string]any(row)); err != nil {
		return out, apperr.Wrap(apperr.KindShape, err, fmt.Sprintf("decoding %s row", entity)).
			WithDetails(map[string]any{"entity": entity, "id": cast.ToString(row["id"])})
	}
	return out, nil
}

func decodeRows[T any](entity string, rows []datastore.Row, required []string) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRow[T](entity, row, required)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decimalHook(from, to reflect.Type, data any) (any, error) {
	if to != decimalType || from == decimalType {
		return data, nil
	}
	s, err := cast.ToStringE(data)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from == timeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := dateparse.ParseIn(v, time.UTC)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case []byte:
		t, err := dateparse.ParseIn(string(v), time.UTC)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return cast.ToTimeE(data)
}

// jsonHook expands JSON text columns into maps and structs.
func jsonHook(from, to reflect.Type, data any) (any, error) {
	if to == timeType || to == decimalType {
		return data, nil
	}
	if to.Kind() != reflect.Map && to.Kind() != reflect.Struct {
		return data, nil
	}
	var raw []byte
	switch v := data.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return data, nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return reflect.Zero(to).Interface(), nil
	}
	target := reflect.New(to)
	if err := json.Unmarshal(raw, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}
