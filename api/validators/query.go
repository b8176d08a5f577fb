package validators

import (
	"cmp"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

type bound[T cmp.Ordered] struct {
	fallback, lo, hi T
	required         bool
}

func parseQuery[T cmp.Ordered](r *http.Request, key string, parse func(string) (T, error), b bound[T]) (T, error) {
	var zero T
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		if b.required {
			return zero, queryError("query parameter is required", key, nil)
		}
		return b.fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		return zero, queryError("query parameter must be numeric", key, nil)
	}
	if v < b.lo || v > b.hi {
		return zero, queryError("query parameter out of range", key, map[string]any{"min": b.lo, "max": b.hi})
	}
	return v, nil
}

func queryError(msg, key string, extra map[string]any) error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

// ParseQueryInt reads an optional integer query parameter within [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	return parseQuery(r, key, strconv.Atoi, bound[int]{fallback: defaultVal, lo: min, hi: max})
}

// ParseQueryFloat reads a float query parameter. A missing value yields
// defaultVal unless required is set.
func ParseQueryFloat(r *http.Request, key string, defaultVal, min, max float64, required bool) (float64, error) {
	parse := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	return parseQuery(r, key, parse, bound[float64]{fallback: defaultVal, lo: min, hi: max, required: required})
}

// ParseUUIDParam reads a chi URL parameter as a non-nil UUID.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, key)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key).WithDetails(map[string]any{"field": key})
	}
	return id, nil
}
