package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/pkg/apierr"
)

// Limits bounds the size of a submitted batch.
type Limits struct {
	MaxUnits     int
	MaxUnitBytes int
	MaxBodyBytes int64
}

// DefaultLimits are used when a handler is built without explicit limits.
var DefaultLimits = Limits{MaxUnits: 1000, MaxUnitBytes: 1 << 20, MaxBodyBytes: 32 << 20}

// decodeUnits reads and validates a JSON array of units from the request body.
func decodeUnits(w http.ResponseWriter, r *http.Request, limits Limits) ([]remediation.Unit, *apierr.Error) {
	if limits.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limits.MaxBodyBytes)
	}

	var units []remediation.Unit
	if err := json.NewDecoder(r.Body).Decode(&units); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierr.BatchTooLarge(limits.MaxUnits)
		}
		return nil, apierr.InvalidRequestBody()
	}
	if err := validateUnits(units, limits); err != nil {
		return nil, err
	}
	return units, nil
}

func validateUnits(units []remediation.Unit, limits Limits) *apierr.Error {
	return remediation.ValidateUnits(units, limits.MaxUnits, limits.MaxUnitBytes)
}
