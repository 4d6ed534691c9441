package remediation

import (
	"strings"

	"github.com/maraichr/tablescan/pkg/apierr"
)

// ValidateUnits checks a whole batch. maxUnits and maxUnitBytes are ignored
// when zero.
func ValidateUnits(units []Unit, maxUnits, maxUnitBytes int) *apierr.Error {
	if len(units) == 0 {
		return apierr.EmptyBatch()
	}
	if maxUnits > 0 && len(units) > maxUnits {
		return apierr.BatchTooLarge(maxUnits)
	}
	for i, u := range units {
		if err := ValidateUnit(i, u, maxUnitBytes); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUnit checks the fields every unit must carry. i is the unit's
// position in its batch. Line numbers may be zero but not negative.
func ValidateUnit(i int, u Unit, maxUnitBytes int) *apierr.Error {
	if strings.TrimSpace(u.ProgramName) == "" {
		return apierr.ProgramNameRequired(i)
	}
	if strings.TrimSpace(u.IncludeName) == "" {
		return apierr.IncludeNameRequired(i)
	}
	if strings.TrimSpace(u.Type) == "" {
		return apierr.UnitTypeRequired(i)
	}
	if u.StartLine != nil && *u.StartLine < 0 {
		return apierr.LineRangeInvalid(i)
	}
	if u.EndLine != nil && (*u.EndLine < 0 || (u.StartLine != nil && *u.EndLine < *u.StartLine)) {
		return apierr.LineRangeInvalid(i)
	}
	if maxUnitBytes > 0 && len(u.Code) > maxUnitBytes {
		return apierr.UnitTooLarge(i, maxUnitBytes)
	}
	return nil
}
