package flatfile

import (
	"math"
	"strconv"
	"time"

	"github.com/okian/flatboard/internal/domain/model"
)

// Repair is the outcome of validating one field list.
type Repair struct {
	Fields    RawFields
	Corrupted bool
	// Indices lists the repaired columns in ascending order.
	Indices []int
}

// Validator replaces empty or unparsable columns with defaults. Its output
// depends only on the input, Now and DefaultHealthbar.
type Validator struct {
	// Now supplies the timestamp written into an empty last-login column.
	Now func() time.Time
	// DefaultHealthbar replaces an empty or invalid healthbar column.
	DefaultHealthbar model.HealthbarType
}

// Validate repairs a current-width field list in a copy.
func (v Validator) Validate(f RawFields) Repair {
	res := Repair{Fields: f.Clone()}
	for i, raw := range res.Fields {
		if i >= FieldCount {
			break
		}
		d := Schema[i]
		bad := false

		switch {
		case raw == "" && !d.AllowEmpty:
			bad = true
		case d.Kind == KindHealthbar && isInt(raw):
			bad = true
		case d.Kind == KindHealthbar:
			_, ok := model.ParseHealthbarType(raw)
			bad = !ok
		case !d.AllowNonNumeric && raw != "":
			bad = !validForKind(d.Kind, raw)
		}

		if bad {
			res.Fields[i] = v.defaultFor(d)
			res.Corrupted = true
			res.Indices = append(res.Indices, i)
		}
	}
	return res
}

func (v Validator) defaultFor(d FieldDescriptor) string {
	switch d.Kind {
	case KindHealthbar:
		if v.DefaultHealthbar == "" {
			return string(model.HealthbarHearts)
		}
		return string(v.DefaultHealthbar)
	case KindBarState:
		return string(model.DefaultBarState(d.Skill))
	}
	if d.Index == FieldLastLogin {
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		return strconv.FormatInt(now().Unix(), 10)
	}
	return "0"
}

func validForKind(k FieldKind, raw string) bool {
	switch k {
	case KindFloat:
		x, err := strconv.ParseFloat(raw, 32)
		return err == nil && x >= 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
	case KindBarState:
		_, ok := model.ParseBarState(raw)
		return ok
	default:
		return isInt(raw)
	}
}

// isInt accepts non-negative base-10 integers that fit in 64 bits.
func isInt(raw string) bool {
	n, err := strconv.ParseInt(raw, 10, 64)
	return err == nil && n >= 0
}
