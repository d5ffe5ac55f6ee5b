package billing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

// Amounts are integer minor currency units (paise, cents). Tax rates are
// basis points: hundredths of a percent, so 18% is 1800.
const (
	basisPointsPerUnit = 10000
	maxBasisPoints     = 100 * 100
)

var (
	ErrAmountTooLarge    = apperr.New(apperr.CodeValidation, "bill amount is too large")
	ErrInvalidTaxPercent = apperr.New(apperr.CodeValidation, "taxPercent must be a number between 0 and 100 with at most two decimals")
)

var taxPercentPattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,2})?$`)

type LineItem struct {
	Label     string `json:"label"`
	Qty       int64  `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
}

func (li LineItem) Validate() error {
	return validation.ValidateStruct(&li,
		validation.Field(&li.Label, validation.Required, validation.Length(1, 200)),
		validation.Field(&li.Qty, validation.Required.Error("must be at least 1"), validation.Min(int64(1))),
		validation.Field(&li.UnitPrice, validation.Min(int64(0)).Error("must not be negative")),
	)
}

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// ComputeTotals sums qty*unitPrice over items and applies taxBasisPoints with
// round-half-up. Every step is overflow checked.
func ComputeTotals(items []LineItem, taxBasisPoints int64) (Totals, error) {
	if taxBasisPoints < 0 || taxBasisPoints > maxBasisPoints {
		return Totals{}, ErrInvalidTaxPercent
	}

	var subtotal int64
	for _, item := range items {
		if item.Qty < 0 || item.UnitPrice < 0 {
			return Totals{}, apperr.Validation(apperr.FieldError{Field: "items", Message: "quantities and prices must not be negative"})
		}
		if item.Qty != 0 && item.UnitPrice > math.MaxInt64/item.Qty {
			return Totals{}, ErrAmountTooLarge
		}
		line := item.Qty * item.UnitPrice
		if subtotal > math.MaxInt64-line {
			return Totals{}, ErrAmountTooLarge
		}
		subtotal += line
	}

	if taxBasisPoints != 0 && subtotal > (math.MaxInt64-basisPointsPerUnit/2)/taxBasisPoints {
		return Totals{}, ErrAmountTooLarge
	}
	tax := (subtotal*taxBasisPoints + basisPointsPerUnit/2) / basisPointsPerUnit

	if subtotal > math.MaxInt64-tax {
		return Totals{}, ErrAmountTooLarge
	}
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}, nil
}

// ParseTaxPercent converts a decimal percentage such as "18" or "12.5" to
// basis points without going through floating point.
func ParseTaxPercent(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !taxPercentPattern.MatchString(s) {
		return 0, ErrInvalidTaxPercent
	}

	whole, frac, _ := strings.Cut(s, ".")
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidTaxPercent
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidTaxPercent
	}

	bp := w*100 + f
	if bp > maxBasisPoints {
		return 0, ErrInvalidTaxPercent
	}
	return bp, nil
}

// FormatTaxPercent renders basis points as a percentage string, e.g. 1850 -> "18.5".
func FormatTaxPercent(bp int64) string {
	whole, frac := bp/100, bp%100
	switch {
	case frac == 0:
		return strconv.FormatInt(whole, 10)
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d", whole, frac)
	}
}
