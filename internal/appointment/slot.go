package appointment

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

const DateLayout = "2006-01-02"

var (
	slotPattern = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Weekday is one of the seven three-letter tokens availability is keyed by.
type Weekday string

const (
	Mon Weekday = "Mon"
	Tue Weekday = "Tue"
	Wed Weekday = "Wed"
	Thu Weekday = "Thu"
	Fri Weekday = "Fri"
	Sat Weekday = "Sat"
	Sun Weekday = "Sun"
)

var weekdays = [...]Weekday{Sun, Mon, Tue, Wed, Thu, Fri, Sat}

func (w Weekday) Valid() bool {
	for _, d := range weekdays {
		if d == w {
			return true
		}
	}
	return false
}

// WeekdayOf resolves a YYYY-MM-DD date to its weekday token.
func WeekdayOf(date string) (Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return weekdays[t.Weekday()], nil
}

// ParseDate parses a timezone-naive calendar date.
func ParseDate(date string) (time.Time, error) {
	if !datePattern.MatchString(date) {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", date)
	}
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a calendar date", date)
	}
	return t, nil
}

// TimeRange is a half-open [Start,End) interval in minutes since midnight.
type TimeRange struct {
	Start int
	End   int
}

// ParseSlot parses an "HH:MM-HH:MM" slot string.
func ParseSlot(slot string) (TimeRange, error) {
	if !slotPattern.MatchString(slot) {
		return TimeRange{}, fmt.Errorf("slot %q must be HH:MM-HH:MM", slot)
	}
	start, err := parseClock(slot[0:5])
	if err != nil {
		return TimeRange{}, err
	}
	end, err := parseClock(slot[6:11])
	if err != nil {
		return TimeRange{}, err
	}
	if end <= start {
		return TimeRange{}, fmt.Errorf("slot %q must end after it starts", slot)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	h, _ := strconv.Atoi(s[0:2])
	m, _ := strconv.Atoi(s[3:5])
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("time %q is out of range", s)
	}
	return h*60 + m, nil
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && r.End > o.Start
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", r.Start/60, r.Start%60, r.End/60, r.End%60)
}

// DayAvailability is the declared slot set for one weekday.
type DayAvailability struct {
	Day   Weekday  `json:"day"`
	Slots []string `json:"slots"`
}

// Has reports whether slot is declared verbatim for this day.
func (d DayAvailability) Has(slot string) bool {
	for _, s := range d.Slots {
		if s == slot {
			return true
		}
	}
	return false
}

// SlotsFor returns the declared slots for day, if any.
func SlotsFor(availability []DayAvailability, day Weekday) (DayAvailability, bool) {
	for _, d := range availability {
		if d.Day == day {
			return d, true
		}
	}
	return DayAvailability{}, false
}

// OverlapDetail is reported with SLOT_OVERLAP.
type OverlapDetail struct {
	Day   Weekday  `json:"day"`
	Slots []string `json:"slots"`
}

var slotRule = validation.By(func(value any) error {
	s, _ := value.(string)
	_, err := ParseSlot(s)
	return err
})

var dayRule = validation.By(func(value any) error {
	d, _ := value.(Weekday)
	if !d.Valid() {
		return fmt.Errorf("day must be one of Mon, Tue, Wed, Thu, Fri, Sat, Sun")
	}
	return nil
})

func (d DayAvailability) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Day, validation.Required, dayRule),
		validation.Field(&d.Slots, validation.Required.Error("each day must have at least one slot"), validation.Each(slotRule)),
	)
}

// ValidateAvailability checks a full replacement availability list. Shape
// problems yield VALIDATION_ERROR; intersecting slots on one day yield
// SLOT_OVERLAP. Every pair is compared, not just neighbours.
func ValidateAvailability(entries []DayAvailability) error {
	err := validation.Validate(entries,
		validation.Required.Error("availability must contain at least one day"),
	)
	if err != nil {
		return apperr.FromValidation(validation.Errors{"availability": err})
	}

	seen := make(map[Weekday]bool, len(entries))
	for i, entry := range entries {
		if seen[entry.Day] {
			return apperr.Validation(apperr.FieldError{
				Field:   fmt.Sprintf("availability.%d.day", i),
				Message: fmt.Sprintf("%s is declared more than once", entry.Day),
			})
		}
		seen[entry.Day] = true

		ranges := make([]TimeRange, len(entry.Slots))
		for j, s := range entry.Slots {
			ranges[j], _ = ParseSlot(s)
		}
		for a := 0; a < len(ranges); a++ {
			for b := a + 1; b < len(ranges); b++ {
				if ranges[a].Overlaps(ranges[b]) {
					return ErrSlotOverlap.
						Withf("overlapping slots found on %s", entry.Day).
						WithDetails([]OverlapDetail{{Day: entry.Day, Slots: []string{entry.Slots[a], entry.Slots[b]}}})
				}
			}
		}
	}
	return nil
}
