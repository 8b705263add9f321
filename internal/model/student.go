package model

import (
	"math"
	"strconv"
	"strings"
)

// Student is one roster entry. Average is derived from the three marks when
// the record is built and is never set on its own.
type Student struct {
	Name           string  `gorm:"not null" json:"name"`
	RegistrationID string  `gorm:"primaryKey" json:"registration_id"`
	Mark1          float64 `json:"mark1"`
	Mark2          float64 `json:"mark2"`
	Mark3          float64 `json:"mark3"`
	Average        float64 `gorm:"index" json:"average"`
}

// NewStudent builds a record and computes its average.
func NewStudent(name, registrationID string, mark1, mark2, mark3 float64) Student {
	return Student{
		Name:           name,
		RegistrationID: registrationID,
		Mark1:          mark1,
		Mark2:          mark2,
		Mark3:          mark3,
		Average:        average(mark1, mark2, mark3),
	}
}

// average stays finite for finite marks. The sum can overflow near
// math.MaxFloat64, so it falls back to dividing each mark first.
func average(mark1, mark2, mark3 float64) float64 {
	if sum := mark1 + mark2 + mark3; !math.IsInf(sum, 0) {
		return sum / 3
	}
	return mark1/3 + mark2/3 + mark3/3
}

// ParseStudent validates raw field values and builds a record from them.
// Every empty field is reported at once; marks are checked in order and the
// first bad one is reported.
func ParseStudent(name, registrationID, mark1, mark2, mark3 string) (Student, error) {
	name = strings.TrimSpace(name)
	registrationID = strings.TrimSpace(registrationID)

	raw := [...]struct {
		field string
		value string
	}{
		{"name", name},
		{"registration_id", registrationID},
		{"mark1", mark1},
		{"mark2", mark2},
		{"mark3", mark3},
	}

	var missing []string
	for _, f := range raw {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.field)
		}
	}
	if len(missing) > 0 {
		return Student{}, &FieldError{Fields: missing, Kind: ErrMissingField}
	}

	var marks [3]float64
	for i, f := range raw[2:] {
		v, err := ParseMark(f.value)
		if err != nil {
			return Student{}, &FieldError{Fields: []string{f.field}, Value: f.value, Kind: ErrInvalidMark, Err: err}
		}
		marks[i] = v
	}

	return NewStudent(name, registrationID, marks[0], marks[1], marks[2]), nil
}

// ParseMark parses a decimal mark. NaN and infinities are rejected.
func ParseMark(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// FormatMark renders a number as the shortest decimal text that parses back
// to the same value.
func FormatMark(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
