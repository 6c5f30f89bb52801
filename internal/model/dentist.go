package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidDentist wraps every Dentist validation failure.
var ErrInvalidDentist = errors.New("invalid dentist")

// UnknownDentist is the display name for an empty or dangling dentist
// reference.
const UnknownDentist = "unknown"

// Dentist is a practitioner the patient has seen.
//
// IsVerified is reserved: it is false at creation and nothing in this
// module sets it.
type Dentist struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	ClinicName string           `json:"clinicName,omitempty"`
	Specialty  DentistSpecialty `json:"type,omitempty"`
	Phone      string           `json:"phone,omitempty"`
	Notes      string           `json:"notes,omitempty"`
	IsVerified bool             `json:"isVerified"`
}

// Validate checks the user-editable fields.
func (d *Dentist) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDentist)
	}
	if !d.Specialty.IsValid() {
		return fmt.Errorf("%w: unknown specialty %q", ErrInvalidDentist, d.Specialty)
	}
	return nil
}

// CloneDentists copies a dentist list, preserving nil.
func CloneDentists(ds []Dentist) []Dentist {
	if ds == nil {
		return nil
	}
	out := make([]Dentist, len(ds))
	copy(out, ds)
	return out
}

// SortDentists orders dentists by name, case-insensitively and stably.
func SortDentists(ds []Dentist) {
	sort.SliceStable(ds, func(i, j int) bool {
		return strings.ToLower(ds[i].Name) < strings.ToLower(ds[j].Name)
	})
}

// DentistName resolves a dentist reference to a display name.
func DentistName(ds []Dentist, id string) string {
	if id == "" {
		return UnknownDentist
	}
	for _, d := range ds {
		if d.ID == id {
			return d.Name
		}
	}
	return UnknownDentist
}
