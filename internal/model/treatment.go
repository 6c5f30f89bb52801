package model

import (
	"errors"
	"fmt"
	"sort"
)

// MaxAttachments is the number of attachments a treatment may carry.
const MaxAttachments = 3

// ErrInvalidTreatment wraps every Treatment validation failure.
var ErrInvalidTreatment = errors.New("invalid treatment")

// Attachment is a file attached to a treatment. URL is a content
// reference: a data URI or an object-store location.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Treatment is one entry of the treatment log.
//
// ToothID is nil for general treatments that are not tooth-specific.
// DentistID may reference a dentist that no longer exists; readers must
// tolerate that (see DentistName).
type Treatment struct {
	ID            string        `json:"id"`
	ToothID       *ToothID      `json:"toothId"`
	Kind          TreatmentKind `json:"type"`
	Date          Date          `json:"date"`
	Notes         string        `json:"notes"`
	Cost          *float64      `json:"cost,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	WarrantyUntil *Date         `json:"warrantyUntil,omitempty"`
	Attachments   []Attachment  `json:"attachments"`
	DentistID     string        `json:"dentistId,omitempty"`
}

// Validate checks the user-editable fields. The identifier is not checked;
// it is assigned when the treatment is saved.
func (t *Treatment) Validate() error {
	if t.ToothID != nil && !t.ToothID.Valid() {
		return fmt.Errorf("%w: tooth %d is not an FDI tooth number", ErrInvalidTreatment, int(*t.ToothID))
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTreatment, t.Kind)
	}
	if !t.Date.Valid() {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidTreatment, t.Date)
	}
	if t.Cost != nil && *t.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidTreatment)
	}
	if t.WarrantyUntil != nil && !t.WarrantyUntil.Valid() {
		return fmt.Errorf("%w: warranty date %q is not YYYY-MM-DD", ErrInvalidTreatment, *t.WarrantyUntil)
	}
	if len(t.Attachments) > MaxAttachments {
		return fmt.Errorf("%w: at most %d attachments allowed, got %d", ErrInvalidTreatment, MaxAttachments, len(t.Attachments))
	}
	return nil
}

// Clone returns a deep copy; pointer fields and the attachment slice are
// not shared with t.
func (t Treatment) Clone() Treatment {
	out := t
	if t.ToothID != nil {
		id := *t.ToothID
		out.ToothID = &id
	}
	if t.Cost != nil {
		c := *t.Cost
		out.Cost = &c
	}
	if t.WarrantyUntil != nil {
		w := *t.WarrantyUntil
		out.WarrantyUntil = &w
	}
	if t.Attachments != nil {
		out.Attachments = append([]Attachment(nil), t.Attachments...)
	}
	return out
}

// CloneTreatments deep-copies a treatment list, preserving nil.
func CloneTreatments(ts []Treatment) []Treatment {
	if ts == nil {
		return nil
	}
	out := make([]Treatment, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// SortTreatments orders treatments most recent first. Treatments on the
// same date keep their relative order.
func SortTreatments(ts []Treatment) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Date > ts[j].Date
	})
}

// ToothPtr returns a pointer to id, for building treatments inline.
func ToothPtr(id ToothID) *ToothID {
	return &id
}
