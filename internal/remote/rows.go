package remote

import "github.com/denttrack/denttrack/internal/model"

// Remote table layout, shared by the REST and Postgres backends.
//
//	treatments(id, user_id, tooth_id, type, date, notes, cost, currency,
//	           warranty_until, attachments jsonb, dentist_id)
//	dentists(id, user_id, name, clinic_name, type, phone, notes, is_verified)
//	teeth_status(user_id, tooth_id, status, PRIMARY KEY(user_id, tooth_id))

type treatmentRow struct {
	ID            string              `json:"id,omitempty"`
	UserID        string              `json:"user_id"`
	ToothID       *model.ToothID      `json:"tooth_id"`
	Type          model.TreatmentKind `json:"type"`
	Date          model.Date          `json:"date"`
	Notes         string              `json:"notes"`
	Cost          *float64            `json:"cost"`
	Currency      *string             `json:"currency"`
	WarrantyUntil *model.Date         `json:"warranty_until"`
	Attachments   []model.Attachment  `json:"attachments"`
	DentistID     *string             `json:"dentist_id"`
}

func toTreatmentRow(userID string, t model.Treatment) treatmentRow {
	t = t.Clone()
	row := treatmentRow{
		ID:            t.ID,
		UserID:        userID,
		ToothID:       t.ToothID,
		Type:          t.Kind,
		Date:          t.Date,
		Notes:         t.Notes,
		Cost:          t.Cost,
		WarrantyUntil: t.WarrantyUntil,
		Attachments:   t.Attachments,
	}
	if row.Attachments == nil {
		row.Attachments = []model.Attachment{}
	}
	if t.Currency != "" {
		row.Currency = &t.Currency
	}
	if t.DentistID != "" {
		row.DentistID = &t.DentistID
	}
	return row
}

func (r treatmentRow) model() model.Treatment {
	t := model.Treatment{
		ID:            r.ID,
		ToothID:       r.ToothID,
		Kind:          r.Type,
		Date:          r.Date,
		Notes:         r.Notes,
		Cost:          r.Cost,
		WarrantyUntil: r.WarrantyUntil,
		Attachments:   r.Attachments,
	}
	if t.Attachments == nil {
		t.Attachments = []model.Attachment{}
	}
	if r.Currency != nil {
		t.Currency = *r.Currency
	}
	if r.DentistID != nil {
		t.DentistID = *r.DentistID
	}
	return t
}

type dentistRow struct {
	ID         string                 `json:"id,omitempty"`
	UserID     string                 `json:"user_id"`
	Name       string                 `json:"name"`
	ClinicName string                 `json:"clinic_name,omitempty"`
	Type       model.DentistSpecialty `json:"type,omitempty"`
	Phone      string                 `json:"phone,omitempty"`
	Notes      string                 `json:"notes,omitempty"`
	IsVerified bool                   `json:"is_verified"`
}

// toDentistRow forces is_verified to false; the flag is never set by a
// client.
func toDentistRow(userID string, d model.Dentist) dentistRow {
	return dentistRow{
		ID:         d.ID,
		UserID:     userID,
		Name:       d.Name,
		ClinicName: d.ClinicName,
		Type:       d.Specialty,
		Phone:      d.Phone,
		Notes:      d.Notes,
		IsVerified: false,
	}
}

func (r dentistRow) model() model.Dentist {
	return model.Dentist{
		ID:         r.ID,
		Name:       r.Name,
		ClinicName: r.ClinicName,
		Specialty:  r.Type,
		Phone:      r.Phone,
		Notes:      r.Notes,
		IsVerified: r.IsVerified,
	}
}

type toothRow struct {
	UserID  string            `json:"user_id,omitempty"`
	ToothID model.ToothID     `json:"tooth_id"`
	Status  model.ToothStatus `json:"status"`
}

func teethFromRows(rows []toothRow) model.TeethStatus {
	ts := make(model.TeethStatus, len(rows))
	for _, r := range rows {
		ts[r.ToothID] = r.Status
	}
	return ts
}
