package model

// Profile is the patient's medical profile. It lives only in the local
// cache and is never sent to the remote store.
type Profile struct {
	Name         string `json:"name"`
	DOB          Date   `json:"dob,omitempty"`
	BloodType    string `json:"bloodType,omitempty"`
	Allergies    string `json:"allergies,omitempty"`
	MedicalNotes string `json:"medicalNotes,omitempty"`
}

// Settings holds device-local preferences.
type Settings struct {
	Name            string `json:"name,omitempty"`
	NextCheckupDate *Date  `json:"nextCheckupDate,omitempty"`
}
