// Package model defines the dental record entities shared by the local
// cache, the remote store and the sync coordinator.
//
// Three collections make up a patient's record:
//   - Treatments: the treatment log, most recent first
//   - Dentists: the patient's dentists and clinics
//   - TeethStatus: the current status of each of the 32 FDI teeth
//
// Every type serializes to the JSON layout used by the local cache, so a
// collection written and read back compares deep-equal to the original.
package model

import (
	"fmt"
	"strings"
)

// TreatmentKind is the closed set of treatment types.
type TreatmentKind string

const (
	KindFilling    TreatmentKind = "Filling"
	KindRootCanal  TreatmentKind = "Root Canal"
	KindCrown      TreatmentKind = "Crown"
	KindExtraction TreatmentKind = "Extraction"
	KindVeneer     TreatmentKind = "Veneer"
	KindImplant    TreatmentKind = "Implant"
	KindBraces     TreatmentKind = "Braces/Mouthguard"
	KindHygiene    TreatmentKind = "Hygiene/Cleaning"
	KindCheckup    TreatmentKind = "Checkup"
	KindOther      TreatmentKind = "Other"
)

// AllKinds returns every treatment kind in display order.
func AllKinds() []TreatmentKind {
	return []TreatmentKind{
		KindFilling, KindRootCanal, KindCrown, KindExtraction, KindVeneer,
		KindImplant, KindBraces, KindHygiene, KindCheckup, KindOther,
	}
}

// kindAliases maps short command-line identifiers to kinds.
var kindAliases = map[string]TreatmentKind{
	"filling":    KindFilling,
	"rootcanal":  KindRootCanal,
	"root-canal": KindRootCanal,
	"crown":      KindCrown,
	"extraction": KindExtraction,
	"veneer":     KindVeneer,
	"implant":    KindImplant,
	"braces":     KindBraces,
	"mouthguard": KindBraces,
	"hygiene":    KindHygiene,
	"cleaning":   KindHygiene,
	"checkup":    KindCheckup,
	"other":      KindOther,
}

// IsValid reports whether k is one of the known kinds.
func (k TreatmentKind) IsValid() bool {
	for _, known := range AllKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParseTreatmentKind accepts a display string ("Root Canal") or a short
// identifier ("root-canal"), case-insensitively.
func ParseTreatmentKind(s string) (TreatmentKind, error) {
	s = strings.TrimSpace(s)
	for _, known := range AllKinds() {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	if k, ok := kindAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown treatment kind: %q", s)
}

// ToothStatus is the closed set of per-tooth states.
type ToothStatus string

const (
	StatusHealthy          ToothStatus = "Healthy"
	StatusFilled           ToothStatus = "Filled"
	StatusRootCanalTreated ToothStatus = "Root Canal"
	StatusCrown            ToothStatus = "Crown"
	StatusVeneer           ToothStatus = "Veneer"
	StatusMissing          ToothStatus = "Missing"
	StatusImplant          ToothStatus = "Implant"
	StatusNeedsAttention   ToothStatus = "Needs Attention"
)

// AllStatuses returns every tooth status in display order.
func AllStatuses() []ToothStatus {
	return []ToothStatus{
		StatusHealthy, StatusFilled, StatusRootCanalTreated, StatusCrown,
		StatusVeneer, StatusMissing, StatusImplant, StatusNeedsAttention,
	}
}

// IsValid reports whether s is one of the known statuses.
func (s ToothStatus) IsValid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseToothStatus accepts a display string or a dashed short form
// ("needs-attention", "root-canal"), case-insensitively.
func ParseToothStatus(s string) (ToothStatus, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), "-", " ")
	for _, known := range AllStatuses() {
		if strings.EqualFold(norm, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown tooth status: %q", s)
}

// StatusForKind returns the tooth status a treatment of kind k leaves
// behind. The second result is false for kinds that never change a tooth.
func StatusForKind(k TreatmentKind) (ToothStatus, bool) {
	switch k {
	case KindExtraction:
		return StatusMissing, true
	case KindRootCanal:
		return StatusRootCanalTreated, true
	case KindCrown:
		return StatusCrown, true
	case KindFilling:
		return StatusFilled, true
	case KindVeneer:
		return StatusVeneer, true
	case KindImplant:
		return StatusImplant, true
	default:
		return "", false
	}
}

// DentistSpecialty is the closed set of dentist specialties.
type DentistSpecialty string

const (
	SpecialtyGeneral        DentistSpecialty = "General Dentist"
	SpecialtyOralSurgeon    DentistSpecialty = "Oral Surgeon"
	SpecialtyEndodontist    DentistSpecialty = "Endodontist"
	SpecialtyOrthodontist   DentistSpecialty = "Orthodontist"
	SpecialtyPeriodontist   DentistSpecialty = "Periodontist"
	SpecialtyPediatric      DentistSpecialty = "Pediatric Dentist"
	SpecialtyProsthodontist DentistSpecialty = "Prosthodontist"
	SpecialtyOther          DentistSpecialty = "Other"
)

// AllSpecialties returns every specialty in display order.
func AllSpecialties() []DentistSpecialty {
	return []DentistSpecialty{
		SpecialtyGeneral, SpecialtyOralSurgeon, SpecialtyEndodontist,
		SpecialtyOrthodontist, SpecialtyPeriodontist, SpecialtyPediatric,
		SpecialtyProsthodontist, SpecialtyOther,
	}
}

// IsValid reports whether s is a known specialty. The empty specialty is
// valid because the field is optional.
func (s DentistSpecialty) IsValid() bool {
	if s == "" {
		return true
	}
	for _, known := range AllSpecialties() {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSpecialty matches a specialty by display string or by its first
// word ("surgeon" is not accepted, "oral" is), case-insensitively.
func ParseSpecialty(s string) (DentistSpecialty, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, known := range AllSpecialties() {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
		first, _, _ := strings.Cut(string(known), " ")
		if strings.EqualFold(s, first) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown dentist specialty: %q", s)
}
