package model

import (
	"fmt"
	"strconv"
)

// ToothID is a two-digit FDI tooth number: quadrant digit 1-4 followed by
// position digit 1-8.
type ToothID int

// AllTeeth returns the 32 permanent teeth in chart order: upper right
// (18..11), upper left (21..28), lower left (31..38), lower right (41..48).
func AllTeeth() []ToothID {
	teeth := make([]ToothID, 0, 32)
	for p := 8; p >= 1; p-- {
		teeth = append(teeth, ToothID(10+p))
	}
	for p := 1; p <= 8; p++ {
		teeth = append(teeth, ToothID(20+p))
	}
	for p := 1; p <= 8; p++ {
		teeth = append(teeth, ToothID(30+p))
	}
	for p := 8; p >= 1; p-- {
		teeth = append(teeth, ToothID(40+p))
	}
	return teeth
}

// Valid reports whether id is one of the 32 FDI numbers.
func (id ToothID) Valid() bool {
	q, p := int(id)/10, int(id)%10
	return q >= 1 && q <= 4 && p >= 1 && p <= 8
}

// Quadrant returns the chart quadrant label: UR, UL, LL or LR.
func (id ToothID) Quadrant() string {
	switch int(id) / 10 {
	case 1:
		return "UR"
	case 2:
		return "UL"
	case 3:
		return "LL"
	case 4:
		return "LR"
	}
	return ""
}

func (id ToothID) String() string {
	return strconv.Itoa(int(id))
}

// ParseToothID parses and validates an FDI tooth number.
func ParseToothID(s string) (ToothID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tooth id %q: %w", s, err)
	}
	id := ToothID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("invalid tooth id %d: not an FDI permanent tooth", n)
	}
	return id, nil
}

// TeethStatus maps every tooth to its current status.
type TeethStatus map[ToothID]ToothStatus

// DefaultTeethStatus returns a mapping with all 32 teeth Healthy.
func DefaultTeethStatus() TeethStatus {
	ts := make(TeethStatus, 32)
	for _, id := range AllTeeth() {
		ts[id] = StatusHealthy
	}
	return ts
}

// Normalize returns a copy holding exactly the 32 teeth. Missing teeth and
// teeth with an unknown status become Healthy; keys that are not FDI
// numbers are dropped.
func (ts TeethStatus) Normalize() TeethStatus {
	out := DefaultTeethStatus()
	for id, s := range ts {
		if id.Valid() && s.IsValid() {
			out[id] = s
		}
	}
	return out
}

// Status returns the status of a tooth, Healthy when it is not recorded.
func (ts TeethStatus) Status(id ToothID) ToothStatus {
	if s, ok := ts[id]; ok {
		return s
	}
	return StatusHealthy
}

// Clone returns an independent copy.
func (ts TeethStatus) Clone() TeethStatus {
	if ts == nil {
		return nil
	}
	out := make(TeethStatus, len(ts))
	for id, s := range ts {
		out[id] = s
	}
	return out
}
