package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind   TreatmentKind
		want   ToothStatus
		wantOK bool
	}{
		{KindExtraction, StatusMissing, true},
		{KindRootCanal, StatusRootCanalTreated, true},
		{KindCrown, StatusCrown, true},
		{KindFilling, StatusFilled, true},
		{KindVeneer, StatusVeneer, true},
		{KindImplant, StatusImplant, true},
		{KindHygiene, "", false},
		{KindCheckup, "", false},
		{KindBraces, "", false},
		{KindOther, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got, ok := StatusForKind(tt.kind)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("StatusForKind(%q) = (%q, %v), want (%q, %v)", tt.kind, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseTreatmentKind(t *testing.T) {
	tests := []struct {
		in      string
		want    TreatmentKind
		wantErr bool
	}{
		{"Root Canal", KindRootCanal, false},
		{"root canal", KindRootCanal, false},
		{"root-canal", KindRootCanal, false},
		{"EXTRACTION", KindExtraction, false},
		{"Braces/Mouthguard", KindBraces, false},
		{"cleaning", KindHygiene, false},
		{"whitening", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTreatmentKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTreatmentKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTreatmentKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseToothStatus(t *testing.T) {
	if s, err := ParseToothStatus("needs-attention"); err != nil || s != StatusNeedsAttention {
		t.Errorf("ParseToothStatus(needs-attention) = %q, %v", s, err)
	}
	if s, err := ParseToothStatus("Root Canal"); err != nil || s != StatusRootCanalTreated {
		t.Errorf("ParseToothStatus(Root Canal) = %q, %v", s, err)
	}
	if _, err := ParseToothStatus("Loose"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseSpecialty(t *testing.T) {
	tests := map[string]DentistSpecialty{
		"":                "",
		"oral surgeon":    SpecialtyOralSurgeon,
		"oral":            SpecialtyOralSurgeon,
		"pediatric":       SpecialtyPediatric,
		"Prosthodontist":  SpecialtyProsthodontist,
		"general dentist": SpecialtyGeneral,
	}
	for in, want := range tests {
		got, err := ParseSpecialty(in)
		if err != nil || got != want {
			t.Errorf("ParseSpecialty(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestAllTeeth_ChartOrder(t *testing.T) {
	teeth := AllTeeth()
	if len(teeth) != 32 {
		t.Fatalf("AllTeeth() returned %d teeth, want 32", len(teeth))
	}
	want := []ToothID{18, 17, 16, 15, 14, 13, 12, 11, 21, 22}
	if !reflect.DeepEqual(teeth[:10], want) {
		t.Errorf("AllTeeth() starts %v, want %v", teeth[:10], want)
	}
	if teeth[31] != 41 {
		t.Errorf("AllTeeth() ends with %d, want 41", teeth[31])
	}
	for _, id := range teeth {
		if !id.Valid() {
			t.Errorf("AllTeeth() contains invalid id %d", id)
		}
	}
}

func TestToothID_Valid(t *testing.T) {
	for _, id := range []ToothID{0, 10, 19, 50, 51, -11, 100} {
		if id.Valid() {
			t.Errorf("ToothID(%d).Valid() = true", id)
		}
	}
	if q := ToothID(36).Quadrant(); q != "LL" {
		t.Errorf("Quadrant(36) = %q, want LL", q)
	}
}

func TestTeethStatus_Normalize(t *testing.T) {
	ts := TeethStatus{16: StatusMissing, 99: StatusCrown, 21: "Glowing"}
	n := ts.Normalize()

	if len(n) != 32 {
		t.Fatalf("Normalize() has %d teeth, want 32", len(n))
	}
	if n[16] != StatusMissing {
		t.Errorf("tooth 16 = %q, want Missing", n[16])
	}
	if n[21] != StatusHealthy {
		t.Errorf("tooth 21 with unknown status = %q, want Healthy", n[21])
	}
	if _, ok := n[99]; ok {
		t.Error("Normalize() kept non-FDI key 99")
	}
	if len(ts) != 3 {
		t.Error("Normalize() modified its receiver")
	}
}

func TestTeethStatus_JSONRoundTrip(t *testing.T) {
	in := DefaultTeethStatus()
	in[16] = StatusMissing
	in[47] = StatusNeedsAttention

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out TeethStatus
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch")
	}
}
