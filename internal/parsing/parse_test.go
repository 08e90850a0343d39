package parsing

import (
	"testing"
	"time"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"59 950,00 €", "59950"},
		{"59 950,00 €", "59950"},
		{"48900 €", "48900"},
		{"1 234,56", "1234.56"},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if err != nil {
			t.Errorf("ParsePrice(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParsePrice(""); err == nil {
		t.Errorf("ParsePrice(\"\") did not fail")
	}
	if _, err := ParsePrice("sur demande"); err == nil {
		t.Errorf("ParsePrice of non-numeric text did not fail")
	}
}

func TestParseKilometers(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"9500 km", 9500},
		{"9 500 km", 9500},
		{"21 000 km", 21000},
	}

	for _, tt := range tests {
		got, err := ParseKilometers(tt.in)
		if err != nil {
			t.Errorf("ParseKilometers(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKilometers(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKilometers("km"); err == nil {
		t.Errorf("ParseKilometers without digits did not fail")
	}
}

func TestParseVehicleID(t *testing.T) {
	got, err := ParseVehicleID(" 8471263 ")
	if err != nil {
		t.Fatalf("ParseVehicleID: %v", err)
	}
	if got != 8471263 {
		t.Errorf("ParseVehicleID = %d, want 8471263", got)
	}

	if _, err := ParseVehicleID("abc"); err == nil {
		t.Errorf("non-numeric identifier did not fail")
	}
}

func TestParsePower(t *testing.T) {
	kw, ps := ParsePower("210 kW (286 PS)")
	if kw == nil || *kw != 210 {
		t.Errorf("kw = %v, want 210", kw)
	}
	if ps == nil || *ps != 286 {
		t.Errorf("ps = %v, want 286", ps)
	}

	kw, ps = ParsePower("210 kW")
	if kw == nil || *kw != 210 {
		t.Errorf("kw = %v, want 210 without PS", kw)
	}
	if ps != nil {
		t.Errorf("ps = %v, want nil without PS", *ps)
	}

	kw, ps = ParsePower("")
	if kw != nil || ps != nil {
		t.Errorf("empty power string must yield nil, nil")
	}
}

func TestParseBatteryRange(t *testing.T) {
	got, err := ParseBatteryRange("475 km")
	if err != nil {
		t.Fatalf("ParseBatteryRange: %v", err)
	}
	if got != 475 {
		t.Errorf("ParseBatteryRange = %d, want 475", got)
	}
}

func TestParseRegistrationDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"août 2025", time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)},
		{"Janvier 2023", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"  décembre 2021 ", time.Date(2021, time.December, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseRegistrationDate(tt.in)
		if err != nil {
			t.Errorf("ParseRegistrationDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseRegistrationDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseRegistrationDate("sometime 2023"); err == nil {
		t.Errorf("unknown month did not fail")
	}
	if _, err := ParseRegistrationDate("2023"); err == nil {
		t.Errorf("missing month did not fail")
	}
}
