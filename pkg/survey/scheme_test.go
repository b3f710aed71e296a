package survey

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultScheme(t *testing.T) {
	s := DefaultScheme()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(s.AllowedDistricts) != 8 {
		t.Errorf("allowed districts = %d, want 8", len(s.AllowedDistricts))
	}
	if len(s.Age.Palette) != 6 || len(s.District.Palette) != 12 || len(s.Activity.Palette) != 10 {
		t.Errorf("palette sizes = %d/%d/%d", len(s.Age.Palette), len(s.District.Palette), len(s.Activity.Palette))
	}
	// Every district rule label is allowed.
	for _, r := range s.District.Rules {
		if !s.Allowed(r.Label) {
			t.Errorf("district %q not in allow-list", r.Label)
		}
	}
	if s.Allowed(s.District.Default) {
		t.Error("default district must not be allowed")
	}
}

func TestDefaultScheme_FreshCopy(t *testing.T) {
	a := DefaultScheme()
	a.AllowedDistricts[0] = "changed"
	a.Age.Rules[0].Label = "changed"

	b := DefaultScheme()
	if b.AllowedDistricts[0] == "changed" || b.Age.Rules[0].Label == "changed" {
		t.Error("DefaultScheme shares state between calls")
	}
}

func TestSchemeValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scheme)
	}{
		{"empty default", func(s *Scheme) { s.Age.Default = "" }},
		{"empty palette", func(s *Scheme) { s.Activity.Palette = nil }},
		{"no keys", func(s *Scheme) { s.District.Keys = nil }},
		{"rule without label", func(s *Scheme) { s.District.Rules[2].Label = "" }},
		{"empty allow-list", func(s *Scheme) { s.AllowedDistricts = nil }},
		{"duplicate district", func(s *Scheme) { s.AllowedDistricts[1] = s.AllowedDistricts[0] }},
	}
	for _, tt := range tests {
		s := DefaultScheme()
		tt.mutate(s)
		if err := s.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestLoadScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scheme.yaml")
	os.WriteFile(path, []byte(`district:
  name: district
  keys: [district, raion]
  rules:
    - label: North
      any_of: [north, солтүстік]
    - label: South
      any_of: [south]
  default: Elsewhere
  palette: ["#000000"]
allowed_districts: [North, South]
`), 0o644)

	s, err := LoadScheme(path)
	if err != nil {
		t.Fatalf("LoadScheme: %v", err)
	}
	if got := s.District.Normalize("North bank"); got != "North" {
		t.Errorf("district Normalize = %q, want North", got)
	}
	if got := s.District.Normalize("Медеуский"); got != "Elsewhere" {
		t.Errorf("district Normalize = %q, want Elsewhere", got)
	}
	// Sections absent from the file keep defaults.
	if got := s.Age.Normalize("18-25"); got != "18-25" {
		t.Errorf("age Normalize = %q, want default rules", got)
	}
	if len(s.AllowedDistricts) != 2 {
		t.Errorf("AllowedDistricts = %v", s.AllowedDistricts)
	}
}

func TestLoadScheme_Invalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadScheme(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("allowed_districts: []\n"), 0o644)
	if _, err := LoadScheme(bad); err == nil {
		t.Error("expected validation error for empty allow-list")
	}

	broken := filepath.Join(dir, "broken.yaml")
	os.WriteFile(broken, []byte("age: [unterminated\n"), 0o644)
	if _, err := LoadScheme(broken); err == nil {
		t.Error("expected parse error")
	}
}

func TestDimensionColumn(t *testing.T) {
	d := Dimension{Keys: []string{"activity_frequency", "activityfrequency"}}
	tests := []struct {
		headers []string
		want    string
		ok      bool
	}{
		{[]string{"age", "Activity_Frequency"}, "Activity_Frequency", true},
		{[]string{"activityFrequency"}, "activityFrequency", true},
		{[]string{"weekly_activity_frequency", "activity_frequency"}, "activity_frequency", true},
		{[]string{"weekly_activity_frequency"}, "weekly_activity_frequency", true},
		{[]string{"age"}, "", false},
	}
	for _, tt := range tests {
		got, ok := d.Column(tt.headers)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Column(%v) = %q,%v want %q,%v", tt.headers, got, ok, tt.want, tt.ok)
		}
	}
}
