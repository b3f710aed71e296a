// CLAUDE:SUMMARY Category scheme (dimensions, trigger phrases, palettes, district allow-list) with built-in Almaty defaults and YAML loading.
package survey

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dimension is one survey question the dashboard charts.
type Dimension struct {
	Name       string   `yaml:"name" json:"name"`
	Keys       []string `yaml:"keys" json:"keys"`
	Normalizer `yaml:",inline"`
	Palette    []string `yaml:"palette" json:"palette"`
}

// Column resolves which header holds this dimension. Header names are
// compared case-insensitively, exact matches first, then substrings.
func (d *Dimension) Column(headers []string) (string, bool) {
	for _, key := range d.Keys {
		k := strings.ToLower(key)
		for _, h := range headers {
			if strings.ToLower(h) == k {
				return h, true
			}
		}
	}
	for _, key := range d.Keys {
		k := strings.ToLower(key)
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), k) {
				return h, true
			}
		}
	}
	return "", false
}

// Color returns the palette entry for a rank position.
func (d *Dimension) Color(rank int) string {
	if len(d.Palette) == 0 {
		return ""
	}
	return d.Palette[rank%len(d.Palette)]
}

// Scheme is the full category configuration injected into the pipeline.
type Scheme struct {
	Age              Dimension `yaml:"age" json:"age"`
	District         Dimension `yaml:"district" json:"district"`
	Activity         Dimension `yaml:"activity" json:"activity"`
	AllowedDistricts []string  `yaml:"allowed_districts" json:"allowed_districts"`
}

// Allowed reports whether a normalized district is on the allow-list.
func (s *Scheme) Allowed(district string) bool {
	for _, d := range s.AllowedDistricts {
		if d == district {
			return true
		}
	}
	return false
}

// Validate checks the scheme is usable by Aggregate and Summarize.
func (s *Scheme) Validate() error {
	for _, d := range []*Dimension{&s.Age, &s.District, &s.Activity} {
		if d.Name == "" {
			return fmt.Errorf("scheme: dimension without name")
		}
		if len(d.Keys) == 0 {
			return fmt.Errorf("scheme: dimension %s: no column keys", d.Name)
		}
		if d.Default == "" {
			return fmt.Errorf("scheme: dimension %s: empty default label", d.Name)
		}
		if len(d.Palette) == 0 {
			return fmt.Errorf("scheme: dimension %s: empty palette", d.Name)
		}
		for i, r := range d.Rules {
			if r.Label == "" {
				return fmt.Errorf("scheme: dimension %s: rule %d has no label", d.Name, i)
			}
		}
	}
	if len(s.AllowedDistricts) == 0 {
		return fmt.Errorf("scheme: empty district allow-list")
	}
	seen := make(map[string]bool, len(s.AllowedDistricts))
	for _, d := range s.AllowedDistricts {
		if seen[d] {
			return fmt.Errorf("scheme: duplicate allowed district %q", d)
		}
		seen[d] = true
	}
	return nil
}

// LoadScheme reads a YAML scheme file. Sections left out of the file keep
// the built-in defaults.
func LoadScheme(path string) (*Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scheme %s: %w", path, err)
	}
	s := DefaultScheme()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scheme %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scheme %s: %w", path, err)
	}
	return s, nil
}

// DefaultScheme returns a fresh copy of the built-in Almaty survey scheme.
func DefaultScheme() *Scheme {
	return &Scheme{
		Age: Dimension{
			Name: "age",
			Keys: []string{"age"},
			Normalizer: Normalizer{
				Rules: []Rule{
					{Label: "До 18", AnyOf: []string{"<18", "до 18", "18 жасқа дейін"}},
					{Label: "18-25", Exact: []string{"18-25"}},
					{Label: "26-35", Exact: []string{"26-35"}},
					{Label: "36-45", Exact: []string{"36-45"}},
					{Label: "46-60", Exact: []string{"46-60"}},
					{Label: "Старше 60", AnyOf: []string{"старше", "жоғары"}, AllOf: []string{"60"}},
				},
				Default: "Неизвестно",
			},
			Palette: []string{"#1e40af", "#059669", "#4c1d95", "#65a30d", "#16a34a", "#84cc16"},
		},
		District: Dimension{
			Name: "district",
			Keys: []string{"district"},
			Normalizer: Normalizer{
				Rules: []Rule{
					{Label: "Ауэзовский", AnyOf: []string{"ауэзов", "әуезов"}},
					{Label: "Бостандыкский", AnyOf: []string{"бостандык", "бостандық"}},
					{Label: "Жетысуский", AnyOf: []string{"жетысу", "жетісу"}},
					{Label: "Наурызбайский", AnyOf: []string{"наурызбай"}},
					{Label: "Алмалинский", AnyOf: []string{"алмалы", "алмалинский"}},
					{Label: "Медеуский", AnyOf: []string{"медеу"}},
					{Label: "Турксибский", AnyOf: []string{"турксиб", "түрксіб"}},
					{Label: "Алатауский", AnyOf: []string{"алатау"}},
				},
				Default: "Неизвестный",
			},
			Palette: []string{
				"#4c1d95", "#5b21b6", "#6d28d9", "#7c3aed", "#8b5cf6", "#a78bfa",
				"#c4b5fd", "#ddd6fe", "#e879f9", "#f472b6", "#fb7185", "#fda4af",
			},
		},
		Activity: Dimension{
			Name: "activity",
			Keys: []string{"activity_frequency", "activityfrequency"},
			Normalizer: Normalizer{
				Rules: []Rule{
					{Label: "Несколько раз в неделю", AnyOf: []string{"несколько раз в неделю", "аптасына бірнеше рет"}},
					{Label: "Ежедневно", AnyOf: []string{"ежедневно", "күн сайын"}},
					{Label: "Несколько раз в месяц", AnyOf: []string{"несколько раз в месяц", "айына бірнеше рет"}},
					{Label: "Редко", AnyOf: []string{"редко", "сирек"}},
					{Label: "Практически не занимаюсь", AnyOf: []string{"практически не занимаюсь", "мүлдем айналыспаймын"}},
					{Label: "Не занимаюсь", AnyOf: []string{"не занимаюсь"}},
				},
				Default: "Другое",
			},
			Palette: []string{
				"#059669", "#16a34a", "#65a30d", "#84cc16", "#eab308", "#f59e0b",
				"#f97316", "#ef4444", "#dc2626", "#991b1b",
			},
		},
		AllowedDistricts: []string{
			"Алатауский", "Алмалинский", "Ауэзовский", "Бостандыкский",
			"Жетысуский", "Медеуский", "Наурызбайский", "Турксибский",
		},
	}
}
