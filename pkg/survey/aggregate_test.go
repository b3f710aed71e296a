package survey

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func mustParse(t *testing.T, text string) *ParsedCSV {
	t.Helper()
	p, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestAggregate_EndToEnd(t *testing.T) {
	data := mustParse(t, "age,district,activity_frequency\n26-35,Бостандыкский,Ежедневно\n46-60,Unknown,Редко\n")
	r := Aggregate(data, DefaultScheme())

	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1", r.Total)
	}
	if len(r.Districts) != 1 || r.Districts[0].Name != "Бостандыкский" || r.Districts[0].Value != 1 || r.Districts[0].Percentage != 100 {
		t.Errorf("Districts = %+v", r.Districts)
	}
	if len(r.Age) != 1 || r.Age[0].Name != "26-35" || r.Age[0].Value != 1 || r.Age[0].Percentage != 100 {
		t.Errorf("Age = %+v", r.Age)
	}
	if len(r.Activity) != 1 || r.Activity[0].Name != "Ежедневно" {
		t.Errorf("Activity = %+v", r.Activity)
	}
}

func TestAggregate_SortAndColors(t *testing.T) {
	data := mustParse(t, strings.Join([]string{
		"age,district,activity_frequency",
		"18-25,Медеуский,Редко",
		"26-35,Алатауский,Редко",
		"26-35,Алатауский,Ежедневно",
		"36-45,Алатауский,Ежедневно",
		"36-45,Медеуский,Ежедневно",
	}, "\n"))
	scheme := DefaultScheme()
	r := Aggregate(data, scheme)

	if r.Total != 5 {
		t.Fatalf("Total = %d, want 5", r.Total)
	}

	// Алатауский (3) before Медеуский (2).
	if r.Districts[0].Name != "Алатауский" || r.Districts[1].Name != "Медеуский" {
		t.Errorf("district order = %+v", r.Districts)
	}
	if r.Districts[0].Color != scheme.District.Palette[0] || r.Districts[1].Color != scheme.District.Palette[1] {
		t.Errorf("district colors follow sorted rank: %+v", r.Districts)
	}

	// 26-35 and 36-45 tie at 2; 26-35 was seen first.
	wantAge := []string{"26-35", "36-45", "18-25"}
	for i, name := range wantAge {
		if r.Age[i].Name != name {
			t.Errorf("age[%d] = %q, want %q", i, r.Age[i].Name, name)
		}
	}
	if r.Age[0].Percentage != 40 || r.Age[2].Percentage != 20 {
		t.Errorf("age percentages = %+v", r.Age)
	}

	if r.Activity[0].Name != "Ежедневно" || r.Activity[0].Value != 3 || r.Activity[0].Percentage != 60 {
		t.Errorf("activity = %+v", r.Activity)
	}
}

func TestAggregate_PaletteWraps(t *testing.T) {
	scheme := DefaultScheme()
	scheme.Age.Palette = []string{"red", "blue"}

	data := mustParse(t, strings.Join([]string{
		"age,district,activity_frequency",
		"18-25,Медеуский,x",
		"18-25,Медеуский,x",
		"18-25,Медеуский,x",
		"26-35,Медеуский,x",
		"26-35,Медеуский,x",
		"36-45,Медеуский,x",
	}, "\n"))
	r := Aggregate(data, scheme)
	want := []string{"red", "blue", "red"}
	for i, c := range want {
		if r.Age[i].Color != c {
			t.Errorf("age[%d].Color = %q, want %q", i, r.Age[i].Color, c)
		}
	}
}

func TestAggregate_UnknownDistrictExcluded(t *testing.T) {
	data := mustParse(t, strings.Join([]string{
		"age,district,activity_frequency",
		"18-25,Медеуский,Редко",
		"26-35,Астана,Ежедневно",
		"36-45,,Ежедневно",
	}, "\n"))
	r := Aggregate(data, DefaultScheme())
	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1", r.Total)
	}
	for _, b := range r.Age {
		if b.Name != "18-25" {
			t.Errorf("age bucket from excluded row: %+v", b)
		}
	}
	for _, b := range r.Activity {
		if b.Name != "Редко" {
			t.Errorf("activity bucket from excluded row: %+v", b)
		}
	}
}

func TestAggregate_CaseInsensitiveKeys(t *testing.T) {
	data := mustParse(t, "Age,District,activityFrequency\n18-25,Медеуский,Редко")
	r := Aggregate(data, DefaultScheme())
	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1", r.Total)
	}
	if r.Age[0].Name != "18-25" || r.Activity[0].Name != "Редко" {
		t.Errorf("result = %+v", r)
	}
}

func TestAggregate_SubstitutedScheme(t *testing.T) {
	scheme := &Scheme{
		Age:              Dimension{Name: "age", Keys: []string{"age"}, Normalizer: Normalizer{Default: "?"}, Palette: []string{"#000"}},
		District:         Dimension{Name: "district", Keys: []string{"zone"}, Normalizer: Normalizer{Rules: []Rule{{Label: "North", AnyOf: []string{"north"}}}, Default: "none"}, Palette: []string{"#111"}},
		Activity:         Dimension{Name: "activity", Keys: []string{"freq"}, Normalizer: Normalizer{Default: "?"}, Palette: []string{"#222"}},
		AllowedDistricts: []string{"North"},
	}
	if err := scheme.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	data := mustParse(t, "age,zone,freq\n1,north side,a\n2,south,b\n3,NORTH,c")
	r := Aggregate(data, scheme)
	if r.Total != 2 {
		t.Fatalf("Total = %d, want 2", r.Total)
	}
	if r.Districts[0].Name != "North" || r.Districts[0].Color != "#111" {
		t.Errorf("Districts = %+v", r.Districts)
	}
}

func TestAggregate_Empty(t *testing.T) {
	data := &ParsedCSV{Headers: []string{"age", "district", "activity_frequency"}}
	r := Aggregate(data, DefaultScheme())
	if r.Total != 0 || len(r.Age) != 0 || len(r.Districts) != 0 || len(r.Activity) != 0 {
		t.Errorf("expected empty result, got %+v", r)
	}
}

// Sum of bucket values equals Total, percentages stay in [0,100].
func TestAggregate_Invariants(t *testing.T) {
	ages := []string{"<18", "18-25", "26-35", "36-45", "46-60", "старше 60", "?", ""}
	districts := []string{"Медеу", "Алатау", "Әуезов", "Түрксіб", "Астана", "", "Алмалы", "Жетысу", "Наурызбай", "Бостандық"}
	acts := []string{"Ежедневно", "Редко", "сирек", "не занимаюсь", "иногда", ""}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		var b strings.Builder
		b.WriteString("age,district,activity_frequency\n")
		n := 1 + rng.Intn(200)
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "%s,%s,%s\n",
				ages[rng.Intn(len(ages))],
				districts[rng.Intn(len(districts))],
				acts[rng.Intn(len(acts))])
		}
		r := Aggregate(mustParse(t, b.String()), DefaultScheme())
		for name, dim := range map[string][]Bucket{"age": r.Age, "districts": r.Districts, "activity": r.Activity} {
			sum := 0
			for i, bk := range dim {
				sum += bk.Value
				if bk.Percentage < 0 || bk.Percentage > 100 {
					t.Fatalf("%s bucket %+v percentage out of range", name, bk)
				}
				if i > 0 && dim[i-1].Value < bk.Value {
					t.Fatalf("%s not sorted descending: %+v", name, dim)
				}
			}
			if sum != r.Total {
				t.Fatalf("%s sum = %d, Total = %d", name, sum, r.Total)
			}
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		count, total, want int
	}{
		{1, 1, 100},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // exactly 0.5% rounds up
		{1, 201, 0},
		{1, 8, 13}, // 12.5%
		{3, 8, 38}, // 37.5%
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.count, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.count, tt.total, got, tt.want)
		}
	}
}
