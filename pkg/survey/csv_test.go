package survey

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_Basic(t *testing.T) {
	p, err := Parse("age,district,activity_frequency\n26-35,Бостандыкский,Ежедневно\n46-60,Unknown,Редко\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantHeaders := []string{"age", "district", "activity_frequency"}
	if !reflect.DeepEqual(p.Headers, wantHeaders) {
		t.Errorf("Headers = %v, want %v", p.Headers, wantHeaders)
	}
	if p.RowCount() != 2 {
		t.Fatalf("RowCount = %d, want 2", p.RowCount())
	}
	if got := p.Rows[0]["district"]; got != "Бостандыкский" {
		t.Errorf("row 0 district = %q", got)
	}
	if got := p.Rows[1]["activity_frequency"]; got != "Редко" {
		t.Errorf("row 1 activity = %q", got)
	}
}

func TestParse_TooFewLines(t *testing.T) {
	for _, input := range []string{"", "   ", "age,district", "age,district\n\n  \n"} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", input)
			continue
		}
		if !errors.Is(err, ErrFormat) {
			t.Errorf("Parse(%q): error %v is not ErrFormat", input, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("Parse(%q): error %T is not *FormatError", input, err)
		}
	}
}

func TestParse_RowCountMatchesNonEmptyLines(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"a,b\n1,2", 1},
		{"a,b\n1,2\n\n3,4\n", 2},
		{"a,b\r\n1,2\r\n\r\n3,4\r\n5,6", 3},
		{"a,b\n   \n1,2\n \t \n", 1},
		{"a\nx\ny\nz", 3},
	}
	for _, tt := range tests {
		p, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.input, err)
		}
		if p.RowCount() != tt.want {
			t.Errorf("Parse(%q) rows = %d, want %d", tt.input, p.RowCount(), tt.want)
		}
	}
}

func TestParse_HeaderQuotesStripped(t *testing.T) {
	p, err := Parse("\"age\", 'district' ,\"activity_frequency\"\n1,2,3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"age", "district", "activity_frequency"}
	if !reflect.DeepEqual(p.Headers, want) {
		t.Errorf("Headers = %q, want %q", p.Headers, want)
	}
}

func TestParse_MissingTrailingFields(t *testing.T) {
	p, err := Parse("a,b,c\n1\n1,2,3,4")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	first := p.Rows[0]
	if first["a"] != "1" || first["b"] != "" || first["c"] != "" {
		t.Errorf("row 0 = %v", first)
	}
	if len(first) != 3 {
		t.Errorf("row 0 has %d keys, want 3", len(first))
	}
	second := p.Rows[1]
	if len(second) != 3 || second["c"] != "3" {
		t.Errorf("row 1 = %v", second)
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`a,"b,c",d`, []string{"a", "b,c", "d"}},
		{`a , b ,c`, []string{"a", "b", "c"}},
		{`"Медеуский, мкр. Самал",Ежедневно`, []string{"Медеуский, мкр. Самал", "Ежедневно"}},
		{`a,,c`, []string{"a", "", "c"}},
		{`a,`, []string{"a", ""}},
		{`"unterminated,still,one`, []string{"unterminated,still,one"}},
		{`say ""hi""`, []string{"say hi"}},
	}
	for _, tt := range tests {
		got := splitLine(tt.line)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitLine(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestStripQuotes(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"age"`, "age"},
		{`'age'`, "age"},
		{`"age`, "age"},
		{`age'`, "age"},
		{`""`, ""},
		{`"`, ""},
		{"age", "age"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripQuotes(tt.in); got != tt.want {
			t.Errorf("stripQuotes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
