// CLAUDE:SUMMARY District-filtered aggregation of survey rows into ranked, colored percentage buckets per dimension.
package survey

import "sort"

// Bucket is one chart slice.
type Bucket struct {
	Name       string `json:"name"`
	Value      int    `json:"value"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// Result is the chart-ready aggregation of a survey.
// Total is the number of rows left after the district filter.
type Result struct {
	Age       []Bucket `json:"age"`
	Districts []Bucket `json:"districts"`
	Activity  []Bucket `json:"activity"`
	Total     int      `json:"total"`
}

// Aggregate keeps the rows whose district normalizes onto the allow-list,
// then counts every dimension independently.
//
// Buckets are sorted by descending count; equal counts keep the order in
// which the category was first seen. Colors follow the sorted position.
func Aggregate(data *ParsedCSV, scheme *Scheme) Result {
	cols := resolveColumns(data.Headers, scheme)

	age := newTally()
	districts := newTally()
	activity := newTally()
	total := 0

	for _, row := range data.Rows {
		district := scheme.District.Normalize(cols.district.get(row))
		if !scheme.Allowed(district) {
			continue
		}
		total++
		districts.add(district)
		age.add(scheme.Age.Normalize(cols.age.get(row)))
		activity.add(scheme.Activity.Normalize(cols.activity.get(row)))
	}

	return Result{
		Age:       age.buckets(total, &scheme.Age),
		Districts: districts.buckets(total, &scheme.District),
		Activity:  activity.buckets(total, &scheme.Activity),
		Total:     total,
	}
}

// column is a resolved header; an unresolved column reads as "".
type column struct {
	name  string
	found bool
}

func (c column) get(row Row) string {
	if !c.found {
		return ""
	}
	return row[c.name]
}

type surveyColumns struct {
	age, district, activity column
}

func resolveColumns(headers []string, scheme *Scheme) surveyColumns {
	var cols surveyColumns
	cols.age.name, cols.age.found = scheme.Age.Column(headers)
	cols.district.name, cols.district.found = scheme.District.Column(headers)
	cols.activity.name, cols.activity.found = scheme.Activity.Column(headers)
	return cols
}

// Percent rounds count/total*100 half-up with integer arithmetic.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return (count*200 + total) / (2 * total)
}

// tally counts labels and remembers first-seen order.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(label string) {
	if label == "" {
		return
	}
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

// top returns the most frequent label; ties go to the first seen.
func (t *tally) top() (string, int, bool) {
	var (
		best  string
		count int
	)
	for _, label := range t.order {
		if c := t.counts[label]; c > count {
			best, count = label, c
		}
	}
	return best, count, count > 0
}

func (t *tally) buckets(total int, dim *Dimension) []Bucket {
	out := make([]Bucket, 0, len(t.order))
	for _, label := range t.order {
		n := t.counts[label]
		out = append(out, Bucket{Name: label, Value: n, Percentage: Percent(n, total)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	for i := range out {
		out[i].Color = dim.Color(i)
	}
	return out
}
