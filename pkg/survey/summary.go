package survey

// TopCategory is the most frequent label of a dimension.
type TopCategory struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Quality holds the share of rows with a non-empty raw value, in [0,1].
type Quality struct {
	HasAge               float64 `json:"has_age"`
	HasDistrict          float64 `json:"has_district"`
	HasActivityFrequency float64 `json:"has_activity_frequency"`
	Complete             float64 `json:"complete"`
}

// Summary describes a parsed survey before district filtering.
type Summary struct {
	TotalResponses            int          `json:"total_responses"`
	UniqueDistricts           int          `json:"unique_districts"`
	UniqueAgeGroups           int          `json:"unique_age_groups"`
	UniqueActivityFrequencies int          `json:"unique_activity_frequencies"`
	TopDistrict               *TopCategory `json:"top_district"`
	TopAgeGroup               *TopCategory `json:"top_age_group"`
	TopActivityFrequency      *TopCategory `json:"top_activity_frequency"`
	Quality                   Quality      `json:"data_quality"`
}

// Summarize computes descriptive statistics over every row of data.
func Summarize(data *ParsedCSV, scheme *Scheme) Summary {
	cols := resolveColumns(data.Headers, scheme)

	age := newTally()
	districts := newTally()
	activity := newTally()
	var hasAge, hasDistrict, hasActivity, complete int

	for _, row := range data.Rows {
		rawAge := cols.age.get(row)
		rawDistrict := cols.district.get(row)
		rawActivity := cols.activity.get(row)

		age.add(scheme.Age.Normalize(rawAge))
		districts.add(scheme.District.Normalize(rawDistrict))
		activity.add(scheme.Activity.Normalize(rawActivity))

		if rawAge != "" {
			hasAge++
		}
		if rawDistrict != "" {
			hasDistrict++
		}
		if rawActivity != "" {
			hasActivity++
		}
		if rawAge != "" && rawDistrict != "" && rawActivity != "" {
			complete++
		}
	}

	n := len(data.Rows)
	return Summary{
		TotalResponses:            n,
		UniqueDistricts:           len(districts.order),
		UniqueAgeGroups:           len(age.order),
		UniqueActivityFrequencies: len(activity.order),
		TopDistrict:               topOf(districts),
		TopAgeGroup:               topOf(age),
		TopActivityFrequency:      topOf(activity),
		Quality: Quality{
			HasAge:               ratio(hasAge, n),
			HasDistrict:          ratio(hasDistrict, n),
			HasActivityFrequency: ratio(hasActivity, n),
			Complete:             ratio(complete, n),
		},
	}
}

func topOf(t *tally) *TopCategory {
	name, count, ok := t.top()
	if !ok {
		return nil
	}
	return &TopCategory{Name: name, Count: count}
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
