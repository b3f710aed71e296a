package geo

import (
	"strings"

	"github.com/qoparu/qoparu/pkg/survey"
)

// Kind is the category of a recommended sports object.
type Kind string

const (
	KindWorkout    Kind = "workout"
	KindFootball   Kind = "football"
	KindBasketball Kind = "basketball"
	KindGeneral    Kind = "general"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindWorkout, KindFootball, KindBasketball, KindGeneral}

var kindTriggers = []struct {
	phrase string
	kind   Kind
}{
	{"воркаут", KindWorkout},
	{"футбол", KindFootball},
	{"баскет", KindBasketball},
}

// Classify maps a free-text object type to a Kind. First match wins.
// Input is folded like survey answers.
func Classify(objectType string) Kind {
	t := survey.Fold(objectType)
	for _, tr := range kindTriggers {
		if strings.Contains(t, tr.phrase) {
			return tr.kind
		}
	}
	return KindGeneral
}

// Color is the map marker color of k.
func (k Kind) Color() string {
	switch k {
	case KindWorkout:
		return "#0ea5e9"
	case KindFootball:
		return "#22c55e"
	case KindBasketball:
		return "#f59e0b"
	default:
		return "#ef4444"
	}
}

// Label is the Russian caption used on the stats cards.
func (k Kind) Label() string {
	switch k {
	case KindWorkout:
		return "воркаутов"
	case KindFootball:
		return "футбол"
	case KindBasketball:
		return "баскетбол"
	default:
		return "общая"
	}
}

// KindCount is one stats card.
type KindCount struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// CountByKind counts points per kind. Every kind is present, in Kinds order.
func CountByKind(points []Point) []KindCount {
	counts := make(map[Kind]int, len(Kinds))
	for _, p := range points {
		counts[p.Kind]++
	}
	out := make([]KindCount, len(Kinds))
	for i, k := range Kinds {
		out[i] = KindCount{Kind: k, Label: k.Label(), Color: k.Color(), Count: counts[k]}
	}
	return out
}
