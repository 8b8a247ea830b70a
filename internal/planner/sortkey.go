package planner

import (
	"cmp"
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/lqx/internal/models"
	"golang.org/x/text/unicode/norm"
)

var versionPrefix = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)`)

// TitleKey is the sort key derived from a lesson title.
//
// "1.2.10 Verbs" has version [1 2 10]. Titles without a numeric prefix have no version
// and sort after every versioned title.
type TitleKey struct {
	Version []string // digit runs without leading zeros
	Title   string   // NFC-normalized title
}

// ParseTitleKey extracts the versioned numeric prefix of title.
func ParseTitleKey(title string) TitleKey {
	key := TitleKey{Title: norm.NFC.String(title)}
	m := versionPrefix.FindStringSubmatch(key.Title)
	if m == nil {
		return key
	}
	for _, part := range strings.Split(m[1], ".") {
		trimmed := strings.TrimLeft(part, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		key.Version = append(key.Version, trimmed)
	}
	return key
}

// Compare orders keys by version, then by title code points.
func (k TitleKey) Compare(o TitleKey) int {
	switch {
	case k.Version == nil && o.Version != nil:
		return 1
	case k.Version != nil && o.Version == nil:
		return -1
	}
	for i := 0; i < len(k.Version) && i < len(o.Version); i++ {
		if c := compareDigits(k.Version[i], o.Version[i]); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(k.Version), len(o.Version)); c != 0 {
		return c
	}
	return strings.Compare(k.Title, o.Title)
}

// compareDigits compares two digit strings without leading zeros numerically, at any length.
func compareDigits(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// TitleOrder returns the ids of items sorted by [TitleKey], ties broken by id.
func TitleOrder(items []models.ItemDescriptor) []int {
	type keyed struct {
		id  int
		key TitleKey
	}
	sorted := make([]keyed, len(items))
	for i, item := range items {
		sorted[i] = keyed{id: item.ID, key: ParseTitleKey(item.Title)}
	}
	slices.SortStableFunc(sorted, func(a, b keyed) int {
		if c := a.key.Compare(b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	ids := make([]int, len(sorted))
	for i, k := range sorted {
		ids[i] = k.id
	}
	return ids
}
