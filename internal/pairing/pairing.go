package pairing

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the largest edit distance the fuzzy strategy accepts.
const DefaultThreshold = 5

// Strategy names a pairing rule.
type Strategy string

const (
	Positional       Strategy = "positional"
	SortedPositional Strategy = "sorted-positional"
	Exact            Strategy = "exact"
	Fuzzy            Strategy = "fuzzy"
)

type strategyFunc func(r *Resolver, left, right []string) []models.PairingCandidate

var strategies = map[Strategy]strategyFunc{
	Positional:       pairPositional,
	SortedPositional: pairSortedPositional,
	Exact:            pairExact,
	Fuzzy:            pairFuzzy,
}

var aliases = map[string]Strategy{
	"sorted":  SortedPositional,
	"natural": SortedPositional,
	"zip":     Positional,
}

// Strategies lists the registered strategy names.
func Strategies() []Strategy {
	names := make([]Strategy, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseStrategy resolves a strategy name or alias, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if s, ok := aliases[name]; ok {
		return s, nil
	}
	if _, ok := strategies[Strategy(name)]; ok {
		return Strategy(name), nil
	}
	return "", fmt.Errorf("%w: %q (want one of %v)", shared.ErrUnknownStrategy, name, Strategies())
}

// Resolver pairs path sets. The zero value is not usable; call [NewResolver].
type Resolver struct {
	threshold int
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithThreshold sets the fuzzy rejection threshold. Negative values are ignored.
func WithThreshold(n int) Option {
	return func(r *Resolver) {
		if n >= 0 {
			r.threshold = n
		}
	}
}

// NewResolver creates a Resolver with [DefaultThreshold] unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the fuzzy rejection threshold.
func (r *Resolver) Threshold() int { return r.threshold }

// Pair matches left against right using strategy. Inputs are not modified.
func (r *Resolver) Pair(left, right []string, strategy Strategy) ([]models.PairingCandidate, error) {
	fn, ok := strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownStrategy, strategy)
	}
	return fn(r, left, right), nil
}

// Stem returns the NFC-normalized file name of path without its final extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return norm.NFC.String(strings.TrimSuffix(base, filepath.Ext(base)))
}

func pairPositional(_ *Resolver, left, right []string) []models.PairingCandidate {
	n := max(len(left), len(right))
	out := make([]models.PairingCandidate, n)
	for i := range n {
		if i < len(left) {
			out[i].Left = left[i]
		}
		if i < len(right) {
			out[i].Right = right[i]
		}
	}
	return out
}

func pairSortedPositional(r *Resolver, left, right []string) []models.PairingCandidate {
	l := slices.Clone(left)
	rt := slices.Clone(right)
	SortNatural(l)
	SortNatural(rt)
	return pairPositional(r, l, rt)
}

func pairExact(_ *Resolver, left, right []string) []models.PairingCandidate {
	return pairGreedy(left, right, func(ls string, candidates []int) int {
		for _, j := range candidates {
			if Stem(right[j]) == ls {
				return j
			}
		}
		return -1
	})
}

// pairFuzzy gives each left path, in input order, the closest unconsumed right path.
// The assignment is greedy: a later left path never takes back an earlier choice.
func pairFuzzy(r *Resolver, left, right []string) []models.PairingCandidate {
	stems := make([]string, len(right))
	for j, path := range right {
		stems[j] = Stem(path)
	}

	return pairGreedy(left, right, func(ls string, candidates []int) int {
		best, bestDist := -1, 0
		for _, j := range candidates {
			d := Levenshtein(ls, stems[j])
			if best < 0 || d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 || bestDist > r.threshold {
			return -1
		}
		return best
	})
}

// pairGreedy walks left in order and lets pick choose among unconsumed right indices (in input order).
// Unconsumed right paths are appended as single-sided candidates.
func pairGreedy(left, right []string, pick func(leftStem string, candidates []int) int) []models.PairingCandidate {
	used := make([]bool, len(right))
	out := make([]models.PairingCandidate, 0, len(left)+len(right))

	for _, l := range left {
		candidates := make([]int, 0, len(right))
		for j := range right {
			if !used[j] {
				candidates = append(candidates, j)
			}
		}

		c := models.PairingCandidate{Left: l}
		if j := pick(Stem(l), candidates); j >= 0 {
			used[j] = true
			c.Right = right[j]
		}
		out = append(out, c)
	}

	for j, path := range right {
		if !used[j] {
			out = append(out, models.PairingCandidate{Right: path})
		}
	}
	return out
}
