// Package levels maps continuous sentiment scores onto the discrete,
// configured set of score levels that indexes the reply corpus.
package levels

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Neutral is the pivot score separating negative from positive sentiment.
	// The configured level set must always contain it.
	Neutral = 0.5

	specFieldCount = 3
)

// ErrNoReplyAvailable indicates that no configured level has a single reply
// for the requested language. The corpus must guarantee at least one reply
// per level per supported language, so hitting this is a data error, not a
// runtime condition to retry.
var ErrNoReplyAvailable = errors.New("no reply available at any configured level")

var (
	errEmptySpec      = errors.New("score levels: empty spec")
	errSpecNotSorted  = errors.New("score levels: values must be strictly ascending")
	errSpecOutOfRange = errors.New("score levels: values must be within [0.0, 1.0]")
	errNeutralMissing = errors.New("score levels: neutral level 0.5 is required")
)

// Level is one discrete sentiment bucket.
type Level struct {
	Value    float64
	Desc     string
	Category string
}

// Prober answers whether the reply corpus holds at least one reply
// for a (level, language) pair.
type Prober interface {
	Exists(ctx context.Context, level float64, language string) (bool, error)
}

// ParseSpec parses "value:description:category" triples into an ordered
// level set. Values must be ascending, within [0.0, 1.0], and include 0.5.
func ParseSpec(specs []string) ([]Level, error) {
	if len(specs) == 0 {
		return nil, errEmptySpec
	}

	parsed := make([]Level, 0, len(specs))
	neutralSeen := false

	for _, s := range specs {
		parts := strings.SplitN(strings.TrimSpace(s), ":", specFieldCount)
		if len(parts) != specFieldCount {
			return nil, fmt.Errorf("score levels: malformed entry %q", s)
		}

		value, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("score levels: bad value in %q: %w", s, err)
		}

		if value < 0.0 || value > 1.0 {
			return nil, errSpecOutOfRange
		}

		if len(parsed) > 0 && value <= parsed[len(parsed)-1].Value {
			return nil, errSpecNotSorted
		}

		if value == Neutral {
			neutralSeen = true
		}

		parsed = append(parsed, Level{Value: value, Desc: parts[1], Category: parts[2]})
	}

	if !neutralSeen {
		return nil, errNeutralMissing
	}

	return parsed, nil
}

// Index holds the ordered level set and resolves scores against the corpus.
type Index struct {
	levels []Level
	values []float64
	prober Prober
}

func NewIndex(levels []Level, prober Prober) *Index {
	values := make([]float64, len(levels))
	for i, l := range levels {
		values[i] = l.Value
	}

	return &Index{levels: levels, values: values, prober: prober}
}

// Levels returns the configured level set in ascending order.
func (ix *Index) Levels() []Level {
	out := make([]Level, len(ix.levels))
	copy(out, ix.levels)

	return out
}

// Describe returns the metadata for an exact level value.
func (ix *Index) Describe(value float64) (Level, bool) {
	i := sort.SearchFloat64s(ix.values, value)
	if i < len(ix.values) && ix.values[i] == value {
		return ix.levels[i], true
	}

	return Level{}, false
}

// NearestNonEmptyLevel finds the level closest to target that has at least
// one reply for the language. The target is clamped into the configured
// range, then the levels are scanned one at a time starting at the target's
// rank, moving away from neutral first (upward for target >= 0.5, downward
// otherwise); once the boundary is reached the scan reverses from the
// starting rank. Exhausting both directions returns ErrNoReplyAvailable.
func (ix *Index) NearestNonEmptyLevel(ctx context.Context, language string, target float64) (Level, error) {
	if len(ix.values) == 0 {
		return Level{}, errEmptySpec
	}

	clamped := clamp(target, ix.values[0], ix.values[len(ix.values)-1])
	rank := sort.SearchFloat64s(ix.values, clamped)

	for _, i := range ix.scanOrder(clamped, rank) {
		ok, err := ix.prober.Exists(ctx, ix.values[i], language)
		if err != nil {
			return Level{}, fmt.Errorf("probe level %v: %w", ix.values[i], err)
		}

		if ok {
			return ix.levels[i], nil
		}
	}

	return Level{}, fmt.Errorf("%w: language %q, target %v", ErrNoReplyAvailable, language, target)
}

// scanOrder yields level indices in visit order: away from neutral first,
// then the opposite direction from the starting rank.
func (ix *Index) scanOrder(clamped float64, rank int) []int {
	order := make([]int, 0, len(ix.values))

	if clamped >= Neutral {
		for i := rank; i < len(ix.values); i++ {
			order = append(order, i)
		}

		for i := rank - 1; i >= 0; i-- {
			order = append(order, i)
		}

		return order
	}

	// Downward first. The rank points at the first level >= clamped; when
	// that level is not an exact hit it lies above the target and belongs
	// to the upward leg.
	start := rank
	if start >= len(ix.values) || ix.values[start] != clamped {
		start = rank - 1
	}

	for i := start; i >= 0; i-- {
		order = append(order, i)
	}

	for i := start + 1; i < len(ix.values); i++ {
		order = append(order, i)
	}

	return order
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
