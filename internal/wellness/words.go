package wellness

import (
	"fmt"
	"math/rand"

	"wellness-check-service/internal/domain"
)

const (
	studySetSize = 4
	optionCount  = 4
)

// WordPools holds the static study sets and distractor words.
type WordPools struct {
	sets        [][]string
	distractors []string
}

// NewWordPools validates and copies the tables. Each set must have 4 unique words and at least
// one distractor must fall outside it.
func NewWordPools(sets [][]string, distractors []string) (*WordPools, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: no study sets", domain.ErrInvalidWordPool)
	}
	if len(distractors) == 0 {
		return nil, fmt.Errorf("%w: no distractors", domain.ErrInvalidWordPool)
	}
	for _, d := range distractors {
		if d == "" {
			return nil, fmt.Errorf("%w: empty distractor", domain.ErrInvalidWordPool)
		}
	}

	copied := make([][]string, 0, len(sets))
	for i, set := range sets {
		if len(set) != studySetSize {
			return nil, fmt.Errorf("%w: set %d has %d words, want %d", domain.ErrInvalidWordPool, i, len(set), studySetSize)
		}
		seen := make(map[string]struct{}, len(set))
		for _, w := range set {
			if w == "" {
				return nil, fmt.Errorf("%w: set %d has an empty word", domain.ErrInvalidWordPool, i)
			}
			if _, dup := seen[w]; dup {
				return nil, fmt.Errorf("%w: set %d repeats %q", domain.ErrInvalidWordPool, i, w)
			}
			seen[w] = struct{}{}
		}
		if len(eligibleDistractors(distractors, set)) == 0 {
			return nil, fmt.Errorf("%w: set %d has no usable distractor", domain.ErrInvalidWordPool, i)
		}
		copied = append(copied, append([]string(nil), set...))
	}

	return &WordPools{
		sets:        copied,
		distractors: append([]string(nil), distractors...),
	}, nil
}

// DefaultWordPools returns the built-in tables.
func DefaultWordPools() *WordPools {
	pools, err := NewWordPools(defaultStudySets, defaultDistractors)
	if err != nil {
		panic(err)
	}
	return pools
}

// PoolsOrDefault builds pools from configured tables, using the built-in table for either one
// that is left empty.
func PoolsOrDefault(sets [][]string, distractors []string) (*WordPools, error) {
	if len(sets) == 0 {
		sets = defaultStudySets
	}
	if len(distractors) == 0 {
		distractors = defaultDistractors
	}
	return NewWordPools(sets, distractors)
}

// PickStudySet selects one study set uniformly at random.
func (p *WordPools) PickStudySet(rnd *rand.Rand) []string {
	set := p.sets[rnd.Intn(len(p.sets))]
	return append([]string(nil), set...)
}

// PickDistractor selects a distractor uniformly among those not contained in words.
func (p *WordPools) PickDistractor(rnd *rand.Rand, words []string) string {
	candidates := eligibleDistractors(p.distractors, words)
	return candidates[rnd.Intn(len(candidates))]
}

// BuildOptions samples 3 of the study words without replacement, adds the distractor and
// shuffles the result.
func BuildOptions(rnd *rand.Rand, words []string, distractor string) []string {
	picked := rnd.Perm(len(words))[:optionCount-1]
	options := make([]string, 0, optionCount)
	for _, idx := range picked {
		options = append(options, words[idx])
	}
	options = append(options, distractor)
	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func eligibleDistractors(distractors, words []string) []string {
	out := make([]string, 0, len(distractors))
	for _, d := range distractors {
		if !contains(words, d) {
			out = append(out, d)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var defaultStudySets = [][]string{
	{"apple", "chair", "ocean", "guitar"},
	{"river", "candle", "mountain", "pencil"},
	{"garden", "window", "violin", "basket"},
	{"lemon", "bridge", "feather", "clock"},
	{"forest", "mirror", "bicycle", "teapot"},
	{"planet", "blanket", "hammer", "orange"},
	{"castle", "button", "rabbit", "kettle"},
	{"island", "ladder", "trumpet", "pillow"},
	{"tiger", "lantern", "carpet", "banana"},
	{"desert", "wallet", "piano", "anchor"},
}

var defaultDistractors = []string{
	"elephant",
	"umbrella",
	"volcano",
	"compass",
	"saddle",
	"penguin",
	"cabinet",
	"harbor",
	"thimble",
	"meadow",
}
