package extractor

import (
	"math/rand/v2"
	"strconv"
	"time"

	"ftlvars/pkg/ftl"
)

// MockString is what every substitute renders as.
const MockString = "mock_value"

// MockDate is the date every substitute converts to.
var MockDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Mode selects the continuation values a substitute fabricates.
type Mode int

const (
	// ModePlain answers true to every condition and reports one element per
	// sequence.
	ModePlain Mode = iota

	// ModeConditional flips conditions: false and 0 by default, random when
	// the recorder has a random source.
	ModeConditional

	// ModeIteration reports several elements per sequence so loop bodies run.
	ModeIteration
)

// String returns the pass name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModeConditional:
		return "conditional"
	case ModeIteration:
		return "iteration"
	default:
		return "unknown"
	}
}

// recorder collects the paths seen during one pass. A pass executes on a
// single goroutine, so it needs no locking.
type recorder struct {
	mode     Mode
	iterSize int
	rnd      *rand.Rand

	paths []string
	seen  map[string]struct{}
	usage map[string][]UsageKind
}

func newRecorder(mode Mode, iterSize int, rnd *rand.Rand) *recorder {
	return &recorder{
		mode:     mode,
		iterSize: iterSize,
		rnd:      rnd,
		seen:     make(map[string]struct{}),
		usage:    make(map[string][]UsageKind),
	}
}

func (r *recorder) record(path string) {
	if _, ok := r.seen[path]; ok {
		return
	}
	r.seen[path] = struct{}{}
	r.paths = append(r.paths, path)
}

func (r *recorder) use(path string, kind UsageKind) {
	if path == "" {
		return
	}
	r.usage[path] = appendUnique(r.usage[path], kind)
}

// Substitute stands in for the whole data model during a mock pass. It
// answers every capability the engine can ask for, records each path the
// template reaches and hands out a fresh child for every access.
type Substitute struct {
	prefix string
	rec    *recorder
}

var (
	_ ftl.HashExModel     = (*Substitute)(nil)
	_ ftl.SequenceModel   = (*Substitute)(nil)
	_ ftl.LoopSourceModel = (*Substitute)(nil)
	_ ftl.ScalarModel     = (*Substitute)(nil)
	_ ftl.BooleanModel    = (*Substitute)(nil)
	_ ftl.NumberModel     = (*Substitute)(nil)
	_ ftl.DateModel       = (*Substitute)(nil)
)

// NewSubstitute returns a root substitute for one pass in the given mode.
// iterSize values below 2 fall back to DefaultIterationSize.
func NewSubstitute(mode Mode, iterSize int, rnd *rand.Rand) *Substitute {
	if iterSize < 2 {
		iterSize = DefaultIterationSize
	}
	return &Substitute{rec: newRecorder(mode, iterSize, rnd)}
}

// Path returns the access path this substitute stands for ("" for the root).
func (s *Substitute) Path() string { return s.prefix }

// Paths returns the distinct paths recorded so far, in first-seen order.
func (s *Substitute) Paths() []string { return s.rec.paths }

func (s *Substitute) child(path string) *Substitute {
	s.rec.record(path)
	return &Substitute{prefix: path, rec: s.rec}
}

// Get records prefix.key and returns its substitute.
func (s *Substitute) Get(key string) (ftl.Model, error) {
	if s.prefix == "" {
		return s.child(key), nil
	}
	return s.child(s.prefix + "." + key), nil
}

// IsEmpty is always false so the engine never treats a substitute as absent.
func (s *Substitute) IsEmpty() (bool, error) { return false, nil }

// Keys reports no keys; a substitute cannot know which names exist.
func (s *Substitute) Keys() ([]string, error) { return nil, nil }

// Index records prefix[i] and returns its substitute.
func (s *Substitute) Index(i int) (ftl.Model, error) {
	return s.child(s.prefix + "[" + strconv.Itoa(i) + "]"), nil
}

// LoopItem binds a loop variable: the element is recorded under the loop
// variable's own name rather than as an indexed path of the source.
func (s *Substitute) LoopItem(name string, _ int) (ftl.Model, error) {
	return s.child(name), nil
}

// Size reports 1, or the iteration size in iteration mode.
func (s *Substitute) Size() (int, error) {
	s.rec.use(s.prefix, UsageIteration)
	if s.rec.mode == ModeIteration {
		return s.rec.iterSize, nil
	}
	return 1, nil
}

// AsString returns MockString.
func (s *Substitute) AsString() (string, error) {
	s.rec.use(s.prefix, UsageOutput)
	return MockString, nil
}

// AsBoolean is true in plain and iteration mode and false (or random) in
// conditional mode.
func (s *Substitute) AsBoolean() (bool, error) {
	s.rec.use(s.prefix, UsageCondition)
	if s.rec.mode != ModeConditional {
		return true, nil
	}
	if s.rec.rnd != nil {
		return s.rec.rnd.IntN(2) == 1, nil
	}
	return false, nil
}

// AsNumber is 1, or 0 in conditional mode (random 0 or 1 with a random source).
func (s *Substitute) AsNumber() (float64, error) {
	if s.rec.mode != ModeConditional {
		return 1, nil
	}
	if s.rec.rnd != nil {
		return float64(s.rec.rnd.IntN(2)), nil
	}
	return 0, nil
}

// AsDate returns MockDate.
func (s *Substitute) AsDate() (time.Time, error) {
	return MockDate, nil
}
