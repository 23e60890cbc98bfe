package typing

import (
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrBeyondText = errors.New("attempt longer than text")
var ErrRunawayWord = errors.New("runaway word")
var ErrSkippedWord = errors.New("skipped word")
var ErrBackpedal = errors.New("backpedal not allowed")

// RunawaySlack is how far past the target word's length the word being typed
// may grow before the candidate is treated as paste/garbage and rejected.
const RunawaySlack = 20

// Policy holds the per-user typing-policy flags, read once at test construction.
type Policy struct {
	AllowSkipping  bool
	AllowBackpedal bool
}

// Validate decides whether candidate may replace previous as the current
// attempt against test. Rules are applied in order; the runaway guard is
// unconditional, the rest depend on policy. A nil error means accepted.
//
// All three slices are word sequences as produced by SplitAttempt; previous
// and candidate are never empty (an empty input is the single word "").
func Validate(test, previous, candidate []string, policy Policy) error {
	if len(candidate) > len(test) {
		return ErrBeyondText
	}

	last := candidate[len(candidate)-1]
	if len(last) > len(test[len(candidate)-1])+RunawaySlack {
		return ErrRunawayWord
	}

	if !policy.AllowSkipping && len(candidate) > len(previous) {
		committed := len(previous) - 1
		if candidate[committed] != test[committed] {
			return ErrSkippedWord
		}
	}

	if !policy.AllowBackpedal {
		if len(candidate) < len(previous) {
			return ErrBackpedal
		}
		for i := 0; i < len(previous)-1; i++ {
			if candidate[i] != previous[i] {
				return ErrBackpedal
			}
		}
	}

	return nil
}

// Done reports completion: every word position has been supplied and the
// final word matches. Earlier words are already exact unless skipping was
// allowed, in which case only the final word gates completion.
func Done(test, attempt []string) bool {
	if len(attempt) != len(test) {
		return false
	}
	return attempt[len(attempt)-1] == test[len(test)-1]
}

// SplitAttempt turns a raw input string into its word sequence. An empty
// input yields [""], one in-progress empty word.
func SplitAttempt(raw string) []string {
	return strings.Split(raw, " ")
}

// Test is the stateful engine behind one typing attempt: it owns the attempt
// history, the running char tally and the start/end instants. Not safe for
// concurrent use; callers drive it from a single goroutine per test.
type Test struct {
	words   []string
	policy  Policy
	clock   clockwork.Clock
	attempt []string
	counts  CharCounts
	started bool
	start   time.Time
	done    bool
	end     time.Time
}

func NewTest(words []string, policy Policy, clock clockwork.Clock) *Test {
	return &Test{
		words:   words,
		policy:  policy,
		clock:   clock,
		attempt: SplitAttempt(""),
	}
}

// Submit feeds the full raw input after a keystroke. It returns false when
// the candidate was rejected (the attempt simply does not advance; this is an
// expected outcome, not a fault) or when the test is already done.
func (t *Test) Submit(raw string) bool {
	if t.done {
		return false
	}

	candidate := SplitAttempt(raw)
	if err := Validate(t.words, t.attempt, candidate, t.policy); err != nil {
		return false
	}

	if !t.started {
		t.started = true
		t.start = t.clock.Now()
	}

	t.counts = t.counts.Update(t.words, t.attempt, candidate)
	t.attempt = candidate

	if Done(t.words, candidate) {
		t.done = true
		t.end = t.clock.Now()
	}
	return true
}

// Progress is the index of the word currently being typed; a just-finished
// final word counts as completing it.
func (t *Test) Progress() int {
	if t.done {
		return len(t.words)
	}
	return len(t.attempt) - 1
}

func (t *Test) Attempt() []string { return t.attempt }

func (t *Test) Counts() CharCounts { return t.counts }

func (t *Test) Done() bool { return t.done }

// Duration is the elapsed time from the first accepted keystroke to the
// completing keystroke. Zero until the test is done.
func (t *Test) Duration() time.Duration {
	if !t.done {
		return 0
	}
	return t.end.Sub(t.start)
}
