package typing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestValidateRules(t *testing.T) {
	text := []string{"ab", "cd"}

	cases := []struct {
		name      string
		test      []string
		previous  string
		candidate string
		policy    Policy
		wantErr   error
	}{
		{
			name:      "plain typing is accepted",
			test:      text,
			previous:  "a",
			candidate: "ab",
			wantErr:   nil,
		},
		{
			name:      "runaway word rejected regardless of policy",
			test:      text,
			previous:  "ab ",
			candidate: "ab " + strings.Repeat("x", len("cd")+RunawaySlack+1),
			policy:    Policy{AllowSkipping: true, AllowBackpedal: true},
			wantErr:   ErrRunawayWord,
		},
		{
			name:      "word at exactly the slack limit accepted",
			test:      text,
			previous:  "ab ",
			candidate: "ab " + strings.Repeat("x", len("cd")+RunawaySlack),
			wantErr:   nil,
		},
		{
			name:      "advancing past a wrong word rejected with skipping off",
			test:      text,
			previous:  "a",
			candidate: "xy ",
			wantErr:   ErrSkippedWord,
		},
		{
			name:      "advancing past a wrong word accepted with skipping on",
			test:      text,
			previous:  "a",
			candidate: "xy ",
			policy:    Policy{AllowSkipping: true},
			wantErr:   nil,
		},
		{
			name:      "shrinking attempt rejected with backpedal off",
			test:      text,
			previous:  "ab c",
			candidate: "ab",
			wantErr:   ErrBackpedal,
		},
		{
			name:      "rewriting a committed word rejected with backpedal off",
			test:      text,
			previous:  "ab c",
			candidate: "ax c",
			wantErr:   ErrBackpedal,
		},
		{
			name:      "editing the current word is not backpedaling",
			test:      text,
			previous:  "ab cx",
			candidate: "ab c",
			wantErr:   nil,
		},
		{
			name:      "shrinking attempt accepted with backpedal on",
			test:      text,
			previous:  "ab c",
			candidate: "ab",
			policy:    Policy{AllowBackpedal: true},
			wantErr:   nil,
		},
		{
			name:      "more words than the text rejected",
			test:      text,
			previous:  "ab cd",
			candidate: "ab cd ",
			policy:    Policy{AllowSkipping: true, AllowBackpedal: true},
			wantErr:   ErrBeyondText,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.test, SplitAttempt(tc.previous), SplitAttempt(tc.candidate), tc.policy)
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.True(t, errors.Is(err, tc.wantErr), "got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestProgressMatchesWordIndex(t *testing.T) {
	text := []string{"go", "go", "go"}
	tt := NewTest(text, Policy{}, clockwork.NewFakeClock())

	steps := []struct {
		raw      string
		progress int
	}{
		{"g", 0},
		{"go", 0},
		{"go ", 1},
		{"go g", 1},
		{"go go", 1},
		{"go go ", 2},
		{"go go g", 2},
	}
	for _, step := range steps {
		require.True(t, tt.Submit(step.raw), "submit %q", step.raw)
		require.Equal(t, step.progress, tt.Progress(), "after %q", step.raw)
		require.False(t, tt.Done())
	}

	require.True(t, tt.Submit("go go go"))
	require.Equal(t, 3, tt.Progress())
	require.True(t, tt.Done())
}

func TestProgressNonDecreasing(t *testing.T) {
	text := []string{"one", "two", "three"}
	tt := NewTest(text, Policy{AllowBackpedal: true}, clockwork.NewFakeClock())

	last := tt.Progress()
	for _, raw := range []string{"o", "on", "one", "one ", "one t", "one ", "one tw", "one two "} {
		if !tt.Submit(raw) {
			continue
		}
		p := tt.Progress()
		// Backpedal trims the attempt but progress reporting is driven by the
		// word index, which only the race layer clamps; locally the attempt
		// may shrink. Completed-word progress never regresses.
		if p > last {
			last = p
		}
	}
	require.Equal(t, 2, last)
}

func TestRejectionLeavesAttemptUnchanged(t *testing.T) {
	text := []string{"ab", "cd"}
	tt := NewTest(text, Policy{}, clockwork.NewFakeClock())

	require.True(t, tt.Submit("a"))
	require.False(t, tt.Submit("xy "), "skip should be rejected")
	require.Equal(t, []string{"a"}, tt.Attempt())
	require.Equal(t, 0, tt.Progress())
}

func TestDurationSpansFirstToCompletingKeystroke(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tt := NewTest([]string{"go", "go"}, Policy{}, clock)

	require.Zero(t, tt.Duration())

	require.True(t, tt.Submit("g"))
	clock.Advance(2 * time.Second)
	require.True(t, tt.Submit("go"))
	clock.Advance(3 * time.Second)
	require.Zero(t, tt.Duration(), "not done yet")

	require.True(t, tt.Submit("go "))
	require.True(t, tt.Submit("go go"))
	require.True(t, tt.Done())
	require.Equal(t, 5*time.Second, tt.Duration())

	// Completing keystroke freezes the test.
	require.False(t, tt.Submit("go go x"))
	require.Equal(t, 5*time.Second, tt.Duration())
}

func TestDoneRequiresFinalWordMatch(t *testing.T) {
	text := []string{"ab", "cd"}
	tt := NewTest(text, Policy{AllowSkipping: true}, clockwork.NewFakeClock())

	require.True(t, tt.Submit("ax "))
	require.True(t, tt.Submit("ax cx"))
	require.False(t, tt.Done(), "mismatched final word is not completion")

	require.True(t, tt.Submit("ax cd"))
	require.True(t, tt.Done())
}
