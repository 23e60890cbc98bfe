package typing

import "time"

// Result is what gets reported when a test completes: the same fields the
// result endpoint historically stored (wpm, raw wpm, accuracy percentage).
type Result struct {
	Wpm      float64
	RawWpm   float64
	Accuracy float64
}

// Score derives the result from a finished tally. Wpm uses the usual
// five-characters-per-word convention over correctly typed characters;
// raw wpm counts everything typed.
func Score(counts CharCounts, duration time.Duration) Result {
	minutes := duration.Minutes()
	if minutes <= 0 {
		return Result{}
	}

	typed := counts.Correct + counts.Incorrect + counts.Extra
	accuracy := 0.0
	if typed > 0 {
		accuracy = 100 * float64(counts.Correct) / float64(typed)
	}

	return Result{
		Wpm:      float64(counts.Correct) / 5 / minutes,
		RawWpm:   float64(typed) / 5 / minutes,
		Accuracy: accuracy,
	}
}
