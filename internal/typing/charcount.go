package typing

// CharCounts is the running per-character tally behind accuracy scoring.
// Correct/incorrect are judged against the target text, extra counts
// characters typed past a target word's end, and missed counts target
// characters left untyped in a word that was committed by advancing past it.
type CharCounts struct {
	Correct   int
	Incorrect int
	Extra     int
	Missed    int
}

// Update folds one accepted previous->candidate transition into the tally.
// Only the changed suffix is re-examined, so the cost per keystroke is the
// size of the edit, not the size of the text. Deleted characters (when
// backpedaling is allowed) do not un-count; the tally is append-only, which
// keeps corrections visible in accuracy.
func (c CharCounts) Update(test, previous, candidate []string) CharCounts {
	first := firstDiff(previous, candidate)

	for i := first; i < len(candidate) && i < len(test); i++ {
		prevWord := ""
		if i < len(previous) {
			prevWord = previous[i]
		}
		c = c.countWord(test[i], prevWord, candidate[i])
	}

	// Advancing past a word commits it; whatever was never typed is missed.
	for i := len(previous) - 1; i < len(candidate)-1 && i < len(test); i++ {
		committed := candidate[i]
		if short := len(test[i]) - len(committed); short > 0 {
			c.Missed += short
		}
	}

	return c
}

func (c CharCounts) countWord(target, prev, cur string) CharCounts {
	// Only characters typed beyond the common prefix are new.
	start := commonPrefix(prev, cur)
	for j := start; j < len(cur); j++ {
		switch {
		case j >= len(target):
			c.Extra++
		case cur[j] == target[j]:
			c.Correct++
		default:
			c.Incorrect++
		}
	}
	return c
}

func firstDiff(previous, candidate []string) int {
	i := 0
	for i < len(previous) && i < len(candidate) && previous[i] == candidate[i] {
		i++
	}
	return i
}

func commonPrefix(a, b string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}
