package words

import (
	"crypto/rand"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"strings"

	"github.com/samber/lo"
)

//go:embed english.json
var englishRaw []byte

// English is the default word list, loaded once at startup.
var English = mustLoad(englishRaw)

func mustLoad(raw []byte) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		panic("words: bad embedded word list: " + err.Error())
	}
	list = lo.Filter(list, func(w string, _ int) bool {
		return strings.TrimSpace(w) != ""
	})
	if len(list) == 0 {
		panic("words: embedded word list is empty")
	}
	return list
}

// Random picks count words from list using the seeded generator. Repeats are
// allowed, exactly as in the reference generator.
func Random(seed Seed, list []string, count int) []string {
	next := sfc32(seed)
	picked := make([]string, count)
	for i := range picked {
		picked[i] = list[int(next())%len(list)]
	}
	return picked
}

// NewSeed draws a fresh random seed for a race text.
func NewSeed() Seed {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	var s Seed
	for i := range s {
		s[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return s
}
