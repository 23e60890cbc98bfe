package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/prefs"
	"github.com/fastfingers/race-backend/internal/registry"
	"github.com/fastfingers/race-backend/internal/room"
	"github.com/fastfingers/race-backend/internal/words"
)

func GenerateRoomKey() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	key := make([]byte, 6)
	for i := range key {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		key[i] = charset[num.Int64()]
	}
	return string(key), nil
}

// CreateRoomKey mints an unused room key. The room itself only comes to life
// on the first websocket join with this key.
func CreateRoomKey(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for {
			key, err := GenerateRoomKey()
			if err != nil {
				http.Error(w, "failed to generate room key", http.StatusInternalServerError)
				return
			}
			reply := make(chan *room.Room, 1)
			reg.Inbox() <- registry.Get{ID: key, Reply: reply}
			if <-reply != nil {
				continue // collision, regenerate
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(struct {
				RoomID string `json:"roomId"`
			}{RoomID: key})
			return
		}
	}
}

func UpdatePreferences(store *prefs.Store, ident identity.Provider, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p prefs.Preferences
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "malformed preferences", http.StatusBadRequest)
			return
		}
		username := ident.Username(r)
		store.Set(username, p)
		logger.Info("preferences updated", zap.String("username", username))
		w.WriteHeader(http.StatusOK)
	}
}

// Words hands out a race text. With a seed the response is deterministic, so
// every member of a room can derive the identical text out-of-band.
func Words() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 40
		if c := r.URL.Query().Get("count"); c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n < 1 || n > 500 {
				http.Error(w, "invalid count", http.StatusBadRequest)
				return
			}
			count = n
		}

		seed := words.NewSeed()
		if s := r.URL.Query().Get("seed"); s != "" {
			parsed, err := parseSeed(s)
			if err != nil {
				http.Error(w, "invalid seed", http.StatusBadRequest)
				return
			}
			seed = parsed
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Words []string `json:"words"`
		}{Words: words.Random(seed, words.English, count)})
	}
}

func parseSeed(s string) (words.Seed, error) {
	var seed words.Seed
	parts := strings.Split(s, ",")
	if len(parts) != len(seed) {
		return seed, strconv.ErrSyntax
	}
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return seed, err
		}
		seed[i] = uint32(n)
	}
	return seed, nil
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
