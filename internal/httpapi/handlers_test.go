package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/prefs"
	"github.com/fastfingers/race-backend/internal/registry"
)

func TestWordsDeterministicForSeed(t *testing.T) {
	h := Words()

	fetch := func(url string) []string {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Words []string `json:"words"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Words
	}

	first := fetch("/words?seed=1,2,3,4&count=10")
	second := fetch("/words?seed=1,2,3,4&count=10")
	require.Equal(t, first, second)
	require.Len(t, first, 10)
}

func TestWordsRejectsBadParams(t *testing.T) {
	h := Words()
	for _, url := range []string{
		"/words?count=0",
		"/words?count=9999",
		"/words?count=abc",
		"/words?seed=1,2,3",
		"/words?seed=a,b,c,d",
	} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestUpdatePreferences(t *testing.T) {
	store := prefs.NewStore()
	h := UpdatePreferences(store, identity.QueryProvider{}, zap.NewNop())

	body := `{"currentMode":"words","wordsModeLength":50,"allowSkippingWords":false,"allowBackpedal":true}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/prefs?username=alice", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	p := store.Get("alice")
	require.Equal(t, 50, p.WordsModeLength)
	require.False(t, p.AllowSkippingWords)
	require.True(t, p.AllowBackpedal)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/prefs?username=alice", strings.NewReader("{nope")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRoomKeyMintsUnusedKey(t *testing.T) {
	reg := registry.New(context.Background(), registry.Config{})
	h := CreateRoomKey(reg)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/room", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.RoomID, 6)
}
