package identity

import (
	"net/http"

	"github.com/google/uuid"
)

// Provider yields the authenticated username for a connection. The actual
// sign-in flow is out of scope; the gateway only ever asks for the name once,
// at connect time, and the client never sends it afterwards.
type Provider interface {
	Username(r *http.Request) string
}

// QueryProvider trusts a username query parameter and mints a guest name when
// none is given. Stands in for the session-based auth the full product has.
type QueryProvider struct{}

func (QueryProvider) Username(r *http.Request) string {
	if u := r.URL.Query().Get("username"); u != "" {
		return u
	}
	return "guest-" + uuid.NewString()[:8]
}
