// Package metadata extracts correlation and actor metadata from incoming requests.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	id "amlcore/pkg/domain"
	"amlcore/pkg/requestcontext"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderActorID   = "X-Actor-ID"
)

// maxRequestIDLen caps client-supplied correlation IDs before they reach logs.
const maxRequestIDLen = 128

// RequestMetadata propagates a request ID (client supplied or generated) and
// the acting analyst, when the upstream gateway forwards one, into the context.
// The request ID is echoed back on the response.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		if actor, err := id.ParseActorID(r.Header.Get(HeaderActorID)); err == nil {
			ctx = requestcontext.WithActorID(ctx, actor)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
