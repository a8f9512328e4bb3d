package metadata

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "amlcore/pkg/domain"
	"amlcore/pkg/requestcontext"
)

func TestRequestMetadata(t *testing.T) {
	var gotRequestID string
	var gotActor id.ActorID
	h := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequestID = requestcontext.RequestID(r.Context())
		gotActor = requestcontext.ActorID(r.Context())
	}))

	t.Run("propagates client request ID and actor", func(t *testing.T) {
		actor := uuid.New()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, "abc-123")
		r.Header.Set(HeaderActorID, actor.String())
		w := httptest.NewRecorder()

		h.ServeHTTP(w, r)

		assert.Equal(t, "abc-123", gotRequestID)
		assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
		assert.Equal(t, id.ActorID(actor), gotActor)
	})

	t.Run("generates request ID when missing or oversized", func(t *testing.T) {
		for _, header := range []string{"", strings.Repeat("x", 200)} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(HeaderRequestID, header)
			r.Header.Set(HeaderActorID, "not-a-uuid")
			h.ServeHTTP(httptest.NewRecorder(), r)

			_, err := uuid.Parse(gotRequestID)
			assert.NoError(t, err)
			assert.True(t, gotActor.IsNil())
		}
	})
}
