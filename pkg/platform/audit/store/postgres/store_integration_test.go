//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlcore/pkg/platform/audit"
	"amlcore/pkg/testutil/containers"
)

func TestStore_AppendAndList(t *testing.T) {
	pg := containers.GetManager().Postgres(t)
	pg.Truncate(t)
	store := New(pg.DB)
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	for i, action := range []audit.AuditEvent{audit.EventSARCreated, audit.EventReportViewed} {
		require.NoError(t, store.Append(ctx, audit.Event{
			Timestamp: t0.Add(time.Duration(i) * time.Minute),
			Subject:   "sar-1",
			Action:    string(action),
			Reference: "SAR-20260302-01000",
			ActorID:   "analyst",
		}))
	}
	require.NoError(t, store.Append(ctx, audit.Event{Timestamp: t0, Subject: "sar-2", Action: string(audit.EventSARCreated)}))

	entries, err := store.ListBySubject(ctx, "sar-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, string(audit.EventSARCreated), entries[0].Action)
	assert.Equal(t, audit.CategoryCompliance, entries[0].Category)
	assert.Equal(t, audit.CategoryOperations, entries[1].Category)
	assert.True(t, entries[0].Timestamp.Equal(t0))
}
