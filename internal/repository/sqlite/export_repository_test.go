package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebk/study-bot/internal/domain"
)

func TestExportRepository_DumpScopesToGroup(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	targets := NewTargetRepository(db)
	dayOffs := NewDayOffRepository(db)

	createUser(t, db, 1, -100, true)
	createUser(t, db, 2, -100, false)
	createUser(t, db, 3, -200, true)

	for _, id := range []int64{1, 3} {
		_, err := targets.Upsert(ctx, &domain.Target{UserID: id, Day: testDay, Text: "read"})
		require.NoError(t, err)
	}
	_, err := dayOffs.Create(ctx, &domain.DayOff{UserID: 1, Day: testDay.AddDays(1), Reason: "exam"})
	require.NoError(t, err)

	export, err := NewExportRepository(db).Dump(ctx, -100)
	require.NoError(t, err)

	require.Len(t, export.Users, 2)
	assert.Equal(t, int64(1), export.Users[0].ID)
	assert.Equal(t, int64(2), export.Users[1].ID)
	require.Len(t, export.Targets, 1)
	assert.Equal(t, int64(1), export.Targets[0].UserID)
	require.Len(t, export.DayOffs, 1)
	assert.Equal(t, "exam", export.DayOffs[0].Reason)
	assert.Equal(t, 4, export.Records())
	assert.False(t, export.ExportedAt.IsZero())
}

func TestExportRepository_DumpEmptyGroup(t *testing.T) {
	export, err := NewExportRepository(newTestDB(t)).Dump(context.Background(), -100)
	require.NoError(t, err)
	assert.Equal(t, 0, export.Records())
}
