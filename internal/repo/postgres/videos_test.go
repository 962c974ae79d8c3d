package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var videoCols = []string{"id", "user_id", "url", "video_id", "created_at"}

func TestVideosRepo_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVideosRepo(mock, nil)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM videos\s+WHERE user_id = \$1`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(videoCols).
			AddRow("v-2", "u-1", "https://youtu.be/bbb", "bbb", now).
			AddRow("v-1", "u-1", "https://youtu.be/aaa", "aaa", now.Add(-time.Hour)))

	items, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "bbb", items[0].VideoID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideosRepo_ListByUser_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVideosRepo(mock, nil)

	mock.ExpectQuery(`SELECT .+ FROM videos`).
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows(videoCols))

	items, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestVideosRepo_GetForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewVideosRepo(mock, nil)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs("u-1", "aaa").
		WillReturnRows(pgxmock.NewRows(videoCols).AddRow("v-1", "u-1", "https://youtu.be/aaa", "aaa", now))

	v, err := repo.GetForUser(context.Background(), "u-1", "aaa")
	require.NoError(t, err)
	assert.Equal(t, "v-1", v.ID)

	mock.ExpectQuery(`WHERE user_id = \$1 AND video_id = \$2`).
		WithArgs("u-2", "aaa").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetForUser(context.Background(), "u-2", "aaa")
	assert.ErrorIs(t, err, video.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
