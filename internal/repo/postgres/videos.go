package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/jackc/pgx/v5"
)

type VideosRepo struct {
	db  DBTX
	obs DBObserver
}

func NewVideosRepo(db DBTX, obs DBObserver) *VideosRepo {
	return &VideosRepo{db: db, obs: observerOrNop(obs)}
}

func scanVideo(row pgx.Row) (video.Video, error) {
	var v video.Video
	err := row.Scan(&v.ID, &v.UserID, &v.URL, &v.VideoID, &v.CreatedAt)
	return v, err
}

// ListByUser returns the caller's video sessions, newest first.
func (r *VideosRepo) ListByUser(ctx context.Context, userID string) ([]video.Video, error) {
	out := []video.Video{}

	err := r.obs.ObserveDB("videos.list_by_user", func() error {
		rows, err := r.db.Query(ctx,
			`SELECT id, user_id, url, video_id, created_at
			FROM videos
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanVideo(rows)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})

	if err != nil {
		if hasPgCode(err, pgInvalidText) {
			return []video.Video{}, nil
		}
		return nil, fmt.Errorf("list videos: %w", err)
	}

	return out, nil
}

// GetForUser only finds videos owned by userID.
func (r *VideosRepo) GetForUser(ctx context.Context, userID, videoID string) (video.Video, error) {
	var v video.Video

	err := r.obs.ObserveDB("videos.get_for_user", func() error {
		var err error
		v, err = scanVideo(r.db.QueryRow(ctx,
			`SELECT id, user_id, url, video_id, created_at
			FROM videos
			WHERE user_id = $1 AND video_id = $2
			ORDER BY created_at DESC
			LIMIT 1`,
			userID, videoID,
		))
		return err
	})

	if err != nil {
		if isMissingRow(err) {
			return video.Video{}, video.ErrNotFound
		}
		return video.Video{}, fmt.Errorf("select video: %w", err)
	}

	return v, nil
}
