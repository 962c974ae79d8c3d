package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/videochat/internal/domain/video"
	"github.com/google/uuid"
)

// VideosRepo holds video sessions for STORE=memory runs. Sessions are created
// by the ML service in production, so Add exists for local seeding and tests.
type VideosRepo struct {
	mu     sync.RWMutex
	byUser map[string][]video.Video
}

func NewVideosRepo() *VideosRepo {
	return &VideosRepo{byUser: make(map[string][]video.Video)}
}

func (r *VideosRepo) Add(userID, url, videoID string) video.Video {
	v := video.Video{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       url,
		VideoID:   videoID,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUser[userID] = append(r.byUser[userID], v)
	return v
}

func (r *VideosRepo) ListByUser(ctx context.Context, userID string) ([]video.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]video.Video, len(r.byUser[userID]))
	copy(out, r.byUser[userID])

	// newest first, same as the postgres repo
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out, nil
}

func (r *VideosRepo) GetForUser(ctx context.Context, userID, videoID string) (video.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vids := r.byUser[userID]
	for i := len(vids) - 1; i >= 0; i-- {
		if vids[i].VideoID == videoID {
			return vids[i], nil
		}
	}

	return video.Video{}, video.ErrNotFound
}
