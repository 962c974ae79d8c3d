package video

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("video not found")

// Video is one video-chat session a user opened against a source URL.
// Transcripts and chat history live in the ML service.
type Video struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	URL       string    `json:"url"`
	VideoID   string    `json:"videoId"`
	CreatedAt time.Time `json:"createdAt"`
}
