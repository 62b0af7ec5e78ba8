package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/signalhunt/market/pkg/models"
)

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *models.BackgroundJob) error

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// Job types handled by the worker pool.
const (
	TypeProfileChat = "extract.profile_chat"
)

// ProfileChatPayload is the payload for TypeProfileChat jobs.
type ProfileChatPayload struct {
	ProfileID  string `json:"profile_id"`
	Role       string `json:"role"`
	Transcript string `json:"transcript"`
}

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// simple exponential: base 2^attempt seconds, capped
	d := time.Duration(1<<uint(attempt)) * time.Second
	const limit = 5 * time.Minute
	if d > limit {
		return limit
	}
	return d
}
