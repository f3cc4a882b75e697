package ports

import (
	"context"
	"io"
	"time"

	"solace/internal/domain"
)

// MediaConfig describes how the camera and microphone should be captured.
type MediaConfig struct {
	Command          string
	VideoInputFormat string
	VideoDevice      string
	AudioInputFormat string
	AudioDevice      string
	Width            int
	Height           int
	Framerate        int
}

// MediaSession is a live camera+microphone capture session. It is the single
// owning handle for the OS device; Stop releases it and is safe to call more
// than once.
type MediaSession interface {
	io.ReadCloser
	Stop() error
}

// MediaCapture acquires camera+microphone capture sessions.
type MediaCapture interface {
	Acquire(ctx context.Context, cfg MediaConfig) (MediaSession, error)
}

// WellnessAPI is the remote backend that owns all real work.
type WellnessAPI interface {
	Register(ctx context.Context, req RegisterRequest) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.AuthSession, error)
	CurrentUser(ctx context.Context, token string) (domain.User, error)
	DashboardMetrics(ctx context.Context, token string) (domain.DashboardMetrics, error)
	MyCheckins(ctx context.Context, token string, page, pageSize int) (domain.CheckinPage, error)
	AllCheckins(ctx context.Context, token string, page, pageSize int) (domain.CheckinPage, error)
	TaskStatus(ctx context.Context, token, taskID string) (domain.TaskStatus, error)
	UploadCheckin(ctx context.Context, token string, clip domain.Clip, notes string) (domain.CheckinAck, error)
	ReportURL(checkinID, token string) string
}

// RegisterRequest carries the fields of the account-creation form.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// TokenStore persists the single bearer token shared across the client.
type TokenStore interface {
	Get() string
	Set(token string) error
	Clear() error
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock is the time source for countdowns and display delays, injectable so
// timer behavior is deterministic in tests.
type Clock interface {
	NewTicker(d time.Duration) Ticker
	After(d time.Duration) <-chan time.Time
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	CheckinStateChanged(state domain.CheckinState, reason domain.CheckinStateReason)
	CountdownTick(remainingSeconds int)
	CheckinFinished(outcome domain.Outcome)
	AuthExpired()
	CheckinError(code domain.ErrorCode, detail string)
}

// Browser opens URLs in the system browser (report PDFs carry the token as a
// query parameter because a new tab cannot attach headers).
type Browser interface {
	OpenURL(ctx context.Context, url string) error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}
