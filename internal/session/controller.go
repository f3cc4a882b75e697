// Package session owns the check-in capture lifecycle: device acquisition,
// the bounded recording countdown, clip finalization, the single upload
// attempt, and teardown on every exit path.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"solace/internal/api"
	"solace/internal/domain"
	"solace/internal/ports"
)

var (
	ErrCheckinActive   = errors.New("a check-in recording is already active")
	ErrNoActiveCheckin = errors.New("no active check-in session")
)

// Config controls capture and upload behavior for one controller.
type Config struct {
	Media              ports.MediaConfig
	RecordLimitSeconds int
	StartDelay         time.Duration
	CloseDelay         time.Duration
	ChunkSize          int
	Notes              string
}

// Controller orchestrates daily check-in recording and upload. At most one
// capture session, one media handle, and one countdown exist at a time.
type Controller struct {
	media  ports.MediaCapture
	api    ports.WellnessAPI
	store  ports.TokenStore
	clock  ports.Clock
	events ports.EventSink
	cfg    Config

	mu      sync.Mutex
	current *captureSession
}

func NewController(
	media ports.MediaCapture,
	backend ports.WellnessAPI,
	store ports.TokenStore,
	clock ports.Clock,
	events ports.EventSink,
	cfg Config,
) *Controller {
	if cfg.RecordLimitSeconds <= 0 {
		cfg.RecordLimitSeconds = 120
	}
	if cfg.ChunkSize < 1024 {
		cfg.ChunkSize = 32 * 1024
	}
	return &Controller{
		media:  media,
		api:    backend,
		store:  store,
		clock:  clock,
		events: events,
		cfg:    cfg,
	}
}

// Start begins a new capture session: acquire the camera+microphone, let the
// preview stabilize, then record with the countdown armed. Repeated start
// signals while a session is active are rejected without acquiring a second
// device or timer.
func (c *Controller) Start(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	active := &captureSession{
		ctx:      sessionCtx,
		cancel:   cancel,
		clip:     &clipBuffer{},
		pumpDone: make(chan struct{}),
		done:     make(chan struct{}),
		state:    domain.CheckinStateAcquiring,
	}
	active.setRemaining(c.cfg.RecordLimitSeconds)

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		cancel()
		return ErrCheckinActive
	}
	c.current = active
	c.mu.Unlock()

	c.events.CheckinStateChanged(domain.CheckinStateAcquiring, domain.ReasonCameraWarmup)

	media, err := c.media.Acquire(sessionCtx, c.cfg.Media)
	if err != nil {
		c.events.CheckinError(domain.ErrorCodePermission, "Camera access denied. Please allow camera and microphone access.")
		c.closeSession(active, domain.ReasonPermissionDenied)
		return err
	}
	if !active.setMediaIfAlive(media) {
		// The session was torn down while the device was being acquired;
		// teardown could not see the handle, so release it here.
		_ = media.Stop()
		return nil
	}

	// The pump drains the device immediately so it never stalls on a full
	// pipe; chunks are only kept once the buffer is armed.
	go pumpClipChunks(media, active.clip, c.cfg.ChunkSize, c.events, active.pumpDone)

	// Fixed warmup so the preview stabilizes before recording begins.
	if c.cfg.StartDelay > 0 {
		select {
		case <-c.clock.After(c.cfg.StartDelay):
		case <-active.done:
			return nil
		}
	}

	active.clip.Arm()

	cd := startCountdown(c.clock, c.cfg.RecordLimitSeconds,
		func(remaining int) {
			active.setRemaining(remaining)
			c.events.CountdownTick(remaining)
		},
		func() {
			c.stop(active, domain.ReasonTimeExpired)
		},
	)
	if !active.setCountdownIfAlive(cd) {
		// Teardown won the race after the warmup; the timer it could not
		// see is cancelled here, and the media handle was already stopped.
		cd.Cancel()
		return nil
	}

	active.setState(domain.CheckinStateRecording)
	c.events.CheckinStateChanged(domain.CheckinStateRecording, domain.ReasonRecordingStarted)
	return nil
}

// Stop ends the active recording, finalizes the clip, and uploads it.
func (c *Controller) Stop() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}
	c.stop(active, domain.ReasonStoppedByUser)
	return nil
}

// stop is shared between user stop and countdown expiry; the first caller
// wins and later calls are no-ops, so racing stop signals never double-stop
// the recorder.
func (c *Controller) stop(active *captureSession, reason domain.CheckinStateReason) {
	active.stopOnce.Do(func() {
		if cd := active.getCountdown(); cd != nil {
			cd.Cancel()
		}

		if media := active.getMedia(); media != nil {
			_ = media.Stop()
		}
		<-active.pumpDone

		active.setState(domain.CheckinStateStopped)
		c.events.CheckinStateChanged(domain.CheckinStateStopped, reason)

		c.upload(active)
	})
}

// upload makes exactly one attempt; the clip is discarded afterwards
// regardless of outcome.
func (c *Controller) upload(active *captureSession) {
	data := active.clip.Bytes()
	defer active.clip.Discard()

	active.setState(domain.CheckinStateUploading)
	c.events.CheckinStateChanged(domain.CheckinStateUploading, domain.ReasonUploadStarted)

	clip := domain.Clip{
		Name: uuid.NewString() + ".webm",
		MIME: "video/webm",
		Data: data,
	}

	var outcome domain.Outcome
	ack, err := c.api.UploadCheckin(active.ctx, c.store.Get(), clip, c.cfg.Notes)
	switch {
	case err == nil:
		message := ack.Message
		if message == "" {
			message = "Check-in saved. Processing started."
		}
		outcome = domain.Outcome{State: domain.CheckinStateSuccess, TaskID: ack.TaskID, Message: message}
		active.setState(domain.CheckinStateSuccess)
		c.events.CheckinStateChanged(domain.CheckinStateSuccess, domain.ReasonUploadAccepted)

	case api.IsUnauthorized(err):
		_ = c.store.Clear()
		outcome = domain.Outcome{State: domain.CheckinStateSessionExpired, Message: "Your session has expired. Please sign in again."}
		active.setState(domain.CheckinStateSessionExpired)
		c.events.CheckinStateChanged(domain.CheckinStateSessionExpired, domain.ReasonSessionExpired)
		c.events.AuthExpired()

	default:
		outcome = domain.Outcome{State: domain.CheckinStateUploadError, Message: err.Error()}
		active.setState(domain.CheckinStateUploadError)
		c.events.CheckinStateChanged(domain.CheckinStateUploadError, domain.ReasonUploadFailed)
		c.events.CheckinError(domain.ErrorCodeUpload, err.Error())
	}

	c.events.CheckinFinished(outcome)

	// Leave the outcome on screen briefly, then close the session.
	go func() {
		if c.cfg.CloseDelay > 0 {
			select {
			case <-c.clock.After(c.cfg.CloseDelay):
			case <-active.done:
				return
			}
		}
		c.closeSession(active, domain.ReasonClosed)
	}()
}

// Abort discards an in-progress session without uploading.
func (c *Controller) Abort() error {
	active, err := c.getCurrent()
	if err != nil {
		return err
	}
	c.closeSession(active, domain.ReasonDiscarded)
	return nil
}

// Close releases the active session if any. Used on shutdown; closing with no
// active session is not an error.
func (c *Controller) Close() {
	active, err := c.getCurrent()
	if err != nil {
		return
	}
	c.closeSession(active, domain.ReasonDiscarded)
}

// Status returns the current session snapshot.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.CheckinStateIdle, Active: false}
	}
	state := c.current.getState()
	return domain.Status{
		State:            state,
		Active:           state != domain.CheckinStateIdle && state != domain.CheckinStateClosed,
		RemainingSeconds: c.current.getRemaining(),
	}
}

func (c *Controller) getCurrent() (*captureSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveCheckin
	}
	return c.current, nil
}

// closeSession is the single teardown path: media released, countdown
// cancelled, clip discarded, exactly once, regardless of how the session
// ended.
func (c *Controller) closeSession(active *captureSession, reason domain.CheckinStateReason) {
	active.closeOnce.Do(func() {
		media, cd := active.markClosed()
		if cd != nil {
			cd.Cancel()
		}
		if media != nil {
			_ = media.Stop()
		}
		active.cancel()
		active.clip.Discard()
		close(active.done)

		c.mu.Lock()
		if c.current == active {
			c.current = nil
		}
		c.mu.Unlock()

		active.setState(domain.CheckinStateClosed)
		c.events.CheckinStateChanged(domain.CheckinStateClosed, reason)
	})
}
