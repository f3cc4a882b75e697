package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"solace/internal/api"
	"solace/internal/domain"
	"solace/internal/ports"
)

func TestControllerStartStopUploadSuccess(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("abc"), []byte("def")})
	backend := &fakeBackend{ack: domain.CheckinAck{TaskID: "task-1", Status: "queued", Message: "Video uploaded successfully. Processing started."}}
	store := &fakeStore{token: "tok"}
	clk := newFakeClock()
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, store, clk, events,
		Config{RecordLimitSeconds: 120, ChunkSize: 2048, Notes: "Daily video check-in"},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()

	waitFor(t, func() bool { return media.served() })
	if err := controller.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	waitFor(t, func() bool { return events.lastState() == domain.CheckinStateClosed })

	if got := backend.uploadCalls(); got != 1 {
		t.Fatalf("expected exactly one upload, got %d", got)
	}
	if string(backend.lastClip.Data) != "abcdef" {
		t.Fatalf("unexpected clip payload: %q", string(backend.lastClip.Data))
	}
	if backend.lastNotes != "Daily video check-in" {
		t.Fatalf("unexpected notes: %q", backend.lastNotes)
	}
	if backend.lastToken != "tok" {
		t.Fatalf("unexpected token: %q", backend.lastToken)
	}

	outcomes := events.snapshotOutcomes()
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	if outcomes[0].State != domain.CheckinStateSuccess || outcomes[0].TaskID != "task-1" {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}

	wantOrder := []domain.CheckinState{
		domain.CheckinStateAcquiring,
		domain.CheckinStateRecording,
		domain.CheckinStateStopped,
		domain.CheckinStateUploading,
		domain.CheckinStateSuccess,
		domain.CheckinStateClosed,
	}
	states := events.snapshotStates()
	if len(states) != len(wantOrder) {
		t.Fatalf("unexpected state sequence: %+v", states)
	}
	for i, want := range wantOrder {
		if states[i].state != want {
			t.Fatalf("state %d = %s, want %s", i, states[i].state, want)
		}
	}

	if media.stopCalls() == 0 {
		t.Fatalf("expected media handle to be released")
	}
}

func TestControllerRepeatedStartIsRejected(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession(nil)
	capture := &fakeMediaCapture{sessions: []ports.MediaSession{media}}
	clk := newFakeClock()

	controller := NewController(capture, &fakeBackend{}, &fakeStore{}, clk, newFakeEventSink(), Config{RecordLimitSeconds: 120})

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := controller.Start(context.Background()); !errors.Is(err, ErrCheckinActive) {
		t.Fatalf("expected ErrCheckinActive, got %v", err)
	}

	if capture.calls != 1 {
		t.Fatalf("expected one device acquisition, got %d", capture.calls)
	}
	if clk.tickerCount() != 1 {
		t.Fatalf("expected one countdown timer, got %d", clk.tickerCount())
	}
}

func TestControllerCountdownExpiryAutoStopsOnce(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("x")})
	backend := &fakeBackend{ack: domain.CheckinAck{TaskID: "task-2"}}
	clk := newFakeClock()
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, &fakeStore{token: "tok"}, clk, events,
		Config{RecordLimitSeconds: 120},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()

	ticker := clk.ticker(0)
	for i := 0; i < 120; i++ {
		if !ticker.tick(time.Second) {
			t.Fatalf("tick %d was not consumed", i+1)
		}
	}

	waitFor(t, func() bool { return events.lastState() == domain.CheckinStateClosed })

	ticks := events.snapshotTicks()
	if len(ticks) != 120 {
		t.Fatalf("expected 120 countdown ticks, got %d", len(ticks))
	}
	if ticks[0] != 119 || ticks[len(ticks)-1] != 0 {
		t.Fatalf("unexpected tick range: first=%d last=%d", ticks[0], ticks[len(ticks)-1])
	}
	if got := backend.uploadCalls(); got != 1 {
		t.Fatalf("expected exactly one auto-stop upload, got %d", got)
	}
	if ticker.tick(100 * time.Millisecond) {
		t.Fatalf("tick consumed after countdown expiry")
	}
}

func TestControllerManualStopCancelsCountdown(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("x")})
	backend := &fakeBackend{ack: domain.CheckinAck{TaskID: "task-3"}}
	clk := newFakeClock()
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, &fakeStore{token: "tok"}, clk, events,
		Config{RecordLimitSeconds: 120},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()

	ticker := clk.ticker(0)
	for i := 0; i < 3; i++ {
		if !ticker.tick(time.Second) {
			t.Fatalf("tick %d was not consumed", i+1)
		}
	}

	if err := controller.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	waitFor(t, func() bool { return events.lastState() == domain.CheckinStateClosed })

	before := len(events.snapshotTicks())
	if before != 3 {
		t.Fatalf("expected 3 ticks before stop, got %d", before)
	}
	if ticker.tick(100 * time.Millisecond) {
		t.Fatalf("tick consumed after manual stop")
	}
	if got := len(events.snapshotTicks()); got != before {
		t.Fatalf("countdown advanced after stop: %d -> %d", before, got)
	}
	if got := backend.uploadCalls(); got != 1 {
		t.Fatalf("expected one upload, got %d", got)
	}
}

func TestControllerUpload401ClearsTokenAndSignalsExpiry(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("x")})
	backend := &fakeBackend{uploadErr: &api.Error{StatusCode: 401, Detail: "Could not validate credentials"}}
	store := &fakeStore{token: "tok"}
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, store, newFakeClock(), events,
		Config{RecordLimitSeconds: 120},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()
	if err := controller.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	waitFor(t, func() bool { return events.lastState() == domain.CheckinStateClosed })

	if store.clearCalls != 1 {
		t.Fatalf("expected token wipe, got %d clears", store.clearCalls)
	}
	if !events.authExpired() {
		t.Fatalf("expected auth-expired signal")
	}
	outcomes := events.snapshotOutcomes()
	if len(outcomes) != 1 || outcomes[0].State != domain.CheckinStateSessionExpired {
		t.Fatalf("unexpected outcome: %+v", outcomes)
	}
}

func TestControllerUpload500LeavesTokenUntouched(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("x")})
	backend := &fakeBackend{uploadErr: &api.Error{StatusCode: 500, Detail: "processing pool exhausted"}}
	store := &fakeStore{token: "tok"}
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, store, newFakeClock(), events,
		Config{RecordLimitSeconds: 120},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()
	if err := controller.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	waitFor(t, func() bool { return events.lastState() == domain.CheckinStateClosed })

	if store.clearCalls != 0 {
		t.Fatalf("500 must not wipe the token, got %d clears", store.clearCalls)
	}
	if store.token != "tok" {
		t.Fatalf("token changed: %q", store.token)
	}
	outcomes := events.snapshotOutcomes()
	if len(outcomes) != 1 || outcomes[0].State != domain.CheckinStateUploadError {
		t.Fatalf("unexpected outcome: %+v", outcomes)
	}
	if outcomes[0].Message != "processing pool exhausted" {
		t.Fatalf("expected backend detail surfaced, got %q", outcomes[0].Message)
	}
	if events.authExpired() {
		t.Fatalf("generic failure must not signal auth expiry")
	}
}

func TestControllerAbortMidRecordingTearsDownOnce(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession([][]byte{[]byte("x")})
	backend := &fakeBackend{}
	clk := newFakeClock()
	events := newFakeEventSink()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		backend, &fakeStore{token: "tok"}, clk, events,
		Config{RecordLimitSeconds: 120},
	)

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()

	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	if got := media.stopCalls(); got != 1 {
		t.Fatalf("expected media released exactly once, got %d", got)
	}
	// The countdown goroutine releases its ticker on the way out.
	waitFor(t, func() bool { return clk.ticker(0).stopCount() == 1 })
	if backend.uploadCalls() != 0 {
		t.Fatalf("aborted session must not upload")
	}
	if clk.ticker(0).tick(100 * time.Millisecond) {
		t.Fatalf("tick consumed after teardown")
	}

	if err := controller.Abort(); !errors.Is(err, ErrNoActiveCheckin) {
		t.Fatalf("expected ErrNoActiveCheckin after teardown, got %v", err)
	}

	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.CheckinStateClosed || last.reason != domain.ReasonDiscarded {
		t.Fatalf("unexpected terminal state: %+v", last)
	}
}

func TestControllerAbortDuringAcquireReleasesDevice(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession(nil)
	capture := &gatedMediaCapture{
		session: media,
		entered: make(chan struct{}),
		proceed: make(chan struct{}),
	}
	clk := newFakeClock()
	events := newFakeEventSink()

	controller := NewController(capture, &fakeBackend{}, &fakeStore{}, clk, events, Config{RecordLimitSeconds: 120})

	startErr := make(chan error, 1)
	go func() {
		startErr <- controller.Start(context.Background())
	}()

	<-capture.entered
	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	close(capture.proceed)

	if err := <-startErr; err != nil {
		t.Fatalf("start returned %v", err)
	}

	waitFor(t, func() bool { return media.stopCalls() == 1 })
	if clk.tickerCount() != 0 {
		t.Fatalf("countdown created for a torn-down session: %d tickers", clk.tickerCount())
	}
	if got := len(events.snapshotTicks()); got != 0 {
		t.Fatalf("countdown ticks fired after teardown: %d", got)
	}
	if events.lastState() != domain.CheckinStateClosed {
		t.Fatalf("expected closed terminal state, got %s", events.lastState())
	}

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("fresh start after teardown failed: %v", err)
	}
}

func TestControllerPermissionDeniedIsTerminal(t *testing.T) {
	t.Parallel()

	capture := &fakeMediaCapture{err: errors.New("permission denied by portal")}
	events := newFakeEventSink()

	controller := NewController(capture, &fakeBackend{}, &fakeStore{}, newFakeClock(), events, Config{RecordLimitSeconds: 120})

	if err := controller.Start(context.Background()); err == nil {
		t.Fatalf("expected acquisition error")
	}

	errorsGot := events.snapshotErrors()
	if len(errorsGot) == 0 || errorsGot[0].code != domain.ErrorCodePermission {
		t.Fatalf("expected permission error event, got %+v", errorsGot)
	}
	if events.lastState() != domain.CheckinStateClosed {
		t.Fatalf("expected closed after denial, got %s", events.lastState())
	}
	if status := controller.Status(); status.Active {
		t.Fatalf("expected inactive status, got %+v", status)
	}
}

func TestControllerStatusWhileRecording(t *testing.T) {
	t.Parallel()

	media := newFakeMediaSession(nil)
	clk := newFakeClock()

	controller := NewController(
		&fakeMediaCapture{sessions: []ports.MediaSession{media}},
		&fakeBackend{}, &fakeStore{}, clk, newFakeEventSink(),
		Config{RecordLimitSeconds: 120},
	)

	if controller.Status().State != domain.CheckinStateIdle {
		t.Fatalf("expected idle before start")
	}

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	media.release()

	clk.ticker(0).tick(time.Second)
	waitFor(t, func() bool {
		status := controller.Status()
		return status.State == domain.CheckinStateRecording && status.RemainingSeconds == 119
	})
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

type fakeMediaCapture struct {
	sessions []ports.MediaSession
	err      error
	calls    int
}

func (f *fakeMediaCapture) Acquire(_ context.Context, _ ports.MediaConfig) (ports.MediaSession, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.calls > len(f.sessions) {
		return nil, errors.New("no media session configured")
	}
	return f.sessions[f.calls-1], nil
}

// gatedMediaCapture holds Acquire open until the test releases it, so
// teardown can be issued while acquisition is still in flight.
type gatedMediaCapture struct {
	session ports.MediaSession
	entered chan struct{}
	proceed chan struct{}
	once    sync.Once
}

func (g *gatedMediaCapture) Acquire(_ context.Context, _ ports.MediaConfig) (ports.MediaSession, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.proceed
	return g.session, nil
}

// fakeMediaSession serves its chunks after release() and then blocks until
// stopped, mirroring a live device stream.
type fakeMediaSession struct {
	mu      sync.Mutex
	chunks  [][]byte
	index   int
	stops   int
	ready   chan struct{}
	stopped chan struct{}
}

func newFakeMediaSession(chunks [][]byte) *fakeMediaSession {
	return &fakeMediaSession{
		chunks:  chunks,
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (f *fakeMediaSession) release() { close(f.ready) }

func (f *fakeMediaSession) served() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index >= len(f.chunks)
}

func (f *fakeMediaSession) Read(p []byte) (int, error) {
	select {
	case <-f.ready:
	case <-f.stopped:
		return 0, io.EOF
	}

	f.mu.Lock()
	if f.index < len(f.chunks) {
		n := copy(p, f.chunks[f.index])
		f.index++
		f.mu.Unlock()
		return n, nil
	}
	f.mu.Unlock()

	<-f.stopped
	return 0, io.EOF
}

func (f *fakeMediaSession) Close() error { return f.Stop() }

func (f *fakeMediaSession) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	select {
	case <-f.stopped:
	default:
		close(f.stopped)
	}
	return nil
}

func (f *fakeMediaSession) stopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeBackend struct {
	mu        sync.Mutex
	ack       domain.CheckinAck
	uploadErr error
	uploads   int
	lastToken string
	lastNotes string
	lastClip  domain.Clip
}

func (f *fakeBackend) UploadCheckin(_ context.Context, token string, clip domain.Clip, notes string) (domain.CheckinAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	f.lastToken = token
	f.lastNotes = notes
	f.lastClip = clip
	if f.uploadErr != nil {
		return domain.CheckinAck{}, f.uploadErr
	}
	return f.ack, nil
}

func (f *fakeBackend) uploadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads
}

func (f *fakeBackend) Register(_ context.Context, _ ports.RegisterRequest) (domain.User, error) {
	return domain.User{}, errors.New("not implemented")
}

func (f *fakeBackend) Login(_ context.Context, _, _ string) (domain.AuthSession, error) {
	return domain.AuthSession{}, errors.New("not implemented")
}

func (f *fakeBackend) CurrentUser(_ context.Context, _ string) (domain.User, error) {
	return domain.User{}, errors.New("not implemented")
}

func (f *fakeBackend) DashboardMetrics(_ context.Context, _ string) (domain.DashboardMetrics, error) {
	return domain.DashboardMetrics{}, errors.New("not implemented")
}

func (f *fakeBackend) MyCheckins(_ context.Context, _ string, _, _ int) (domain.CheckinPage, error) {
	return domain.CheckinPage{}, errors.New("not implemented")
}

func (f *fakeBackend) AllCheckins(_ context.Context, _ string, _, _ int) (domain.CheckinPage, error) {
	return domain.CheckinPage{}, errors.New("not implemented")
}

func (f *fakeBackend) TaskStatus(_ context.Context, _, _ string) (domain.TaskStatus, error) {
	return domain.TaskStatus{}, errors.New("not implemented")
}

func (f *fakeBackend) ReportURL(_, _ string) string { return "" }

type fakeStore struct {
	mu         sync.Mutex
	token      string
	clearCalls int
}

func (f *fakeStore) Get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeStore) Set(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	return nil
}

func (f *fakeStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.clearCalls++
	return nil
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{}
}

func (c *fakeClock) NewTicker(_ time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	ticker := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, ticker)
	return ticker
}

func (c *fakeClock) After(_ time.Duration) <-chan time.Time {
	// Delays elapse immediately under the fake clock.
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) ticker(i int) *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[i]
}

type fakeTicker struct {
	mu    sync.Mutex
	ch    chan time.Time
	stops int
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
}

func (t *fakeTicker) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

// tick delivers one tick, reporting whether anything consumed it before the
// timeout.
func (t *fakeTicker) tick(timeout time.Duration) bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-time.After(timeout):
		return false
	}
}

type stateEvent struct {
	state  domain.CheckinState
	reason domain.CheckinStateReason
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

type fakeEventSink struct {
	mu       sync.Mutex
	states   []stateEvent
	ticks    []int
	outcomes []domain.Outcome
	expired  bool
	errors   []errEvent
}

func newFakeEventSink() *fakeEventSink {
	return &fakeEventSink{}
}

func (f *fakeEventSink) CheckinStateChanged(state domain.CheckinState, reason domain.CheckinStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) CountdownTick(remaining int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, remaining)
}

func (f *fakeEventSink) CheckinFinished(outcome domain.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
}

func (f *fakeEventSink) AuthExpired() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = true
}

func (f *fakeEventSink) CheckinError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) lastState() domain.CheckinState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return domain.CheckinStateIdle
	}
	return f.states[len(f.states)-1].state
}

func (f *fakeEventSink) snapshotTicks() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(f.ticks))
	copy(out, f.ticks)
	return out
}

func (f *fakeEventSink) snapshotOutcomes() []domain.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Outcome, len(f.outcomes))
	copy(out, f.outcomes)
	return out
}

func (f *fakeEventSink) authExpired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}
