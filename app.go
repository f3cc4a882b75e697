package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"solace/internal/api"
	"solace/internal/auth"
	"solace/internal/bootstrap"
	"solace/internal/config"
	"solace/internal/domain"
	"solace/internal/metrics"
	"solace/internal/ports"
	"solace/internal/session"
)

const (
	eventCheckin   = "solace:checkin"
	eventCountdown = "solace:countdown"
	eventOutcome   = "solace:outcome"
	eventAuth      = "solace:auth"
	eventError     = "solace:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *session.Controller
	flow       *auth.Flow
	backend    ports.WellnessAPI
	tokens     ports.TokenStore
	browser    ports.Browser
	clipboard  ports.Clipboard
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{
		browser:   wailsBrowser{},
		clipboard: wailsClipboard{},
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.CheckinError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.flow = services.Auth
	a.backend = services.Backend
	a.tokens = services.Tokens
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Close()
	}
}

// Login signs the user in and persists the session token.
func (a *App) Login(email, password string) (domain.User, error) {
	if err := a.requireReady(); err != nil {
		return domain.User{}, err
	}
	user, err := a.flow.Login(a.ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Register creates an account and signs it in. When the account is created
// but the follow-up sign-in fails, the returned error says so explicitly and
// the user should sign in manually.
func (a *App) Register(req ports.RegisterRequest) (domain.User, error) {
	if err := a.requireReady(); err != nil {
		return domain.User{}, err
	}
	return a.flow.Register(a.ctx, req)
}

// Logout drops the persisted session token.
func (a *App) Logout() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.flow.Logout()
}

// Authorize gates navigation to the requested view. The returned decision
// always names a safe route, even when token validation fails.
func (a *App) Authorize(route string) (auth.Decision, error) {
	if err := a.requireReady(); err != nil {
		return auth.Decision{}, err
	}
	return a.flow.Authorize(a.ctx, domain.Route(route))
}

// StartCheckin begins a new video check-in recording.
func (a *App) StartCheckin() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopCheckin ends the active recording and uploads the clip.
func (a *App) StopCheckin() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Stop(); err != nil {
		if errors.Is(err, session.ErrNoActiveCheckin) {
			return nil
		}
		return err
	}
	return nil
}

// AbortCheckin discards an in-progress recording without uploading.
func (a *App) AbortCheckin() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil {
		if errors.Is(err, session.ErrNoActiveCheckin) {
			return nil
		}
		return err
	}
	return nil
}

// GetStatus returns the current check-in session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.CheckinStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.CheckinStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetTaskStatus reports server-side processing progress for an uploaded
// check-in.
func (a *App) GetTaskStatus(taskID string) (domain.TaskStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.TaskStatus{}, err
	}
	status, err := a.backend.TaskStatus(a.ctx, a.tokens.Get(), taskID)
	return status, a.noteAuthFailure(err)
}

// GetDashboardMetrics returns the aggregated wellness metrics (admin view).
func (a *App) GetDashboardMetrics() (domain.DashboardMetrics, error) {
	if err := a.requireReady(); err != nil {
		return domain.DashboardMetrics{}, err
	}
	m, err := a.backend.DashboardMetrics(a.ctx, a.tokens.Get())
	return m, a.noteAuthFailure(err)
}

// GetMyCheckins returns one page of the signed-in user's check-in history.
func (a *App) GetMyCheckins(page, pageSize int) (domain.CheckinPage, error) {
	if err := a.requireReady(); err != nil {
		return domain.CheckinPage{}, err
	}
	p, err := a.backend.MyCheckins(a.ctx, a.tokens.Get(), page, pageSize)
	return p, a.noteAuthFailure(err)
}

// GetAllCheckins returns one page of the organization-wide check-in history
// (admin view).
func (a *App) GetAllCheckins(page, pageSize int) (domain.CheckinPage, error) {
	if err := a.requireReady(); err != nil {
		return domain.CheckinPage{}, err
	}
	p, err := a.backend.AllCheckins(a.ctx, a.tokens.Get(), page, pageSize)
	return p, a.noteAuthFailure(err)
}

// OpenReport opens a check-in's PDF report in the system browser. The token
// travels as a query parameter because a browser tab cannot attach headers.
func (a *App) OpenReport(checkinID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	url := a.backend.ReportURL(checkinID, a.tokens.Get())
	if err := a.browser.OpenURL(a.ctx, url); err != nil {
		a.CheckinError(domain.ErrorCodeBrowser, err.Error())
		return err
	}
	return nil
}

// CopyReportLink puts a check-in's report URL on the system clipboard.
func (a *App) CopyReportLink(checkinID string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	url := a.backend.ReportURL(checkinID, a.tokens.Get())
	if err := a.clipboard.SetText(a.ctx, url); err != nil {
		a.CheckinError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// DashboardView is the metrics DTO expanded with every display derivation
// the admin dashboard renders.
type DashboardView struct {
	Metrics         domain.DashboardMetrics `json:"metrics"`
	Stress          metrics.StressSummary   `json:"stress"`
	StressTrend     []metrics.TrendPoint    `json:"stressTrend"`
	EngagementTrend []metrics.TrendPoint    `json:"engagementTrend"`
	Emotions        []metrics.EmotionShare  `json:"emotions"`
	DominantEmotion string                  `json:"dominantEmotion"`
}

// GetDashboardView fetches the aggregated metrics and derives the display
// values in one call.
func (a *App) GetDashboardView() (DashboardView, error) {
	m, err := a.GetDashboardMetrics()
	if err != nil {
		return DashboardView{}, err
	}
	currentStress := 0.0
	if len(m.StressTrend) > 0 {
		currentStress = m.StressTrend[len(m.StressTrend)-1]
	}
	return DashboardView{
		Metrics:         m,
		Stress:          a.DescribeStress(currentStress),
		StressTrend:     metrics.WeekdayTrend(m.StressTrend),
		EngagementTrend: metrics.WeekdayTrend(m.EngagementTrend),
		Emotions:        metrics.EmotionShares(m.EmotionCounts),
		DominantEmotion: metrics.DominantEmotion(m.EmotionCounts),
	}, nil
}

// DescribeStress maps a stress score to its display label and color.
func (a *App) DescribeStress(score float64) metrics.StressSummary {
	return metrics.StressSummary{
		Score: score,
		Label: metrics.StressLabel(score),
		Color: metrics.StressColor(score),
	}
}

// EmotionBreakdown converts raw emotion counts into sorted percentage shares.
func (a *App) EmotionBreakdown(counts map[string]int) []metrics.EmotionShare {
	return metrics.EmotionShares(counts)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"apiBase":     a.cfg.API.BaseURL,
		"videoDevice": a.cfg.Media.VideoDevice,
		"audioDevice": a.cfg.Media.AudioDevice,
		"recordLimit": fmt.Sprintf("%ds", a.cfg.Session.RecordLimitSeconds),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// noteAuthFailure wipes the stored token and notifies the UI when a backend
// call came back unauthorized. The error is passed through either way.
func (a *App) noteAuthFailure(err error) error {
	if err != nil && api.IsUnauthorized(err) {
		if a.tokens != nil {
			_ = a.tokens.Clear()
		}
		a.AuthExpired()
	}
	return err
}

// CheckinStateChanged emits check-in lifecycle updates to the frontend.
func (a *App) CheckinStateChanged(state domain.CheckinState, reason domain.CheckinStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCheckin, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": checkinReasonMessage(reason),
	})
}

// CountdownTick emits the remaining recording seconds.
func (a *App) CountdownTick(remainingSeconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCountdown, map[string]int{
		"remainingSeconds": remainingSeconds,
	})
}

// CheckinFinished emits the terminal outcome of a capture session.
func (a *App) CheckinFinished(outcome domain.Outcome) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventOutcome, outcome)
}

// AuthExpired tells the frontend to return to the login view.
func (a *App) AuthExpired() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventAuth, map[string]string{
		"message": "Your session has expired. Please sign in again.",
	})
}

// CheckinError emits backend errors to the UI.
func (a *App) CheckinError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

type wailsBrowser struct{}

func (wailsBrowser) OpenURL(ctx context.Context, url string) error {
	runtime.BrowserOpenURL(ctx, url)
	return nil
}

type wailsClipboard struct{}

func (wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

func checkinReasonMessage(reason domain.CheckinStateReason) string {
	switch reason {
	case domain.ReasonCameraWarmup:
		return "Preparing camera..."
	case domain.ReasonRecordingStarted:
		return "Recording"
	case domain.ReasonStoppedByUser:
		return "Recording stopped"
	case domain.ReasonTimeExpired:
		return "Time limit reached"
	case domain.ReasonUploadStarted:
		return "Uploading your check-in..."
	case domain.ReasonUploadAccepted:
		return "Check-in uploaded"
	case domain.ReasonSessionExpired:
		return "Your session has expired. Please sign in again."
	case domain.ReasonUploadFailed:
		return "Upload failed"
	case domain.ReasonPermissionDenied:
		return "Camera access denied"
	case domain.ReasonDiscarded:
		return "Check-in discarded"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermission:
		return "Camera access denied. Please allow camera and microphone access."
	case domain.ErrorCodeCapture:
		return "Capture issue"
	case domain.ErrorCodeUpload:
		return "Upload failed"
	case domain.ErrorCodeAuth:
		return "Your session has expired. Please sign in again."
	case domain.ErrorCodeNetwork:
		return "Network issue"
	case domain.ErrorCodeBrowser:
		return "Could not open the report"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
