package domain

// CheckinState models the capture-and-upload lifecycle of a daily check-in.
type CheckinState string

const (
	CheckinStateIdle           CheckinState = "idle"
	CheckinStateAcquiring      CheckinState = "acquiring"
	CheckinStateRecording      CheckinState = "recording"
	CheckinStateStopped        CheckinState = "stopped"
	CheckinStateUploading      CheckinState = "uploading"
	CheckinStateSuccess        CheckinState = "success"
	CheckinStateSessionExpired CheckinState = "sessionExpired"
	CheckinStateUploadError    CheckinState = "uploadError"
	CheckinStateClosed         CheckinState = "closed"
)

// CheckinStateReason provides a structured reason for state transitions.
type CheckinStateReason string

const (
	ReasonCameraWarmup     CheckinStateReason = "camera_warmup"
	ReasonRecordingStarted CheckinStateReason = "recording_started"
	ReasonStoppedByUser    CheckinStateReason = "stopped_by_user"
	ReasonTimeExpired      CheckinStateReason = "time_expired"
	ReasonUploadStarted    CheckinStateReason = "upload_started"
	ReasonUploadAccepted   CheckinStateReason = "upload_accepted"
	ReasonSessionExpired   CheckinStateReason = "session_expired"
	ReasonUploadFailed     CheckinStateReason = "upload_failed"
	ReasonPermissionDenied CheckinStateReason = "permission_denied"
	ReasonDiscarded        CheckinStateReason = "discarded"
	ReasonClosed           CheckinStateReason = "closed"
)

// ErrorCode identifies non-fatal and fatal errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeCapture    ErrorCode = "capture"
	ErrorCodeUpload     ErrorCode = "upload"
	ErrorCodeAuth       ErrorCode = "auth"
	ErrorCodeNetwork    ErrorCode = "network"
	ErrorCodeBrowser    ErrorCode = "browser"
	ErrorCodeClipboard  ErrorCode = "clipboard"
)

// Status summarizes the current capture session for the UI.
type Status struct {
	State            CheckinState `json:"state"`
	Active           bool         `json:"active"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Message          string       `json:"message,omitempty"`
}

// Outcome is the terminal result of one capture session.
type Outcome struct {
	State   CheckinState `json:"state"`
	TaskID  string       `json:"taskId,omitempty"`
	Message string       `json:"message"`
}

// Clip is a finalized recording ready for upload.
type Clip struct {
	Name string
	MIME string
	Data []byte
}
