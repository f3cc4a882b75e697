// Package api is the HTTP client for the remote wellness backend. The
// backend owns authentication, video processing, ML inference, and report
// generation; this client only moves requests and normalized errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solace/internal/domain"
	"solace/internal/ports"
)

// Config controls backend endpoints and per-call deadlines.
type Config struct {
	BaseURL       string
	AuthTimeout   time.Duration
	LookupTimeout time.Duration
	ListTimeout   time.Duration
	UploadTimeout time.Duration
}

// Client implements ports.WellnessAPI against a single base URL.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 30 * time.Second
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 15 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 60 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{}}
}

// Register creates an account. Auto-login sequencing lives in the auth flow,
// not here.
func (c *Client) Register(ctx context.Context, req ports.RegisterRequest) (domain.User, error) {
	var user domain.User
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "", req, &user, c.cfg.AuthTimeout, "Registration failed")
	return user, err
}

// Login exchanges credentials for a bearer token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (domain.AuthSession, error) {
	payload := map[string]string{"email": email, "password": password}
	var session domain.AuthSession
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", payload, &session, c.cfg.AuthTimeout, "Login failed")
	return session, err
}

// CurrentUser resolves the owner of the token, primarily for the auth gate.
func (c *Client) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	var user domain.User
	err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", token, nil, &user, c.cfg.LookupTimeout, "Failed to get user info")
	return user, err
}

// DashboardMetrics fetches the aggregated admin metrics DTO.
func (c *Client) DashboardMetrics(ctx context.Context, token string) (domain.DashboardMetrics, error) {
	var metrics domain.DashboardMetrics
	err := c.doJSON(ctx, http.MethodGet, "/api/checkin/dashboard-metrics", token, nil, &metrics, c.cfg.ListTimeout, "Failed to load dashboard metrics")
	return metrics, err
}

// MyCheckins lists the caller's own check-in history.
func (c *Client) MyCheckins(ctx context.Context, token string, page, pageSize int) (domain.CheckinPage, error) {
	return c.listCheckins(ctx, "/api/checkin/my-checkins", token, page, pageSize, "Failed to load check-ins")
}

// AllCheckins lists every employee's check-ins (admin view).
func (c *Client) AllCheckins(ctx context.Context, token string, page, pageSize int) (domain.CheckinPage, error) {
	return c.listCheckins(ctx, "/api/checkin/all-checkins", token, page, pageSize, "Failed to load check-ins")
}

func (c *Client) listCheckins(ctx context.Context, path, token string, page, pageSize int, fallback string) (domain.CheckinPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var result domain.CheckinPage
	err := c.doJSON(ctx, http.MethodGet, path+"?"+query.Encode(), token, nil, &result, c.cfg.ListTimeout, fallback)
	return result, err
}

// TaskStatus polls the processing state of an accepted upload.
func (c *Client) TaskStatus(ctx context.Context, token, taskID string) (domain.TaskStatus, error) {
	var status domain.TaskStatus
	err := c.doJSON(ctx, http.MethodGet, "/api/checkin/status/"+url.PathEscape(taskID), token, nil, &status, c.cfg.LookupTimeout, "Failed to load task status")
	return status, err
}

// UploadCheckin submits one recorded clip plus notes as multipart form data.
// Exactly one attempt is made; the capture flow never retries a failed
// upload.
func (c *Client) UploadCheckin(ctx context.Context, token string, clip domain.Clip, notes string) (domain.CheckinAck, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename="%s"`, clip.Name))
	mime := clip.MIME
	if mime == "" {
		mime = "video/webm"
	}
	header.Set("Content-Type", mime)

	part, err := writer.CreatePart(header)
	if err != nil {
		return domain.CheckinAck{}, fmt.Errorf("build upload body: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return domain.CheckinAck{}, fmt.Errorf("build upload body: %w", err)
	}
	if err := writer.WriteField("notes", notes); err != nil {
		return domain.CheckinAck{}, fmt.Errorf("build upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.CheckinAck{}, fmt.Errorf("build upload body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/checkin/daily-checkin", &body)
	if err != nil {
		return domain.CheckinAck{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.CheckinAck{}, normalizeTransportErr(err, "Failed to upload check-in")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.CheckinAck{}, decodeError(resp, "Failed to upload check-in")
	}

	var ack domain.CheckinAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return domain.CheckinAck{}, fmt.Errorf("decode upload response: %w", err)
	}
	return ack, nil
}

// ReportURL builds the PDF download link for a check-in. The token travels as
// a query parameter because the report opens in a browser tab where headers
// cannot be attached.
func (c *Client) ReportURL(checkinID, token string) string {
	return c.cfg.BaseURL + "/api/checkin/download-pdf/" + url.PathEscape(checkinID) + "?token=" + url.QueryEscape(token)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any, timeout time.Duration, fallback string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return normalizeTransportErr(err, fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, fallback)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError surfaces the backend's {"detail": ...} payload verbatim where
// available, otherwise the generic fallback message.
func decodeError(resp *http.Response, fallback string) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	detail := fallback
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		detail = payload.Detail
	}
	return &Error{StatusCode: resp.StatusCode, Detail: detail}
}
