package domain

import "time"

// Role partitions users into the two backend roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Route identifies a navigable view in the client.
type Route string

const (
	RouteLogin      Route = "login"
	RouteWelcome    Route = "welcome"
	RouteMyCheckins Route = "my-checkins"
	RouteDashboard  Route = "dashboard"
	RouteHistory    Route = "history"
)

// User is the backend's view of the authenticated account.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// AuthSession is the bearer credential issued by login plus its owner.
type AuthSession struct {
	Token     string `json:"access_token"`
	TokenType string `json:"token_type"`
	User      User   `json:"user"`
}

// CheckinAck is the backend's acknowledgement of an accepted upload.
type CheckinAck struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TaskStatus reports progress of a check-in being processed server-side.
type TaskStatus struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckinRecord is one processed (or in-flight) check-in as listed by the backend.
type CheckinRecord struct {
	ID        string         `json:"id"`
	EmpID     string         `json:"emp_id"`
	EmpEmail  string         `json:"emp_email"`
	TaskID    string         `json:"task_id"`
	Status    string         `json:"status"`
	Date      time.Time      `json:"date"`
	Notes     string         `json:"notes"`
	Metrics   map[string]any `json:"metrics"`
	PDFURL    string         `json:"pdf_url"`
	CreatedAt time.Time      `json:"created_at"`
}

// Pagination is the listing envelope metadata.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// CheckinPage is one page of check-in history.
type CheckinPage struct {
	Checkins   []CheckinRecord `json:"checkins"`
	Pagination Pagination      `json:"pagination"`
}

// DashboardMetrics is the aggregated metrics DTO rendered by admin views.
// Trend slices are indexed by weekday, Monday first.
type DashboardMetrics struct {
	WellnessScore   float64        `json:"wellness_score"`
	StressTrend     []float64      `json:"stress_trend"`
	EngagementTrend []float64      `json:"engagement_trend"`
	EmotionCounts   map[string]int `json:"emotion_counts"`
	TotalCheckins   int            `json:"total_checkins"`
}
