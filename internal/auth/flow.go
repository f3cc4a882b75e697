// Package auth owns credential handling and route authorization: sign-in and
// sign-up against the backend, the persisted bearer token, and the role gate
// that decides which view an account may land on.
package auth

import (
	"context"
	"errors"
	"fmt"

	"solace/internal/domain"
	"solace/internal/ports"
)

// ErrAutoLoginFailed is returned when an account was created but the follow-up
// sign-in did not succeed. The account exists; the user should sign in
// manually.
var ErrAutoLoginFailed = errors.New("account created, but automatic sign-in failed; please sign in manually")

// Decision is the outcome of a route authorization check.
type Decision struct {
	Route         domain.Route `json:"route"`
	Authenticated bool         `json:"authenticated"`
	User          domain.User  `json:"user"`
}

// Flow drives login, registration, and the route gate against the backend.
type Flow struct {
	api   ports.WellnessAPI
	store ports.TokenStore
}

func NewFlow(backend ports.WellnessAPI, store ports.TokenStore) *Flow {
	return &Flow{api: backend, store: store}
}

// Login exchanges credentials for a bearer token and persists it.
func (f *Flow) Login(ctx context.Context, email, password string) (domain.User, error) {
	session, err := f.api.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := f.store.Set(session.Token); err != nil {
		return domain.User{}, fmt.Errorf("persist token: %w", err)
	}
	return session.User, nil
}

// Register creates the account and then signs it in. Registration failures
// are returned as-is; a failure of the follow-up sign-in is reported as
// ErrAutoLoginFailed because the account does exist at that point.
func (f *Flow) Register(ctx context.Context, req ports.RegisterRequest) (domain.User, error) {
	created, err := f.api.Register(ctx, req)
	if err != nil {
		return domain.User{}, err
	}
	user, err := f.Login(ctx, req.Email, req.Password)
	if err != nil {
		return created, fmt.Errorf("%w: %v", ErrAutoLoginFailed, err)
	}
	return user, nil
}

// Logout drops the persisted token. The backend keeps no session state, so
// forgetting the token is the whole operation.
func (f *Flow) Logout() error {
	return f.store.Clear()
}

// Authorize gates a requested route. Without a stored token it routes to the
// login view and makes no network call. With a token it validates the token
// against the backend; a failed lookup wipes the token and routes to login,
// with the lookup error returned for display. An authenticated account is
// redirected to its role's home view when the requested route is outside its
// role or is the login view.
func (f *Flow) Authorize(ctx context.Context, requested domain.Route) (Decision, error) {
	token := f.store.Get()
	if token == "" {
		return Decision{Route: domain.RouteLogin}, nil
	}

	user, err := f.api.CurrentUser(ctx, token)
	if err != nil {
		_ = f.store.Clear()
		return Decision{Route: domain.RouteLogin}, err
	}

	route := requested
	if !routeAllowed(user.Role, route) {
		route = homeRoute(user.Role)
	}
	return Decision{Route: route, Authenticated: true, User: user}, nil
}

func routeAllowed(role domain.Role, route domain.Route) bool {
	switch role {
	case domain.RoleAdmin:
		return route == domain.RouteDashboard || route == domain.RouteHistory
	case domain.RoleEmployee:
		return route == domain.RouteWelcome || route == domain.RouteMyCheckins
	default:
		return false
	}
}

func homeRoute(role domain.Role) domain.Route {
	if role == domain.RoleAdmin {
		return domain.RouteDashboard
	}
	return domain.RouteWelcome
}
