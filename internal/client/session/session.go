// Package session holds the client's login state and persists it between runs.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/isdelr/ender-tasks/internal/client/api"
	"github.com/isdelr/ender-tasks/internal/client/storage"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthAPI is the part of the REST API the session needs.
type AuthAPI interface {
	Signup(ctx context.Context, email, password, name string) (models.AuthResponse, error)
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
}

// State is a snapshot of the login state.
type State struct {
	Authenticated bool
	User          *models.PublicUser
}

// Result reports the outcome of Signup or Login.
type Result struct {
	Success bool
	Message string
	User    *models.PublicUser
}

type listener struct {
	id int
	fn func(State)
}

// Session is safe for concurrent use.
type Session struct {
	api  AuthAPI
	repo storage.Repository

	mu        sync.RWMutex
	state     State
	listeners []listener
	nextID    int
}

func New(authAPI AuthAPI, repo storage.Repository) *Session {
	return &Session{api: authAPI, repo: repo}
}

// Init restores a persisted login. The session counts as authenticated only
// when both the token and the user are present.
func (s *Session) Init(ctx context.Context) error {
	token, err := s.repo.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	raw, err := s.repo.Get(ctx, storage.KeyCurrentUser)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if len(token) == 0 || len(raw) == 0 {
		return nil
	}

	var user models.PublicUser
	if err := json.Unmarshal(raw, &user); err != nil {
		log.Warn().Err(err).Msg("Ignoring unreadable stored user")
		return nil
	}

	s.publish(State{Authenticated: true, User: &user})
	return nil
}

// Signup creates an account and signs in with it.
func (s *Session) Signup(ctx context.Context, email, password, name string) Result {
	resp, err := s.api.Signup(ctx, email, password, name)
	if err != nil {
		return Result{Message: failureMessage(err, "Failed to create account")}
	}
	return s.establish(ctx, resp, "Account created successfully")
}

// Login signs in with existing credentials.
func (s *Session) Login(ctx context.Context, email, password string) Result {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		return Result{Message: failureMessage(err, "Login failed")}
	}
	return s.establish(ctx, resp, "Login successful")
}

// Logout forgets the persisted login and the user's cached tasks.
func (s *Session) Logout(ctx context.Context) error {
	for _, key := range []string{storage.KeyAuthToken, storage.KeyCurrentUser, storage.KeyTasks} {
		if err := s.repo.Delete(ctx, key); err != nil {
			return err
		}
	}
	s.publish(State{})
	return nil
}

// Token returns the persisted bearer token, or "" when signed out.
func (s *Session) Token(ctx context.Context) (string, error) {
	token, err := s.repo.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return string(token), nil
}

// State returns the current login state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe calls fn with the current state and then on every change. The
// returned function removes the subscription.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	current := s.state
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) establish(ctx context.Context, resp models.AuthResponse, fallback string) Result {
	if resp.Token == "" {
		return Result{Message: "Server did not return a token"}
	}

	user := resp.User
	raw, err := json.Marshal(user)
	if err != nil {
		return Result{Message: err.Error()}
	}
	if err := s.repo.Set(ctx, storage.KeyAuthToken, []byte(resp.Token)); err != nil {
		log.Error().Err(err).Msg("Failed to persist token")
		return Result{Message: "Failed to save session"}
	}
	if err := s.repo.Set(ctx, storage.KeyCurrentUser, raw); err != nil {
		log.Error().Err(err).Msg("Failed to persist user")
		_ = s.repo.Delete(ctx, storage.KeyAuthToken)
		return Result{Message: "Failed to save session"}
	}

	s.publish(State{Authenticated: true, User: &user})

	message := resp.Message
	if message == "" {
		message = fallback
	}
	return Result{Success: true, Message: message, User: &user}
}

func (s *Session) publish(state State) {
	s.mu.Lock()
	s.state = state
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(state)
	}
}

func failureMessage(err error, fallback string) string {
	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}
