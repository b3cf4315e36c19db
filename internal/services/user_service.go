package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/ender-tasks/internal/auth"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/isdelr/ender-tasks/internal/validator"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(email, password, name string) (AuthResult, error)
	Authenticate(email, password string) (AuthResult, error)
	Verify(token string) (*auth.Claims, error)
	GetUserByID(id int) (models.User, error)
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token string
	User  models.PublicUser
}

// UserService keeps user accounts in memory and issues session tokens.
type UserService struct {
	mu      sync.RWMutex
	users   map[int]models.User
	byEmail map[string]int
	nextID  int

	issuer *auth.Issuer
	cost   int
	now    func() time.Time

	// dummyHash is compared against on unknown emails so that both login
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

// NewUserService creates a new UserService.
func NewUserService(issuer *auth.Issuer) *UserService {
	return newUserService(issuer, bcrypt.DefaultCost)
}

func newUserService(issuer *auth.Issuer, cost int) *UserService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("ender-tasks-dummy"), cost)
	return &UserService{
		users:     make(map[int]models.User),
		byEmail:   make(map[string]int),
		nextID:    1,
		issuer:    issuer,
		cost:      cost,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Register creates a new user, hashing their password, and signs them in.
func (s *UserService) Register(email, password, name string) (AuthResult, error) {
	v := validator.New()
	v.CheckEmail(email)
	v.CheckPassword(password)
	v.CheckRequired(name, "name")
	if !v.Valid() {
		return AuthResult{}, newValidationError(v)
	}

	if s.emailTaken(email) {
		return AuthResult{}, ErrDuplicateUser
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	// Re-check: another signup for the same email may have finished while we hashed.
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		return AuthResult{}, ErrDuplicateUser
	}
	user := models.User{
		ID:           s.nextID,
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
		CreatedAt:    s.now(),
	}
	s.nextID++
	s.users[user.ID] = user
	s.byEmail[email] = user.ID
	s.mu.Unlock()

	return s.signIn(user)
}

// Authenticate verifies a user's credentials. Unknown emails and wrong
// passwords fail with the same error.
func (s *UserService) Authenticate(email, password string) (AuthResult, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	user := s.users[id]
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return AuthResult{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.signIn(user)
}

// Verify validates a bearer token and returns its claims.
func (s *UserService) Verify(token string) (*auth.Claims, error) {
	return s.issuer.Validate(token)
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(id int) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%w: id %d", ErrUserNotFound, id)
	}
	return user, nil
}

func (s *UserService) emailTaken(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok
}

func (s *UserService) signIn(user models.User) (AuthResult, error) {
	token, err := s.issuer.Generate(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return AuthResult{Token: token, User: user.Public()}, nil
}
