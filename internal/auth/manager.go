package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
	"github.com/University-Of-Livingstonia/ems/internal/session"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// AuditSink receives best-effort audit entries. Implementations must
// never fail the caller; errors are handled behind the sink.
type AuditSink interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// Client identifies the browser behind a request for audit purposes.
type Client struct {
	IP        string
	UserAgent string
}

// Options tunes session and reset-token lifetimes.
type Options struct {
	// SessionTTL is the server-side expiry for a plain login. The cookie
	// itself is browser-session scoped.
	SessionTTL time.Duration
	// RememberTTL is the long-lived expiry used when the remember-me box
	// is ticked.
	RememberTTL time.Duration
	// ResetSecret signs password-reset tokens.
	ResetSecret []byte
	// ResetTTL bounds how long a reset token stays usable.
	ResetTTL time.Duration
}

func (o *Options) applyDefaults() {
	if o.SessionTTL <= 0 {
		o.SessionTTL = 12 * time.Hour
	}
	if o.RememberTTL <= 0 {
		o.RememberTTL = 30 * 24 * time.Hour
	}
	if o.ResetTTL <= 0 {
		o.ResetTTL = 30 * time.Minute
	}
}

// Manager is the sole authority for establishing, validating, and tearing
// down a logged-in state.
type Manager struct {
	users    repository.UserRepository
	sessions session.Store
	audit    AuditSink
	log      *logrus.Logger
	opts     Options
}

func NewManager(users repository.UserRepository, sessions session.Store, audit AuditSink, logger *logrus.Logger, opts Options) *Manager {
	opts.applyDefaults()
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		users:    users,
		sessions: sessions,
		audit:    audit,
		log:      logger,
		opts:     opts,
	}
}

// Login authenticates identifier (username or email) and password, and on
// success establishes a session. Remember-me extends the session's expiry
// from the short default to a long-lived duration. The last-login update
// and the audit write are best-effort and never fail the login.
func (m *Manager) Login(ctx context.Context, identifier, password string, rememberMe bool, client Client) (*domain.User, *session.Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := m.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if user.Status != domain.StatusActive {
		return nil, nil, ErrAccountInactive
	}

	ttl := m.opts.SessionTTL
	if rememberMe {
		ttl = m.opts.RememberTTL
	}

	sess := session.New(user, ttl)
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	now := time.Now().UTC()
	if err := m.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		m.log.Warnf("update last login for user %d: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	m.record(ctx, user.ID, user.Username, "login", client)

	return sanitizeUser(user), sess, nil
}

// RegisterForm is the raw registration input before validation.
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Department      string
	Phone           string
	Role            string
	TermsAccepted   bool
}

// Register validates the form, collecting every violated rule into one
// ValidationError, and only then creates the account. Nothing is written
// on any violation. The role defaults to user; organizer may be selected
// explicitly; admin is never grantable here.
func (m *Manager) Register(ctx context.Context, form RegisterForm) (*domain.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(strings.ToLower(form.Email))

	var violations []string

	if form.Username == "" {
		violations = append(violations, "username is required")
	}
	switch {
	case form.Email == "":
		violations = append(violations, "email is required")
	case !emailPattern.MatchString(form.Email):
		violations = append(violations, "email address is not valid")
	}
	switch {
	case form.Password == "":
		violations = append(violations, "password is required")
	case len(form.Password) < minPasswordLength:
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if form.ConfirmPassword == "" {
		violations = append(violations, "password confirmation is required")
	} else if form.Password != "" && form.Password != form.ConfirmPassword {
		violations = append(violations, "passwords do not match")
	}
	if !form.TermsAccepted {
		violations = append(violations, "you must accept the terms and conditions")
	}

	role := domain.RoleUser
	switch form.Role {
	case "", string(domain.RoleUser):
	case string(domain.RoleOrganizer):
		role = domain.RoleOrganizer
	default:
		violations = append(violations, "invalid account type")
	}

	if form.Username != "" {
		if _, err := m.users.GetByUsername(ctx, form.Username); err == nil {
			violations = append(violations, "username is already taken")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
	}
	if form.Email != "" {
		if _, err := m.users.GetByEmail(ctx, form.Email); err == nil {
			violations = append(violations, "email is already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := domain.NewUser(form.Username, form.Email, string(hash), role)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(form.FirstName)
	user.LastName = strings.TrimSpace(form.LastName)
	user.Department = strings.TrimSpace(form.Department)
	user.Phone = strings.TrimSpace(form.Phone)

	if _, err := m.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ValidationError{Violations: []string{"username or email is already registered"}}
		}
		return nil, err
	}

	m.record(ctx, user.ID, user.Username, "register", Client{})

	return sanitizeUser(user), nil
}

// CurrentUser returns the session snapshot for token, or nil when the
// token is empty, unknown, or expired. The store is not re-queried; the
// snapshot taken at login is trusted for the session's lifetime.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := m.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return sess, nil
}

// Logout destroys the session for token. It is idempotent: an unknown or
// already-destroyed token is not an error. The audit write is best-effort
// and never blocks teardown.
func (m *Manager) Logout(ctx context.Context, token string, client Client) error {
	if token == "" {
		return nil
	}

	sess, err := m.sessions.Get(ctx, token)
	if err != nil {
		m.log.Warnf("lookup session on logout: %v", err)
	}
	if sess != nil {
		m.record(ctx, sess.UserID, sess.Username, "logout", client)
	}

	if err := m.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *Manager) record(ctx context.Context, userID int64, username, action string, client Client) {
	if m.audit == nil {
		return
	}
	m.audit.Record(ctx, domain.AuditEntry{
		UserID:    userID,
		Username:  username,
		Action:    action,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		At:        time.Now().UTC(),
	})
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	out := *user
	out.PasswordHash = ""
	return &out
}
