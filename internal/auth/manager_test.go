package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
	"github.com/University-Of-Livingstonia/ems/internal/session"
)

// --- helpers ---

type fakeUserRepo struct {
	byUsername map[string]*domain.User
	byEmail    map[string]*domain.User
	nextID     int64

	createErr    error
	lookupErr    error
	lastLoginErr error

	lastLoginCalls int
	createCalls    int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: make(map[string]*domain.User),
		byEmail:    make(map[string]*domain.User),
		nextID:     1,
	}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	u.ID = f.nextID
	f.nextID++
	f.byUsername[u.Username] = u
	f.byEmail[u.Email] = u
	return u
}

func (f *fakeUserRepo) Init(context.Context) error { return nil }

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) (int64, error) {
	f.createCalls++
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, ok := f.byUsername[u.Username]; ok {
		return 0, repository.ErrDuplicate
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return 0, repository.ErrDuplicate
	}
	f.add(u)
	return u.ID, nil
}

func (f *fakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byUsername[identifier]; ok {
		return u, nil
	}
	if u, ok := f.byEmail[strings.ToLower(identifier)]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byUsername[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, u := range f.byUsername {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	f.lastLoginCalls++
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	for _, u := range f.byUsername {
		if u.ID == id {
			t := at
			u.LastLogin = &t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	for _, u := range f.byUsername {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeUserRepo) UpdateRole(context.Context, int64, domain.Role) error { return nil }

func (f *fakeUserRepo) UpdateStatus(context.Context, int64, domain.Status) error { return nil }

type fakeAuditSink struct {
	entries []domain.AuditEntry
}

func (f *fakeAuditSink) Record(_ context.Context, entry domain.AuditEntry) {
	f.entries = append(f.entries, entry)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func seedUser(t *testing.T, repo *fakeUserRepo, username, email, password string, role domain.Role) *domain.User {
	t.Helper()
	return repo.add(&domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashFor(t, password),
		FirstName:    "Alice",
		LastName:     "Banda",
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    time.Now().UTC(),
	})
}

func newTestManager(t *testing.T) (*Manager, *fakeUserRepo, *session.MemoryStore, *fakeAuditSink) {
	t.Helper()
	repo := newFakeUserRepo()
	store := session.NewMemoryStore()
	sink := &fakeAuditSink{}
	mgr := NewManager(repo, store, sink, nil, Options{
		SessionTTL:  time.Hour,
		RememberTTL: 30 * 24 * time.Hour,
		ResetSecret: []byte("test-secret"),
		ResetTTL:    time.Minute,
	})
	return mgr, repo, store, sink
}

// --- login ---

func TestLoginByUsernameAndEmail(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleOrganizer)

	for _, identifier := range []string{"alice", "alice@x.edu"} {
		user, sess, err := mgr.Login(context.Background(), identifier, "Passw0rd1", false, Client{})
		require.NoError(t, err, "identifier %q", identifier)
		require.NotNil(t, sess)
		assert.Equal(t, domain.RoleOrganizer, sess.Role)
		assert.Equal(t, "alice", sess.Username)
		assert.NotEmpty(t, sess.Token)
		assert.Empty(t, user.PasswordHash, "password hash must not leave the manager")
	}
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleUser)

	_, _, unknownErr := mgr.Login(context.Background(), "nobody@x.edu", "whatever", false, Client{})
	_, _, wrongPwErr := mgr.Login(context.Background(), "alice", "wrong-password", false, Client{})

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongPwErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongPwErr.Error())
}

func TestLoginInactiveAccount(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	u := seedUser(t, repo, "bob", "bob@x.edu", "Passw0rd1", domain.RoleUser)
	u.Status = domain.StatusInactive

	_, _, err := mgr.Login(context.Background(), "bob", "Passw0rd1", false, Client{})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLoginRememberMeExtendsExpiry(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleUser)

	_, short, err := mgr.Login(context.Background(), "alice", "Passw0rd1", false, Client{})
	require.NoError(t, err)
	_, long, err := mgr.Login(context.Background(), "alice", "Passw0rd1", true, Client{})
	require.NoError(t, err)

	assert.True(t, long.ExpiresAt.After(short.ExpiresAt.Add(24*time.Hour)),
		"remember-me session should live much longer than the default")
}

func TestLoginLastLoginUpdateIsBestEffort(t *testing.T) {
	mgr, repo, _, sink := newTestManager(t)
	seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleUser)
	repo.lastLoginErr = errors.New("disk full")

	_, sess, err := mgr.Login(context.Background(), "alice", "Passw0rd1", false, Client{IP: "10.0.0.1"})
	require.NoError(t, err, "a failing last-login update must not fail the login")
	require.NotNil(t, sess)
	assert.Equal(t, 1, repo.lastLoginCalls)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "login", sink.entries[0].Action)
	assert.Equal(t, "10.0.0.1", sink.entries[0].IP)
}

func TestLoginStoreUnavailable(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	repo.lookupErr = errors.New("connection refused")

	_, _, err := mgr.Login(context.Background(), "alice", "Passw0rd1", false, Client{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials, "store failures must not masquerade as bad credentials")
}

// --- register ---

func validForm() RegisterForm {
	return RegisterForm{
		Username:        "carol",
		Email:           "carol@x.edu",
		Password:        "Passw0rd1",
		ConfirmPassword: "Passw0rd1",
		TermsAccepted:   true,
	}
}

func TestRegisterSuccessDefaultsToUserRole(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)

	user, err := mgr.Register(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)

	stored, err := repo.GetByUsername(context.Background(), "carol")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash, "stored record keeps the hash")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Passw0rd1")))
}

func TestRegisterOrganizerSelectable(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	form := validForm()
	form.Role = "organizer"
	user, err := mgr.Register(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, user.Role)
}

func TestRegisterAdminNeverGrantable(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)

	form := validForm()
	form.Role = "admin"
	_, err := mgr.Register(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "invalid account type")
	assert.Zero(t, repo.createCalls, "no insert on validation failure")
}

func TestRegisterPasswordMismatchNoInsert(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)

	form := validForm()
	form.ConfirmPassword = "Different1"
	_, err := mgr.Register(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "passwords do not match")
	assert.Zero(t, repo.createCalls)

	_, err = repo.GetByUsername(context.Background(), "carol")
	assert.ErrorIs(t, err, repository.ErrNotFound, "no record may exist after a failed registration")
}

func TestRegisterCollectsEveryViolation(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	_, err := mgr.Register(context.Background(), RegisterForm{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "username is required")
	assert.Contains(t, verr.Violations, "email is required")
	assert.Contains(t, verr.Violations, "password is required")
	assert.Contains(t, verr.Violations, "password confirmation is required")
	assert.Contains(t, verr.Violations, "you must accept the terms and conditions")
}

func TestRegisterDuplicateAccount(t *testing.T) {
	mgr, repo, _, _ := newTestManager(t)
	seedUser(t, repo, "carol", "carol@x.edu", "Passw0rd1", domain.RoleUser)

	_, err := mgr.Register(context.Background(), validForm())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "username is already taken")
	assert.Contains(t, verr.Violations, "email is already registered")
	assert.Zero(t, repo.createCalls)
}

func TestRegisterRejectsBadEmailAndShortPassword(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	form := validForm()
	form.Email = "not-an-email"
	form.Password = "short"
	form.ConfirmPassword = "short"
	_, err := mgr.Register(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "email address is not valid")
	assert.Contains(t, verr.Violations, "password must be at least 8 characters")
}

// --- sessions and logout ---

func TestCurrentUserAfterLoginAndLogout(t *testing.T) {
	mgr, repo, _, sink := newTestManager(t)
	seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleUser)

	_, sess, err := mgr.Login(context.Background(), "alice", "Passw0rd1", false, Client{})
	require.NoError(t, err)

	current, err := mgr.CurrentUser(context.Background(), sess.Token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, sess.UserID, current.UserID)

	require.NoError(t, mgr.Logout(context.Background(), sess.Token, Client{IP: "10.0.0.2"}))

	current, err = mgr.CurrentUser(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Nil(t, current, "session must be gone after logout")

	var actions []string
	for _, e := range sink.entries {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, "logout")
}

func TestLogoutIsIdempotent(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	require.NoError(t, mgr.Logout(context.Background(), "no-such-token", Client{}))
	require.NoError(t, mgr.Logout(context.Background(), "no-such-token", Client{}))
	require.NoError(t, mgr.Logout(context.Background(), "", Client{}))
}

func TestCurrentUserEmptyToken(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	sess, err := mgr.CurrentUser(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestCurrentUserExpiredSession(t *testing.T) {
	mgr, repo, store, _ := newTestManager(t)
	user := seedUser(t, repo, "alice", "alice@x.edu", "Passw0rd1", domain.RoleUser)

	sess := session.New(user, -time.Minute)
	require.NoError(t, store.Create(context.Background(), sess))

	current, err := mgr.CurrentUser(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Nil(t, current)
}
