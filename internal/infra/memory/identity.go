package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"offline-quiz-service/internal/domain"
)

const (
	minPasswordLength = 6
	maxFailedSignIns  = 5
	signInCooldown    = time.Minute
)

// StaticIdentity is an identity permanently signed in as one user (or nobody when empty).
type StaticIdentity struct {
	userID string
}

func NewStaticIdentity(userID string) *StaticIdentity {
	return &StaticIdentity{userID: userID}
}

func (i *StaticIdentity) CurrentUserID() (string, bool) {
	return i.userID, i.userID != ""
}

func (i *StaticIdentity) IsLoggedIn() bool {
	return i.userID != ""
}

type account struct {
	userID      string
	displayName string
	hash        []byte
}

// Accounts is an in-process identity provider with bcrypt-hashed passwords.
// Repeated failed sign-ins for an email are rate limited.
type Accounts struct {
	clock func() time.Time

	mu          sync.Mutex
	byEmail     map[string]account
	current     string
	failures    map[string]int
	lockedUntil map[string]time.Time
}

func NewAccounts() *Accounts {
	return &Accounts{
		clock:       time.Now,
		byEmail:     make(map[string]account),
		failures:    make(map[string]int),
		lockedUntil: make(map[string]time.Time),
	}
}

// SignUp registers and signs in a new user, returning its id.
func (a *Accounts) SignUp(_ context.Context, name, email, password string) (string, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return "", domain.ErrWeakPassword
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byEmail[email]; ok {
		return "", domain.ErrEmailInUse
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	acc := account{userID: uuid.NewString(), displayName: name, hash: hash}
	a.byEmail[email] = acc
	a.current = acc.userID
	return acc.userID, nil
}

// SignIn checks credentials and makes the user current.
func (a *Accounts) SignIn(_ context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)

	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.clock()
	if until, ok := a.lockedUntil[email]; ok {
		if now.Before(until) {
			return "", domain.ErrRateLimited
		}
		delete(a.lockedUntil, email)
		delete(a.failures, email)
	}

	acc, ok := a.byEmail[email]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		a.failures[email]++
		if a.failures[email] >= maxFailedSignIns {
			a.lockedUntil[email] = now.Add(signInCooldown)
		}
		return "", domain.ErrInvalidCredentials
	}

	delete(a.failures, email)
	a.current = acc.userID
	return acc.userID, nil
}

// SignOut clears the current user.
func (a *Accounts) SignOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = ""
}

func (a *Accounts) CurrentUserID() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.current != ""
}

func (a *Accounts) IsLoggedIn() bool {
	_, ok := a.CurrentUserID()
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
