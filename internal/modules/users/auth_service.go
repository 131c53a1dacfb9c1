package users

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"campus-dispatch/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Challenge lifetime and token lifetime for console sessions.
const (
	challengeTTL = 5 * time.Minute
	sessionTTL   = 24 * time.Hour
)

// Challenge purposes: completing a login, or verifying a new enrollment.
const (
	purposeLogin  = "login"
	purposeEnroll = "enroll"
)

// AuditRecorder is the slice of the audit module the auth service needs.
type AuditRecorder interface {
	Record(ctx context.Context, action, entity string, actor models.Session, details string)
}

// Notifier delivers one-time codes to the user's inbox.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
}

// ServiceInterface defines the authentication and factor-management gate.
type ServiceInterface interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	VerifyChallenge(ctx context.Context, req models.VerifyChallengeRequest) (*models.LoginResponse, error)
	EnrollFactor(ctx context.Context, session models.Session) (string, error)
	UnenrollFactor(ctx context.Context, session models.Session) error
	Me(ctx context.Context, session models.Session) (*models.User, error)
}

// challenge is one pending email-code verification. Challenges are single
// use and expire after challengeTTL.
type challenge struct {
	userID  string
	code    string
	purpose string
	expires time.Time
}

// Service implements the authentication gate. Pending challenges live in
// process memory: the console is a single-instance deployment and a lost
// challenge only costs the user another login attempt.
type Service struct {
	repo      RepositoryInterface
	audit     AuditRecorder
	notifier  Notifier
	jwtSecret []byte

	mu         sync.Mutex
	challenges map[string]*challenge
}

// NewService creates a new auth service.
func NewService(repo RepositoryInterface, audit AuditRecorder, notifier Notifier, jwtSecret string) *Service {
	return &Service{
		repo:       repo,
		audit:      audit,
		notifier:   notifier,
		jwtSecret:  []byte(jwtSecret),
		challenges: make(map[string]*challenge),
	}
}

// Login checks the credentials. Users with a verified second factor get an
// emailed code and must call VerifyChallenge; everyone else gets a session
// token immediately.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		return nil, models.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, models.ErrInvalidCredentials
	}

	if user.MFAEnrolled {
		challengeID, err := s.openChallenge(ctx, user, purposeLogin)
		if err != nil {
			return nil, fmt.Errorf("service.Login: %w", err)
		}
		return &models.LoginResponse{MFARequired: true, ChallengeID: challengeID}, nil
	}

	token, err := s.issueToken(user, models.AAL1)
	if err != nil {
		return nil, fmt.Errorf("service.Login: %w", err)
	}

	s.audit.Record(ctx, models.AuditActionLogin, models.AuditEntityAuth, sessionFor(user, models.AAL1), "User logged in")
	return &models.LoginResponse{Token: token, User: user}, nil
}

// VerifyChallenge consumes an emailed code. For a login challenge it issues
// the fully-authenticated session token; for an enrollment challenge it
// turns the second factor on.
func (s *Service) VerifyChallenge(ctx context.Context, req models.VerifyChallengeRequest) (*models.LoginResponse, error) {
	ch, err := s.takeChallenge(req.ChallengeID, req.Code)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, ch.userID)
	if err != nil {
		return nil, fmt.Errorf("service.VerifyChallenge: %w", err)
	}

	switch ch.purpose {
	case purposeEnroll:
		if err := s.repo.SetMFAEnrolled(ctx, user.ID, true); err != nil {
			return nil, fmt.Errorf("service.VerifyChallenge: %w", err)
		}
		user.MFAEnrolled = true
		s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityAuth, sessionFor(user, models.AAL2), "Two-factor enrollment verified")
		return &models.LoginResponse{User: user}, nil
	default:
		token, err := s.issueToken(user, models.AAL2)
		if err != nil {
			return nil, fmt.Errorf("service.VerifyChallenge: %w", err)
		}
		s.audit.Record(ctx, models.AuditActionLogin, models.AuditEntityAuth, sessionFor(user, models.AAL2), "User logged in with 2FA")
		return &models.LoginResponse{Token: token, User: user}, nil
	}
}

// EnrollFactor starts email-code enrollment for the signed-in user and
// returns the challenge id to verify against.
func (s *Service) EnrollFactor(ctx context.Context, session models.Session) (string, error) {
	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		return "", fmt.Errorf("service.EnrollFactor: %w", err)
	}
	if user.MFAEnrolled {
		return "", models.ErrConflict
	}
	challengeID, err := s.openChallenge(ctx, user, purposeEnroll)
	if err != nil {
		return "", fmt.Errorf("service.EnrollFactor: %w", err)
	}
	return challengeID, nil
}

// UnenrollFactor removes the second factor from the signed-in user.
func (s *Service) UnenrollFactor(ctx context.Context, session models.Session) error {
	if err := s.repo.SetMFAEnrolled(ctx, session.UserID, false); err != nil {
		return fmt.Errorf("service.UnenrollFactor: %w", err)
	}
	s.audit.Record(ctx, models.AuditActionUpdate, models.AuditEntityAuth, session, "Two-factor factor removed")
	return nil
}

// Me returns the account behind the session.
func (s *Service) Me(ctx context.Context, session models.Session) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("service.Me: %w", err)
	}
	return user, nil
}

// openChallenge creates a pending challenge and emails its code. A failed
// email delivery aborts the challenge: the user would have no way to finish.
func (s *Service) openChallenge(ctx context.Context, user *models.User, purpose string) (string, error) {
	code, err := sixDigitCode()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.challenges[id] = &challenge{
		userID:  user.ID,
		code:    code,
		purpose: purpose,
		expires: time.Now().Add(challengeTTL),
	}
	s.mu.Unlock()

	if err := s.notifier.SendVerificationCode(ctx, user.Email, user.FullName, code); err != nil {
		s.mu.Lock()
		delete(s.challenges, id)
		s.mu.Unlock()
		return "", fmt.Errorf("sending verification code: %w", err)
	}
	return id, nil
}

// takeChallenge validates and consumes a pending challenge.
func (s *Service) takeChallenge(id, code string) (*challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id]
	if !ok || time.Now().After(ch.expires) {
		delete(s.challenges, id)
		return nil, models.ErrChallengeExpired
	}
	if ch.code != code {
		return nil, models.ErrInvalidCredentials
	}
	delete(s.challenges, id)
	return ch, nil
}

// issueToken signs a session token carrying the assurance level reached.
func (s *Service) issueToken(user *models.User, aal string) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		AAL:      aal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// sixDigitCode draws a uniform six-digit code from crypto/rand.
func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// sessionFor builds the audit actor for operations performed during the
// login flow itself, before any token exists.
func sessionFor(user *models.User, aal string) models.Session {
	return models.Session{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		AAL:      aal,
	}
}
