// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/canonical/erp-auth/internal/http/types"
	"github.com/canonical/erp-auth/internal/identity"
	"github.com/canonical/erp-auth/internal/logging"
	"github.com/canonical/erp-auth/internal/monitoring"
	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/tracing"
	domain "github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

const (
	AdminRoleName    = "Admin"
	OperatorRoleName = "Platform Operator"
	adminRoleLevel   = 100

	defaultOperatorOrganization = "Platform Operations"

	resourceAuth = "auth"
)

// ownerGrants is what the founding role of an organization holds.
var ownerGrants = []string{"*:*"}

var (
	ErrInvalidCredentials  = types.Unauthorized("Invalid credentials")
	ErrInvalidRefreshToken = types.Unauthorized("Invalid refresh token")
	ErrRefreshTokenReused  = types.Unauthorized("Invalid refresh token")
	ErrRefreshFailed       = types.Unauthorized("Invalid refresh token")
	ErrInvalidResetToken   = types.Unauthorized("Invalid or expired reset token")
	ErrTokenAlreadyUsed    = types.Unauthorized("Token already used")
	ErrJoinNotSupported    = types.BadRequest("joining an existing organization is not supported, ask an administrator for an invitation")
	ErrEmailTaken          = types.Conflict("email is already registered in this organization")
	ErrUserNotFound        = types.Unauthorized("user not found")
)

// errSessionLost aborts a rotation whose compare and swap was lost.
var errSessionLost = errors.New("session no longer holds the presented token")

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage   StorageInterface
	tokens    TokenServiceInterface
	passwords PasswordHasherInterface
	auditor   AuditorInterface
	notifier  ResetNotifierInterface

	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash string
	now       func() time.Time

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest, client ClientInfo) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.Register")
	defer span.End()

	if req.OrganizationID != "" {
		return nil, ErrJoinNotSupported
	}

	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		orgName = fmt.Sprintf("%s %s's Organization", req.FirstName, req.LastName)
	}

	var (
		user *domain.User
		role *domain.Role
		pair *TokenPair
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error
		ctx, user, role, err = s.createOwner(ctx, orgName, req, hash, domain.Role{
			Name:        AdminRoleName,
			Description: "Organization owner",
			Level:       adminRoleLevel,
			Category:    "executive",
			IsSystem:    true,
		})
		if err != nil {
			return err
		}

		pair, err = s.issueSession(ctx, user, role, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Action:         audit.ActionRegisterOrg,
		Resource:       "organization",
		Details:        map[string]interface{}{"organizationName": orgName, "email": user.Email},
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})
	s.logger.Security().AuthnSuccess(user.ID, user.OrganizationID, "register")

	return &AuthResult{User: newUserView(user, role), TokenPair: *pair}, nil
}

// RegisterOperator creates a platform operator in an organization of its
// own. Only the operator role carries the super admin flag and it is never
// handed out over HTTP.
func (s *Service) RegisterOperator(ctx context.Context, req *RegisterRequest) (*UserView, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.RegisterOperator")
	defer span.End()

	if req.OrganizationID != "" {
		return nil, ErrJoinNotSupported
	}

	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	orgName := strings.TrimSpace(req.OrganizationName)
	if orgName == "" {
		orgName = defaultOperatorOrganization
	}

	var (
		user *domain.User
		role *domain.Role
	)

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		var err error
		_, user, role, err = s.createOwner(ctx, orgName, req, hash, domain.Role{
			Name:               OperatorRoleName,
			Description:        "Platform operator",
			Level:              adminRoleLevel,
			Category:           "executive",
			IsSystem:           true,
			IsSystemSuperAdmin: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Action:         audit.ActionOperatorCreated,
		Resource:       "organization",
		Details:        map[string]interface{}{"organizationName": orgName, "email": user.Email},
	})
	s.logger.Infof("platform operator %s created in organization %s", user.ID, user.OrganizationID)

	return newUserView(user, role), nil
}

// createOwner creates an organization together with its founding role and
// user. It runs inside the caller's transaction and returns the context
// bound to the new tenant.
func (s *Service) createOwner(ctx context.Context, orgName string, req *RegisterRequest, hash string, template domain.Role) (context.Context, *domain.User, *domain.Role, error) {
	org, err := s.storage.CreateOrganization(ctx, &domain.Organization{
		Name: orgName,
		Slug: slugify(req.OrganizationName, req.Email),
	})
	if err != nil {
		return ctx, nil, nil, err
	}

	ctx = tenancy.WithTenantID(ctx, org.ID)

	role, err := s.storage.CreateRole(ctx, &template)
	if err != nil {
		return ctx, nil, nil, err
	}

	if err := s.storage.GrantPermissionKeys(ctx, role.ID, ownerGrants); err != nil {
		return ctx, nil, nil, err
	}

	user, err := s.storage.CreateUser(ctx, &domain.User{
		OrganizationID: org.ID,
		RoleID:         role.ID,
		Email:          req.Email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return ctx, nil, nil, ErrEmailTaken
	}
	if err != nil {
		return ctx, nil, nil, err
	}

	return ctx, user, role, nil
}

func (s *Service) Login(ctx context.Context, req *LoginRequest, client ClientInfo) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.Login")
	defer span.End()

	user, err := s.lookupByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		s.passwords.Compare(s.dummyHash, req.Password)
		return nil, s.loginFailed(ctx, req.Email, nil, "user_not_found", client)
	}

	if !s.passwords.Compare(user.PasswordHash, req.Password) {
		return nil, s.loginFailed(ctx, req.Email, user, "invalid_password", client)
	}

	if !user.Usable() {
		return nil, s.loginFailed(ctx, req.Email, user, "account_disabled", client)
	}

	ctx = tenancy.WithTenantID(ctx, user.OrganizationID)

	loaded, err := s.storage.GetUserWithRole(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		pair, err = s.issueSession(ctx, loaded.User, loaded.Role, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, audit.Entry{
		UserID:    user.ID,
		Action:    audit.ActionLoginSuccess,
		Resource:  resourceAuth,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})
	s.logger.Security().AuthnSuccess(user.ID, user.OrganizationID, "password")
	s.monitor.IncAuthEvent(map[string]string{"event": "login", "outcome": "success"})

	return &AuthResult{User: newUserView(loaded.User, loaded.Role), TokenPair: *pair}, nil
}

// lookupByEmail resolves the login subject. Email is unique per organization
// only, so with no tenant header the earliest account wins.
func (s *Service) lookupByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := s.storage.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, nil
	}

	if len(users) > 1 {
		s.logger.Warnf("email matches %d accounts across organizations, using the earliest; send %s to choose", len(users), tenancy.OrgIDHeader)
	}

	return users[0], nil
}

func (s *Service) loginFailed(ctx context.Context, email string, user *domain.User, reason string, client ClientInfo) error {
	entry := audit.Entry{
		Action:    audit.ActionLoginFailed,
		Resource:  resourceAuth,
		Details:   map[string]interface{}{"email": email, "reason": reason},
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if user != nil {
		entry.UserID = user.ID
		entry.OrganizationID = user.OrganizationID
	}

	s.auditor.Log(ctx, entry)
	s.logger.Security().AuthnFailure(email, reason)
	s.monitor.IncAuthEvent(map[string]string{"event": "login", "outcome": "failure"})

	return ErrInvalidCredentials
}

func (s *Service) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.Refresh")
	defer span.End()

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debugf("refresh token rejected: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.storage.FindSessionByID(ctx, claims.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, s.refreshFailed(err)
	}

	if session.UserID != claims.Subject || !s.now().Before(session.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}

	if !session.IsValid {
		if session.ReplacedBy != nil {
			return nil, s.reuseDetected(ctx, session, claims.TenantID, client)
		}
		return nil, ErrInvalidRefreshToken
	}

	ctx = tenancy.WithTenantID(ctx, claims.TenantID)

	loaded, err := s.storage.GetUserWithRole(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, s.refreshFailed(err)
	}

	if !loaded.User.Usable() {
		return nil, ErrInvalidRefreshToken
	}

	// The consume and its successor commit together, a failed successor
	// leaves the presented token usable.
	var pair *TokenPair
	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.storage.ConsumeSession(ctx, session.ID, HashToken(refreshToken))
		if err != nil {
			return err
		}
		if !won {
			return errSessionLost
		}

		var next *domain.Session
		next, pair, err = s.createSession(ctx, loaded.User, loaded.Role, client)
		if err != nil {
			return err
		}

		return s.storage.SetSessionReplacement(ctx, session.ID, next.ID)
	})
	if errors.Is(err, errSessionLost) {
		return nil, s.reuseDetected(ctx, session, claims.TenantID, client)
	}
	if err != nil {
		return nil, s.refreshFailed(err)
	}

	s.monitor.IncAuthEvent(map[string]string{"event": "refresh", "outcome": "success"})

	return pair, nil
}

// reuseDetected handles a refresh token presented for a session that no
// longer holds it, either replayed after rotation or raced by a concurrent
// refresh. The session is burned.
func (s *Service) reuseDetected(ctx context.Context, session *domain.Session, tenantID string, client ClientInfo) error {
	if err := s.storage.RevokeSession(ctx, session.ID); err != nil {
		s.logger.Errorf("failed to revoke session %s after token reuse: %v", session.ID, err)
	}

	s.logger.Security().TokenReuse(session.UserID, session.ID)
	s.monitor.IncAuthEvent(map[string]string{"event": "refresh", "outcome": "reuse"})

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: tenantID,
		UserID:         session.UserID,
		Action:         audit.ActionTokenReuseDetected,
		Resource:       "session",
		Details:        map[string]interface{}{"sessionId": session.ID},
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})

	return ErrRefreshTokenReused
}

func (s *Service) refreshFailed(err error) error {
	s.logger.Errorf("refresh failed: %v", err)
	return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
}

func (s *Service) Logout(ctx context.Context, refreshToken string, client ClientInfo) error {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.Logout")
	defer span.End()

	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debugf("logout with unusable refresh token: %v", err)
		return nil
	}

	session, err := s.storage.FindSessionByID(ctx, claims.SessionID)
	if err != nil || session.UserID != claims.Subject {
		return nil
	}

	if err := s.storage.RevokeSession(ctx, session.ID); err != nil {
		s.logger.Errorf("failed to revoke session %s on logout: %v", session.ID, err)
		return nil
	}

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: claims.TenantID,
		UserID:         claims.Subject,
		Action:         audit.ActionLogout,
		Resource:       resourceAuth,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})

	return nil
}

// ForgotPassword never reports whether the email exists.
func (s *Service) ForgotPassword(ctx context.Context, email string, client ClientInfo) error {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.ForgotPassword")
	defer span.End()

	user, err := s.lookupByEmail(ctx, email)
	if err != nil {
		s.logger.Errorf("password reset lookup failed: %v", err)
		return nil
	}

	if !user.Usable() {
		return nil
	}

	token, err := s.tokens.GenerateResetToken(user.ID)
	if err != nil {
		s.logger.Errorf("failed to generate reset token: %v", err)
		return nil
	}

	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		if err := s.storage.DeleteUnusedResetTokens(ctx, user.ID); err != nil {
			return err
		}

		_, err := s.storage.CreateResetToken(ctx, &domain.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: HashToken(token),
			ExpiresAt: s.now().Add(s.tokens.ResetTTL()),
		})
		return err
	})
	if err != nil {
		s.logger.Errorf("failed to store reset token for user %s: %v", user.ID, err)
		return nil
	}

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Action:         audit.ActionPasswordResetRequested,
		Resource:       resourceAuth,
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})

	if err := s.notifier.SendResetToken(ctx, user, token); err != nil {
		s.logger.Errorf("failed to deliver reset token for user %s: %v", user.ID, err)
	}

	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string, client ClientInfo) error {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.ResetPassword")
	defer span.End()

	claims, err := s.tokens.VerifyResetToken(token)
	if err != nil {
		s.logger.Debugf("reset token rejected: %v", err)
		return ErrInvalidResetToken
	}

	// The reset token names the user, any tenant header is irrelevant.
	user, err := s.storage.GetUserByID(tenancy.WithTenantID(ctx, ""), claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	if !user.Usable() {
		return ErrInvalidResetToken
	}

	ctx = tenancy.WithTenantID(ctx, user.OrganizationID)

	stored, err := s.storage.ListResetTokens(ctx, user.ID)
	if err != nil {
		return err
	}

	// Reset tokens are few and short lived per user, so a scan is enough.
	presented := []byte(HashToken(token))
	var match *domain.PasswordResetToken
	for _, t := range stored {
		if subtle.ConstantTimeCompare([]byte(t.TokenHash), presented) == 1 {
			match = t
			break
		}
	}

	switch {
	case match == nil:
		return ErrInvalidResetToken
	case match.Used:
		return ErrTokenAlreadyUsed
	case !s.now().Before(match.ExpiresAt):
		return ErrInvalidResetToken
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return err
	}

	var revoked int64
	err = s.storage.WithTx(ctx, func(ctx context.Context) error {
		won, err := s.storage.MarkResetTokenUsed(ctx, match.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrTokenAlreadyUsed
		}

		if err := s.storage.UpdateUserPassword(ctx, user.ID, hash); err != nil {
			return err
		}

		revoked, err = s.storage.RevokeAllUserSessions(ctx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.auditor.Log(ctx, audit.Entry{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Action:         audit.ActionPasswordReset,
		Resource:       resourceAuth,
		Details:        map[string]interface{}{"revokedSessions": revoked},
		IPAddress:      client.IPAddress,
		UserAgent:      client.UserAgent,
	})

	return nil
}

func (s *Service) Me(ctx context.Context, id *identity.Identity) (*UserView, error) {
	ctx, span := s.tracer.Start(ctx, "authentication.Service.Me")
	defer span.End()

	loaded, err := s.storage.GetUserWithRole(ctx, id.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return newUserView(loaded.User, loaded.Role), nil
}

// issueSession creates a session, mints its token pair and stores the
// refresh token hash. Callers run it inside a transaction.
func (s *Service) issueSession(ctx context.Context, user *domain.User, role *domain.Role, client ClientInfo) (*TokenPair, error) {
	_, pair, err := s.createSession(ctx, user, role, client)
	return pair, err
}

func (s *Service) createSession(ctx context.Context, user *domain.User, role *domain.Role, client ClientInfo) (*domain.Session, *TokenPair, error) {
	session, err := s.storage.CreateSession(ctx, &domain.Session{
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: s.now().Add(s.tokens.RefreshTTL()),
	})
	if err != nil {
		return nil, nil, err
	}

	roleName := ""
	if role != nil {
		roleName = role.Name
	}

	pair, err := s.tokens.GenerateTokens(TokenClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      roleName,
		SessionID: session.ID,
		TenantID:  user.OrganizationID,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.storage.UpdateSessionToken(ctx, session.ID, HashToken(pair.RefreshToken)); err != nil {
		return nil, nil, err
	}

	return session, pair, nil
}

// slugify derives an organization slug from its name, or the email local
// part, plus a random suffix so concurrent registrations never collide.
func slugify(name, email string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}

	base = strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if base == "" {
		base = "org"
	}
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}

	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)

	return base + "-" + hex.EncodeToString(suffix)
}

func NewService(
	storage StorageInterface,
	tokens TokenServiceInterface,
	passwords PasswordHasherInterface,
	auditor AuditorInterface,
	notifier ResetNotifierInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	s := &Service{
		storage:   storage,
		tokens:    tokens,
		passwords: passwords,
		auditor:   auditor,
		notifier:  notifier,
		now:       time.Now,
		tracer:    tracer,
		monitor:   monitor,
		logger:    logger,
	}

	hash, err := passwords.Hash("not-a-real-password-0")
	if err != nil {
		logger.Errorf("failed to prepare dummy password hash: %v", err)
	}
	s.dummyHash = hash

	return s
}
