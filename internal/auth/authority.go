package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/role"
	"github.com/Kyz7/backoffice/internal/session"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Authority issues, checks and destroys sessions. A session stays valid only
// while its user exists, is active and still has the epoch the session was
// issued at.
type Authority struct {
	db       *gorm.DB
	sessions session.Store
	resolver *role.Resolver
	resets   *ResetTokens
	log      logrus.FieldLogger
}

func NewAuthority(db *gorm.DB, sessions session.Store, resolver *role.Resolver, resets *ResetTokens, log logrus.FieldLogger) *Authority {
	return &Authority{db: db, sessions: sessions, resolver: resolver, resets: resets, log: log}
}

type LoginResult struct {
	User      *models.User
	Principal *Principal
	SessionID string
}

func (a *Authority) SessionTTL() time.Duration {
	return a.sessions.TTL()
}

// Login checks credentials and opens a session. The password is checked
// before the active flag so a disabled account's existence is only revealed
// to someone who knows its password.
func (a *Authority) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := a.findByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			utils.CheckPasswordHash(password, utils.DummyHash())
			a.log.WithField("email", normalizeEmail(email)).Warn("login failed: unknown email")
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}

	hash := user.Password
	if hash == "" {
		hash = utils.DummyHash()
	}
	if !utils.CheckPasswordHash(password, hash) || user.Password == "" {
		a.log.WithField("user_id", user.ID).Warn("login failed: password mismatch")
		return nil, apperr.InvalidCredentials()
	}

	return a.open(ctx, user)
}

// LoginVerified opens a session for an identity already verified by an
// external provider. Only existing, active accounts are accepted.
func (a *Authority) LoginVerified(ctx context.Context, email string) (*LoginResult, error) {
	user, err := a.findByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}
	return a.open(ctx, user)
}

func (a *Authority) open(ctx context.Context, user *models.User) (*LoginResult, error) {
	if !user.IsActive {
		a.log.WithField("user_id", user.ID).Warn("login failed: account disabled")
		return nil, apperr.AccountDisabled()
	}

	now := time.Now()
	if err := a.db.WithContext(ctx).Model(user).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, apperr.Internal("Failed to record login", err)
	}
	user.LastLoginAt = &now

	sid, err := a.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	principal, err := a.principal(ctx, user, sid)
	if err != nil {
		_ = a.sessions.Destroy(ctx, sid)
		return nil, err
	}

	a.log.WithFields(logrus.Fields{"user_id": user.ID, "role": principal.RoleSlug}).Info("login succeeded")
	return &LoginResult{User: user, Principal: principal, SessionID: sid}, nil
}

// Authenticate resolves a session id to a Principal. Sessions whose user is
// gone, disabled or at a different epoch are destroyed.
func (a *Authority) Authenticate(ctx context.Context, sid string) (*Principal, error) {
	rec, err := a.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperr.Unauthenticated("Session expired or not found")
		}
		return nil, apperr.Internal("Failed to read session", err)
	}

	var user models.User
	if err := a.db.WithContext(ctx).Preload("Role").First(&user, rec.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.invalidate(ctx, sid, rec.UserID, "user gone")
			return nil, apperr.UserGone()
		}
		return nil, apperr.Internal("Failed to load user", err)
	}

	if !user.IsActive {
		a.invalidate(ctx, sid, user.ID, "account disabled")
		return nil, apperr.AccountDisabled()
	}
	if rec.Epoch != user.SessionVersion {
		a.invalidate(ctx, sid, user.ID, "stale epoch")
		return nil, apperr.StaleSession()
	}

	return a.principal(ctx, &user, sid)
}

// Logout destroys the session. Unknown ids are ignored.
func (a *Authority) Logout(ctx context.Context, sid string) error {
	if err := a.sessions.Destroy(ctx, sid); err != nil {
		return apperr.Internal("Failed to destroy session", err)
	}
	return nil
}

// Reissue replaces oldSID with a session at the user's current epoch. Used
// after a caller changes their own credentials so only their other sessions
// go stale.
func (a *Authority) Reissue(ctx context.Context, oldSID string, user *models.User) (string, error) {
	if err := a.sessions.Destroy(ctx, oldSID); err != nil {
		return "", apperr.Internal("Failed to destroy session", err)
	}
	return a.issue(ctx, user)
}

// ChangePassword verifies the current password, stores the new one and
// returns a fresh session id for the caller.
func (a *Authority) ChangePassword(ctx context.Context, p *Principal, current, next string) (string, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Preload("Role").First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.UserGone()
		}
		return "", apperr.Internal("Failed to load user", err)
	}

	if !utils.CheckPasswordHash(current, user.Password) {
		return "", apperr.Field("current_password", "is incorrect")
	}
	if err := user.SetPassword(next); err != nil {
		return "", apperr.Internal("Failed to hash password", err)
	}
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(CredentialColumns(&user)).Error; err != nil {
		return "", apperr.Internal("Failed to update password", err)
	}

	a.log.WithField("user_id", user.ID).Info("password changed, other sessions invalidated")
	return a.Reissue(ctx, p.SessionID, &user)
}

func (a *Authority) issue(ctx context.Context, user *models.User) (string, error) {
	roleSlug := ""
	if user.Role != nil {
		roleSlug = user.Role.Slug
	}
	sid, err := a.sessions.Create(ctx, session.Record{
		UserID:   user.ID,
		RoleSlug: roleSlug,
		Epoch:    user.SessionVersion,
	})
	if err != nil {
		return "", apperr.Internal("Failed to create session", err)
	}
	return sid, nil
}

func (a *Authority) principal(ctx context.Context, user *models.User, sid string) (*Principal, error) {
	caps, err := a.resolver.EffectivePermissions(ctx, user)
	if err != nil {
		return nil, err
	}

	p := &Principal{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		RoleID:       user.RoleID,
		Capabilities: caps,
		SessionID:    sid,
	}
	if user.Role != nil {
		p.RoleSlug = user.Role.Slug
		p.RoleLevel = user.Role.Level
	}
	return p, nil
}

func (a *Authority) invalidate(ctx context.Context, sid string, userID uint, reason string) {
	if err := a.sessions.Destroy(ctx, sid); err != nil {
		a.log.WithError(err).WithField("user_id", userID).Error("failed to destroy invalid session")
		return
	}
	a.log.WithFields(logrus.Fields{"user_id": userID, "reason": reason}).Info("session invalidated")
}

func (a *Authority) findByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).Preload("Role").
		Where("email = ?", normalizeEmail(email)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("Failed to look up user", err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CredentialColumns is the column set written when a password changes.
func CredentialColumns(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"password":            u.Password,
		"session_version":     u.SessionVersion,
		"password_changed_at": u.PasswordChangedAt,
	}
}
