package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const resetPurpose = "password_reset"

// ResetTokens signs password reset tokens. A token embeds the epoch of the
// user it was issued for, so using it (which advances the epoch) spends it.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
}

func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), ttl: ttl}
}

type resetClaims struct {
	Epoch   int64  `json:"epoch"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func (r *ResetTokens) Issue(user *models.User) (string, time.Time, error) {
	expires := time.Now().Add(r.ttl)
	claims := resetClaims{
		Epoch:   user.SessionVersion,
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (r *ResetTokens) Parse(tokenStr string) (uint, int64, error) {
	var claims resetClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, 0, fmt.Errorf("invalid reset token: %w", err)
	}
	if claims.Purpose != resetPurpose {
		return 0, 0, errors.New("token is not a reset token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, 0, errors.New("invalid token subject")
	}
	return uint(id), claims.Epoch, nil
}

// IssueResetToken creates a reset token for userID.
func (a *Authority) IssueResetToken(ctx context.Context, userID uint) (string, time.Time, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, apperr.NotFound("User")
		}
		return "", time.Time{}, apperr.Internal("Failed to load user", err)
	}

	token, expires, err := a.resets.Issue(&user)
	if err != nil {
		return "", time.Time{}, apperr.Internal("Failed to sign reset token", err)
	}
	a.log.WithField("user_id", user.ID).Info("password reset token issued")
	return token, expires, nil
}

// ResetPassword consumes a reset token. Every session of the user becomes
// stale.
func (a *Authority) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	userID, epoch, err := a.resets.Parse(tokenStr)
	if err != nil {
		return apperr.BadRequest("Invalid or expired token")
	}

	var user models.User
	if err := a.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.BadRequest("Invalid or expired token")
		}
		return apperr.Internal("Failed to load user", err)
	}
	if user.SessionVersion != epoch {
		return apperr.BadRequest("Invalid or expired token")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return apperr.Internal("Failed to hash password", err)
	}
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(CredentialColumns(&user)).Error; err != nil {
		return apperr.Internal("Failed to update password", err)
	}

	a.log.WithField("user_id", user.ID).Info("password reset, sessions invalidated")
	return nil
}
