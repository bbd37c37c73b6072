package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL     = 5 * time.Minute
)

// GoogleSignIn signs in existing accounts through Google. It never creates
// users; an unknown email is rejected like a bad password.
type GoogleSignIn struct {
	oauth       *oauth2.Config
	states      redis.Cmdable
	authority   *Authority
	cookies     CookieConfig
	userInfoURL string
	log         logrus.FieldLogger
}

func NewGoogleSignIn(cfg *config.Config, states redis.Cmdable, authority *Authority, cookies CookieConfig, log logrus.FieldLogger) *GoogleSignIn {
	return &GoogleSignIn{
		oauth: &oauth2.Config{
			RedirectURL:  cfg.GoogleRedirectURL,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		states:      states,
		authority:   authority,
		cookies:     cookies,
		userInfoURL: googleUserInfoURL,
		log:         log,
	}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func (g *GoogleSignIn) storeState(ctx context.Context) (string, error) {
	state := utils.RandomString(32)
	if err := g.states.Set(ctx, stateKey(state), "1", oauthStateTTL).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// consumeState reports whether state was issued and not yet used.
func (g *GoogleSignIn) consumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	_, err := g.states.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GoogleSignIn) LoginHandler(c *fiber.Ctx) error {
	state, err := g.storeState(c.UserContext())
	if err != nil {
		return apperr.Internal("Failed to start Google sign-in", err)
	}
	return c.Redirect(g.oauth.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (g *GoogleSignIn) CallbackHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	ok, err := g.consumeState(ctx, c.Query("state"))
	if err != nil {
		return apperr.Internal("Failed to verify sign-in state", err)
	}
	if !ok {
		return apperr.BadRequest("Invalid state parameter")
	}

	token, err := g.oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		g.log.WithError(err).Warn("google token exchange failed")
		return apperr.Unauthenticated("Google sign-in failed")
	}

	email, err := g.fetchEmail(ctx, token)
	if err != nil {
		g.log.WithError(err).Warn("google userinfo failed")
		return apperr.Unauthenticated("Google sign-in failed")
	}

	result, err := g.authority.LoginVerified(ctx, email)
	if err != nil {
		return err
	}

	g.cookies.Set(c, result.SessionID)
	return response.Success(c, loginPayload(result), "Login successful")
}

type googleUser struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (g *GoogleSignIn) fetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	client := g.oauth.Client(ctx, token)
	resp, err := client.Get(g.userInfoURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return "", errors.New("google account has no verified email")
	}
	return info.Email, nil
}
