package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-auth-e2e/httpclient"
	errs "github.com/jrsteele09/go-auth-e2e/internal/errors"
)

// Stages returns the full lifecycle in execution order: health, JWT
// issuance and the three stages that depend on the issued token, the
// OAuth2 authorization-code flow, then logout with its post-logout
// denial check.
func Stages() []Stage {
	return []Stage{
		healthStage(),
		issuanceStage(),
		verificationStage(),
		userInfoStage(),
		refreshStage(),
		authorizeStage(),
		exchangeStage(),
		logoutStage(),
	}
}

// tokenResponse is the token endpoint payload shape shared by session
// issuance, refresh, and the OAuth2 code exchange (RFC 6749 §5.1).
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func decodeTokenResponse(body string) (*tokenResponse, error) {
	var tr tokenResponse
	if err := json.Unmarshal([]byte(body), &tr); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", errs.ErrMalformedResponse, err, body)
	}
	if tr.AccessToken == "" || tr.TokenType == "" || tr.ExpiresIn == 0 {
		return nil, fmt.Errorf("%w: incomplete token response: %s", errs.ErrMalformedResponse, body)
	}
	return &tr, nil
}

func sessionCookie(token string) map[string]string {
	return map[string]string{"Cookie": "session_token=" + token}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func statusErr(want int, resp *httpclient.Response) error {
	return fmt.Errorf("%w: want %d, got %d: %s", errs.ErrUnexpectedStatus, want, resp.StatusCode, resp.Body)
}

func healthStage() Stage {
	return Stage{
		Name: "Health Check",
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			resp, err := rt.client.Get(ctx, rt.URL("/health"), nil)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK || resp.Body != "OK" {
				return nil, fmt.Errorf("%w: want 200 \"OK\", got %d %q", errs.ErrUnexpectedStatus, resp.StatusCode, resp.Body)
			}
			return nil, nil
		},
	}
}

func issuanceStage() Stage {
	return Stage{
		Name:  "JWT Issuance",
		Needs: []string{KeySessionToken},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			sessionToken, _ := rt.Output(KeySessionToken)
			resp, err := rt.client.Post(ctx, rt.URL("/token"), sessionCookie(sessionToken))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}
			tr, err := decodeTokenResponse(resp.Body)
			if err != nil {
				return nil, err
			}
			log.Info().
				Str("token_type", tr.TokenType).
				Int("expires_in", tr.ExpiresIn).
				Msg("access token issued")
			return Outputs{KeyAccessToken: tr.AccessToken}, nil
		},
	}
}

func verificationStage() Stage {
	return Stage{
		Name:  "JWT Verification",
		Needs: []string{KeyAccessToken},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			accessToken, _ := rt.Output(KeyAccessToken)
			resp, err := rt.client.Get(ctx, rt.URL("/api/verify"), bearer(accessToken))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}
			var vr struct {
				Valid    bool   `json:"valid"`
				UserID   string `json:"user_id"`
				Username string `json:"username"`
			}
			if err := json.Unmarshal([]byte(resp.Body), &vr); err != nil {
				return nil, fmt.Errorf("%w: %v: %s", errs.ErrMalformedResponse, err, resp.Body)
			}
			if !vr.Valid || vr.UserID == "" || vr.Username == "" {
				return nil, fmt.Errorf("%w: incomplete verify response: %s", errs.ErrMalformedResponse, resp.Body)
			}
			log.Info().Str("user_id", vr.UserID).Str("username", vr.Username).Msg("token verified")
			return nil, nil
		},
	}
}

func userInfoStage() Stage {
	return Stage{
		Name:  "JWT User Info",
		Needs: []string{KeyAccessToken},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			accessToken, _ := rt.Output(KeyAccessToken)
			resp, err := rt.client.Get(ctx, rt.URL("/api/user"), bearer(accessToken))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}
			var ur struct {
				ID        string `json:"id"`
				DiscordID string `json:"discord_id"`
				Username  string `json:"username"`
			}
			if err := json.Unmarshal([]byte(resp.Body), &ur); err != nil {
				return nil, fmt.Errorf("%w: %v: %s", errs.ErrMalformedResponse, err, resp.Body)
			}
			if ur.ID == "" || ur.DiscordID == "" || ur.Username == "" {
				return nil, fmt.Errorf("%w: incomplete user response: %s", errs.ErrMalformedResponse, resp.Body)
			}
			log.Info().Str("id", ur.ID).Str("discord_id", ur.DiscordID).Msg("user info retrieved")
			return nil, nil
		},
	}
}

func refreshStage() Stage {
	return Stage{
		Name:  "JWT Refresh",
		Needs: []string{KeyAccessToken},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			accessToken, _ := rt.Output(KeyAccessToken)
			resp, err := rt.client.Post(ctx, rt.URL("/token/refresh"), bearer(accessToken))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}
			// Refresh only promises a new access_token; token_type and
			// expires_in are not required here.
			var tr tokenResponse
			if err := json.Unmarshal([]byte(resp.Body), &tr); err != nil {
				return nil, fmt.Errorf("%w: %v: %s", errs.ErrMalformedResponse, err, resp.Body)
			}
			if tr.AccessToken == "" {
				return nil, fmt.Errorf("%w: no access_token in refresh response: %s", errs.ErrMalformedResponse, resp.Body)
			}
			if tr.AccessToken == accessToken {
				return nil, fmt.Errorf("%w: refresh returned the token it was given", errs.ErrStaleToken)
			}
			return Outputs{KeyRefreshedToken: tr.AccessToken}, nil
		},
	}
}

func authorizeStage() Stage {
	return Stage{
		Name:  "OAuth2 Authorize",
		Needs: []string{KeySessionToken, KeyClientID, KeyRedirectURI},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			sessionToken, _ := rt.Output(KeySessionToken)
			clientID, _ := rt.Output(KeyClientID)
			redirectURI, _ := rt.Output(KeyRedirectURI)

			// A run-unique state correlates the redirect with this
			// request; an echoed state that differs means the code
			// cannot be trusted.
			state := uuid.NewString()

			conf := &oauth2.Config{
				ClientID:    clientID,
				RedirectURL: redirectURI,
				Endpoint: oauth2.Endpoint{
					AuthURL:  rt.URL("/oauth/authorize"),
					TokenURL: rt.URL("/oauth/token"),
				},
			}

			resp, err := rt.client.Do(ctx, httpclient.Request{
				Method:            http.MethodGet,
				URL:               conf.AuthCodeURL(state),
				Header:            sessionCookie(sessionToken),
				NoFollowRedirects: true,
			})
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusFound {
				return nil, statusErr(http.StatusFound, resp)
			}

			code, echoed, err := parseCallback(resp.Location())
			if err != nil {
				return nil, err
			}
			if echoed != state {
				return nil, fmt.Errorf("%w: sent %q, got %q", errs.ErrStateMismatch, state, echoed)
			}
			return Outputs{KeyAuthCode: code, KeyOAuthState: state}, nil
		},
	}
}

// parseCallback pulls the authorization code and echoed state out of a
// redirect target without ever requesting it.
func parseCallback(location string) (code, state string, err error) {
	if location == "" {
		return "", "", fmt.Errorf("%w: no Location header on redirect", errs.ErrMalformedResponse)
	}
	target, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: Location %q: %v", errs.ErrMalformedResponse, location, err)
	}
	query := target.Query()
	code = query.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("%w: no code in Location %q", errs.ErrMalformedResponse, location)
	}
	return code, query.Get("state"), nil
}

func exchangeStage() Stage {
	return Stage{
		Name:  "OAuth2 Token Exchange",
		Needs: []string{KeyAuthCode, KeyClientID, KeyClientSecret, KeyRedirectURI},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			authCode, _ := rt.Output(KeyAuthCode)
			clientID, _ := rt.Output(KeyClientID)
			clientSecret, _ := rt.Output(KeyClientSecret)
			redirectURI, _ := rt.Output(KeyRedirectURI)

			resp, err := rt.client.PostForm(ctx, rt.URL("/oauth/token"), url.Values{
				"grant_type":    {"authorization_code"},
				"code":          {authCode},
				"client_id":     {clientID},
				"client_secret": {clientSecret},
				"redirect_uri":  {redirectURI},
			})
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}
			tr, err := decodeTokenResponse(resp.Body)
			if err != nil {
				return nil, err
			}
			log.Info().
				Str("token_type", tr.TokenType).
				Int("expires_in", tr.ExpiresIn).
				Msg("authorization code exchanged")
			return Outputs{KeySSOToken: tr.AccessToken}, nil
		},
	}
}

func logoutStage() Stage {
	return Stage{
		Name:  "Logout",
		Needs: []string{KeySessionToken},
		Run: func(ctx context.Context, rt *Runtime) (Outputs, error) {
			sessionToken, _ := rt.Output(KeySessionToken)
			header := sessionCookie(sessionToken)

			resp, err := rt.client.Post(ctx, rt.URL("/auth/logout"), header)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusOK {
				return nil, statusErr(http.StatusOK, resp)
			}

			// The revoked session must no longer mint tokens. Any
			// status other than 401 fails this stage, 200 included.
			denied, err := rt.client.Post(ctx, rt.URL("/token"), header)
			if err != nil {
				return nil, err
			}
			if denied.StatusCode != http.StatusUnauthorized {
				return nil, fmt.Errorf("%w: post-logout issuance should return 401, got %d: %s",
					errs.ErrUnexpectedStatus, denied.StatusCode, denied.Body)
			}
			return nil, nil
		},
	}
}
