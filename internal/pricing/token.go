package pricing

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"dealscout/logger"
	pkgerr "dealscout/pkg/errors"
)

// PersistFunc stores a refreshed token and its expiry so they can be reused
// across process restarts.
type PersistFunc func(token string, expiry time.Time) error

// TokenSource hands out a valid bearer token for the pricing API. A cached
// token is reused until its expiry passes; after that a fresh one is
// requested via the client-credential grant and persisted.
type TokenSource struct {
	cc      *clientcredentials.Config
	token   string
	expiry  time.Time
	persist PersistFunc
	log     *logger.Logger
}

// NewTokenSource creates a token source seeded with a previously persisted
// token, which may be empty. persist may be nil.
func NewTokenSource(clientID, clientSecret, scope, tokenURL, cachedToken string, cachedExpiry time.Time, persist PersistFunc) *TokenSource {
	return &TokenSource{
		cc: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{scope},
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		token:   cachedToken,
		expiry:  cachedExpiry,
		persist: persist,
		log:     logger.ForPricing(),
	}
}

// Token returns a valid access token, refreshing when the stored expiry has
// passed.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t.token != "" && time.Now().Before(t.expiry) {
		return t.token, nil
	}

	t.log.Info().Msg("Refreshing pricing API token")

	tok, err := t.cc.Token(ctx)
	if err != nil {
		return "", pkgerr.NewPricing("pricing", "token exchange", err)
	}

	t.token = tok.AccessToken
	t.expiry = tok.Expiry

	if t.persist != nil {
		if err := t.persist(t.token, t.expiry); err != nil {
			t.log.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}

	return t.token, nil
}
