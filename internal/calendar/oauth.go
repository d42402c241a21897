// Package calendar keeps OAuth tokens of calendar media fresh and reads
// their events from Microsoft Graph.
package calendar

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// TokenRefresher exchanges a refresh token for a new token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type OAuthRefresher struct {
	cfg *oauth2.Config
}

func NewOAuthRefresher(clientID, clientSecret string, endpoint oauth2.Endpoint) *OAuthRefresher {
	return &OAuthRefresher{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{"offline_access", "Calendars.Read"},
	}}
}

// NewMicrosoftRefresher targets the Azure AD v2 endpoint of tenant ("common"
// for multi-tenant apps).
func NewMicrosoftRefresher(clientID, clientSecret, tenant string) *OAuthRefresher {
	return NewOAuthRefresher(clientID, clientSecret, microsoft.AzureADEndpoint(tenant))
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token")
	}
	// an expired token forces the source to hit the token endpoint
	tok, err := r.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}
