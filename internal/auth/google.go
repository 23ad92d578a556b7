package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const ProviderGoogle = "google"

// GoogleProfile is the identity returned by Google after sign-in.
type GoogleProfile struct {
	ID    string
	Email string
	Name  string
}

// GoogleProvider runs the authorization code flow against Google.
type GoogleProvider struct {
	config *oauth2.Config
	// apiEndpoint overrides the userinfo API base URL; empty uses Google's.
	apiEndpoint string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", googleoauth.UserinfoEmailScope, googleoauth.UserinfoProfileScope},
		},
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for the user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (GoogleProfile, error) {
	if code == "" {
		return GoogleProfile{}, errors.New("missing authorization code")
	}
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(p.config.Client(ctx, token))}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}
	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("get userinfo: %w", err)
	}
	if info.Id == "" || info.Email == "" {
		return GoogleProfile{}, errors.New("google profile without id or email")
	}

	name := info.Name
	if name == "" {
		name = strings.Split(info.Email, "@")[0]
	}
	return GoogleProfile{ID: info.Id, Email: info.Email, Name: name}, nil
}
