// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/models"
)

// pageSize is the number of group members requested per call.
const pageSize = 100

// KeycloakClient resolves user group members through the Keycloak admin API
// using a service account.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	members *gocache.Cache
}

// Option configures a KeycloakClient.
type Option func(*KeycloakClient)

// WithMembersTTL keeps resolved group members in memory for ttl, so one
// sweep asks Keycloak once per group.
func WithMembersTTL(ttl time.Duration) Option {
	return func(k *KeycloakClient) {
		if ttl > 0 {
			k.members = gocache.New(ttl, 2*ttl)
		}
	}
}

// member is a user as returned by the admin API.
type member struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Enabled   bool   `json:"enabled"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, opts ...Option) *KeycloakClient {
	k := &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// token returns a cached service-account token, fetching a new one with the
// client credentials flow once it expires.
func (k *KeycloakClient) token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && k.tokenExpiry.After(time.Now()) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("keycloak token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	k.accessToken = tokenResp.AccessToken
	// refresh slightly early so a token never expires mid-request
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 10*time.Second)
	return k.accessToken, nil
}

// GroupMembers lists the enabled members of a Keycloak group, following
// pagination until a short page is returned.
func (k *KeycloakClient) GroupMembers(ctx context.Context, groupID string) ([]models.User, error) {
	if k.members != nil {
		if cached, ok := k.members.Get(groupID); ok {
			return cached.([]models.User), nil
		}
	}

	token, err := k.token(ctx)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeAuthentication,
			Message:   "Failed to authenticate with Keycloak",
			Details:   err.Error(),
			Retryable: true,
		}
	}

	var users []models.User
	for first := 0; ; first += pageSize {
		page, err := k.membersPage(ctx, token, groupID, first)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if !m.Enabled {
				continue
			}
			users = append(users, models.User{
				ID:        m.ID,
				Username:  m.Username,
				FirstName: m.FirstName,
				LastName:  m.LastName,
				Email:     m.Email,
			})
		}
		if len(page) < pageSize {
			if k.members != nil {
				k.members.SetDefault(groupID, users)
			}
			return users, nil
		}
	}
}

func (k *KeycloakClient) membersPage(ctx context.Context, token, groupID string, first int) ([]member, error) {
	membersURL := fmt.Sprintf("%s/admin/realms/%s/groups/%s/members?first=%d&max=%d",
		k.baseURL, k.realm, url.PathEscape(groupID), first, pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, membersURL, nil)
	if err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeInternal,
			Message:   "Failed to create group members request",
			Details:   err.Error(),
			Retryable: false,
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewResourceNotFoundError("keycloak", fmt.Sprintf("group %s", groupID))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeExternalService,
			Message:   "Keycloak API error during group member lookup",
			Details:   fmt.Sprintf("Status: %d, Body: %s", resp.StatusCode, string(body)),
			Retryable: isTransientHTTPError(resp.StatusCode),
		}
	}

	var page []member
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeExternalService,
			Message:   "Failed to decode group members",
			Details:   err.Error(),
			Retryable: false,
		}
	}
	return page, nil
}

// isTransientHTTPError returns true if the status code indicates a potentially transient error.
func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
