// Package mesh implements the MES education portal API client.
// This package handles all communication with the portal: issuing session
// tokens from parent credentials and fetching per-day lesson schedules.
package mesh

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the portal API client.
type ClientConfig struct {
	// BaseURL is the portal base URL
	BaseURL string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// TokenTTL is the assumed token lifetime when the portal does not
	// report a usable expiry
	TokenTTL time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:  baseURL,
		Timeout:  30 * time.Second,
		TokenTTL: 24 * time.Hour,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the MES portal API client. It holds no session state: the
// token is issued by Authenticate and passed back in on every schedule
// query, so concurrent calls for different parents never share anything.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new portal API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = 24 * time.Hour
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// Authenticate exchanges parent credentials for a session token. The
// returned expiry falls back to now+TokenTTL when the portal omits or
// mangles expires_at.
//
// Failures are classified into exactly two kinds: rejected credentials
// and everything else. A portal that is down must never read as "wrong
// password" to the user.
func (c *Client) Authenticate(ctx context.Context, creds parent.Credentials) (string, time.Time, error) {
	fullURL := c.config.BaseURL + "/api/v1/auth/signin"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return "", time.Time{}, shared.WrapError("mesh", "authenticate", shared.ErrUnavailable, "create request", err)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(creds.Login + ":" + creds.Password))
	req.Header.Set("Authorization", "Basic "+encoded)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, shared.WrapError("mesh", "authenticate", shared.ErrUnavailable, "portal unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, shared.WrapError("mesh", "authenticate", shared.ErrUnavailable, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", time.Time{}, shared.NewDomainError("mesh", "authenticate", shared.ErrAuthenticationFailed,
			fmt.Sprintf("portal rejected credentials (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", time.Time{}, shared.NewDomainError("mesh", "authenticate", shared.ErrUnavailable,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var signIn signInResponse
	if err := json.Unmarshal(respBody, &signIn); err != nil {
		return "", time.Time{}, shared.WrapError("mesh", "authenticate", shared.ErrUnavailable, "parse sign-in response", err)
	}
	if signIn.AccessToken == "" {
		return "", time.Time{}, shared.NewDomainError("mesh", "authenticate", shared.ErrUnavailable,
			"sign-in response carries no access token")
	}

	expiresAt := c.parseExpiry(ctx, signIn.ExpiresAt)

	if c.config.Debug {
		logctx.From(ctx, c.logger).Debug("portal sign-in ok", "expires_at", expiresAt)
	}

	return signIn.AccessToken, expiresAt, nil
}

// parseExpiry parses the portal's expires_at, falling back to the
// configured TTL. The field has been observed absent and in non-RFC3339
// shapes, so the fallback path is routine, not exceptional.
func (c *Client) parseExpiry(ctx context.Context, raw string) time.Time {
	if raw == "" {
		return timeutil.Now().Add(c.config.TokenTTL)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, timeutil.MoscowTZ); err == nil {
			return t
		}
	}
	logctx.From(ctx, c.logger).Warn("unparsable token expiry from portal, assuming default TTL", "raw", raw)
	return timeutil.Now().Add(c.config.TokenTTL)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// QuerySchedule fetches one calendar day of lessons for a child. The
// token comes from the session manager; an expired or revoked token
// surfaces as an authentication failure for the caller to escalate.
func (c *Client) QuerySchedule(ctx context.Context, token string, child *parent.Child, date time.Time) ([]schedule.Lesson, error) {
	day := timeutil.FormatISODate(date)

	params := url.Values{}
	params.Set("person_ids", child.PersonID)
	params.Set("begin_date", day)
	params.Set("end_date", day)
	params.Set("expand", "lesson_type")

	fullURL := c.config.BaseURL + "/api/eventcalendar/v1/api/events?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, shared.WrapError("mesh", "query_schedule", shared.ErrUnavailable, "create request", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Mes-Subsystem", "familyweb")

	if c.config.Debug {
		logctx.From(ctx, c.logger).Debug("portal schedule request", "student_id", child.StudentID, "date", day)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.WrapError("mesh", "query_schedule", shared.ErrUnavailable, "portal unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.WrapError("mesh", "query_schedule", shared.ErrUnavailable, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, shared.NewDomainError("mesh", "query_schedule", shared.ErrAuthenticationFailed,
			fmt.Sprintf("portal rejected token (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, shared.NewDomainError("mesh", "query_schedule", shared.ErrUnavailable,
			fmt.Sprintf("portal unavailable (status %d)", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, shared.NewDomainError("mesh", "query_schedule", shared.ErrInvalidResponse,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var events eventsResponse
	if err := json.Unmarshal(respBody, &events); err != nil {
		return nil, shared.WrapError("mesh", "query_schedule", shared.ErrInvalidResponse, "parse events response", err)
	}

	lessons := mapLessons(events.Response)

	if c.config.Debug {
		logctx.From(ctx, c.logger).Debug("portal schedule response",
			"student_id", child.StudentID, "date", day,
			"events", len(events.Response), "lessons", len(lessons))
	}

	return lessons, nil
}
