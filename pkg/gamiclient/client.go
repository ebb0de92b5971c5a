// Package gamiclient is the client-side gamification engine: a typed REST
// client, a session-scoped progress store, an ephemeral notification queue,
// the award orchestration that ties them together, and an optimistic rating
// reconciler. It mirrors what the browser frontend does, as a Go SDK.
package gamiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/nightpulse/gamification/pkg/logger"
)

// Progress is the server's progress snapshot as seen by clients.
type Progress struct {
	UserID              uint    `json:"user_id"`
	TotalXP             int     `json:"total_xp"`
	CurrentLevel        int     `json:"current_level"`
	MonthlyXP           int     `json:"monthly_xp"`
	CurrentStreak       int     `json:"current_streak"`
	LongestStreak       int     `json:"longest_streak"`
	LevelName           string  `json:"level_name"`
	LevelIcon           string  `json:"level_icon"`
	XPForNextLevel      int     `json:"xp_for_next_level"`
	ProgressToNextLevel float64 `json:"progress_to_next_level"`
}

// BadgeInfo is a badge definition as embedded in earned-badge records.
type BadgeInfo struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rarity      string `json:"rarity"`
}

// Badge is one earned badge as returned by the my-badges endpoint.
type Badge struct {
	ID       uint      `json:"badge_id"`
	Badge    BadgeInfo `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
}

// MissionInfo is a mission definition as embedded in mission progress records.
type MissionInfo struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Icon     string `json:"icon"`
	RewardXP int    `json:"reward_xp"`
}

// Mission is one mission with the caller's current-period progress.
type Mission struct {
	Mission   MissionInfo `json:"mission"`
	Progress  int         `json:"progress"`
	Target    int         `json:"target"`
	Completed bool        `json:"completed"`
}

// AwardResponse is the server's answer to an XP award.
type AwardResponse struct {
	Success   bool `json:"success"`
	XPAwarded int  `json:"xpAwarded"`
	TotalXP   int  `json:"totalXp"`
	NewLevel  int  `json:"newLevel"`
	LeveledUp bool `json:"leveledUp"`
}

// ActionResponse is the server's answer to a check-in, follow, vote or rating.
type ActionResponse struct {
	Success   bool `json:"success"`
	XPAwarded int  `json:"xpAwarded"`
}

// Client is a cookie-authenticated HTTP client for the gamification API.
// The session cookie is expected to already be in the jar (set by the main
// site's login flow); the CSRF token is read from its cookie and echoed in
// the configured header on every mutating request.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	csrfCookieName string
	csrfHeaderName string
	log            *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithCSRF overrides the CSRF cookie and header names.
func WithCSRF(cookieName, headerName string) Option {
	return func(c *Client) {
		c.csrfCookieName = cookieName
		c.csrfHeaderName = headerName
	}
}

// NewClient creates a gamification API client.
func NewClient(baseURL string, log *logger.Logger, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
		csrfCookieName: "np_csrf",
		csrfHeaderName: "X-CSRF-Token",
		log:            log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetCookie seeds a cookie into the jar (session or CSRF token handed over
// by the login flow).
func (c *Client) SetCookie(name, value string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value}})
	return nil
}

// csrfToken reads the CSRF token cookie from the jar, empty if absent.
func (c *Client) csrfToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == c.csrfCookieName {
			return cookie.Value
		}
	}
	return ""
}

// doJSON performs a request with a JSON body and decodes a JSON response.
// Non-2xx responses are turned into errors carrying the server's message.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token := c.csrfToken(); token != "" {
			req.Header.Set(c.csrfHeaderName, token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		message := apiErr.Error
		if message == "" {
			message = apiErr.Message
		}
		if message == "" {
			message = resp.Status
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, message)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// FetchProgress retrieves the caller's progress snapshot.
func (c *Client) FetchProgress(ctx context.Context) (*Progress, error) {
	var resp struct {
		Progress Progress `json:"progress"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/gamification/my-progress", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Progress, nil
}

// FetchBadges retrieves the caller's earned badges.
func (c *Client) FetchBadges(ctx context.Context) ([]Badge, error) {
	var resp struct {
		Badges []Badge `json:"badges"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/gamification/my-badges", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Badges, nil
}

// FetchMissions retrieves the caller's missions with progress.
func (c *Client) FetchMissions(ctx context.Context) ([]Mission, error) {
	var resp struct {
		Missions []Mission `json:"missions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/gamification/my-missions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Missions, nil
}

// AwardXP posts an XP award request.
func (c *Client) AwardXP(ctx context.Context, amount int, reason, entityType, entityID string) (*AwardResponse, error) {
	body := map[string]interface{}{
		"xpAmount": amount,
		"reason":   reason,
	}
	if entityType != "" {
		body["entityType"] = entityType
	}
	if entityID != "" {
		body["entityId"] = entityID
	}

	var resp AwardResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/gamification/award-xp", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckIn posts a daily check-in.
func (c *Client) CheckIn(ctx context.Context, venueID uint) (*ActionResponse, error) {
	var resp ActionResponse
	body := map[string]interface{}{"venueId": venueID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/gamification/check-in", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Follow follows a venue.
func (c *Client) Follow(ctx context.Context, venueID uint) (*ActionResponse, error) {
	var resp ActionResponse
	path := fmt.Sprintf("/api/gamification/follow/%d", venueID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unfollow unfollows a venue.
func (c *Client) Unfollow(ctx context.Context, venueID uint) (*ActionResponse, error) {
	var resp ActionResponse
	path := fmt.Sprintf("/api/gamification/unfollow/%d", venueID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VoteHelpful votes on a review's helpfulness.
func (c *Client) VoteHelpful(ctx context.Context, reviewID uint, helpful bool) (*ActionResponse, error) {
	var resp ActionResponse
	path := fmt.Sprintf("/api/gamification/reviews/%d/vote", reviewID)
	body := map[string]interface{}{"helpful": helpful}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitRating upserts a 1-5 rating of an employee.
func (c *Client) SubmitRating(ctx context.Context, employeeID uint, value int) (*ActionResponse, error) {
	var resp ActionResponse
	body := map[string]interface{}{"employeeId": employeeID, "value": value}
	if err := c.doJSON(ctx, http.MethodPost, "/api/gamification/ratings", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyRating fetches the caller's stored rating of an employee; ok reports
// whether one exists.
func (c *Client) MyRating(ctx context.Context, employeeID uint) (int, bool, error) {
	var resp struct {
		Rating *struct {
			Value int `json:"value"`
		} `json:"rating"`
	}
	path := fmt.Sprintf("/api/gamification/ratings/%d/mine", employeeID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, false, err
	}
	if resp.Rating == nil {
		return 0, false, nil
	}
	return resp.Rating.Value, true, nil
}
