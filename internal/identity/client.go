package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"castfeed/pkg/logx"
)

// Client talks to the identity-lookup service (bulk user fetch by fid).
type Client struct {
	base   string
	apiKey string
	http   *http.Client
	log    logx.Logger
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		log:    log,
	}
}

type userRecord struct {
	FID         int64  `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"pfp_url"`
	Location    string `json:"location"`
	Website     string `json:"website"`
}

type usersResponse struct {
	Users []userRecord `json:"users"`
}

// LookupUsers fetches profiles for the given fids in one batched call.
// Partial results are normal: ids the service does not know are simply
// absent from the returned slice.
func (c *Client) LookupUsers(ctx context.Context, fids []int64) ([]Profile, error) {
	if len(fids) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(fids))
	for _, fid := range fids {
		parts = append(parts, strconv.FormatInt(fid, 10))
	}

	u := c.base + "/users?fids=" + url.QueryEscape(strings.Join(parts, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("identity lookup failed: http=%d", resp.StatusCode)
	}

	var out usersResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("identity lookup decode: %w", err)
	}

	profiles := make([]Profile, 0, len(out.Users))
	for _, u := range out.Users {
		if u.FID <= 0 {
			continue
		}
		profiles = append(profiles, Profile{
			FID:         u.FID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Bio:         u.Bio,
			AvatarURL:   u.AvatarURL,
			Location:    u.Location,
			Website:     u.Website,
		})
	}
	c.log.Debug("identity lookup", logx.Int("requested", len(fids)), logx.Int("returned", len(profiles)))
	return profiles, nil
}
