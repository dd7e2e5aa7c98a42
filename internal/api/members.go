package api

import (
	"context"
	"net/http"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// LoginResult carries the issued token and the member profile
type LoginResult struct {
	Token  string        `json:"token"`
	Member models.Member `json:"member"`
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/members/login", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignupRequest is the payload of a new member registration
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// Signup registers a new member
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/members/signup", nil, req, nil)
}

// Me returns the profile of the authenticated member
func (c *Client) Me(ctx context.Context) (*models.Member, error) {
	var out models.Member
	if err := c.do(ctx, http.MethodGet, "/members/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
