package api

import (
	"context"
	"net/http"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

func (c *Client) ListNews(ctx context.Context) ([]models.News, error) {
	var out []models.News
	if err := c.do(ctx, http.MethodGet, "/news", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var out []models.LeaderboardEntry
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadyPayment asks the backend to prepare a point purchase
func (c *Client) ReadyPayment(ctx context.Context, itemName string, amount int) (*models.PaymentReady, error) {
	var out models.PaymentReady
	body := map[string]interface{}{"itemName": itemName, "totalAmount": amount}
	if err := c.do(ctx, http.MethodPost, "/payments/ready", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
