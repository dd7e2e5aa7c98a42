package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// CreateConversation creates a conversation for one question submission
func (c *Client) CreateConversation(ctx context.Context, title string) (*models.Conversation, error) {
	var out models.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, map[string]string{"title": title}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConversations lists the member's conversations, newest first
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var out []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteConversation removes one conversation
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+strconv.FormatInt(id, 10), nil, nil, nil)
}
