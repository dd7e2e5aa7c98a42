package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// ListBoards returns one page of board posts (pages start at 0)
func (c *Client) ListBoards(ctx context.Context, page int) (*models.BoardPage, error) {
	var out models.BoardPage
	q := url.Values{"page": {strconv.Itoa(page)}}
	if err := c.do(ctx, http.MethodGet, "/boards", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBoard returns one post
func (c *Client) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	var out models.Board
	if err := c.do(ctx, http.MethodGet, boardPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBoard publishes a post and returns it
func (c *Client) CreateBoard(ctx context.Context, title, content string) (*models.Board, error) {
	var out models.Board
	body := map[string]string{"title": title, "content": content}
	if err := c.do(ctx, http.MethodPost, "/boards", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBoard removes a post
func (c *Client) DeleteBoard(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, boardPath(id), nil, nil, nil)
}

// ListComments returns the comments of a post
func (c *Client) ListComments(ctx context.Context, boardID int64) ([]models.Comment, error) {
	var out []models.Comment
	if err := c.do(ctx, http.MethodGet, boardPath(boardID)+"/comments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment adds a comment to a post
func (c *Client) CreateComment(ctx context.Context, boardID int64, content string) (*models.Comment, error) {
	var out models.Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, boardPath(boardID)+"/comments", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment removes a comment
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func boardPath(id int64) string {
	return "/boards/" + strconv.FormatInt(id, 10)
}
