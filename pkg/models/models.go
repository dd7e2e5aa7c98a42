package models

import (
	"fmt"
	"strings"
	"time"
)

// ModelInfo identifies one selectable chat model
type ModelInfo struct {
	ID    string // key used by the coordinator, e.g. "gpt"
	Name  string // display name
	Brand string // provider brand sent to the stream endpoint
}

// ParseModelInfo parses "id", "id:brand" or "id:brand:Display Name"
func ParseModelInfo(s string) (ModelInfo, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if parts[0] == "" {
		return ModelInfo{}, fmt.Errorf("invalid model %q", s)
	}
	m := ModelInfo{ID: parts[0], Brand: parts[0], Name: parts[0]}
	if len(parts) > 1 && parts[1] != "" {
		m.Brand = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		m.Name = parts[2]
	}
	return m, nil
}

// Turn is one question/answer exchange inside a conversation
type Turn struct {
	Role    string    `json:"role"`
	Model   string    `json:"model,omitempty"`
	Content string    `json:"content"`
	Created time.Time `json:"createdAt"`
}

// Conversation is owned by the authenticated member
type Conversation struct {
	ID        int64     `json:"conversationId"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member represents the logged-in user profile
type Member struct {
	ID           int64  `json:"memberId" toml:"id"`
	Email        string `json:"email" toml:"email"`
	Nickname     string `json:"nickname" toml:"nickname"`
	Point        int    `json:"point" toml:"point"`
	ProfileImage string `json:"profileImage" toml:"profile_image"`
}

// Board is a discussion board post
type Board struct {
	ID           int64     `json:"boardId"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Writer       string    `json:"writer"`
	CreatedAt    time.Time `json:"createdAt"`
	ViewCount    int       `json:"viewCount"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
}

// BoardPage is one page of board posts
type BoardPage struct {
	Boards     []Board `json:"content"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
}

// Comment on a board post
type Comment struct {
	ID        int64     `json:"commentId"`
	BoardID   int64     `json:"boardId"`
	Content   string    `json:"content"`
	Writer    string    `json:"writer"`
	CreatedAt time.Time `json:"createdAt"`
}

// News is an aggregated news item
type News struct {
	ID          int64     `json:"newsId"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Job is a job listing
type Job struct {
	ID       int64     `json:"jobId"`
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	Location string    `json:"location"`
	URL      string    `json:"url"`
	Deadline time.Time `json:"deadline"`
}

// LeaderboardEntry is one ranked member
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Nickname string `json:"nickname"`
	Point    int    `json:"point"`
}

// PaymentReady is the backend answer to a payment-ready request
type PaymentReady struct {
	TID         string `json:"tid"`
	RedirectURL string `json:"nextRedirectPcUrl"`
}
