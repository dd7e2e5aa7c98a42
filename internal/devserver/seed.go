package devserver

import (
	"time"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// Demo credentials of the seeded account
const (
	DemoEmail    = "demo@morningstar.dev"
	DemoPassword = "password"
)

func (s *Server) seed() {
	now := time.Now().Truncate(time.Second)

	demo := &account{
		member:   models.Member{ID: s.id(), Email: DemoEmail, Nickname: "demo", Point: 120},
		password: DemoPassword,
	}
	rival := &account{
		member:   models.Member{ID: s.id(), Email: "rival@morningstar.dev", Nickname: "rival", Point: 340},
		password: "rival-password",
	}
	s.accounts[demo.member.Email] = demo
	s.accounts[rival.member.Email] = rival

	s.boards = []*models.Board{
		{ID: s.id(), Title: "Welcome to the board", Content: "Introduce yourself here.", Writer: "rival", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: s.id(), Title: "Which model writes the best Go?", Content: "Compare them side by side with the chat view.", Writer: "demo", CreatedAt: now.Add(-2 * time.Hour)},
	}
	s.comments = []*models.Comment{
		{ID: s.id(), BoardID: s.boards[0].ID, Content: "Hello everyone", Writer: "demo", CreatedAt: now.Add(-47 * time.Hour)},
	}
	s.boards[0].CommentCount = 1

	s.news = []models.News{
		{ID: s.id(), Title: "Go 1.24 released", Source: "go.dev", URL: "https://go.dev/blog/go1.24", PublishedAt: now.Add(-72 * time.Hour)},
		{ID: s.id(), Title: "Terminal UIs are back", Source: "charm.sh", URL: "https://charm.sh/blog", PublishedAt: now.Add(-24 * time.Hour)},
	}
	s.jobs = []models.Job{
		{ID: s.id(), Title: "Backend Engineer (Go)", Company: "Skynet Labs", Location: "Seoul", URL: "https://jobs.example.com/1", Deadline: now.Add(30 * 24 * time.Hour)},
		{ID: s.id(), Title: "Platform Engineer", Company: "Morningstar", Location: "Remote", URL: "https://jobs.example.com/2", Deadline: now.Add(14 * 24 * time.Hour)},
	}
}
