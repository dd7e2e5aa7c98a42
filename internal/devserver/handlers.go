package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// PageSize is the number of board posts per page
const PageSize = 10

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"code": status, "message": msg, "data": nil})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.RLock()
	acc, found := s.accounts[strings.ToLower(req.Email)]
	s.mu.RUnlock()
	if !found || acc.password != req.Password {
		fail(c, http.StatusBadRequest, "invalid email or password")
		return
	}

	token, err := s.IssueToken(acc.member.ID, acc.member.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, gin.H{"token": token, "member": acc.member})
}

func (s *Server) signup(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "email, password and nickname are required")
		return
	}
	if len(req.Password) < 6 {
		fail(c, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(req.Email)
	if _, exists := s.accounts[email]; exists {
		fail(c, http.StatusConflict, "email already registered")
		return
	}
	s.accounts[email] = &account{
		member:   models.Member{ID: s.id(), Email: email, Nickname: req.Nickname},
		password: req.Password,
	}
	ok(c, nil)
}

func (s *Server) me(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.member.ID == memberID(c) {
			ok(c, acc.member)
			return
		}
	}
	fail(c, http.StatusUnauthorized, "unknown member")
}

func (s *Server) nickname(id int64) string {
	for _, acc := range s.accounts {
		if acc.member.ID == id {
			return acc.member.Nickname
		}
	}
	return ""
}

func (s *Server) createConversation(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Title) == "" {
		req.Title = "New conversation"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv := &conversation{
		Conversation: models.Conversation{ID: s.id(), Title: req.Title, CreatedAt: time.Now()},
		owner:        memberID(c),
	}
	s.conversations[conv.ID] = conv
	ok(c, conv.Conversation)
}

func (s *Server) listConversations(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.owner == memberID(c) {
			out = append(out, conv.Conversation)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	ok(c, out)
}

// ownedConversation must be called with s.mu held
func (s *Server) ownedConversation(c *gin.Context, id int64) (*conversation, bool) {
	conv, found := s.conversations[id]
	if !found || conv.owner != memberID(c) {
		fail(c, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	return conv, true
}

func (s *Server) deleteConversation(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.ownedConversation(c, id); !found {
		return
	}
	delete(s.conversations, id)
	ok(c, nil)
}

func (s *Server) listBoards(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		fail(c, http.StatusBadRequest, "invalid page")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	total := (len(s.boards) + PageSize - 1) / PageSize
	out := models.BoardPage{Boards: []models.Board{}, Page: page, TotalPages: total}
	// newest first
	for i := len(s.boards) - 1 - page*PageSize; i >= 0 && len(out.Boards) < PageSize; i-- {
		out.Boards = append(out.Boards, *s.boards[i])
	}
	ok(c, out)
}

// findBoard must be called with s.mu held
func (s *Server) findBoard(id int64) (int, *models.Board) {
	for i, b := range s.boards {
		if b.ID == id {
			return i, b
		}
	}
	return -1, nil
}

func (s *Server) getBoard(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findBoard(id)
	if b == nil {
		fail(c, http.StatusNotFound, "board not found")
		return
	}
	b.ViewCount++
	ok(c, b)
}

func (s *Server) createBoard(c *gin.Context) {
	var req struct {
		Title   string `json:"title" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "title and content are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := &models.Board{
		ID:        s.id(),
		Title:     req.Title,
		Content:   req.Content,
		Writer:    s.nickname(memberID(c)),
		CreatedAt: time.Now(),
	}
	s.boards = append(s.boards, b)
	ok(c, b)
}

func (s *Server) deleteBoard(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, b := s.findBoard(id)
	if b == nil {
		fail(c, http.StatusNotFound, "board not found")
		return
	}
	if b.Writer != s.nickname(memberID(c)) {
		fail(c, http.StatusForbidden, "only the writer can delete a post")
		return
	}
	s.boards = append(s.boards[:i], s.boards[i+1:]...)
	ok(c, nil)
}

func (s *Server) listComments(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, b := s.findBoard(id); b == nil {
		fail(c, http.StatusNotFound, "board not found")
		return
	}
	out := make([]models.Comment, 0)
	for _, cm := range s.comments {
		if cm.BoardID == id {
			out = append(out, *cm)
		}
	}
	ok(c, out)
}

func (s *Server) createComment(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findBoard(id)
	if b == nil {
		fail(c, http.StatusNotFound, "board not found")
		return
	}
	cm := &models.Comment{
		ID:        s.id(),
		BoardID:   id,
		Content:   req.Content,
		Writer:    s.nickname(memberID(c)),
		CreatedAt: time.Now(),
	}
	s.comments = append(s.comments, cm)
	b.CommentCount++
	ok(c, cm)
}

func (s *Server) deleteComment(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cm := range s.comments {
		if cm.ID != id {
			continue
		}
		if cm.Writer != s.nickname(memberID(c)) {
			fail(c, http.StatusForbidden, "only the writer can delete a comment")
			return
		}
		if _, b := s.findBoard(cm.BoardID); b != nil {
			b.CommentCount--
		}
		s.comments = append(s.comments[:i], s.comments[i+1:]...)
		ok(c, nil)
		return
	}
	fail(c, http.StatusNotFound, "comment not found")
}

func (s *Server) listNews(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok(c, s.news)
}

func (s *Server) listJobs(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ok(c, s.jobs)
}

func (s *Server) leaderboard(c *gin.Context) {
	s.mu.RLock()
	members := make([]models.Member, 0, len(s.accounts))
	for _, acc := range s.accounts {
		members = append(members, acc.member)
	}
	s.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool {
		if members[i].Point != members[j].Point {
			return members[i].Point > members[j].Point
		}
		return members[i].ID < members[j].ID
	})
	out := make([]models.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		out = append(out, models.LeaderboardEntry{Rank: i + 1, Nickname: m.Nickname, Point: m.Point})
	}
	ok(c, out)
}

func (s *Server) readyPayment(c *gin.Context) {
	var req struct {
		ItemName    string `json:"itemName" binding:"required"`
		TotalAmount int    `json:"totalAmount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalAmount <= 0 {
		fail(c, http.StatusBadRequest, "itemName and a positive totalAmount are required")
		return
	}
	tid := "T" + strings.ReplaceAll(uuid.New().String(), "-", "")[:19]
	ok(c, models.PaymentReady{
		TID:         tid,
		RedirectURL: "https://online-pay.example.com/mockup/" + tid,
	})
}
