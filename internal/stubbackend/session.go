package stubbackend

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmerrifield20/neosconnect/pkg/connector"
)

const (
	ctxUser      = "stub.user"
	ctxCSRFToken = "stub.csrf"
)

type session struct {
	user      string
	csrfToken string
}

type sessions struct {
	mu   sync.RWMutex
	byID map[string]session
}

func newSessions() *sessions {
	return &sessions{byID: map[string]session{}}
}

func (s *sessions) start(user string) (id string, sess session) {
	id = uuid.NewString()
	sess = session{user: user, csrfToken: uuid.NewString()}
	s.mu.Lock()
	s.byID[id] = sess
	s.mu.Unlock()
	return id, sess
}

func (s *sessions) get(id string) (session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	return sess, ok
}

func (s *sessions) end(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// login checks the username/password token of the login form. Success
// starts a session and answers with its anti-forgery token.
func (s *Server) login(c *gin.Context) {
	username := c.PostForm(connector.LoginUsernameField)
	password := c.PostForm(connector.LoginPasswordField)

	hash, ok := s.users[username]
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		s.logger.Info("login refused", zap.String("username", username))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false})
		return
	}

	id, sess := s.sessions.start(username)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true, "csrfToken": sess.csrfToken})
}

func (s *Server) logout(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil {
		s.sessions.end(id)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) requireSession(c *gin.Context) {
	id, err := c.Cookie(SessionCookie)
	if err != nil {
		abortJSON(c, http.StatusUnauthorized, "authentication required")
		return
	}
	sess, ok := s.sessions.get(id)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, "session expired")
		return
	}
	c.Set(ctxUser, sess.user)
	c.Set(ctxCSRFToken, sess.csrfToken)
	c.Next()
}

// requireCSRF accepts the token from the header or, for form posts, from
// the __csrfToken field.
func (s *Server) requireCSRF(c *gin.Context) {
	token := c.GetHeader(connector.CSRFHeader)
	if token == "" {
		token = c.PostForm("__csrfToken")
	}
	if token == "" || token != c.GetString(ctxCSRFToken) {
		abortJSON(c, http.StatusForbidden, "invalid csrf token")
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUser)
}
