// Copyright (c) 2025 Gatekeep
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backendtest runs an in-process fake of the authentication backend
// for tests. It serves the login, who-am-I, roles and logout endpoints at
// their default paths, records every call, and can be told to fail any
// endpoint with a chosen status code.
package backendtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gatekeep/cli/internal/model"

	"github.com/gin-gonic/gin"
)

// Call is one recorded request.
type Call struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	UserAgent     string
}

type account struct {
	password string
	user     model.User
	roles    []model.Role
}

// Server is a fake backend. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account // by email
	sessions map[string]string   // token -> email
	calls    []Call
	failures map[string]int // route -> status
	issued   int

	// MeIncludesRoles makes the who-am-I endpoint send the role list too.
	MeIncludesRoles bool
}

// Route names accepted by Fail.
const (
	RouteLogin  = "login"
	RouteMe     = "me"
	RouteRoles  = "roles"
	RouteLogout = "logout"
)

// New starts a fake backend that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		failures: make(map[string]int),
	}

	r := gin.New()
	r.Use(s.record)
	r.POST("/auth/login", s.failable(RouteLogin), s.login)
	r.GET("/auth/me", s.failable(RouteMe), s.authenticated, s.me)
	r.GET("/users/:id/roles", s.failable(RouteRoles), s.authenticated, s.roles)
	r.POST("/auth/logout", s.failable(RouteLogout), s.authenticated, s.logout)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddAccount registers credentials, the user returned at login and the user's roles.
func (s *Server) AddAccount(email, password string, user model.User, roles ...model.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Roles = nil
	if roles == nil {
		roles = []model.Role{}
	}
	s.accounts[email] = &account{password: password, user: user, roles: roles}
}

// IssueToken opens a session for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

func (s *Server) issueLocked(email string) string {
	s.issued++
	token := fmt.Sprintf("t%d", s.issued)
	s.sessions[token] = email
	return token
}

// Fail makes route answer with status until Recover is called.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// Recover clears an injected failure.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Calls returns a copy of the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo counts recorded requests whose path starts with prefix.
func (s *Server) CallsTo(prefix string) int {
	n := 0
	for _, c := range s.Calls() {
		if strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// SessionActive reports whether token is still valid on the backend.
func (s *Server) SessionActive(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	return ok
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-ID"),
		UserAgent:     c.GetHeader("User-Agent"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) failable(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		status, ok := s.failures[route]
		s.mu.Unlock()
		if ok {
			c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
			return
		}
		c.Next()
	}
}

func (s *Server) authenticated(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	email, ok := s.sessions[token]
	s.mu.Unlock()

	if header == "" || !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
		return
	}
	c.Set("email", email)
	c.Set("token", token)
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	if !ok || acct.password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token := s.issueLocked(req.Email)
	user := acct.user
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (s *Server) me(c *gin.Context) {
	s.mu.Lock()
	acct := s.accounts[c.GetString("email")]
	user := acct.user
	if s.MeIncludesRoles {
		user.Roles = acct.roles
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, user)
}

func (s *Server) roles(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.user.ID.String() == id {
			c.JSON(http.StatusOK, acct.roles)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
}

func (s *Server) logout(c *gin.Context) {
	s.mu.Lock()
	delete(s.sessions, c.GetString("token"))
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}
