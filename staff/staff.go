// Package staff authenticates staff members against the Staff table and
// opens sessions for them.
package staff

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/model"
	"github.com/villacheck/server/rows"
	"github.com/villacheck/server/session"
	"github.com/villacheck/server/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Login is the result of a successful login.
type Login struct {
	Token   string `json:"token"`
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Login   string `json:"login"`
}

// Service handles login and logout.
type Service struct {
	store     *store.Client
	table     string
	sessions  *session.Store
	plaintext bool
	logger    *zap.Logger
}

// Options for NewService.
type Options struct {
	Table string
	// AllowPlaintext accepts password cells that are not bcrypt hashes.
	AllowPlaintext bool
}

// NewService creates a Service.
func NewService(st *store.Client, sessions *session.Store, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		table:     opts.Table,
		sessions:  sessions,
		plaintext: opts.AllowPlaintext,
		logger:    logger,
	}
}

// Login checks login and password against the Staff table. The login is
// matched case-insensitively; both inputs are trimmed.
func (s *Service) Login(ctx context.Context, login, password string) (*Login, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, apperr.Invalid("login", "required")
	}

	grid, err := s.store.Read(ctx, s.table, "")
	if err != nil {
		return nil, err
	}
	var found *model.Staff
	for _, rec := range rows.ToRecords(grid, 0) {
		st := model.StaffFromRecord(rec)
		if st.Login != "" && strings.EqualFold(st.Login, login) {
			found = &st
			break
		}
	}
	if found == nil || !s.verify(found.Password, strings.TrimSpace(password)) {
		s.logger.Info("login rejected", zap.String("login", login))
		return nil, apperr.Unauthorized(apperr.MsgInvalidCredentials)
	}

	id := session.Identity{StaffID: found.StaffID, Name: found.Name, Login: login}
	token, err := s.sessions.Create(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staff logged in", zap.String("staff_id", id.StaffID))
	return &Login{Token: token, StaffID: id.StaffID, Name: id.Name, Login: id.Login}, nil
}

func (s *Service) verify(stored, password string) bool {
	if stored == "" {
		return false
	}
	if isBcrypt(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("unreadable password hash", zap.Error(err))
		}
		return err == nil
	}
	if !s.plaintext {
		s.logger.Warn("plaintext password in staff table rejected")
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// Logout destroys the session of token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, strings.TrimSpace(token))
}

// Authenticate resolves a session token.
func (s *Service) Authenticate(ctx context.Context, token string) (session.Identity, error) {
	if token == "" {
		return session.Identity{}, apperr.Unauthorized(apperr.MsgNotAuthenticated)
	}
	id, err := s.sessions.Lookup(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return session.Identity{}, apperr.Unauthorized(apperr.MsgSessionExpired)
	}
	return id, err
}

// HashPassword returns the bcrypt hash stored in the password column.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(password)), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
