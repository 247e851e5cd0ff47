package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/villacheck/server/apperr"
	"github.com/villacheck/server/audit"
	mw "github.com/villacheck/server/middleware"
	"github.com/villacheck/server/staff"
	"go.uber.org/zap"
)

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	staff   *staff.Service
	audit   Auditor
	timeout time.Duration
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *staff.Service, a Auditor, timeout time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{staff: svc, audit: orNop(a), timeout: timeout, logger: logger}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	ctx, cancel := storeContext(c, h.timeout)
	defer cancel()
	res, err := h.staff.Login(ctx, req.Login, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrAuth) {
			e := auditEntry(c, audit.ActionLoginFailed, start)
			e.Login = req.Login
			h.audit.Log(e)
		}
		writeError(c, h.logger, err)
		return
	}

	e := auditEntry(c, audit.ActionLogin, start)
	e.StaffID, e.Login = res.StaffID, res.Login
	h.audit.Log(e)

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"token":    res.Token,
		"staff_id": res.StaffID,
		"name":     res.Name,
		"login":    res.Login,
	})
}

// Logout handles POST /api/auth/logout. The token comes from the Bearer
// header or a {"token"} body; unknown tokens are ignored.
func (h *AuthHandler) Logout(c *gin.Context) {
	start := time.Now()
	token := mw.BearerToken(c)
	if token == "" && c.Request.ContentLength != 0 {
		var body struct {
			Token string `json:"token"`
		}
		_ = bindJSON(c, &body)
		token = body.Token
	}
	if token != "" {
		ctx, cancel := storeContext(c, h.timeout)
		defer cancel()
		id, authErr := h.staff.Authenticate(ctx, token)
		if err := h.staff.Logout(ctx, token); err != nil {
			writeError(c, h.logger, err)
			return
		}
		if authErr == nil {
			e := auditEntry(c, audit.ActionLogout, start)
			e.StaffID, e.Login = id.StaffID, id.Login
			h.audit.Log(e)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	id, ok := mw.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apperr.MsgNotAuthenticated})
		return
	}
	c.JSON(http.StatusOK, id)
}
