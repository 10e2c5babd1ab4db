package operator

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/drydock-dev/drydock/internal/api/response"
	"github.com/drydock-dev/drydock/internal/auth"
)

type AuthHandler struct {
	jwtMgr        *auth.JWTManager
	adminUsername string
	adminPassHash string
}

// NewAuthHandler creates a simple auth handler with a single admin user.
// For production, set DRYDOCK_ADMIN_PASSWORD_HASH; the fallback hash of
// "admin" exists only for local development.
func NewAuthHandler(jwtMgr *auth.JWTManager, adminUsername, adminPassHash string) *AuthHandler {
	if adminPassHash == "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		adminPassHash = string(hash)
	}
	return &AuthHandler{
		jwtMgr:        jwtMgr,
		adminUsername: adminUsername,
		adminPassHash: adminPassHash,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.KindValidation, "invalid request body")
		return
	}

	if req.Username != h.adminUsername {
		response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPassHash), []byte(req.Password)); err != nil {
		response.Error(w, http.StatusUnauthorized, response.KindUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.Generate(req.Username, req.Username)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, response.KindInternal, "failed to generate token")
		return
	}

	response.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}
