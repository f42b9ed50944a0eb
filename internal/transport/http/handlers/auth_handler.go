package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vedran77/courier/internal/presence"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/pkg/log"
	"github.com/vedran77/courier/pkg/validator"
)

// Accounts is the part of the auth service the HTTP layer needs.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.AuthResponse, error)
	Login(ctx context.Context, input service.LoginInput) (*service.AuthResponse, error)
	ListUsernames(ctx context.Context) ([]string, error)
}

type AuthHandler struct {
	accounts Accounts
	presence presence.Store
}

func NewAuthHandler(accounts Accounts, presence presence.Store) *AuthHandler {
	return &AuthHandler{accounts: accounts, presence: presence}
}

type usersResponse struct {
	Users []string `json:"users"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateRegister(input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.accounts.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "USERNAME_TAKEN", "Username is already taken")
		} else {
			internalError(w, r, "register", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateLogin(input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.accounts.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		} else {
			internalError(w, r, "login", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	names, err := h.accounts.ListUsernames(r.Context())
	if err != nil {
		internalError(w, r, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: names})
}

// Online lists users with at least one live session.
func (h *AuthHandler) Online(w http.ResponseWriter, r *http.Request) {
	names, err := h.presence.Online(r.Context())
	if err != nil {
		internalError(w, r, "list online users", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: names})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

func internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := log.Ctx(r.Context())
	logger.Error().Err(err).Msg(op)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}
