package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vedran77/courier/internal/domain"
	"github.com/vedran77/courier/internal/service"
	"github.com/vedran77/courier/internal/transport/http/middleware"
	"github.com/vedran77/courier/pkg/validator"
)

type Groups interface {
	Create(ctx context.Context, owner string, input service.CreateGroupInput) (*domain.Group, error)
	List(ctx context.Context, username string) (*service.GroupListResponse, error)
	Join(ctx context.Context, groupID int64, username string) (bool, error)
	Leave(ctx context.Context, groupID int64, username string) (bool, error)
	Update(ctx context.Context, groupID int64, username string, input service.UpdateGroupInput) (*domain.Group, error)
}

type GroupHandler struct {
	groups Groups
}

func NewGroupHandler(groups Groups) *GroupHandler {
	return &GroupHandler{groups: groups}
}

const (
	statusJoined        = "joined"
	statusAlreadyMember = "already_member"
	statusLeft          = "left"
	statusNotMember     = "not_member"
)

type membershipResponse struct {
	Status string `json:"status"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsername(r.Context())

	var input service.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	g, err := h.groups.Create(r.Context(), username, input)
	if err != nil {
		internalError(w, r, "create group", err)
		return
	}

	writeJSON(w, http.StatusCreated, g)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.groups.List(r.Context(), middleware.GetUsername(r.Context()))
	if err != nil {
		internalError(w, r, "list groups", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	joined, err := h.groups.Join(r.Context(), groupID, middleware.GetUsername(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		} else {
			internalError(w, r, "join group", err)
		}
		return
	}

	status := statusJoined
	if !joined {
		status = statusAlreadyMember
	}
	writeJSON(w, http.StatusOK, membershipResponse{Status: status})
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	left, err := h.groups.Leave(r.Context(), groupID, middleware.GetUsername(r.Context()))
	if err != nil {
		internalError(w, r, "leave group", err)
		return
	}

	status := statusLeft
	if !left {
		status = statusNotMember
	}
	writeJSON(w, http.StatusOK, membershipResponse{Status: status})
}

func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFromPath(w, r)
	if !ok {
		return
	}

	var input service.UpdateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.Struct(input); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	g, err := h.groups.Update(r.Context(), groupID, middleware.GetUsername(r.Context()), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGroupNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Group not found")
		case errors.Is(err, service.ErrNotGroupMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only group members can update it")
		default:
			internalError(w, r, "update group", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, g)
}

func groupIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid group ID")
		return 0, false
	}
	return id, true
}
