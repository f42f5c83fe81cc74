package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yamdb/apiserver/internal/auth"
	"github.com/yamdb/apiserver/internal/policy"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/types"
)

// Users is the user management surface used by UserHandler.
type Users interface {
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Get(ctx context.Context, username string) (types.User, error)
	Update(ctx context.Context, username string, patch services.UserPatch) (types.User, error)
	UpdateSelf(ctx context.Context, self types.User, isAdmin bool, patch services.UserPatch) (types.User, error)
	Deactivate(ctx context.Context, username string) error
}

// UserCreator creates accounts on behalf of an administrator.
type UserCreator interface {
	CreateUser(ctx context.Context, req services.NewUserRequest) (types.User, error)
}

// UserHandler serves account administration and the caller's own profile.
type UserHandler struct {
	users   Users
	creator UserCreator
}

func NewUserHandler(users Users, creator UserCreator) *UserHandler {
	return &UserHandler{users: users, creator: creator}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, users Users, creator UserCreator) {
	handler := NewUserHandler(users, creator)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/me", handler.GetMe)
	r.Patch("/me", handler.UpdateMe)
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOnly, policy.ActionList, nil) {
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.users.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOnly, policy.ActionCreate, nil) {
		return
	}
	var req services.NewUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.creator.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOnly, policy.ActionRetrieve, nil) {
		return
	}
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOnly, policy.ActionUpdate, nil) {
		return
	}
	var patch services.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), chi.URLParam(r, "username"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete deactivates the account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOnly, policy.ActionDelete, nil) {
		return
	}
	if err := h.users.Deactivate(r.Context(), chi.URLParam(r, "username")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.Authenticated, policy.ActionRetrieve, nil) {
		return
	}
	writeJSON(w, http.StatusOK, auth.IdentityFrom(r.Context()).User)
}

// UpdateMe edits the caller's profile. Username, email and role are only
// honoured for administrators.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.Authenticated, policy.ActionUpdate, nil) {
		return
	}
	var patch services.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	identity := auth.IdentityFrom(r.Context())
	isAdmin := identity.Privilege >= auth.PrivilegeStaff
	user, err := h.users.UpdateSelf(r.Context(), *identity.User, isAdmin, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
