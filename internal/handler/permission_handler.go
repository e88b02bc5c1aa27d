package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docspace/internal/auth"
	"docspace/internal/domain"
	"docspace/internal/service"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
	userService       *service.UserService
	verifier          *auth.Verifier
}

type grantRequest struct {
	FileID    *int64 `json:"file_id,omitempty"`
	FolderID  *int64 `json:"folder_id,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	TeamID    *int64 `json:"team_id,omitempty"`
	Ability   int16  `json:"ability"`
}

type setAbilityRequest struct {
	Ability int16 `json:"ability"`
}

type effectiveAbilityResponse struct {
	Ability *int16 `json:"ability"`
}

func NewPermissionHandler(
	permissionService *service.PermissionService,
	userService *service.UserService,
	verifier *auth.Verifier,
) *PermissionHandler {
	return &PermissionHandler{
		permissionService: permissionService,
		userService:       userService,
		verifier:          verifier,
	}
}

func resourceFromQuery(r *http.Request) (domain.Resource, error) {
	var res domain.Resource
	if fileStr := r.URL.Query().Get("file_id"); fileStr != "" {
		id, err := strconv.ParseInt(fileStr, 10, 64)
		if err != nil {
			return res, err
		}
		res.FileID = &id
	}
	if folderStr := r.URL.Query().Get("folder_id"); folderStr != "" {
		id, err := strconv.ParseInt(folderStr, 10, 64)
		if err != nil {
			return res, err
		}
		res.FolderID = &id
	}
	return res, res.Validate()
}

// Grant выдаёт право субъекту на ресурс. Пользователя можно указать либо
// идентификатором, либо адресом почты.
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	principal := domain.Principal{UserID: req.UserID, TeamID: req.TeamID}
	if req.UserID == nil && req.TeamID == nil && req.UserEmail != "" {
		user, err := h.userService.GetByEmail(r.Context(), req.UserEmail)
		if err != nil {
			writeError(w, err)
			return
		}
		principal = domain.UserPrincipal(user.ID)
	}

	ability, err := domain.ParseAbility(req.Ability)
	if err != nil {
		writeError(w, err)
		return
	}

	res := domain.Resource{FileID: req.FileID, FolderID: req.FolderID}
	perm, err := h.permissionService.Grant(r.Context(), userID, res, principal, ability)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, perm)
}

func (h *PermissionHandler) ListByResource(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	res, err := resourceFromQuery(r)
	if err != nil {
		http.Error(w, "Invalid resource reference", http.StatusBadRequest)
		return
	}

	perms, err := h.permissionService.GetResourcePermissions(r.Context(), userID, res)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, perms)
}

// GetEffectiveAbility возвращает эффективный уровень доступа текущего
// пользователя к ресурсу, null если доступа нет.
func (h *PermissionHandler) GetEffectiveAbility(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	res, err := resourceFromQuery(r)
	if err != nil {
		http.Error(w, "Invalid resource reference", http.StatusBadRequest)
		return
	}

	ability, err := h.permissionService.EffectiveAbility(r.Context(), res, domain.UserPrincipal(userID))
	if err != nil {
		writeError(w, err)
		return
	}

	var resp effectiveAbilityResponse
	if ability != nil {
		v := int16(*ability)
		resp.Ability = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PermissionHandler) SetAbility(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	permissionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}

	var req setAbilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ability, err := domain.ParseAbility(req.Ability)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.permissionService.SetAbility(r.Context(), userID, permissionID, ability); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	permissionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid permission ID", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.Revoke(r.Context(), userID, permissionID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
