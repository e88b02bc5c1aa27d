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

type FolderHandler struct {
	namespaceService *service.NamespaceService
	verifier         *auth.Verifier
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type moveRequest struct {
	ParentID *int64 `json:"parent_id,omitempty"`
}

type pathResponse struct {
	Path string `json:"path"`
}

func NewFolderHandler(namespaceService *service.NamespaceService, verifier *auth.Verifier) *FolderHandler {
	return &FolderHandler{
		namespaceService: namespaceService,
		verifier:         verifier,
	}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	parentID := domain.RootFolderID
	if req.ParentID != nil {
		parentID = *req.ParentID
	}

	folder, err := h.namespaceService.CreateFolder(r.Context(), userID, parentID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Без идентификатора отдаём корень
	folderID := domain.RootFolderID
	if idStr := chi.URLParam(r, "id"); idStr != "" {
		folderID, err = strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
	}

	entries, err := h.namespaceService.ListChildren(r.Context(), userID, folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *FolderHandler) GetFolderPath(w http.ResponseWriter, r *http.Request) {
	if _, err := h.verifier.VerifyToken(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	path, err := h.namespaceService.GetPath(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pathResponse{Path: path})
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.namespaceService.RenameFolder(r.Context(), userID, folderID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	newParentID := domain.RootFolderID
	if req.ParentID != nil {
		newParentID = *req.ParentID
	}

	if err := h.namespaceService.MoveFolder(r.Context(), userID, folderID, newParentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.namespaceService.DeleteFolder(r.Context(), userID, folderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
