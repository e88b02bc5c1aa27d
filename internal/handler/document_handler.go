package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docspace/internal/auth"
	"docspace/internal/domain"
	"docspace/internal/service"
)

type DocumentHandler struct {
	namespaceService *service.NamespaceService
	versionService   *service.VersionService
	verifier         *auth.Verifier
}

type createDocumentRequest struct {
	Name     string `json:"name"`
	FileType string `json:"file_type"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func NewDocumentHandler(
	namespaceService *service.NamespaceService,
	versionService *service.VersionService,
	verifier *auth.Verifier,
) *DocumentHandler {
	return &DocumentHandler{
		namespaceService: namespaceService,
		versionService:   versionService,
		verifier:         verifier,
	}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	parentID := domain.RootFolderID
	if req.ParentID != nil {
		parentID = *req.ParentID
	}

	doc, err := h.namespaceService.CreateDocument(r.Context(), userID, parentID, req.Name, req.FileType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	doc, err := h.namespaceService.GetDocument(r.Context(), userID, documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// DownloadContent отдаёт содержимое последней версии документа.
func (h *DocumentHandler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	content, err := h.versionService.GetLatestContent(r.Context(), userID, documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// UploadContent записывает тело запроса новой версией документа. Заголовок
// Idempotency-Key защищает от двойной записи при повторе запроса.
func (h *DocumentHandler) UploadContent(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var key *uuid.UUID
	if keyStr := r.Header.Get("Idempotency-Key"); keyStr != "" {
		parsed, err := uuid.Parse(keyStr)
		if err != nil {
			http.Error(w, "Invalid Idempotency-Key header", http.StatusBadRequest)
			return
		}
		key = &parsed
	}

	version, err := h.versionService.AppendVersion(r.Context(), userID, documentID, content, key)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.VersionInfo{
		ID:            version.ID,
		VersionNumber: version.VersionNumber,
		AuthorID:      version.AuthorID,
		CreatedAt:     version.CreatedAt,
	})
}

func (h *DocumentHandler) GetVersionHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	history, err := h.versionService.GetHistory(r.Context(), userID, documentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (h *DocumentHandler) GetVersionContent(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	versionID, err := strconv.ParseInt(chi.URLParam(r, "versionID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	version, err := h.versionService.GetVersion(r.Context(), userID, versionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(version.Content)
}

// RevertVersion записывает содержимое старой версии новой версией в конец
// журнала.
func (h *DocumentHandler) RevertVersion(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	versionID, err := strconv.ParseInt(chi.URLParam(r, "versionID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	version, err := h.versionService.RevertTo(r.Context(), userID, versionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.VersionInfo{
		ID:            version.ID,
		VersionNumber: version.VersionNumber,
		AuthorID:      version.AuthorID,
		CreatedAt:     version.CreatedAt,
	})
}

func (h *DocumentHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	versionID, err := strconv.ParseInt(chi.URLParam(r, "versionID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	if err := h.versionService.DeleteVersion(r.Context(), userID, versionID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) RenameDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.namespaceService.RenameDocument(r.Context(), userID, documentID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *DocumentHandler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
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

	if err := h.namespaceService.MoveDocument(r.Context(), userID, documentID, newParentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	if err := h.namespaceService.DeleteDocument(r.Context(), userID, documentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
