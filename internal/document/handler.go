package document

import (
	"encoding/json"
	"errors"
	"net/http"

	"studyhub/internal/document/model"
	"studyhub/internal/document/service"
	"studyhub/internal/share"
	"studyhub/middleware"
	"studyhub/pkg/apperr"
	"studyhub/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type DocumentHandler struct {
	Service *service.DocumentService
	Share   *share.Service
}

func NewDocumentHandler(svc *service.DocumentService, shareSvc *share.Service) *DocumentHandler {
	return &DocumentHandler{Service: svc, Share: shareSvc}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var spec model.CreateSpec
	_ = json.NewDecoder(r.Body).Decode(&spec) // Ignore error, defaults apply

	docID, err := h.Service.Create(userID, spec)
	if err != nil {
		writeError(w, "create document", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(model.CreateDocResponse{DocID: docID})
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	doc, err := h.Service.Get(userID, docID)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	var patch model.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.Update(userID, docID, patch); err != nil {
		writeError(w, "update document", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document updated successfully"))
}

func (h *DocumentHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	if err := h.Service.Archive(userID, docID); err != nil {
		writeError(w, "archive document", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document archived"))
}

func (h *DocumentHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	if err := h.Service.Restore(userID, docID); err != nil {
		writeError(w, "restore document", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document restored"))
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	if err := h.Service.Delete(userID, docID); err != nil {
		writeError(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Document deleted permanently"))
}

// ListDocuments handles GET /documents?kind=&parent=. Omitting parent
// selects top-level documents.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	kind := model.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = model.KindPrivate
	}

	var parentID *string
	if r.URL.Query().Has("parent") {
		parent := r.URL.Query().Get("parent")
		parentID = &parent
	}

	docs, err := h.Service.List(userID, kind, parentID)
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, docList(docs))
}

func (h *DocumentHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	docs, err := h.Service.ListArchived(userID)
	if err != nil {
		writeError(w, "list archived documents", err)
		return
	}
	writeJSON(w, docList(docs))
}

func (h *DocumentHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	docs, err := h.Service.ListChildren(userID, docID)
	if err != nil {
		writeError(w, "list children", err)
		return
	}
	writeJSON(w, docList(docs))
}

func (h *DocumentHandler) GenerateShareCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	docID := chi.URLParam(r, "documentID")

	code, err := h.Share.GenerateCode(userID, docID)
	if err != nil {
		writeError(w, "generate share code", err)
		return
	}
	writeJSON(w, model.ShareResponse{ShareCode: code})
}

func (h *DocumentHandler) JoinHub(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req model.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	docID, err := h.Share.Join(userID, req.Code)
	if err != nil {
		writeError(w, "join hub", err)
		return
	}
	writeJSON(w, model.JoinResponse{DocID: docID})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func docList(docs []model.Document) []model.Document {
	if docs == nil {
		return []model.Document{}
	}
	return docs
}

func writeError(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("Failed to %s: %v", op, err)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		logger.Sugar.Infof("Rejected %s: %v", op, err)
	}
	http.Error(w, apperr.Message(err), status)
}
