package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/erazemk/nepremicnine/internal/blob"
	"github.com/erazemk/nepremicnine/internal/imaging"
	"github.com/erazemk/nepremicnine/internal/logging"
	"github.com/erazemk/nepremicnine/internal/market"
	"github.com/erazemk/nepremicnine/internal/model"
)

// VerificationHandler handles investor identity verification.
type VerificationHandler struct {
	Market         *market.Service
	Blobs          blob.Store
	MaxUploadBytes int64
}

type verificationReviewRequest struct {
	Decision model.VerificationStatus `json:"decision"`
	Note     string                   `json:"note"`
}

// UploadDocument handles PUT /api/verification/document. The returned ref
// goes into the id_document_ref field of the submission.
func (h *VerificationHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := readUpload(w, r, "document", h.MaxUploadBytes, imaging.NormalizeDocument)
	if !ok {
		return
	}

	ref, err := h.Blobs.Put(r.Context(), doc.MIME, doc.Data)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to store document", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store document")
		return
	}

	logging.FromContext(r.Context()).Info("identity document uploaded", "ref", ref, "mime", doc.MIME, "size", len(doc.Data))
	jsonResponse(w, http.StatusCreated, map[string]string{"ref": ref, "mime": doc.MIME})
}

// readUpload reads the multipart file in field and normalizes it, writing a
// 400 when the upload is too large, missing or in the wrong format.
func readUpload(w http.ResponseWriter, r *http.Request, field string, maxBytes int64, normalize func(io.Reader) (*imaging.Document, error)) (*imaging.Document, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return nil, false
	}

	file, _, err := r.FormFile(field)
	if err != nil {
		jsonError(w, http.StatusBadRequest, field+" file required")
		return nil, false
	}
	defer file.Close()

	doc, err := normalize(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		jsonError(w, http.StatusBadRequest, "could not read "+field)
		return nil, false
	}
	return doc, true
}

// Submit handles POST /api/verification.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var attrs model.ProfileAttrs
	if err := decodeJSON(w, r, &attrs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attrs.IDDocumentRef = strings.TrimSpace(attrs.IDDocumentRef)
	if attrs.IDDocumentRef != "" {
		_, err := h.Blobs.Stat(r.Context(), attrs.IDDocumentRef)
		if errors.Is(err, blob.ErrNotFound) {
			jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "unknown id_document_ref, upload the document first", Code: "validation"})
			return
		}
		if err != nil {
			logging.FromContext(r.Context()).Error("failed to check document", "ref", attrs.IDDocumentRef, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to check document")
			return
		}
	}

	profile, err := h.Market.Gate.SubmitVerification(r.Context(), actorFrom(r), attrs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, profile)
}

// Mine handles GET /api/verification.
func (h *VerificationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	profile, err := h.Market.Gate.Profile(r.Context(), actor, actor.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// Pending handles GET /api/verifications.
func (h *VerificationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Market.Gate.Pending(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(profiles))
}

// Get handles GET /api/verifications/{investorID}.
func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	investorID, ok := pathID(w, r, "investorID")
	if !ok {
		return
	}

	profile, err := h.Market.Gate.Profile(r.Context(), actorFrom(r), investorID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// Document handles GET /api/verifications/{investorID}/document.
func (h *VerificationHandler) Document(w http.ResponseWriter, r *http.Request) {
	investorID, ok := pathID(w, r, "investorID")
	if !ok {
		return
	}

	profile, err := h.Market.Gate.Profile(r.Context(), actorFrom(r), investorID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if profile.IDDocumentRef == "" {
		jsonError(w, http.StatusNotFound, "no document")
		return
	}

	data, mime, err := h.Blobs.Get(r.Context(), profile.IDDocumentRef)
	if errors.Is(err, blob.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no document")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load document", "ref", profile.IDDocumentRef, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Write(data)
}

// Review handles POST /api/verifications/{investorID}/review.
func (h *VerificationHandler) Review(w http.ResponseWriter, r *http.Request) {
	investorID, ok := pathID(w, r, "investorID")
	if !ok {
		return
	}

	var req verificationReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := h.Market.Moderation.ReviewVerification(r.Context(), actorFrom(r), investorID, req.Decision, req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}
