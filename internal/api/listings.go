package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/nepremicnine/internal/blob"
	"github.com/erazemk/nepremicnine/internal/imaging"
	"github.com/erazemk/nepremicnine/internal/logging"
	"github.com/erazemk/nepremicnine/internal/market"
	"github.com/erazemk/nepremicnine/internal/model"
)

// ListingsHandler exposes the listing registry, its photos and moderation.
type ListingsHandler struct {
	Market         *market.Service
	Blobs          blob.Store
	MaxUploadBytes int64
}

type reviewRequest struct {
	Note string `json:"note"`
}

// List handles GET /api/listings (?status=).
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.ListingFilter{Status: model.ListingStatus(r.URL.Query().Get("status"))}

	listings, err := h.Market.Registry.List(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(listings))
}

// ReviewQueue handles GET /api/listings/review.
func (h *ListingsHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Market.Registry.ReviewQueue(r.Context(), actorFrom(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(listings))
}

// Create handles POST /api/listings.
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var attrs model.ListingAttrs
	if err := decodeJSON(w, r, &attrs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	listing, err := h.Market.Registry.Create(r.Context(), actorFrom(r), attrs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, listing)
}

// Get handles GET /api/listings/{id}.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	listing, err := h.Market.Registry.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, listing)
}

// Update handles PUT /api/listings/{id}.
func (h *ListingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var attrs model.ListingAttrs
	if err := decodeJSON(w, r, &attrs); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	listing, err := h.Market.Registry.Edit(r.Context(), actorFrom(r), id, attrs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, listing)
}

// Delete handles DELETE /api/listings/{id}.
func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Market.Registry.Delete(r.Context(), actorFrom(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "listing deleted"})
}

// listingAction adapts a listing state change to a handler.
func listingAction(fn func(r *http.Request, id int64) (*model.Listing, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		listing, err := fn(r, id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, listing)
	}
}

// Submit handles POST /api/listings/{id}/submit.
func (h *ListingsHandler) Submit() http.HandlerFunc {
	return listingAction(func(r *http.Request, id int64) (*model.Listing, error) {
		return h.Market.Registry.SubmitForReview(r.Context(), actorFrom(r), id)
	})
}

// Approve handles POST /api/listings/{id}/approve.
func (h *ListingsHandler) Approve() http.HandlerFunc {
	return listingAction(func(r *http.Request, id int64) (*model.Listing, error) {
		return h.Market.Moderation.ApproveListing(r.Context(), actorFrom(r), id)
	})
}

// Sold handles POST /api/listings/{id}/sold.
func (h *ListingsHandler) Sold() http.HandlerFunc {
	return listingAction(func(r *http.Request, id int64) (*model.Listing, error) {
		return h.Market.Coordinator.CompleteSale(r.Context(), actorFrom(r), id)
	})
}

// Reject handles POST /api/listings/{id}/reject. The body is optional.
func (h *ListingsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req reviewRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	listing, err := h.Market.Moderation.RejectListing(r.Context(), actorFrom(r), id, req.Note)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, listing)
}

// UploadPhoto handles PUT /api/listings/{id}/photos. The multipart field
// "photo" is normalized, stored and attached to the listing.
func (h *ListingsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, ok := readUpload(w, r, "photo", h.MaxUploadBytes, imaging.NormalizePhoto)
	if !ok {
		return
	}

	ctx := r.Context()
	ref, err := h.Blobs.Put(ctx, doc.MIME, doc.Data)
	if err != nil {
		logging.FromContext(ctx).Error("failed to store photo", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	listing, err := h.Market.Registry.AddPhoto(ctx, actorFrom(r), id, ref)
	if err != nil {
		if delErr := h.Blobs.Delete(ctx, ref); delErr != nil {
			logging.FromContext(ctx).Error("failed to remove unattached photo", "ref", ref, "error", delErr)
		}
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, listing)
}

// DeletePhoto handles DELETE /api/listings/{id}/photos/{photoID}.
func (h *ListingsHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	photoID, ok := pathID(w, r, "photoID")
	if !ok {
		return
	}

	listing, err := h.Market.Registry.RemovePhoto(r.Context(), actorFrom(r), id, photoID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, listing)
}

// Photo handles GET /api/listings/{id}/photos/{photoID}.
func (h *ListingsHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	photoID, ok := pathID(w, r, "photoID")
	if !ok {
		return
	}

	listing, err := h.Market.Registry.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var ref string
	for _, p := range listing.Photos {
		if p.ID == photoID {
			ref = p.Ref
		}
	}
	if ref == "" {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}

	data, mime, err := h.Blobs.Get(r.Context(), ref)
	if errors.Is(err, blob.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load photo", "ref", ref, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(data)
}
