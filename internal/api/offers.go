package api

import (
	"net/http"

	"github.com/erazemk/nepremicnine/internal/market"
	"github.com/erazemk/nepremicnine/internal/model"
)

// OffersHandler exposes the offer ledger and the accept/reject decisions.
type OffersHandler struct {
	Market *market.Service
}

// ListForListing handles GET /api/listings/{id}/offers.
func (h *OffersHandler) ListForListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	offers, err := h.Market.Ledger.ForListing(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(offers))
}

// Submit handles POST /api/listings/{id}/offers.
func (h *OffersHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in market.OfferInput
	if err := decodeJSON(w, r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	offer, err := h.Market.Ledger.Submit(r.Context(), actorFrom(r), id, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, offer)
}

// Accept handles POST /api/listings/{id}/offers/{offerID}/accept.
func (h *OffersHandler) Accept(w http.ResponseWriter, r *http.Request) {
	listingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	offerID, ok := pathID(w, r, "offerID")
	if !ok {
		return
	}

	decision, err := h.Market.Coordinator.AcceptOffer(r.Context(), actorFrom(r), listingID, offerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, decision)
}

// Reject handles POST /api/listings/{id}/offers/{offerID}/reject.
func (h *OffersHandler) Reject(w http.ResponseWriter, r *http.Request) {
	listingID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	offerID, ok := pathID(w, r, "offerID")
	if !ok {
		return
	}

	offer, err := h.Market.Coordinator.RejectOffer(r.Context(), actorFrom(r), listingID, offerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, offer)
}

// Mine handles GET /api/offers (?status=).
func (h *OffersHandler) Mine(w http.ResponseWriter, r *http.Request) {
	status := model.OfferStatus(r.URL.Query().Get("status"))

	offers, err := h.Market.Ledger.Mine(r.Context(), actorFrom(r), status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, emptyIfNil(offers))
}

// Get handles GET /api/offers/{id}.
func (h *OffersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.Market.Ledger.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, offer)
}

// Withdraw handles POST /api/offers/{id}/withdraw.
func (h *OffersHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.Market.Ledger.Withdraw(r.Context(), actorFrom(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, offer)
}
