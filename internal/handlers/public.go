package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/services"
)

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, HealthResponse{Status: "ok"})
}

// handleGetStats returns the public raffle summary
func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetStats(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, stats)
}

// handleAuthorize places the payment hold that an entry is later bound to
func (h *Handlers) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	hold, err := h.Payments.Authorize(r.Context(), services.AuthorizeInput{
		CardToken: req.CardToken,
		Email:     req.Email,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondCreated(w, hold)
}

// handleSubmitEntry allocates a number for a held payment and captures it
func (h *Handlers) handleSubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	entry, err := h.Entries.SubmitEntry(r.Context(), models.Contact{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, req.PaymentRef)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondCreated(w, entry)
}

// handleGetBoard lists taken numbers without participant details
func (h *Handlers) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.Entries.ListTakenNumbers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, BoardResponse{Numbers: numbers, Count: len(numbers)})
}

// handleEntryQR serves the ticket QR code for a confirmed entry
func (h *Handlers) handleEntryQR(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		h.respondError(w, BadRequest("Missing id parameter"))
		return
	}

	png, err := h.Entries.TicketQR(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(png)
}
