package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/chanceraffle/internal/auth"
	"github.com/abrezinsky/chanceraffle/internal/models"
	"github.com/abrezinsky/chanceraffle/internal/services"
)

// ===== Settings =====

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.Get(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, settings)
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	settings, err := h.Settings.Update(r.Context(), services.SettingsPatch{
		CampaignName:            req.CampaignName,
		PrizeDescription:        req.PrizeDescription,
		CashValue:               req.CashValue,
		IsActive:                req.IsActive,
		OverflowEnabled:         req.OverflowEnabled,
		OverflowDurationMinutes: req.OverflowDurationMinutes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.Log.Info("Settings updated", "admin", auth.AdminEmail(r.Context()))
	respondOK(w, settings)
}

// ===== Entries =====

func (h *Handlers) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Entries.ListEntries(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, EntriesResponse{Entries: entries, Count: len(entries)})
}

func (h *Handlers) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Entries.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, entry)
}

func (h *Handlers) handleCreateManualEntry(w http.ResponseWriter, r *http.Request) {
	var req ManualEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	entry, err := h.Entries.CreateManualEntry(r.Context(), services.ManualEntry{
		Contact: models.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone},
		Number:  req.Number,
		Amount:  req.Amount,
		Notes:   req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.Log.Info("Manual entry created", "admin", auth.AdminEmail(r.Context()),
		"entry_id", entry.ID, "number", entry.AssignedNumber)
	respondCreated(w, entry)
}

func (h *Handlers) handleRefundEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Entries.RefundEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.Log.Info("Entry refunded", "admin", auth.AdminEmail(r.Context()), "entry_id", entry.ID)
	respondOK(w, entry)
}

// ===== Winner =====

func (h *Handlers) handleDrawWinner(w http.ResponseWriter, r *http.Request) {
	result, err := h.Winner.DrawWinner(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !result.AlreadyDrawn {
		h.Log.Info("Winner drawn", "admin", auth.AdminEmail(r.Context()),
			"entry_id", result.Entry.ID, "number", result.Entry.AssignedNumber)
	}
	respondOK(w, result)
}

func (h *Handlers) handleGetWinner(w http.ResponseWriter, r *http.Request) {
	winner, err := h.Winner.GetWinner(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	if winner == nil {
		h.respondError(w, NotFound("No winner has been drawn"))
		return
	}
	respondOK(w, winner)
}
