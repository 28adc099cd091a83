package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"markethub_api/config"
	"markethub_api/internal/currency"
	"markethub_api/pkg/apperr"
)

// ConversionHandler exposes the operator rate controls: read the active
// rate, set a new one and optionally propagate it across stored prices.
type ConversionHandler struct {
	manager *currency.Manager
	pair    config.CurrencyConfig
}

func NewConversionHandler(manager *currency.Manager, pair config.CurrencyConfig) *ConversionHandler {
	return &ConversionHandler{manager: manager, pair: pair}
}

func (h *ConversionHandler) GetRateHandler(w http.ResponseWriter, r *http.Request) {
	rate, err := h.manager.ActiveRate(r.Context(), h.pair.FromCurrency, h.pair.ToCurrency)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from": h.pair.FromCurrency,
		"to":   h.pair.ToCurrency,
		"rate": rate,
	})
}

type setRateRequest struct {
	Rate      decimal.Decimal `json:"rate"`
	Propagate bool            `json:"propagate"`
}

func (h *ConversionHandler) SetRateHandler(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.manager.SetRate(r.Context(), h.pair.FromCurrency, h.pair.ToCurrency, req.Rate); err != nil {
		var vErr *apperr.ValidationError
		if errors.As(err, &vErr) {
			respondError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated := 0
	if req.Propagate {
		var err error
		updated, err = h.manager.PropagateRate(r.Context(), req.Rate)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rate":             req.Rate,
		"products_updated": updated,
	})
}
