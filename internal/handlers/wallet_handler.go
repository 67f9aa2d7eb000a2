package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"tbarimtBack/internal/models"
	"tbarimtBack/internal/services"
)

type WalletHandler struct {
	Service *services.WalletService
}

func NewWalletHandler(s *services.WalletService) *WalletHandler {
	return &WalletHandler{Service: s}
}

// PayWithWallet is the balance shortcut: no invoice, no QR, no polling. The
// download token comes back in the same response.
func (h *WalletHandler) PayWithWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, ok := contextUserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token, balance, err := h.Service.PayWithWallet(r.Context(), userID, req.ProductID)
	if err != nil {
		http.Error(w, "wallet payment: "+err.Error(), walletErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"download_token": map[string]any{
			"token":     token.Token,
			"expiresAt": token.ExpiresAt,
		},
		"new_balance": balance,
	})
}

func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(getParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}
	authID, ok := contextUserID(r)
	if !ok || authID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	balance, err := h.Service.Balance(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "balance": balance})
}

func walletErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrProductNotFound), errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrProductNotForSale), errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
