package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"tbarimtBack/internal/models"
	"tbarimtBack/internal/services"
)

type PaymentHandler struct {
	Service  *services.PaymentService
	Poller   *services.PaymentPoller
	ErrorLog *log.Logger
}

func NewPaymentHandler(s *services.PaymentService, p *services.PaymentPoller, errorLog *log.Logger) *PaymentHandler {
	return &PaymentHandler{Service: s, Poller: p, ErrorLog: errorLog}
}

// CreateInvoice starts a QPay purchase for a product. The response carries
// the invoice id, the QR payloads and the banking-app deep links; a
// background watcher picks up the payment from here.
func (h *PaymentHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID int  `json:"product_id"`
		Unique    bool `json:"unique"`
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

	var inv models.Invoice
	var err error
	if req.Unique {
		inv, err = h.Service.CreateUniqueInvoice(r.Context(), userID, req.ProductID)
	} else {
		inv, err = h.Service.CreateProductInvoice(r.Context(), userID, req.ProductID)
	}
	if err != nil {
		http.Error(w, "create invoice: "+err.Error(), createInvoiceStatus(err))
		return
	}

	h.watch(inv.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoice": inv})
}

func (h *PaymentHandler) CreateMembershipInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MembershipID int  `json:"membership_id"`
		ExtendOnly   bool `json:"extend_only"`
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

	inv, err := h.Service.CreateMembershipInvoice(r.Context(), userID, req.MembershipID, req.ExtendOnly)
	if err != nil {
		http.Error(w, "create invoice: "+err.Error(), createInvoiceStatus(err))
		return
	}

	h.watch(inv.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoice": inv})
}

func (h *PaymentHandler) CreateRecharge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
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

	inv, err := h.Service.CreateRechargeInvoice(r.Context(), userID, req.Amount)
	if err != nil {
		http.Error(w, "create invoice: "+err.Error(), createInvoiceStatus(err))
		return
	}

	h.watch(inv.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoice": inv})
}

// Check reports the invoice's current status. Clients call this on a timer
// while the QR is on screen; the server-side watcher does the same thing
// independently, so a closed tab does not lose the payment.
func (h *PaymentHandler) Check(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := strconv.Atoi(getParam(r, "invoice_id"))
	if err != nil {
		http.Error(w, "invalid invoice_id", http.StatusBadRequest)
		return
	}
	userID, ok := contextUserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Ownership is checked inside the service before the provider is
	// consulted; someone else's invoice id reads as not found.
	inv, token, err := h.Service.CheckInvoiceFor(r.Context(), userID, invoiceID)
	if err != nil {
		if errors.Is(err, models.ErrInvoiceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "check payment: "+err.Error(), qpayErrorStatus(err))
		return
	}

	resp := map[string]any{
		"success":    true,
		"invoice_id": inv.ID,
		"status":     inv.Status,
		"paid":       inv.Status == models.PaymentPaid,
	}
	if token != nil {
		resp["download_token"] = map[string]any{
			"token":     token.Token,
			"expiresAt": token.ExpiresAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Callback is the QPay webhook. The body is only a hint; the status is
// always re-checked against the provider before settling.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	providerInvoiceID := getParam(r, "qpay_payment_id")
	if providerInvoiceID == "" {
		var req struct {
			InvoiceID string `json:"invoice_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			providerInvoiceID = req.InvoiceID
		}
	}
	if providerInvoiceID == "" {
		http.Error(w, "missing invoice_id", http.StatusBadRequest)
		return
	}

	if err := h.Service.HandleCallback(r.Context(), providerInvoiceID); err != nil {
		if errors.Is(err, models.ErrInvoiceNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.ErrorLog.Printf("qpay callback %s: %v", providerInvoiceID, err)
		http.Error(w, "callback: "+err.Error(), qpayErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := contextUserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	invoices, err := h.Service.History(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

// watch starts the background poller for a fresh invoice. An already
// running watcher is fine, any other failure is only logged.
func (h *PaymentHandler) watch(invoiceID int) {
	if h.Poller == nil {
		return
	}
	_, err := h.Poller.Start(invoiceID, func(services.PollResult) {})
	if err != nil && !errors.Is(err, models.ErrPollerActive) {
		h.ErrorLog.Printf("start poller for invoice %d: %v", invoiceID, err)
	}
}

func createInvoiceStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrMembershipNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrProductNotForSale),
		errors.Is(err, models.ErrMembershipMismatch),
		errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	}
	return qpayErrorStatus(err)
}

func qpayErrorStatus(err error) int {
	var apiErr *services.QPayError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
