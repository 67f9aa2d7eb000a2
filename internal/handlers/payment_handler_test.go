package handlers

import (
	"errors"
	"net/http"
	"testing"

	"tbarimtBack/internal/models"
	"tbarimtBack/internal/services"
)

func TestQpayErrorStatus(t *testing.T) {
	t.Run("propagates 4xx", func(t *testing.T) {
		status := qpayErrorStatus(&services.QPayError{StatusCode: http.StatusNotFound})
		if status != http.StatusNotFound {
			t.Fatalf("expected %d, got %d", http.StatusNotFound, status)
		}
	})

	t.Run("defaults otherwise", func(t *testing.T) {
		err := errors.New("generic error")
		status := qpayErrorStatus(err)
		if status != http.StatusBadGateway {
			t.Fatalf("expected %d, got %d", http.StatusBadGateway, status)
		}

		status = qpayErrorStatus(&services.QPayError{StatusCode: http.StatusInternalServerError})
		if status != http.StatusBadGateway {
			t.Fatalf("expected %d, got %d", http.StatusBadGateway, status)
		}
	})
}

func TestCreateInvoiceStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrProductNotFound, http.StatusNotFound},
		{models.ErrMembershipNotFound, http.StatusNotFound},
		{models.ErrProductNotForSale, http.StatusBadRequest},
		{models.ErrMembershipMismatch, http.StatusBadRequest},
		{models.ErrInvalidAmount, http.StatusBadRequest},
		{&services.QPayError{StatusCode: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := createInvoiceStatus(tt.err); got != tt.want {
			t.Errorf("createInvoiceStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDownloadErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrTokenNotFound, http.StatusNotFound},
		{models.ErrTokenUsed, http.StatusConflict},
		{models.ErrTokenExpired, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := downloadErrorStatus(tt.err); got != tt.want {
			t.Errorf("downloadErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWalletErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrInsufficientBalance, http.StatusPaymentRequired},
		{models.ErrProductNotFound, http.StatusNotFound},
		{models.ErrUserNotFound, http.StatusNotFound},
		{models.ErrProductNotForSale, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := walletErrorStatus(tt.err); got != tt.want {
			t.Errorf("walletErrorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
