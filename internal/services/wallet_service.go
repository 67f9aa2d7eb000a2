package services

import (
	"context"
	"fmt"

	"tbarimtBack/internal/models"
)

// WalletService is the instant-payment shortcut: balance permitting, the
// purchase completes in one request with no invoice and no polling.
type WalletService struct {
	Wallet    WalletStore
	Products  ProductStore
	Downloads *DownloadService
}

// PayWithWallet debits the buyer and hands back a fresh download token plus
// the new balance. The debit is conditional on sufficient funds; failures
// after the debit refund it.
func (s *WalletService) PayWithWallet(ctx context.Context, userID, productID int) (models.DownloadToken, float64, error) {
	p, err := s.Products.GetByID(ctx, productID)
	if err != nil {
		return models.DownloadToken{}, 0, err
	}
	if p.Status != models.ProductStatusActive || p.UniqueOwner != nil {
		return models.DownloadToken{}, 0, models.ErrProductNotForSale
	}
	if p.Price <= 0 {
		return models.DownloadToken{}, 0, models.ErrInvalidAmount
	}

	ref := fmt.Sprintf("product:%d", productID)
	balance, err := s.Wallet.Debit(ctx, userID, p.Price, ref)
	if err != nil {
		return models.DownloadToken{}, 0, err
	}

	if err := s.Products.RecordSale(ctx, productID, userID, p.Price, "wallet"); err != nil {
		_, _ = s.Wallet.Credit(ctx, userID, p.Price, "refund:"+ref)
		return models.DownloadToken{}, 0, err
	}

	token, err := s.Downloads.Issue(ctx, userID, productID, nil)
	if err != nil {
		_, _ = s.Wallet.Credit(ctx, userID, p.Price, "refund:"+ref)
		return models.DownloadToken{}, 0, err
	}
	return token, balance, nil
}

func (s *WalletService) Balance(ctx context.Context, userID int) (float64, error) {
	return s.Wallet.GetBalance(ctx, userID)
}
