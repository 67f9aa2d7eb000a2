package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"tbarimtBack/internal/models"
)

// ObjectStorage streams stored product files. Satisfied by utils.S3Storage.
type ObjectStorage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, int64, string, error)
}

// FileStream is an open download ready to be copied to the client.
type FileStream struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
}

type DownloadService struct {
	Tokens   TokenStore
	Products ProductStore
	Storage  ObjectStorage
	Locks    Locker // optional
}

// Issue mints a fresh single-use token for a settled purchase. invoiceID is
// nil for wallet payments, which never create an invoice.
func (s *DownloadService) Issue(ctx context.Context, userID, productID int, invoiceID *int) (models.DownloadToken, error) {
	now := time.Now()
	t := models.DownloadToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		InvoiceID: invoiceID,
		ExpiresAt: now.Add(models.DownloadTokenTTL),
		CreatedAt: now,
	}
	id, err := s.Tokens.Create(ctx, t)
	if err != nil {
		return models.DownloadToken{}, err
	}
	t.ID = id
	return t, nil
}

// Redeem consumes the token and opens the underlying file. The store's
// conditional update makes the token single-use; the optional lock only
// collapses concurrent attempts across instances before they hit the DB.
func (s *DownloadService) Redeem(ctx context.Context, token string) (models.DownloadToken, FileStream, error) {
	if s.Locks != nil {
		ok, err := s.Locks.TryLock(ctx, "download:"+token, 30*time.Second)
		if err == nil && !ok {
			return models.DownloadToken{}, FileStream{}, models.ErrTokenUsed
		}
	}

	t, err := s.Tokens.Redeem(ctx, token, time.Now())
	if err != nil {
		if s.Locks != nil {
			_ = s.Locks.Unlock(ctx, "download:"+token)
		}
		return models.DownloadToken{}, FileStream{}, err
	}

	p, err := s.Products.GetByID(ctx, t.ProductID)
	if err != nil {
		return models.DownloadToken{}, FileStream{}, err
	}

	reader, size, contentType, err := s.Storage.Download(ctx, p.FileKey)
	if err != nil {
		return models.DownloadToken{}, FileStream{}, err
	}
	if p.ContentType != "" {
		contentType = p.ContentType
	}
	return t, FileStream{Reader: reader, Size: size, ContentType: contentType, FileName: p.FileName}, nil
}
