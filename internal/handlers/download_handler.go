package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"tbarimtBack/internal/models"
	"tbarimtBack/internal/services"
)

type DownloadHandler struct {
	Service  *services.DownloadService
	ErrorLog *log.Logger
}

func NewDownloadHandler(s *services.DownloadService, errorLog *log.Logger) *DownloadHandler {
	return &DownloadHandler{Service: s, ErrorLog: errorLog}
}

// Download redeems the single-use token and streams the file. The token is
// consumed before the first byte is sent; a second attempt gets 409.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := getParam(r, "token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	_, stream, err := h.Service.Redeem(r.Context(), token)
	if err != nil {
		http.Error(w, err.Error(), downloadErrorStatus(err))
		return
	}
	defer stream.Reader.Close()

	if stream.ContentType != "" {
		w.Header().Set("Content-Type", stream.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if stream.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(stream.Size))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.FileName))

	if _, err := io.Copy(w, stream.Reader); err != nil {
		// Headers are already out; nothing left to do but log.
		h.ErrorLog.Printf("stream download: %v", err)
	}
}

func downloadErrorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrTokenUsed):
		return http.StatusConflict
	case errors.Is(err, models.ErrTokenExpired):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}
