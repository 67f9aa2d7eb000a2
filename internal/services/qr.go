package services

import (
	"encoding/base64"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// QPay is not consistent about how it ships the invoice QR: sometimes a
// ready data URL, sometimes a bare base64 image, sometimes a link to a
// hosted image. NormalizeQRImage is the one place that ambiguity lives.
const (
	pngBase64Prefix  = "iVBORw0KGgo" // base64 of the PNG magic bytes
	jpegBase64Prefix = "/9j/"        // base64 of the JPEG SOI marker
)

// NormalizeQRImage turns whatever the provider sent into something an <img>
// can display, or "" when there is nothing displayable and the caller must
// fall back to rendering the QR text locally.
//
// Already-valid inputs (data URLs, http(s) URLs) pass through unchanged.
func NormalizeQRImage(payload string) string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ""
	}
	if strings.HasPrefix(payload, "data:") ||
		strings.HasPrefix(payload, "http://") ||
		strings.HasPrefix(payload, "https://") {
		return payload
	}
	if strings.HasPrefix(payload, pngBase64Prefix) {
		return "data:image/png;base64," + payload
	}
	if strings.HasPrefix(payload, jpegBase64Prefix) {
		return "data:image/jpeg;base64," + payload
	}
	// A bare path is not resolvable from here; let the caller fall back.
	if strings.HasPrefix(payload, "/") {
		return ""
	}
	// Unknown but present: the providers observed so far only ever send
	// base64 PNG without a prefix, so default to that.
	return "data:image/png;base64," + payload
}

// RenderQRText generates a QR image locally from the invoice deep-link text
// and returns it as a PNG data URL.
func RenderQRText(text string) (string, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// DisplayableQR resolves the image the storefront should show for an
// invoice: the normalized provider image when usable, otherwise a locally
// rendered QR of the text payload.
func DisplayableQR(qrImage, qrText string) (string, error) {
	if img := NormalizeQRImage(qrImage); img != "" {
		return img, nil
	}
	if strings.TrimSpace(qrText) == "" {
		return "", nil
	}
	return RenderQRText(qrText)
}
