package services

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNormalizeQRImage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "data url passes through",
			in:   "data:image/png;base64,iVBORw0KGgoAAAA",
			want: "data:image/png;base64,iVBORw0KGgoAAAA",
		},
		{
			name: "https url passes through",
			in:   "https://qpay.mn/q/abc.png",
			want: "https://qpay.mn/q/abc.png",
		},
		{
			name: "bare png base64 gets prefixed",
			in:   "iVBORw0KGgoAAAANSUhEUg",
			want: "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg",
		},
		{
			name: "bare jpeg base64 gets prefixed",
			in:   "/9j/4AAQSkZJRg",
			want: "data:image/jpeg;base64,/9j/4AAQSkZJRg",
		},
		{
			name: "server-relative path is not displayable",
			in:   "/images/qr/123.png",
			want: "",
		},
		{
			name: "empty stays empty",
			in:   "   ",
			want: "",
		},
		{
			name: "unknown payload defaults to png",
			in:   "AAAABBBBCCCC",
			want: "data:image/png;base64,AAAABBBBCCCC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeQRImage(tt.in)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeQRImage_Idempotent(t *testing.T) {
	in := "iVBORw0KGgoAAAANSUhEUg"
	once := NormalizeQRImage(in)
	twice := NormalizeQRImage(once)
	if once != twice {
		t.Fatalf("normalization is not idempotent: %q vs %q", once, twice)
	}
}

func TestRenderQRText(t *testing.T) {
	out, err := RenderQRText("0002010102121531279404962794049600000000KKTA0016")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/png;base64,") {
		t.Fatalf("expected png data url, got %q", out[:30])
	}
	raw := strings.TrimPrefix(out, "data:image/png;base64,")
	if _, err := base64.StdEncoding.DecodeString(raw); err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}
}

func TestDisplayableQR(t *testing.T) {
	t.Run("prefers provider image", func(t *testing.T) {
		got, err := DisplayableQR("iVBORw0KGgoAAAA", "some-qr-text")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "data:image/png;base64,iVBORw0KGgoAAAA" {
			t.Fatalf("unexpected image: %q", got)
		}
	})

	t.Run("falls back to rendering the text", func(t *testing.T) {
		got, err := DisplayableQR("/qr/hosted.png", "some-qr-text")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got, "data:image/png;base64,") {
			t.Fatalf("expected rendered png data url, got %q", got)
		}
	})

	t.Run("nothing to show", func(t *testing.T) {
		got, err := DisplayableQR("", "  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Fatalf("expected empty result, got %q", got)
		}
	})
}
