package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"tbarimtBack/internal/models"
)

type QPayConfig struct {
	Username    string
	Password    string
	InvoiceCode string
	// Merchant code payments are routed to; goes into invoice_receiver_code.
	ReceiverCode string

	// QPay merchant API base, e.g. https://merchant.qpay.mn
	BaseURL string

	// Webhook QPay calls once the invoice is paid.
	CallbackURL string

	Client *http.Client
	Logger *slog.Logger
}

type QPayService struct {
	username     string
	password     string
	invoiceCode  string
	receiverCode string
	baseURL      *url.URL
	callbackURL  string

	httpClient *http.Client
	logger     *slog.Logger

	// access token cache
	mu          sync.Mutex
	accessToken string
	tokenExp    time.Time
}

func NewQPayService(cfg QPayConfig) (*QPayService, error) {
	if strings.TrimSpace(cfg.Username) == "" ||
		strings.TrimSpace(cfg.Password) == "" ||
		strings.TrimSpace(cfg.InvoiceCode) == "" ||
		strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("qpay: username/password/invoice_code/base_url are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	s := &QPayService{
		username:     cfg.Username,
		password:     cfg.Password,
		invoiceCode:  cfg.InvoiceCode,
		receiverCode: cfg.ReceiverCode,
		baseURL:      u,
		callbackURL:  cfg.CallbackURL,
		httpClient:   client,
		logger:       logger,
	}
	logger.Info("QPay initialized",
		"baseURL", s.baseURL.String(),
		"callbackURL_set", s.callbackURL != "",
	)
	return s, nil
}

// ------- AUTH (access token) -------

func (s *QPayService) ensureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && time.Until(s.tokenExp) > 2*time.Minute {
		return s.accessToken, nil
	}

	type tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v2/auth/token")

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	req.SetBasicAuth(s.username, s.password)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("auth failed: %s %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out tokenResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("auth decode: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("auth: empty access_token")
	}
	s.accessToken = out.AccessToken
	if out.ExpiresIn > 0 {
		s.tokenExp = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	} else {
		s.tokenExp = time.Now().Add(55 * time.Minute)
	}
	return s.accessToken, nil
}

// ------- INVOICES -------

type qpayInvoiceRequest struct {
	InvoiceCode         string  `json:"invoice_code"`
	SenderInvoiceNo     string  `json:"sender_invoice_no"`
	InvoiceReceiverCode string  `json:"invoice_receiver_code"`
	InvoiceDescription  string  `json:"invoice_description"`
	Amount              float64 `json:"amount"`
	CallbackURL         string  `json:"callback_url"`
}

// QPayInvoiceResponse is the provider's answer to invoice creation. QRImage
// arrives in whatever shape QPay felt like sending; callers normalize it.
type QPayInvoiceResponse struct {
	InvoiceID string            `json:"invoice_id"`
	QRImage   string            `json:"qr_image"`
	QRText    string            `json:"qr_text"`
	URLs      []models.BankLink `json:"urls"`
}

func (s *QPayService) CreateInvoice(ctx context.Context, senderInvoiceNo string, amount float64, description string) (*QPayInvoiceResponse, error) {
	logger := s.logger.With("op", "CreateInvoice")
	token, err := s.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v2/invoice")

	body, _ := json.Marshal(qpayInvoiceRequest{
		InvoiceCode:         s.invoiceCode,
		SenderInvoiceNo:     senderInvoiceNo,
		InvoiceReceiverCode: s.receiverCode,
		InvoiceDescription:  description,
		Amount:              amount,
		CallbackURL:         s.callbackURL,
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoice request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	logger.Debug("invoice raw", "status", resp.Status, "body", trimBody(string(b), 2000))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &QPayError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	var out QPayInvoiceResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	if strings.TrimSpace(out.InvoiceID) == "" {
		return nil, errors.New("invoice: empty invoice_id")
	}
	return &out, nil
}

// ------- PAYMENT CHECK -------

type qpayCheckRequest struct {
	ObjectType string `json:"object_type"`
	ObjectID   string `json:"object_id"`
	Offset     struct {
		PageNumber int `json:"page_number"`
		PageLimit  int `json:"page_limit"`
	} `json:"offset"`
}

// QPayPaymentCheck is the distilled result of a status check.
type QPayPaymentCheck struct {
	Paid       bool
	PaidAmount float64
	PaymentID  string
}

func (s *QPayService) CheckPayment(ctx context.Context, providerInvoiceID string) (QPayPaymentCheck, error) {
	token, err := s.ensureToken(ctx)
	if err != nil {
		return QPayPaymentCheck{}, err
	}

	endpoint := *s.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v2/payment/check")

	reqBody := qpayCheckRequest{ObjectType: "INVOICE", ObjectID: providerInvoiceID}
	reqBody.Offset.PageNumber = 1
	reqBody.Offset.PageLimit = 100
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return QPayPaymentCheck{}, fmt.Errorf("payment check request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return QPayPaymentCheck{}, &QPayError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}

	var out struct {
		Count int `json:"count"`
		Rows  []struct {
			PaymentID     string  `json:"payment_id"`
			PaymentStatus string  `json:"payment_status"`
			PaymentAmount float64 `json:"payment_amount"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return QPayPaymentCheck{}, fmt.Errorf("decode payment check: %w", err)
	}

	var check QPayPaymentCheck
	for _, row := range out.Rows {
		if models.NormalizePaymentStatus(row.PaymentStatus) == models.PaymentPaid {
			check.Paid = true
			check.PaidAmount += row.PaymentAmount
			check.PaymentID = row.PaymentID
		}
	}
	return check, nil
}

// ---------- helpers ----------

func trimBody(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

type QPayError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *QPayError) Error() string {
	if e == nil {
		return "<nil>"
	}
	bt := strings.TrimSpace(e.Body)
	if bt == "" {
		return fmt.Sprintf("qpay error: %s", e.Status)
	}
	return fmt.Sprintf("qpay error: %s: %s", e.Status, bt)
}
