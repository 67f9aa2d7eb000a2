package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"tbarimtBack/internal/models"
)

// memStores is a single in-memory backing store implementing every store
// contract the payment services need.
type memStores struct {
	mu sync.Mutex

	invoices    map[int]models.Invoice
	nextInvoice int

	tokens    map[string]models.DownloadToken
	nextToken int

	balances   map[int]float64
	creditRefs map[string]bool

	products    map[int]models.Product
	memberships map[int]models.Membership
	plans       map[int]int

	sales []saleRecord

	// failure injection, decremented per failed call
	creditFailures      int
	tokenCreateFailures int
}

type saleRecord struct {
	ProductID int
	BuyerID   int
	Amount    float64
	Method    string
}

func newMemStores() *memStores {
	return &memStores{
		invoices:    map[int]models.Invoice{},
		tokens:      map[string]models.DownloadToken{},
		balances:    map[int]float64{},
		creditRefs:  map[string]bool{},
		products:    map[int]models.Product{},
		memberships: map[int]models.Membership{},
		plans:       map[int]int{},
	}
}

// --- InvoiceStore ---

func (m *memStores) CreateInvoice(ctx context.Context, inv models.Invoice) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextInvoice++
	inv.ID = m.nextInvoice
	inv.Status = models.PaymentPending
	inv.CreatedAt = time.Now()
	m.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (m *memStores) AttachProvider(ctx context.Context, id int, providerInvoiceID, qrText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.ErrInvoiceNotFound
	}
	inv.ProviderInvoiceID = providerInvoiceID
	inv.QRText = qrText
	m.invoices[id] = inv
	return nil
}

func (m *memStores) UpdateStatus(ctx context.Context, id int, status models.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.ErrInvoiceNotFound
	}
	inv.Status = status
	m.invoices[id] = inv
	return nil
}

func (m *memStores) MarkPaid(ctx context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return false, models.ErrInvoiceNotFound
	}
	if inv.Status == models.PaymentPaid {
		return false, nil
	}
	now := time.Now()
	inv.Status = models.PaymentPaid
	inv.PaidAt = &now
	m.invoices[id] = inv
	return true, nil
}

func (m *memStores) MarkSettled(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.ErrInvoiceNotFound
	}
	if inv.SettledAt == nil {
		now := time.Now()
		inv.SettledAt = &now
		m.invoices[id] = inv
	}
	return nil
}

func (m *memStores) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memStores) GetByProviderID(ctx context.Context, providerInvoiceID string) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ProviderInvoiceID == providerInvoiceID {
			return inv, nil
		}
	}
	return models.Invoice{}, models.ErrInvoiceNotFound
}

func (m *memStores) GetByUser(ctx context.Context, userID int) ([]models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

// --- TokenStore ---

func (m *memStores) Create(ctx context.Context, t models.DownloadToken) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenCreateFailures > 0 {
		m.tokenCreateFailures--
		return 0, errTokenStoreDown
	}
	m.nextToken++
	t.ID = m.nextToken
	m.tokens[t.Token] = t
	return t.ID, nil
}

func (m *memStores) GetByInvoice(ctx context.Context, invoiceID int) (models.DownloadToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.InvoiceID != nil && *t.InvoiceID == invoiceID {
			return t, nil
		}
	}
	return models.DownloadToken{}, models.ErrTokenNotFound
}

func (m *memStores) Redeem(ctx context.Context, token string, now time.Time) (models.DownloadToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return models.DownloadToken{}, models.ErrTokenNotFound
	}
	if t.UsedAt != nil {
		return models.DownloadToken{}, models.ErrTokenUsed
	}
	if t.Expired(now) {
		return models.DownloadToken{}, models.ErrTokenExpired
	}
	t.UsedAt = &now
	m.tokens[token] = t
	return t, nil
}

// --- WalletStore ---

func (m *memStores) GetBalance(ctx context.Context, userID int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *memStores) Debit(ctx context.Context, userID int, amount float64, reference string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < amount {
		return 0, models.ErrInsufficientBalance
	}
	m.balances[userID] -= amount
	return m.balances[userID], nil
}

func (m *memStores) Credit(ctx context.Context, userID int, amount float64, reference string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creditFailures > 0 {
		m.creditFailures--
		return 0, errWalletStoreDown
	}
	m.balances[userID] += amount
	m.creditRefs[reference] = true
	return m.balances[userID], nil
}

func (m *memStores) HasCredit(ctx context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creditRefs[reference], nil
}

// --- ProductStore ---

func (m *memStores) GetProduct(id int) (models.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok
}

func (m *memStores) GetByIDProduct(ctx context.Context, id int) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return models.Product{}, models.ErrProductNotFound
	}
	return p, nil
}

func (m *memStores) MarkUnique(ctx context.Context, productID, buyerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return models.ErrProductNotFound
	}
	if p.UniqueOwner != nil {
		return models.ErrProductNotForSale
	}
	p.UniqueOwner = &buyerID
	p.Status = models.ProductStatusArchive
	m.products[productID] = p
	return nil
}

func (m *memStores) RecordSale(ctx context.Context, productID, buyerID int, amount float64, method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, saleRecord{ProductID: productID, BuyerID: buyerID, Amount: amount, Method: method})
	return nil
}

// --- MembershipStore ---

func (m *memStores) GetMembershipByID(ctx context.Context, id int) (models.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.memberships[id]
	if !ok {
		return models.Membership{}, models.ErrMembershipNotFound
	}
	return ms, nil
}

func (m *memStores) Extend(ctx context.Context, userID, membershipID, durationDays int, now time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[userID] = membershipID
	return now.AddDate(0, 0, durationDays), nil
}

func (m *memStores) CurrentPlan(ctx context.Context, userID int) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plans[userID], time.Time{}, nil
}

// productView and membershipView adapt memStores to the narrower store
// interfaces, since GetByID exists on both contracts with different types.
type productView struct{ *memStores }

func (v productView) GetByID(ctx context.Context, id int) (models.Product, error) {
	return v.GetByIDProduct(ctx, id)
}

func (v productView) GetByUser(ctx context.Context, userID int) ([]models.Product, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []models.Product
	for _, p := range v.products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type membershipView struct{ *memStores }

func (v membershipView) GetByID(ctx context.Context, id int) (models.Membership, error) {
	return v.GetMembershipByID(ctx, id)
}

var (
	errWalletStoreDown = errors.New("wallet store down")
	errTokenStoreDown  = errors.New("token store down")
)

// --- PaymentProvider ---

type fakeProvider struct {
	mu        sync.Mutex
	paid      map[string]bool
	createErr error
	checkErr  error
	created   int
	checks    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{paid: map[string]bool{}}
}

func (f *fakeProvider) CreateInvoice(ctx context.Context, senderInvoiceNo string, amount float64, description string) (*QPayInvoiceResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &QPayInvoiceResponse{
		InvoiceID: "qpay-" + senderInvoiceNo,
		QRImage:   "iVBORw0KGgoFAKE",
		QRText:    "000201" + senderInvoiceNo,
		URLs:      []models.BankLink{{Name: "Khan bank", Link: "khanbank://q"}},
	}, nil
}

func (f *fakeProvider) CheckPayment(ctx context.Context, providerInvoiceID string) (QPayPaymentCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return QPayPaymentCheck{}, f.checkErr
	}
	if f.paid[providerInvoiceID] {
		return QPayPaymentCheck{Paid: true, PaymentID: "p-" + providerInvoiceID}, nil
	}
	return QPayPaymentCheck{}, nil
}

func (f *fakeProvider) markPaid(providerInvoiceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paid[providerInvoiceID] = true
}

// --- ObjectStorage ---

type fakeStorage struct{ content string }

func (f fakeStorage) Download(ctx context.Context, key string) (io.ReadCloser, int64, string, error) {
	if key == "" {
		return nil, 0, "", fmt.Errorf("missing key")
	}
	return io.NopCloser(bytes.NewReader([]byte(f.content))), int64(len(f.content)), "application/zip", nil
}

// newTestPaymentService wires a PaymentService over the in-memory stores.
func newTestPaymentService(stores *memStores, provider *fakeProvider) *PaymentService {
	downloads := &DownloadService{
		Tokens:   stores,
		Products: productView{stores},
		Storage:  fakeStorage{content: "zip-bytes"},
	}
	return &PaymentService{
		Invoices:    stores,
		Tokens:      stores,
		Wallet:      stores,
		Products:    productView{stores},
		Memberships: membershipView{stores},
		Provider:    provider,
		Downloads:   downloads,
	}
}
