package main

import (
	"context"
	"database/sql"
	"log"

	"firebase.google.com/go/messaging"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"tbarimtBack/internal/config"
	"tbarimtBack/internal/handlers"
	"tbarimtBack/internal/models"
	"tbarimtBack/internal/repositories"
	"tbarimtBack/internal/services"
	"tbarimtBack/utils"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger

	jwtSecret string

	userRepo    *repositories.UserRepository
	invoiceRepo *repositories.InvoiceRepository
	tokenRepo   *repositories.DownloadTokenRepository

	paymentHandler  *handlers.PaymentHandler
	walletHandler   *handlers.WalletHandler
	downloadHandler *handlers.DownloadHandler
	userHandler     *handlers.UserHandler
	productHandler  *handlers.ProductHandler

	poller *services.PaymentPoller
	hub    *paymentHub

	db *sql.DB
}

func initializeApp(ctx context.Context, db *sql.DB, rdb *redis.Client, fcmClient *messaging.Client, cfg config.Config, errorLog, infoLog *log.Logger) (*application, error) {
	// Repositories
	userRepo := repositories.UserRepository{DB: db}
	invoiceRepo := repositories.InvoiceRepository{DB: db}
	tokenRepo := repositories.DownloadTokenRepository{DB: db}
	walletRepo := repositories.WalletRepository{DB: db}
	productRepo := repositories.ProductRepository{DB: db}
	membershipRepo := repositories.MembershipRepository{DB: db}

	tokenManager, err := utils.NewManager(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	var locker services.Locker
	if rdb != nil {
		locker = services.NewRedisLocker(rdb, "tbarimt:")
	}

	storage := utils.NewS3Storage(
		cfg.Storage.Endpoint,
		cfg.Storage.Region,
		cfg.Storage.Bucket,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
	)

	qpay, err := services.NewQPayService(services.QPayConfig{
		Username:     cfg.QPay.Username,
		Password:     cfg.QPay.Password,
		InvoiceCode:  cfg.QPay.InvoiceCode,
		ReceiverCode: cfg.QPay.ReceiverCode,
		BaseURL:      cfg.QPay.BaseURL,
		CallbackURL:  cfg.QPay.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	// Services
	downloadService := &services.DownloadService{
		Tokens:   &tokenRepo,
		Products: &productRepo,
		Storage:  storage,
		Locks:    locker,
	}

	hub := newPaymentHub(infoLog, errorLog)
	notifier := &paidNotifier{
		push: &services.NotifyService{Client: fcmClient, Users: &userRepo, ErrorLog: errorLog},
		hub:  hub,
	}

	paymentService := &services.PaymentService{
		Invoices:    &invoiceRepo,
		Tokens:      &tokenRepo,
		Wallet:      &walletRepo,
		Products:    &productRepo,
		Memberships: &membershipRepo,
		Provider:    qpay,
		Downloads:   downloadService,
		Notifier:    notifier,
	}
	walletService := &services.WalletService{
		Wallet:    &walletRepo,
		Products:  &productRepo,
		Downloads: downloadService,
	}
	userService := &services.UserService{Users: &userRepo, Tokens: tokenManager}
	productService := &services.ProductService{Products: &productRepo}

	poller := services.NewPaymentPoller(ctx, paymentService, locker, services.PollerConfig{}, infoLog, errorLog)

	app := &application{
		errorLog:        errorLog,
		infoLog:         infoLog,
		jwtSecret:       cfg.JWTSecret,
		userRepo:        &userRepo,
		invoiceRepo:     &invoiceRepo,
		tokenRepo:       &tokenRepo,
		paymentHandler:  handlers.NewPaymentHandler(paymentService, poller, errorLog),
		walletHandler:   handlers.NewWalletHandler(walletService),
		downloadHandler: handlers.NewDownloadHandler(downloadService, errorLog),
		userHandler:     handlers.NewUserHandler(userService),
		productHandler:  handlers.NewProductHandler(productService),
		poller:          poller,
		hub:             hub,
		db:              db,
	}
	return app, nil
}

// paidNotifier fans a confirmed payment out to the push channel and to any
// open websocket the buyer has.
type paidNotifier struct {
	push *services.NotifyService
	hub  *paymentHub
}

func (n *paidNotifier) PaymentConfirmed(ctx context.Context, inv models.Invoice) {
	if n.push != nil {
		n.push.PaymentConfirmed(ctx, inv)
	}
	if n.hub != nil {
		n.hub.Notify(models.PaymentEvent{
			InvoiceID: inv.ID,
			Kind:      inv.Kind,
			Status:    inv.Status,
			UserID:    inv.UserID,
		})
	}
}
