package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("user"))

	mux := pat.New()

	// Users
	mux.Post("/user/sign_up", standardMiddleware.ThenFunc(app.userHandler.SignUp))
	mux.Post("/user/sign_in", standardMiddleware.ThenFunc(app.userHandler.SignIn))
	mux.Post("/user/log_out", authMiddleware.ThenFunc(app.userHandler.LogOut))
	mux.Post("/user/fcm_token", authMiddleware.ThenFunc(app.userHandler.SaveFCMToken))

	// Products
	mux.Get("/product/:product_id", standardMiddleware.ThenFunc(app.productHandler.GetByID))
	mux.Get("/product/user/:user_id", standardMiddleware.ThenFunc(app.productHandler.GetByUser))

	// QPay payments
	mux.Post("/payment/invoice", authMiddleware.ThenFunc(app.paymentHandler.CreateInvoice))
	mux.Post("/membership/invoice", authMiddleware.ThenFunc(app.paymentHandler.CreateMembershipInvoice))
	mux.Post("/wallet/recharge", authMiddleware.ThenFunc(app.paymentHandler.CreateRecharge))
	mux.Get("/payment/check/:invoice_id", authMiddleware.ThenFunc(app.paymentHandler.Check))
	mux.Get("/payment/history", authMiddleware.ThenFunc(app.paymentHandler.History))
	mux.Post("/payment/callback", standardMiddleware.ThenFunc(app.paymentHandler.Callback))
	mux.Get("/payment/callback", standardMiddleware.ThenFunc(app.paymentHandler.Callback))

	// Wallet
	mux.Post("/payment/wallet", authMiddleware.ThenFunc(app.walletHandler.PayWithWallet))
	mux.Get("/wallet/:user_id", authMiddleware.ThenFunc(app.walletHandler.Balance))

	// Downloads. The token itself is the credential, no auth chain here.
	mux.Get("/download/:token", alice.New(app.recoverPanic, app.logRequest, secureHeaders).ThenFunc(app.downloadHandler.Download))

	// Payment events
	mux.Get("/ws", authMiddleware.ThenFunc(app.WebSocketHandler))

	return mux
}
