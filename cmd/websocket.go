package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tbarimtBack/internal/models"
)

// paymentHub delivers terminal payment events to the buyer's open storefront
// tabs. Delivery is best effort: a full queue or a dead socket drops the
// event, the client's own status polling still catches the payment.
type paymentHub struct {
	infoLog  *log.Logger
	errorLog *log.Logger

	clients    map[int][]*websocket.Conn
	register   chan hubClient
	unregister chan hubClient
	events     chan models.PaymentEvent
}

type hubClient struct {
	userID int
	conn   *websocket.Conn
}

func newPaymentHub(infoLog, errorLog *log.Logger) *paymentHub {
	return &paymentHub{
		infoLog:    infoLog,
		errorLog:   errorLog,
		clients:    make(map[int][]*websocket.Conn),
		register:   make(chan hubClient),
		unregister: make(chan hubClient),
		events:     make(chan models.PaymentEvent, 64),
	}
}

// Notify queues the event without blocking the settlement path.
func (h *paymentHub) Notify(ev models.PaymentEvent) {
	select {
	case h.events <- ev:
	default:
		h.errorLog.Printf("payment hub: event queue full, dropping invoice %d", ev.InvoiceID)
	}
}

func (h *paymentHub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for _, conn := range conns {
					conn.Close()
				}
			}
			return
		case c := <-h.register:
			h.clients[c.userID] = append(h.clients[c.userID], c.conn)
		case c := <-h.unregister:
			conns := h.clients[c.userID]
			for i, conn := range conns {
				if conn == c.conn {
					h.clients[c.userID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.clients[c.userID]) == 0 {
				delete(h.clients, c.userID)
			}
			c.conn.Close()
		case ev := <-h.events:
			for _, conn := range h.clients[ev.UserID] {
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(ev); err != nil {
					h.errorLog.Printf("payment hub: write to user %d: %v", ev.UserID, err)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler keeps a socket open per authenticated user; the hub
// pushes payment events into it. The read loop exists only to notice the
// client going away.
func (app *application) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.errorLog.Printf("websocket upgrade: %v", err)
		return
	}

	client := hubClient{userID: userID, conn: conn}
	app.hub.register <- client

	go func() {
		defer func() {
			app.hub.unregister <- client
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
