package hub

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is the slice of a websocket connection the hub needs.
// *websocket.Conn satisfies it.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Hub interface {
	Register(client Client)
	Unregister(client Client)
	Broadcast(message []byte)
	Close() error
}

type hub struct {
	register   chan Client
	unregister chan Client
	broadcast  chan []byte

	clients map[Client]bool

	mutex       sync.Mutex
	closed      bool
	closeSignal chan struct{}
	wg          sync.WaitGroup
}

func New() Hub {
	h := &hub{
		register:    make(chan Client),
		unregister:  make(chan Client),
		broadcast:   make(chan []byte),
		clients:     make(map[Client]bool),
		closeSignal: make(chan struct{}),
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *hub) Register(client Client) {
	select {
	case h.register <- client:
	case <-h.closeSignal:
	}
}

func (h *hub) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.closeSignal:
	}
}

func (h *hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.closeSignal:
	}
}

func (h *hub) Close() error {
	h.mutex.Lock()

	if h.closed {
		h.mutex.Unlock()

		return nil
	}

	h.closed = true
	close(h.closeSignal)
	h.mutex.Unlock()

	h.wg.Wait()

	return nil
}

func (h *hub) run() {
	defer h.wg.Done()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				_ = client.Close()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					logrus.WithError(err).Warn("evicting client after failed write")

					delete(h.clients, client)
					_ = client.Close()
				}
			}

		case <-h.closeSignal:
			for client := range h.clients {
				_ = client.Close()
			}

			return
		}
	}
}
