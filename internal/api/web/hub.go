package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	app "hazard-vision/internal/application"
	"hazard-vision/internal/domain/entity"
	"hazard-vision/internal/domain/port"
)

// Типы сообщений websocket
const (
	MsgWelcome = "WELCOME"
	MsgReport  = "REPORT"
	MsgError   = "ERROR"
	MsgStatus  = "STATUS"
	MsgAlert   = "ALERT"
	MsgPing    = "PING"
	MsgPong    = "PONG"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message сообщение websocket
type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ReportPayload отчёт в том виде, в каком его показывает страница
type ReportPayload struct {
	HTML    string               `json:"html"`
	Alert   bool                 `json:"alert"`
	Hazards []entity.HazardMatch `json:"hazards"`
}

func newReportPayload(report *entity.Report) ReportPayload {
	hazards := report.Hazards
	if hazards == nil {
		hazards = []entity.HazardMatch{}
	}
	return ReportPayload{HTML: app.RenderHTML(report), Alert: report.Alert, Hazards: hazards}
}

type client struct {
	conn *websocket.Conn
	id   string
	send chan Message
}

// Hub рассылает отчёты, ошибки и сигналы тревоги подключённым страницам
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	closed   bool
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub создаёт хаб; origins: разрешённые источники, "*" разрешает все
func NewHub(origins []string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients: make(map[string]*client),
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// Clients количество подключённых клиентов
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS подключает клиента и держит чтение до его отключения
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan Message, sendBuffer),
	}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.log.Info("websocket client connected", zap.String("client_id", c.id))

	go h.writePump(c)

	h.sendTo(c, Message{
		Type:      MsgWelcome,
		ClientID:  c.id,
		Timestamp: time.Now().Unix(),
		Payload:   map[string]any{"message": "Connected to hazard vision"},
	})

	h.readPump(c)
	h.unregister(c)
	h.log.Info("websocket client disconnected", zap.String("client_id", c.id))
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// readPump читает сообщения клиента; отвечает на PING
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case MsgPing:
			h.sendTo(c, Message{Type: MsgPong, ClientID: c.id, Timestamp: time.Now().Unix()})
		default:
			h.log.Debug("unknown websocket message", zap.String("type", msg.Type))
		}
	}
}

// writePump единственный писатель в соединение
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendTo(c *client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Broadcast отправляет сообщение всем клиентам; медленный клиент пропускает сообщение
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("websocket client is too slow, message dropped", zap.String("client_id", id))
		}
	}
}

// PublishReport рассылает отчёт живого режима
func (h *Hub) PublishReport(_ context.Context, report *entity.Report) {
	h.Broadcast(Message{Type: MsgReport, Payload: newReportPayload(report)})
}

// PublishError рассылает короткое сообщение об ошибке
func (h *Hub) PublishError(_ context.Context, err error) {
	h.Broadcast(Message{Type: MsgError, Payload: map[string]string{"error": entity.UserMessage(err)}})
}

// PublishStatus рассылает смену состояния загрузки моделей
func (h *Hub) PublishStatus(status entity.LoadStatus) {
	h.Broadcast(Message{Type: MsgStatus, Payload: map[string]string{
		"status":  string(status),
		"message": status.Message(),
	}})
}

// Alert просит страницы проиграть звук тревоги живого режима
func (h *Hub) Alert(_ context.Context, report *entity.Report) error {
	h.Broadcast(Message{Type: MsgAlert, Payload: map[string]any{"hazards": report.Hazards}})
	return nil
}

// Close отключает всех клиентов
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

// Проверка реализации интерфейсов
var (
	_ port.ReportPublisher = (*Hub)(nil)
	_ port.Alerter         = (*Hub)(nil)
)
