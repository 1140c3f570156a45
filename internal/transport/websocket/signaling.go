package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telemed/internal/domain"
	"telemed/internal/service"
)

// SignalingMessage — сообщение сигнального канала WebRTC. Сервер только
// пересылает SDP и ICE между участниками, медиапоток идет напрямую.
type SignalingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id"`
	From      int64       `json:"from"`
	To        int64       `json:"to"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type Client struct {
	UserID int64
	Role   domain.UserRole
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *SignalingHub
}

type SignalingHub struct {
	clients    map[int64]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// Активные звонки по идентификатору видеосессии.
	sessions map[string]*CallSession

	logger   *zap.Logger
	services *service.Services

	mutex sync.RWMutex
}

type CallSession struct {
	ID        string     `json:"id"`
	PatientID int64      `json:"patient_id"`
	DoctorID  int64      `json:"doctor_id"`
	Status    string     `json:"status"` // waiting, active, ended
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
}

func NewSignalingHub(logger *zap.Logger, services *service.Services) *SignalingHub {
	return &SignalingHub{
		clients:    make(map[int64]*Client),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   make(map[string]*CallSession),
		logger:     logger,
		services:   services,
	}
}

func (h *SignalingHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.UserID] = client
			h.mutex.Unlock()
			h.logger.Info("клиент подключился к сигнальному каналу",
				zap.Int64("userId", client.UserID),
				zap.String("role", string(client.Role)))

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
				close(client.Send)
			}
			h.mutex.Unlock()
			h.logger.Info("клиент отключился от сигнального канала", zap.Int64("userId", client.UserID))

		case message := <-h.broadcast:
			var msg SignalingMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				h.logger.Error("не удалось разобрать сообщение", zap.Error(err))
				continue
			}

			h.handleSignalingMessage(&msg)
		}
	}
}

func (h *SignalingHub) handleSignalingMessage(msg *SignalingMessage) {
	switch msg.Type {
	case "call-offer":
		h.handleCallOffer(msg)
	case "call-answer":
		h.handleCallAnswer(msg)
	case "ice-candidate":
		h.forward(msg)
	case "call-reject":
		h.handleCallReject(msg)
	case "call-end":
		h.handleCallEnd(msg)
	case "ping":
		h.handlePing(msg)
	default:
		h.logger.Warn("неизвестный тип сообщения", zap.String("type", msg.Type))
	}
}

func (h *SignalingHub) handleCallOffer(msg *SignalingMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	fromClient, fromExists := h.clients[msg.From]
	toClient, toExists := h.clients[msg.To]
	if !fromExists || !toExists {
		h.sendError(msg, "участник не в сети")
		return
	}

	var patientID, doctorID int64
	if fromClient.Role == domain.UserRolePatient {
		patientID = fromClient.UserID
		doctorID = toClient.UserID
	} else {
		patientID = toClient.UserID
		doctorID = fromClient.UserID
	}

	h.sessions[msg.SessionID] = &CallSession{
		ID:        msg.SessionID,
		PatientID: patientID,
		DoctorID:  doctorID,
		Status:    "waiting",
		CreatedAt: time.Now(),
	}

	h.sendMessageToClient(toClient, msg)
}

func (h *SignalingHub) handleCallAnswer(msg *SignalingMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if session, exists := h.sessions[msg.SessionID]; exists {
		session.Status = "active"
	}

	if target, exists := h.clients[msg.To]; exists {
		h.sendMessageToClient(target, msg)
	}
}

func (h *SignalingHub) handleCallReject(msg *SignalingMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if target, exists := h.clients[msg.To]; exists {
		h.sendMessageToClient(target, msg)
	}

	delete(h.sessions, msg.SessionID)
}

func (h *SignalingHub) handleCallEnd(msg *SignalingMessage) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if session, exists := h.sessions[msg.SessionID]; exists {
		session.Status = "ended"
		now := time.Now()
		session.EndedAt = &now
	}

	if target, exists := h.clients[msg.To]; exists {
		h.sendMessageToClient(target, msg)
	}

	h.logger.Info("звонок завершен", zap.String("sessionId", msg.SessionID))
}

func (h *SignalingHub) handlePing(msg *SignalingMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	pong := &SignalingMessage{
		Type:      "pong",
		SessionID: msg.SessionID,
		From:      msg.To,
		To:        msg.From,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if client, exists := h.clients[msg.From]; exists {
		h.sendMessageToClient(client, pong)
	}
}

func (h *SignalingHub) forward(msg *SignalingMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if target, exists := h.clients[msg.To]; exists {
		h.sendMessageToClient(target, msg)
	}
}

// sendError вызывается только под мьютексом.
func (h *SignalingHub) sendError(msg *SignalingMessage, reason string) {
	errorMsg := &SignalingMessage{
		Type:      "call-error",
		SessionID: msg.SessionID,
		From:      msg.To,
		To:        msg.From,
		Data:      map[string]string{"error": reason},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if caller, exists := h.clients[msg.From]; exists {
		h.sendMessageToClient(caller, errorMsg)
	}
}

// sendMessageToClient вызывается только под мьютексом.
func (h *SignalingHub) sendMessageToClient(client *Client, msg *SignalingMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("не удалось сериализовать сообщение", zap.Error(err))
		return
	}

	select {
	case client.Send <- data:
	default:
		h.logger.Warn("канал клиента переполнен или закрыт",
			zap.Int64("userId", client.UserID),
			zap.String("type", msg.Type))
	}
}

// HandleWebSocket авторизует подключение по access-токену из query и
// поднимает соединение до WebSocket.
func (h *SignalingHub) HandleWebSocket(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "требуется токен"})
		return
	}

	userID, role, err := h.services.Auth.ParseToken(c.Request.Context(), tokenStr)
	if err != nil {
		h.logger.Warn("недействительный токен сигнального канала", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "недействительный токен"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("не удалось поднять WebSocket-соединение", zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Role:   role,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    h,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	// SDP и пачки ICE-кандидатов бывают большими.
	c.Conn.SetReadLimit(10 * 1024 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("ошибка WebSocket", zap.Error(err))
			}
			break
		}

		var msg SignalingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Hub.logger.Error("не удалось разобрать сообщение", zap.Error(err))
			continue
		}

		// Отправитель берется из авторизованного соединения, а не из
		// тела сообщения.
		msg.From = c.UserID
		msg.Timestamp = time.Now().Format(time.RFC3339)

		corrected, err := json.Marshal(msg)
		if err != nil {
			c.Hub.logger.Error("не удалось сериализовать сообщение", zap.Error(err))
			continue
		}

		c.Hub.broadcast <- corrected
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Одно сообщение на фрейм.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.Error("не удалось отправить сообщение",
					zap.Int64("userId", c.UserID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// IsUserConnected сообщает, подключен ли пользователь к сигнальному каналу.
func (h *SignalingHub) IsUserConnected(userID int64) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[userID]
	return exists
}
