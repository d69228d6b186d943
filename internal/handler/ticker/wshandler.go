package ticker

import (
	"coinpilot/internal/service"
	"coinpilot/pkg/logger"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// 客户端请求的消息格式
type subscribeMessage struct {
	Action  string   `json:"action"`  // subscribe | unsubscribe
	Symbols []string `json:"symbols"` // ["BTC/USDT", "ETH/USDT"]
}

type ClientConn struct {
	Conn    *websocket.Conn
	Send    chan []byte // 异步发送通道
	Symbols map[string]struct{}
}

type Handler struct {
	service service.TickerService
	mu      sync.RWMutex
	// 每个交易对对应的订阅客户端集合
	symbolSubscribers map[string]map[*ClientConn]struct{}
	// 每个连接订阅的交易对
	clientSymbols map[*ClientConn]map[string]struct{}
	upgrader      websocket.Upgrader
}

func NewHandler(s service.TickerService) *Handler {
	return &Handler{
		service:           s,
		symbolSubscribers: make(map[string]map[*ClientConn]struct{}),
		clientSymbols:     make(map[*ClientConn]map[string]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // 允许跨域
		},
	}
}

// ServeWS 接入客户端的 WebSocket 连接
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("upgrade error: %v", err)
		return
	}
	client := &ClientConn{
		Conn:    conn,
		Send:    make(chan []byte, 100),
		Symbols: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.clientSymbols[client] = client.Symbols
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		// 移除该连接订阅的交易对，计数归零的真正退订
		if symbols, ok := h.clientSymbols[client]; ok {
			var dead []string
			for s := range symbols {
				delete(h.symbolSubscribers[s], client)
				if len(h.symbolSubscribers[s]) == 0 {
					dead = append(dead, s)
					delete(h.symbolSubscribers, s)
				}
			}
			delete(h.clientSymbols, client)
			if len(dead) > 0 {
				_ = h.service.UnsubscribeSymbols(context.Background(), dead)
			}
		}
		// 持锁时关闭Send，BroadcastPrices在读锁内写通道，不会撞上
		close(client.Send)
		h.mu.Unlock()
		conn.Close()
	}()

	// 不断从 Send channel 取消息，然后写入 WebSocket
	go client.writePump()
	// 循环读取客户端发来的消息，阻塞在此
	client.readPump(h)
}

// BroadcastPrices 周期性把各连接订阅的行情推下去，跟随服务启动
func (h *Handler) BroadcastPrices() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		for client, symbolsMap := range h.clientSymbols {
			symbolsSlice := make([]string, 0, len(symbolsMap))
			for s := range symbolsMap {
				symbolsSlice = append(symbolsSlice, s)
			}
			if len(symbolsSlice) == 0 {
				continue
			}

			prices, err := h.service.GetPrices(context.Background(), symbolsSlice)
			if err != nil {
				logger.Debugf("GetPrices error: %v", err)
				continue
			}

			data, _ := json.Marshal(prices)
			select {
			case client.Send <- data:
			default:
				// 队列满就丢掉这一帧
			}
		}
		h.mu.RUnlock()
	}
}

func (c *ClientConn) writePump() {
	defer c.Conn.Close()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debugf("write error: %v", err)
			break
		}
	}
}

// readPump 读取客户端消息
func (c *ClientConn) readPump(h *Handler) {
	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg subscribeMessage
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			logger.Debugf("invalid message: %v", err)
			continue
		}

		switch clientMsg.Action {
		case "subscribe":
			h.handleOnSubscribe(c, &clientMsg)
		case "unsubscribe":
			h.handleOnUnsubscribe(c, &clientMsg)
		}
	}
}

func (h *Handler) handleOnSubscribe(c *ClientConn, clientMsg *subscribeMessage) {
	h.mu.Lock()
	var fresh []string
	for _, sym := range clientMsg.Symbols {
		if _, ok := h.symbolSubscribers[sym]; !ok {
			h.symbolSubscribers[sym] = make(map[*ClientConn]struct{})
			fresh = append(fresh, sym)
		}
		h.symbolSubscribers[sym][c] = struct{}{}
		c.Symbols[sym] = struct{}{}
	}
	h.mu.Unlock()

	// 只有首个订阅者才触发上游订阅
	if len(fresh) > 0 {
		if err := h.service.SubscribeSymbols(context.Background(), fresh); err != nil {
			logger.Errorf("subscribe symbols failed: %v", err)
		}
	}
}

// 收到客户端取消订阅的处理
func (h *Handler) handleOnUnsubscribe(c *ClientConn, clientMsg *subscribeMessage) {
	h.mu.Lock()
	var dead []string
	for _, sym := range clientMsg.Symbols {
		if _, ok := h.symbolSubscribers[sym]; !ok {
			continue
		}
		delete(h.symbolSubscribers[sym], c)
		delete(c.Symbols, sym)

		// 计数归零的才真正向上游退订
		if len(h.symbolSubscribers[sym]) == 0 {
			delete(h.symbolSubscribers, sym)
			dead = append(dead, sym)
		}
	}
	h.mu.Unlock()

	if len(dead) > 0 {
		if err := h.service.UnsubscribeSymbols(context.Background(), dead); err != nil {
			logger.Errorf("unsubscribe symbols failed: %v", err)
		}
	}
}

// @Summary		单个交易对最新价
// @Produce		json
// @Param			symbol	query	string	true	"交易对"
// @Router			/api/v1/ticker [get]
func (h *Handler) TickerGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		symbol := c.Query("symbol")
		if symbol == "" {
			c.JSON(400, gin.H{"error": "symbol is required"})
			return
		}
		priceData, err := h.service.GetPrice(c, symbol)
		if err != nil {
			c.JSON(404, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"data": priceData})
	}
}
