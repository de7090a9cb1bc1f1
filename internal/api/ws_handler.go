package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/tasks"
)

const (
	wsPingInterval   = 30 * time.Second
	wsAuthTimeout    = 10 * time.Second
	wsControlTimeout = 5 * time.Second
)

var errWsAuthRequired = errors.New("auth required")

// WsHandler 把导出结果通知从 Redis 转发给已登录的浏览器连接。
type WsHandler struct {
	redisClient    redis.UniversalClient
	authService    *auth.AuthService
	logger         *slog.Logger
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		redisClient:    redisClient,
		authService:    authService,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r.Header.Get("Origin"), r.Host, h.allowedOrigins)
		},
	}
	return h
}

// originAllowed 没有配置白名单时只接受同源请求；没有 Origin 头的非浏览器客户端直接放行。
func originAllowed(origin, host string, allowed []string) bool {
	if origin == "" {
		return true
	}
	if len(allowed) > 0 {
		return slices.Contains(allowed, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsAckMessage struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
}

// authenticate 校验连接上的第一条消息，只接受 access token。
func (h *WsHandler) authenticate(message []byte) (uint, error) {
	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || strings.TrimSpace(msg.Token) == "" {
		return 0, errWsAuthRequired
	}
	claims, err := h.authService.ValidateToken(msg.Token, auth.TokenTypeAccess)
	if err != nil {
		return 0, fmt.Errorf("validate token: %w", err)
	}
	return claims.UserID, nil
}

// HandleConnection 升级连接，等待鉴权消息，然后订阅该用户的通知频道。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		log.Warn("websocket closed before auth", slog.Any("error", err))
		return
	}
	userID, err := h.authenticate(message)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "unauthorized")
		log.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	log = log.With(slog.Uint64("user_id", uint64(userID)))
	if err := conn.WriteJSON(wsAckMessage{Type: "authenticated", UserID: userID}); err != nil {
		log.Warn("write auth ack failed", slog.Any("error", err))
		return
	}
	log.Info("websocket authenticated")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 鉴权之后客户端消息一律忽略，读循环只用来感知断开。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.forward(ctx, conn, userID, log); err != nil {
		log.Info("websocket connection closed", slog.Any("error", err))
		return
	}
	log.Info("websocket connection closed")
}

// forward 把 Redis 频道中的消息原样写给客户端，并定期发送 ping。ctx 结束时返回 nil。
func (h *WsHandler) forward(ctx context.Context, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()
	log.Debug("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
			log.Debug("notification forwarded", slog.String("channel", channel))
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsControlTimeout)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsControlTimeout))
}
