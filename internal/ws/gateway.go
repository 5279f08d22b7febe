package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"conversation-service/internal/middleware"
	"conversation-service/internal/observability"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway upgrades authenticated requests and registers them with the Router.
type Gateway struct {
	router    *Router
	validator middleware.TokenValidator
	log       *slog.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(router *Router, validator middleware.TokenValidator, log *slog.Logger) *Gateway {
	return &Gateway{router: router, validator: validator, log: log}
}

// Handle upgrades the connection and registers it as the user's session.
func (g *Gateway) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("conversation-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := middleware.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return
	}
	userID, err := g.validator.ValidateToken(ctx, token)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("ws upgrade failed", "user_id", userID, "error", err)
		return
	}

	meta := observability.RequestMetaFrom(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   c.GetString(observability.RequestIDKey),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	ch := newWSChannel(conn, info)
	g.router.Register(userID, ch)

	observability.IncWSActive()
	publishLifecycle(ctx, "ws_connect", info, "")
	g.log.Info("ws connected", "user_id", userID, "conn_id", info.ConnID)

	go g.keepAlive(ch)
	go g.readLoop(context.WithoutCancel(ctx), ch)
}

// readLoop discards client frames until the connection ends, then releases
// the session.
func (g *Gateway) readLoop(ctx context.Context, ch *wsChannel) {
	var closeReason string
	defer func() {
		g.router.Release(ch.info.UserID, ch)
		_ = ch.Close()
		observability.DecWSActive()
		publishLifecycle(ctx, "ws_disconnect", ch.info, closeReason)
		g.log.Info("ws disconnected", "user_id", ch.info.UserID, "conn_id", ch.info.ConnID, "reason", closeReason)
	}()

	ch.conn.SetReadLimit(maxMessageSize)
	_ = ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	ch.conn.SetPongHandler(func(string) error {
		return ch.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ch.conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			select {
			case <-ch.closed:
				// closed locally, usually replaced by a newer session
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishLifecycle(ctx, "ws_error", ch.info, closeReason)
			}
			return
		}
	}
}

func (g *Gateway) keepAlive(ch *wsChannel) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ch.closed:
			return
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				_ = ch.Close()
				return
			}
		}
	}
}
