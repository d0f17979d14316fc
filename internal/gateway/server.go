package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to websockets and pumps frames into the
// dispatcher.
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	cfg        config.SocketConfig
	log        *logger.Logger
	upgrader   websocket.Upgrader
}

// ServerParams wires the websocket server dependencies.
type ServerParams struct {
	Hub        *Hub
	Dispatcher *Dispatcher
	Cfg        config.SocketConfig
	Log        *logger.Logger
}

func NewServer(params ServerParams) (*Server, error) {
	if params.Hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}

	return &Server{
		hub:        params.Hub,
		dispatcher: params.Dispatcher,
		cfg:        params.Cfg,
		log:        params.Log,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: params.Cfg.HandshakeTimeout,
			ReadBufferSize:   4096,
			WriteBufferSize:  4096,
			// Clients are native apps and bots, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// HandleWS is mounted on the router at /ws.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket upgrade failed: "+err.Error())
		return
	}

	conn := newWSConn(sock, s.cfg.WriteTimeout)
	s.hub.Attach(conn)

	// The request context dies when this handler returns; the hijacked
	// socket outlives it.
	ctx := s.log.WithConnectionID(context.WithoutCancel(r.Context()), conn.ID())
	s.log.Info(ctx, "connection established")

	go s.pingLoop(conn)
	go s.readLoop(ctx, conn, sock)
}

func (s *Server) readLoop(ctx context.Context, conn *wsConn, sock *websocket.Conn) {
	defer s.hub.Disconnect(ctx, conn.ID())

	if s.cfg.ReadLimitBytes > 0 {
		sock.SetReadLimit(s.cfg.ReadLimitBytes)
	}
	_ = sock.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		_, frame, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn(ctx, "connection read failed: "+err.Error())
			}
			return
		}
		s.dispatcher.Dispatch(ctx, conn, frame)
	}
}

func (s *Server) pingLoop(conn *wsConn) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = 25 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.Ping(); err != nil {
			return
		}
	}
}
