package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/tandem/internal/app/orch"
	"github.com/dkeye/tandem/internal/config"
	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *RateLimiter

	upgrader   websocket.Upgrader
	readLimit  int64
	pingPeriod time.Duration
	pongWait   time.Duration
	writeWait  time.Duration
	sendBuffer int
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	ctl := &SignalWSController{
		Orch:       o,
		readLimit:  cfg.ReadLimit,
		pingPeriod: cfg.PingPeriod,
		pongWait:   cfg.PongWait,
		writeWait:  cfg.WriteWait,
		sendBuffer: cfg.SendBuffer,
	}
	if cfg.EventRateLimit > 0 {
		ctl.Limiter = NewRateLimiter(cfg.EventRateLimit, cfg.EventRateWindow)
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: originChecker(cfg.AllowedOrigins)}
	return ctl
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, origin)
	}
}

// wsSignalConn implements core.Conn over a websocket.
type wsSignalConn struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) ID() domain.ConnID { return c.id }

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// HandleSignal upgrades the request and runs the connection until it closes.
// The connection is invisible to directed delivery until it sends setup.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsSignalConn{
		id:   domain.ConnID(uuid.NewString()),
		conn: ws,
		send: make(chan core.Frame, ctl.sendBuffer),
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("remote", ws.RemoteAddr().String()).Msg("new WS connection")

	ctl.Orch.OnConnect(conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
