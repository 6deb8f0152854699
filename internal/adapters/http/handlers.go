package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dkeye/tandem/internal/app/orch"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch        *orch.Orchestrator
	rtc         webrtc.Configuration
	notifyToken string
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func (h *handlers) rtcConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.rtc.ICEServers})
}

func (h *handlers) online(c *gin.Context) {
	uid, err := domain.ParseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conn, ok := h.orch.Registry.Lookup(uid)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"online": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": true, "connId": conn.ID()})
}

// notify lets an out-of-process collaborator (chat persistence) push an
// event, typically newMessage, to a user if connected.
func (h *handlers) notify(c *gin.Context) {
	uid, err := domain.ParseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var req domain.Notification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid event"})
		return
	}
	delivered := h.orch.Deliver(uid, req.Event, req.Payload)
	log.Debug().Str("module", "adapters.http").Str("user", string(uid)).Str("event", req.Event).Bool("delivered", delivered).Msg("notify")
	c.JSON(http.StatusAccepted, gin.H{"delivered": delivered})
}

// requireToken guards internal endpoints with a bearer token; an empty token disables the check.
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
