package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/tandem/internal/app"
	"github.com/dkeye/tandem/internal/app/orch"
	"github.com/dkeye/tandem/internal/config"
	"github.com/dkeye/tandem/internal/core"
	"github.com/dkeye/tandem/internal/domain"
	"github.com/dkeye/tandem/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const readTimeout = 2 * time.Second

type relay struct {
	orch *orch.Orchestrator
	url  string
}

func startRelay(t *testing.T, cfg *config.Config) *relay {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := orch.New(
		app.NewRegistry(),
		app.NewSessionStore(0, 0, nil),
		app.NewConnections(),
		app.PolicyFromConfig(cfg.SlowConsumer),
		observability.NewMetrics(prometheus.NewRegistry()),
	)
	ctl := NewSignalWSController(o, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return &relay{orch: o, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func (r *relay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(r.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func emit(t *testing.T, ws *websocket.Conn, event, ack string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(core.Envelope{Type: event, Ack: ack, Data: raw}))
}

func next(t *testing.T, ws *websocket.Conn) core.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(readTimeout)))
	var env core.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func TestSignal_Call_Negotiation_End_To_End(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	alice := r.dial(t)
	bob := r.dial(t)

	// Given both users registered, one with the bare-string form
	emit(t, alice, domain.EventSetup, "", "alice")
	emit(t, bob, domain.EventSetup, "", map[string]string{"userId": "bob"})
	req.Eventually(func() bool { return r.orch.Registry.Len() == 2 }, readTimeout, 10*time.Millisecond)

	// When alice asks where bob is
	emit(t, alice, domain.EventGetReceiver, "1", "bob")
	ack := next(t, alice)
	req.Equal(domain.EventAck, ack.Type)
	req.Equal("1", ack.Ack)
	var bobConn string
	req.NoError(json.Unmarshal(ack.Data, &bobConn))
	req.NotEmpty(bobConn)

	// And alice offers
	emit(t, alice, domain.EventOffer, "", map[string]any{
		"offer":        map[string]string{"type": "offer", "sdp": "dummy-sdp"},
		"offerId":      "o1",
		"callerId":     "alice",
		"receiverId":   "bob",
		"videoCallUrl": "http://dummy.url",
	})

	// Then bob receives the offer
	got := next(t, bob)
	req.Equal(domain.EventOfferAwaiting, got.Type)
	var view domain.SessionView
	req.NoError(json.Unmarshal(got.Data, &view))
	req.Equal(domain.OfferID("o1"), view.OfferID)
	req.Equal(domain.UserID("alice"), view.CallerID)

	// When bob answers
	emit(t, bob, domain.EventAnswer, "", map[string]any{
		"answer":   map[string]string{"type": "answer", "sdp": "dummy-answer"},
		"offerId":  "o1",
		"callerId": "alice",
	})

	// Then alice receives the answer
	got = next(t, alice)
	req.Equal(domain.EventAnswerToClient, got.Type)
	req.NoError(json.Unmarshal(got.Data, &view))
	req.JSONEq(`{"type":"answer","sdp":"dummy-answer"}`, string(view.Answer))

	// When bob trickles a candidate
	emit(t, bob, domain.EventICECandidate, "", map[string]any{
		"iceC":    map[string]any{"candidate": "candidate:1", "sdpMid": "0"},
		"offerId": "o1",
		"who":     "callee",
	})

	// Then alice gets the raw candidate
	got = next(t, alice)
	req.Equal(domain.EventICEToClient, got.Type)
	req.JSONEq(`{"candidate":"candidate:1","sdpMid":"0"}`, string(got.Data))

	// When alice goes away and bob keeps trickling
	req.NoError(alice.Close())
	req.Eventually(func() bool { return r.orch.Registry.Len() == 1 }, readTimeout, 10*time.Millisecond)
	emit(t, bob, domain.EventICECandidate, "", map[string]any{
		"iceC":    map[string]any{"candidate": "candidate:2"},
		"offerId": "o1",
		"who":     "callee",
	})

	// Then the candidate is still stored and bob can read both back
	emit(t, bob, domain.EventGetICE, "2", []string{"o1", "callee"})
	ack = next(t, bob)
	req.Equal("2", ack.Ack)
	var list []json.RawMessage
	req.NoError(json.Unmarshal(ack.Data, &list))
	req.Len(list, 2)
}

func TestSignal_GetReceiver_Offline_Replies_Null(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	ws := r.dial(t)

	emit(t, ws, domain.EventGetReceiver, "7", map[string]string{"userId": "ghost"})

	ack := next(t, ws)
	req.Equal("7", ack.Ack)
	req.Equal("null", string(ack.Data))
}

func TestSignal_GetICE_Unknown_Session_Replies_Empty_List(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	ws := r.dial(t)

	emit(t, ws, domain.EventGetICE, "9", map[string]string{"offerId": "ghost", "who": "caller"})

	ack := next(t, ws)
	req.Equal("9", ack.Ack)
	req.JSONEq(`[]`, string(ack.Data))
}

func TestSignal_Topic_Broadcast_Includes_Sender(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	sender := r.dial(t)
	other := r.dial(t)
	req.Eventually(func() bool { return r.orch.Conns.Len() == 2 }, readTimeout, 10*time.Millisecond)

	emit(t, sender, domain.EventTopicPicked, "", "test-topic")

	for _, ws := range []*websocket.Conn{sender, other} {
		got := next(t, ws)
		req.Equal(domain.EventTopicPicked, got.Type)
		req.JSONEq(`"test-topic"`, string(got.Data))
	}
}

func TestSignal_Paired_Update_Relayed(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	sender := r.dial(t)
	target := r.dial(t)
	emit(t, target, domain.EventSetup, "", "languageReceiver")
	req.Eventually(func() bool { return r.orch.Registry.Len() == 1 }, readTimeout, 10*time.Millisecond)

	emit(t, sender, domain.EventLanguageUpdate, "", map[string]string{
		"language":     "en",
		"languageType": "native",
		"targetId":     "languageReceiver",
	})

	got := next(t, target)
	req.Equal(domain.EventLanguageUpdate, got.Type)
	req.JSONEq(`{"language":"en","languageType":"native","targetId":"languageReceiver"}`, string(got.Data))
}

func TestSignal_Malformed_Input_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	r := startRelay(t, config.Default())
	ws := r.dial(t)

	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	emit(t, ws, "noSuchEvent", "", nil)
	emit(t, ws, domain.EventPing, "", nil)

	got := next(t, ws)
	req.Equal(domain.EventPong, got.Type)
	req.Equal(2.0, testutil.ToFloat64(r.orch.Metrics.Drops.WithLabelValues(observability.ReasonMalformed)))
}

func TestSignal_Rate_Limited_Events_Dropped(t *testing.T) {
	req := require.New(t)
	cfg := config.Default()
	cfg.EventRateLimit = 1
	cfg.EventRateWindow = time.Minute
	r := startRelay(t, cfg)
	ws := r.dial(t)

	emit(t, ws, domain.EventPing, "", nil)
	emit(t, ws, domain.EventPing, "", nil)

	req.Equal(domain.EventPong, next(t, ws).Type)
	req.Eventually(func() bool {
		return testutil.ToFloat64(r.orch.Metrics.Drops.WithLabelValues(observability.ReasonRateLimited)) == 1
	}, readTimeout, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	req := require.New(t)

	open := originChecker(nil)
	strict := originChecker([]string{"http://localhost:5173"})

	withOrigin := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	req.True(open(withOrigin("http://evil.example")))
	req.True(strict(withOrigin("http://localhost:5173")))
	req.True(strict(withOrigin("")))
	req.False(strict(withOrigin("http://evil.example")))
}
