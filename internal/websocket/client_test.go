package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain"
	"github.com/husseldin/HossAI-DriveThru-Doc-v2/domain/entities"
)

const waitFor = 2 * time.Second

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// fakeVoiceService accepts kiosk connections on /ws/voice/:clientID
type fakeVoiceService struct {
	server *httptest.Server
	conns  chan *websocket.Conn
	paths  chan string
}

func newFakeVoiceService(t *testing.T) *fakeVoiceService {
	f := &fakeVoiceService{
		conns: make(chan *websocket.Conn, 8),
		paths: make(chan string, 8),
	}

	e := echo.New()
	e.GET("/ws/voice/:clientID", func(c echo.Context) error {
		conn, err := testUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		f.paths <- c.Param("clientID")
		f.conns <- conn
		return nil
	})

	f.server = httptest.NewServer(e)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeVoiceService) URL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakeVoiceService) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(waitFor):
		t.Fatal("kiosk never connected")
		return nil
	}
}

// events records client callbacks
type events struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	errs        []error
	messages    []domain.InboundMessage
}

func (e *events) bind(c *Client) {
	c.OnConnect(func() { e.mu.Lock(); e.connects++; e.mu.Unlock() })
	c.OnDisconnect(func() { e.mu.Lock(); e.disconnects++; e.mu.Unlock() })
	c.OnError(func(err error) { e.mu.Lock(); e.errs = append(e.errs, err); e.mu.Unlock() })
	c.OnMessage(func(m domain.InboundMessage) { e.mu.Lock(); e.messages = append(e.messages, m); e.mu.Unlock() })
}

func (e *events) snapshot() (connects, disconnects int, errs []error, messages []domain.InboundMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects, e.disconnects, append([]error(nil), e.errs...), append([]domain.InboundMessage(nil), e.messages...)
}

func newTestClient(t *testing.T, baseURL string, clk clock.Clock) (*Client, *events) {
	t.Helper()
	client, err := NewClient(Config{BaseURL: baseURL}, clk, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(client.Disconnect)

	ev := &events{}
	ev.bind(client)
	return client, ev
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(Config{}, clock.NewMock(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, defaultBaseURL, client.config.BaseURL)
	assert.Equal(t, 2*time.Second, client.config.ReconnectBase)
	assert.Equal(t, 5, client.config.MaxReconnectAttempts)
	assert.True(t, strings.HasPrefix(client.URL(), "ws://localhost:46000/ws/voice/client_"))
	assert.False(t, client.IsConnected())
	session := client.Session()
	assert.NoError(t, session.Validate())
	assert.Equal(t, entities.ConnectionDisconnected, client.Session().State)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "empty uses defaults", config: Config{}},
		{name: "wss url", config: Config{BaseURL: "wss://voice.example.com"}},
		{name: "http url", config: Config{BaseURL: "http://voice.example.com"}, wantErr: true},
		{name: "negative base", config: Config{ReconnectBase: -time.Second}, wantErr: true},
		{name: "negative attempts", config: Config{MaxReconnectAttempts: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_ConnectAndSend(t *testing.T) {
	service := newFakeVoiceService(t)
	client, ev := newTestClient(t, service.URL(), clock.New())

	client.Connect(context.Background())
	server := service.accept(t)

	assert.Equal(t, client.Session().ClientID, <-service.paths)
	require.Eventually(t, client.IsConnected, waitFor, time.Millisecond)
	require.Eventually(t, func() bool { c, _, _, _ := ev.snapshot(); return c == 1 }, waitFor, time.Millisecond)

	client.SendAudioChunk("AAEC")
	client.SendControl("stop")

	server.SetReadDeadline(time.Now().Add(waitFor))
	var first, second domain.OutboundMessage
	require.NoError(t, server.ReadJSON(&first))
	require.NoError(t, server.ReadJSON(&second))

	assert.Equal(t, domain.OutboundMessage{Type: domain.MessageTypeAudioChunk, Data: "AAEC"}, first)
	assert.Equal(t, domain.OutboundMessage{Type: domain.MessageTypeControl, Data: "stop"}, second)
}

func TestClient_SendWhileClosedIsDropped(t *testing.T) {
	client, ev := newTestClient(t, "ws://127.0.0.1:1", clock.NewMock())

	assert.NotPanics(t, func() {
		client.SendAudioChunk("AAEC")
		client.SendControl("start")
	})

	assert.Equal(t, entities.ConnectionDisconnected, client.Session().State)
	_, _, errs, _ := ev.snapshot()
	assert.Empty(t, errs)
}

func TestClient_InboundMessages(t *testing.T) {
	service := newFakeVoiceService(t)
	client, ev := newTestClient(t, service.URL(), clock.New())

	client.Connect(context.Background())
	server := service.accept(t)

	frames := []string{
		`{"type": "transcription", "text": "one burger"}`,
		`not json`,
		`{"type": "heartbeat"}`,
		`{"text": "no type"}`,
		`{"type": "tts_audio", "audio": "UklGRg==", "text": "anything else?"}`,
		`{"type": "error", "error": "stt unavailable"}`,
	}
	for _, frame := range frames {
		require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	require.Eventually(t, func() bool { _, _, _, m := ev.snapshot(); return len(m) == 3 }, waitFor, time.Millisecond)

	_, _, _, messages := ev.snapshot()
	assert.Equal(t, domain.MessageTypeTranscription, messages[0].Type)
	assert.Equal(t, "one burger", messages[0].Text)
	assert.Equal(t, domain.MessageTypeTTSAudio, messages[1].Type)
	assert.Equal(t, domain.MessageTypeError, messages[2].Type)
	assert.Equal(t, "stt unavailable", messages[2].Error)
	assert.True(t, client.IsConnected(), "malformed input must not close the session")
}

func TestClient_ReconnectsAfterUnexpectedClose(t *testing.T) {
	service := newFakeVoiceService(t)
	mock := clock.NewMock()
	client, ev := newTestClient(t, service.URL(), mock)

	client.Connect(context.Background())
	server := service.accept(t)
	require.Eventually(t, client.IsConnected, waitFor, time.Millisecond)

	server.Close()

	require.Eventually(t, func() bool {
		return client.Session().State == entities.ConnectionReconnecting
	}, waitFor, time.Millisecond)
	assert.Equal(t, 1, client.Session().ReconnectAttempt)
	_, disconnects, _, _ := ev.snapshot()
	assert.Equal(t, 1, disconnects)

	mock.Add(2 * time.Second)
	service.accept(t)

	require.Eventually(t, client.IsConnected, waitFor, time.Millisecond)
	assert.Equal(t, 0, client.Session().ReconnectAttempt, "successful open resets the attempt counter")
	connects, _, _, _ := ev.snapshot()
	assert.Equal(t, 2, connects)
}

func TestClient_ExhaustsReconnectAttempts(t *testing.T) {
	service := newFakeVoiceService(t)
	deadURL := service.URL()
	service.server.Close()

	mock := clock.NewMock()
	client, ev := newTestClient(t, deadURL, mock)

	client.Connect(context.Background())

	delays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second}
	for i, delay := range delays {
		attempt := i + 1
		require.Eventually(t, func() bool {
			s := client.Session()
			return s.State == entities.ConnectionReconnecting && s.ReconnectAttempt == attempt
		}, waitFor, time.Millisecond, "attempt %d", attempt)

		mock.Add(delay - time.Millisecond)
		assert.Equal(t, attempt, client.Session().ReconnectAttempt, "attempt %d fired early", attempt)
		mock.Add(time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return client.Session().State == entities.ConnectionFailed
	}, waitFor, time.Millisecond)

	mock.Add(time.Hour)
	time.Sleep(20 * time.Millisecond)

	_, _, errs, _ := ev.snapshot()
	var transportErrs, exhausted int
	for _, err := range errs {
		switch {
		case errors.Is(err, domain.ErrConnectionExhausted):
			exhausted++
		case errors.Is(err, domain.ErrTransport):
			transportErrs++
		}
	}
	assert.Equal(t, 1, exhausted, "exhaustion is reported exactly once")
	assert.Equal(t, 6, transportErrs, "initial attempt plus five retries")
	assert.Equal(t, entities.ConnectionFailed, client.Session().State)
}

func TestClient_DisconnectSuppressesReconnect(t *testing.T) {
	service := newFakeVoiceService(t)
	mock := clock.NewMock()
	client, ev := newTestClient(t, service.URL(), mock)

	client.Connect(context.Background())
	server := service.accept(t)
	require.Eventually(t, client.IsConnected, waitFor, time.Millisecond)

	client.Disconnect()
	client.Disconnect()

	server.SetReadDeadline(time.Now().Add(waitFor))
	_, _, err := server.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected a normal close frame, got %v", err)

	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, entities.ConnectionDisconnected, client.Session().State)
	assert.Equal(t, 0, client.Session().ReconnectAttempt)
	_, disconnects, errs, _ := ev.snapshot()
	assert.Equal(t, 0, disconnects, "explicit close is not reported as a disconnect")
	assert.Empty(t, errs)
}

func TestClient_DisconnectCancelsPendingRetry(t *testing.T) {
	service := newFakeVoiceService(t)
	deadURL := service.URL()
	service.server.Close()

	mock := clock.NewMock()
	client, ev := newTestClient(t, deadURL, mock)

	client.Connect(context.Background())
	require.Eventually(t, func() bool {
		return client.Session().State == entities.ConnectionReconnecting
	}, waitFor, time.Millisecond)

	client.Disconnect()
	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)

	_, _, errs, _ := ev.snapshot()
	assert.Len(t, errs, 1, "only the initial failed attempt is reported")
	assert.Equal(t, entities.ConnectionDisconnected, client.Session().State)
}

func TestOutboundMessageJSON(t *testing.T) {
	payload, err := json.Marshal(domain.OutboundMessage{Type: domain.MessageTypeControl, Data: "start"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"control","data":"start"}`, string(payload))
}
