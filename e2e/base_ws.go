package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseWSSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWSSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerAddr == "" {
		s.T().Skip("E2E_SERVER_ADDR not set")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

// Step prints a colorized header before running fn as a subtest.
func (s *BaseWSSuite) Step(name string, fn func()) {
	s.Run(name, func() {
		header := fmt.Sprintf("  ====== %s ======", name)
		if s.Config.Colours {
			header = color.New(color.BgBlack, color.FgGreen).Render(header)
		}
		s.T().Log(header)
		fn()
	})
}

// Call sends a JSON request and decodes the JSON response into out when out is not nil.
func (s *BaseWSSuite) Call(method, path, token string, body, out any) int {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}
	request, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", s.Config.ServerAddr, path), reader)
	s.Require().NoError(err)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(request)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.T().Logf("HTTP %s %s [%d] in %v", method, path, resp.StatusCode, time.Since(start))
	if s.Config.DebugJSON {
		s.T().Logf("RESPONSE:\n%s", raw)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
	return resp.StatusCode
}

// Dial opens a WebSocket session authenticated by token.
func (s *BaseWSSuite) Dial(token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws/%s", s.Config.ServerAddr, token), nil)
	s.Require().NoError(err, "Failed to open a websocket on "+s.Config.ServerAddr)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *BaseWSSuite) SendFrame(conn *websocket.Conn, frame any) {
	data, err := json.Marshal(frame)
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("SEND: %s", data)
	}
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, data))
}

// ReceiveFrame waits up to five seconds for the next frame.
func (s *BaseWSSuite) ReceiveFrame(conn *websocket.Conn, out any) {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	_, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("RECV: %s", data)
	}
	s.Require().NoError(json.Unmarshal(data, out))
}
