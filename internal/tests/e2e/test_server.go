package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/app"
	"github.com/you/accountsvc/internal/config"
)

// TestServer runs the full service over sqlite and miniredis behind an httptest server.
// Mail and SMS go to the log sender; Mailbox reads the links back out of the log.
type TestServer struct {
	Server    *httptest.Server
	Container *app.Container
	Config    *config.Config
	Redis     *miniredis.Miniredis
	Client    *http.Client
	Mailbox   *Mailbox
}

// NewTestServer builds and starts a server; it is stopped in t.Cleanup
func NewTestServer(t *testing.T, mutate ...func(*config.Config)) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr.Addr())
	for _, m := range mutate {
		m(cfg)
	}

	mailbox := &Mailbox{}
	log := slog.New(slog.NewJSONHandler(mailbox, &slog.HandlerOptions{Level: slog.LevelInfo}))

	c, err := app.NewContainer(t.Context(), cfg, log)
	require.NoError(t, err, "failed to build container")
	c.Start(t.Context())

	server := httptest.NewServer(c.Router())
	ts := &TestServer{
		Server:    server,
		Container: c,
		Config:    cfg,
		Redis:     mr,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Mailbox:   mailbox,
	}

	t.Cleanup(func() {
		server.Close()
		_ = c.Close()
	})
	return ts
}

func testConfig(t *testing.T, redisAddr string) *config.Config {
	return &config.Config{
		Port:                "0",
		PublicBaseURL:       "http://accounts.test",
		LogLevel:            "error",
		DBDriver:            "sqlite",
		DSN:                 t.TempDir() + "/accounts.db",
		RedisAddr:           redisAddr,
		JWTSecret:           "e2e-secret",
		JWTIssuer:           "accountsvc-e2e",
		VerificationTTL:     24 * time.Hour,
		ResetTokenTTL:       time.Hour,
		ResetMirrorTTL:      24 * time.Hour,
		BcryptCost:          4,
		LoginPolicies:       domain.DefaultLoginPolicies(),
		EmailProvider:       "log",
		VerificationChannel: domain.ChannelEmail,
		DispatchWorkers:     2,
		DispatchQueueSize:   64,
		DispatchTimeout:     time.Second,
		ResendWindow:        time.Minute,
		ResetSweepSchedule:  "@every 1h",
		OwnershipRules: []config.OwnershipRule{
			{Method: http.MethodDelete, Path: "/users/:userId", Source: "path", ParamName: "userId"},
		},
	}
}

// Response is a decoded HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       map[string]any
	Raw        []byte
}

// Do sends a JSON request; token, when set, goes in the Authorization header
func (s *TestServer) Do(t *testing.T, method, path string, body any, token string) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, s.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

// Mailbox is a concurrency-safe log sink that lets tests read delivered messages
type Mailbox struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (m *Mailbox) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Write(p)
}

type delivery struct {
	Msg     string `json:"msg"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (m *Mailbox) deliveries() []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []delivery
	scanner := bufio.NewScanner(bytes.NewReader(m.buf.Bytes()))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var d delivery
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			continue
		}
		if d.Msg == "email" || d.Msg == "sms" {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many messages were delivered to recipient
func (m *Mailbox) Count(recipient string) int {
	n := 0
	for _, d := range m.deliveries() {
		if d.To == recipient {
			n++
		}
	}
	return n
}

var linkPattern = regexp.MustCompile(`/users/(verify|reset-password)/([A-Za-z0-9_\-.]+)`)

// WaitForToken waits for the newest message to recipient whose link starts with /users/<route>/ and returns its token
func (m *Mailbox) WaitForToken(t *testing.T, recipient, route string, after int) string {
	t.Helper()

	var token string
	require.Eventually(t, func() bool {
		seen := 0
		for _, d := range m.deliveries() {
			if d.To != recipient {
				continue
			}
			seen++
			if seen <= after {
				continue
			}
			match := linkPattern.FindStringSubmatch(d.Body)
			if match != nil && match[1] == route {
				token = match[2]
			}
		}
		return token != ""
	}, 3*time.Second, 10*time.Millisecond, "no %s message for %s", route, recipient)
	return token
}
