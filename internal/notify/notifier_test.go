package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/suggestion-box/internal/config"
	"github.com/spec-kit/suggestion-box/internal/observability"
)

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, Message) error { return errors.New("boom") }

func TestInstrumentCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	ok := Instrument(NewLogNotifier(zap.NewNop()), "log", metrics)
	bad := Instrument(failingNotifier{}, "smtp", metrics)

	require.NoError(t, ok.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s"}))
	require.Error(t, bad.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s"}))

	expected := `
# HELP suggestionbox_mail_send_total Mail send attempts by transport and result
# TYPE suggestionbox_mail_send_total counter
suggestionbox_mail_send_total{result="failure",transport="smtp"} 1
suggestionbox_mail_send_total{result="success",transport="log"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "suggestionbox_mail_send_total"))
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), Message{To: []string{"hod@school.edu"}, Subject: "Hi", Body: "Body"}))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "Hi", fields["subject"])

	assert.ErrorIs(t, n.Send(context.Background(), Message{}), ErrNoRecipients)
	assert.ErrorIs(t, n.Send(context.Background(), Message{To: []string{""}}), ErrNoRecipients)
}

func TestSendgridNotifier(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendgridEndpoint, r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewSendgridNotifier(config.MailConfig{SendgridAPIKey: "SG.key", From: "portal@school.edu"})
	n.host = srv.URL

	err := n.Send(context.Background(), Message{To: []string{"hod@school.edu"}, Subject: "New Suggestion: Wifi", Body: "Title: Wifi"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer SG.key", gotAuth)
	require.NotNil(t, gotBody)
	assert.Equal(t, "portal@school.edu", gotBody["from"].(map[string]any)["email"])
	personalizations := gotBody["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	assert.Equal(t, "New Suggestion: Wifi", personalizations[0].(map[string]any)["subject"])
}

func TestSendgridNotifierReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	n := NewSendgridNotifier(config.MailConfig{SendgridAPIKey: "bad", From: "portal@school.edu"})
	n.host = srv.URL

	err := n.Send(context.Background(), Message{To: []string{"hod@school.edu"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

// startTestSMTPServer accepts sessions until stopped and records each DATA payload.
func startTestSMTPServer(t *testing.T) (host string, port int, received func() []string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		data []string
		wg   sync.WaitGroup
	)
	handle := func(conn net.Conn) {
		defer conn.Close()
		r := bufio.NewReader(conn)
		fmt.Fprintf(conn, "220 localhost Test SMTP Service Ready\r\n")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "HELO"):
				fmt.Fprintf(conn, "250-localhost Hello\r\n250 OK\r\n")
			case strings.HasPrefix(line, "DATA"):
				fmt.Fprintf(conn, "354 End data with <CR><LF>.<CR><LF>\r\n")
				var payload strings.Builder
				for {
					dline, derr := r.ReadString('\n')
					if derr != nil || strings.TrimSpace(dline) == "." {
						break
					}
					payload.WriteString(dline)
				}
				mu.Lock()
				data = append(data, payload.String())
				mu.Unlock()
				fmt.Fprintf(conn, "250 OK: queued\r\n")
			case strings.HasPrefix(line, "QUIT"):
				fmt.Fprintf(conn, "221 Bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 OK\r\n")
			}
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				handle(conn)
			}()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	received = func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), data...)
	}
	stop = func() {
		ln.Close()
		wg.Wait()
	}
	return "127.0.0.1", addr.Port, received, stop
}

func TestSMTPNotifier(t *testing.T) {
	host, port, received, stop := startTestSMTPServer(t)
	defer stop()

	n := NewSMTPNotifier(config.MailConfig{Host: host, Port: port, From: "portal@school.edu"}, zap.NewNop())
	require.NoError(t, n.Verify())

	err := n.Send(context.Background(), Message{To: []string{"hod@school.edu"}, Subject: "New Suggestion: Wifi", Body: "Title: Wifi"})
	require.NoError(t, err)

	payloads := received()
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0], "Subject: New Suggestion: Wifi")
	assert.Contains(t, payloads[0], "To: hod@school.edu")
	assert.Contains(t, payloads[0], "Title: Wifi")
}

func TestSMTPNotifierUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	n := NewSMTPNotifier(config.MailConfig{Host: "127.0.0.1", Port: port, From: "portal@school.edu"}, zap.NewNop())
	assert.Error(t, n.Verify())
	assert.Error(t, n.Send(context.Background(), Message{To: []string{"hod@school.edu"}, Subject: "s", Body: "b"}))
}

func TestSMTPNotifierGivesUpOnStalledRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	defer func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	n := NewSMTPNotifier(config.MailConfig{Host: "127.0.0.1", Port: port, From: "portal@school.edu"}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = n.Send(ctx, Message{To: []string{"hod@school.edu"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSelectsTransport(t *testing.T) {
	n, err := New(config.MailConfig{Driver: config.MailLog}, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &instrumented{}, n)
	assert.IsType(t, &LogNotifier{}, n.(*instrumented).next)

	n, err = New(config.MailConfig{Driver: config.MailSendgrid, SendgridAPIKey: "k"}, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.IsType(t, &SendgridNotifier{}, n.(*instrumented).next)

	_, err = New(config.MailConfig{Driver: "pigeon"}, zap.NewNop(), nil)
	assert.Error(t, err)
}
