package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistanthub/internal/assistanthub/config"
	"assistanthub/internal/assistanthub/tools"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ASSISTANTHUB_DOTENV", "off")
	t.Setenv("ASSISTANTHUB_REMINDER_STORE", "none")
	t.Setenv("ASSISTANTHUB_ACCOUNTS_STORE", "none")
	t.Setenv("ASSISTANTHUB_SEARCH_ROOT", t.TempDir())
	t.Setenv("ASSISTANTHUB_TIMEZONE", "UTC")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func testComponents(t *testing.T) (*Components, *[]string) {
	t.Helper()
	var opened []string
	c, err := Build(testConfig(t), BuildOptions{
		Opener: tools.OpenerFunc(func(u string) error { opened = append(opened, u); return nil }),
		Now:    func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return c, &opened
}

func TestChat(t *testing.T) {
	c, opened := testComponents(t)
	in := strings.NewReader("what time is it\nopen wikipedia\n/transcript\n/quit\nnever read\n")
	var out bytes.Buffer

	require.NoError(t, Chat(context.Background(), c, "astra", "Ana", in, &out))
	got := out.String()
	assert.Contains(t, got, "Astra: Hi, I am Astra. How can I help you today?\n")
	assert.Contains(t, got, "Astra: The current time is 09:30:00\n")
	assert.Contains(t, got, "Astra: Opening Wikipedia...\n")
	assert.Contains(t, got, "You: what time is it\nAstra: The current time is 09:30:00\nYou: open wikipedia")
	assert.NotContains(t, got, "never read")
	assert.Equal(t, []string{"https://www.wikipedia.org"}, *opened)
}

func TestChat_UnknownBot(t *testing.T) {
	c, _ := testComponents(t)
	err := Chat(context.Background(), c, "nova", "", strings.NewReader(""), &bytes.Buffer{})
	assert.EqualError(t, err, `unknown bot "nova"`)
}

func TestChat_ReminderRoundTrip(t *testing.T) {
	c, _ := testComponents(t)
	in := strings.NewReader("remind me to call mom at 18:30 on 17:10:2026 weekly\n")
	var out bytes.Buffer
	require.NoError(t, Chat(context.Background(), c, "vertex", "", in, &out))
	assert.Contains(t, out.String(), "Vertex: Reminder set for 'call mom' at 18:30 on 17-10-2026 (weekly).")
	require.Len(t, c.Scheduler.Pending(""), 1)
}

func TestHandler_Bots(t *testing.T) {
	c, _ := testComponents(t)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bots", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"vertex"`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	c, _ := testComponents(t)
	c.Config.Server.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, c) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, strings.NewReader(""), &out))
	assert.Equal(t, "dev\n", out.String())
}
