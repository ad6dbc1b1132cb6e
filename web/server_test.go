package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orchestratorx "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
	"github.com/tanpawarit/supervisor-agent/chat"
)

type fakeRunner struct {
	mu    sync.Mutex
	tasks []string
	err   error
	delay time.Duration

	// block holds Run until ctx ends, then closes cancelled.
	block     bool
	cancelled chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, task string, opts ...orchestratorx.RunOption) (orchestratorx.Result, error) {
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()

	obs := orchestratorx.RunObserver(opts...)
	obs.OnStep(ctx, contractx.Step{Kind: contractx.StepSupervisorDecided, Number: 1, Action: statex.ActionAssignWorker, Worker: statex.WorkerCoder})
	obs.OnStep(ctx, contractx.Step{Kind: contractx.StepWorkerStarted, Number: 1, Worker: statex.WorkerCoder})

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.block {
		<-ctx.Done()
		close(f.cancelled)
		return orchestratorx.Result{}, ctx.Err()
	}
	if f.err != nil {
		return orchestratorx.Result{}, f.err
	}
	return orchestratorx.Result{
		FinalAnswer:   "answer to: " + task,
		WorkerResults: map[statex.WorkerName]string{statex.WorkerCoder: "code"},
	}, nil
}

func (f *fakeRunner) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tasks...)
}

func newTestServer(t *testing.T, runner *fakeRunner) (*httptest.Server, *http.Client) {
	t.Helper()

	s, err := New(runner, Config{}, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})))
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func postChat(t *testing.T, client *http.Client, url, message string) (*http.Response, chatResponse) {
	t.Helper()

	body, err := json.Marshal(chatRequest{Message: message})
	require.NoError(t, err)
	resp, err := client.Post(url+"/api/chat", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out chatResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestIndexPage(t *testing.T) {
	srv, client := newTestServer(t, &fakeRunner{})

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, "Show contributing agents")
	assert.Contains(t, page, "Max conversation length")
	assert.Contains(t, page, "writing and debugging code")
	assert.Contains(t, page, `min="5"`)
	assert.Contains(t, page, `max="50"`)
}

func TestChatCarriesHistory(t *testing.T) {
	runner := &fakeRunner{}
	srv, client := newTestServer(t, runner)

	resp, out := postChat(t, client, srv.URL, "hi")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "answer to: hi", out.Answer)
	assert.Equal(t, []string{"coder"}, out.Agents)

	_, _ = postChat(t, client, srv.URL, "more")
	tasks := runner.seen()
	require.Len(t, tasks, 2)
	assert.Equal(t, "User: hi\nAssistant: answer to: hi\n\nCurrent request: more", tasks[1])

	hresp, err := client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var hist historyResponse
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&hist))
	assert.Len(t, hist.Messages, 4)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	runner := &fakeRunner{}
	srv, client := newTestServer(t, runner)

	resp, _ := postChat(t, client, srv.URL, "   ")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runner.seen())
}

func TestChatErrorIsAnswered(t *testing.T) {
	srv, client := newTestServer(t, &fakeRunner{err: errors.New("model down")})

	resp, out := postChat(t, client, srv.URL, "hi")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sorry, I encountered an error: model down", out.Answer)
	assert.Empty(t, out.Agents)
}

func TestResetClearsHistory(t *testing.T) {
	srv, client := newTestServer(t, &fakeRunner{})

	_, _ = postChat(t, client, srv.URL, "hi")

	resp, err := client.Post(srv.URL+"/api/reset", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	hresp, err := client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var hist historyResponse
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&hist))
	assert.Empty(t, hist.Messages)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, client := newTestServer(t, &fakeRunner{})

	resp, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketStreamsProgressThenAnswer(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "build it"}))

	var kinds []string
	for {
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev))
		kinds = append(kinds, ev.Type)
		if ev.Type == "answer" {
			assert.Equal(t, "answer to: build it", ev.Answer)
			assert.Equal(t, []string{"coder"}, ev.Agents)
			break
		}
		require.Equal(t, "progress", ev.Type)
	}
	assert.Equal(t, []string{"progress", "progress", "answer"}, kinds)
}

func TestWebSocketReportsErrors(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{err: errors.New("model down")})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatRequest{Message: ""}))
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "message is required", ev.Message)

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "hi"}))
	for {
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type != "progress" {
			break
		}
	}
	assert.Equal(t, "error", ev.Type)
	assert.Equal(t, "Sorry, I encountered an error: model down", ev.Answer)
}

func TestIsOriginAllowed(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://chat.local:8501/ws", nil)
	assert.True(t, isOriginAllowed(r, nil))

	r.Header.Set("Origin", "http://chat.local:8501")
	assert.True(t, isOriginAllowed(r, nil))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, isOriginAllowed(r, nil))
	assert.True(t, isOriginAllowed(r, []string{"evil.example"}))
}

func TestChatTurnsOfOneSessionRunInOrder(t *testing.T) {
	runner := &fakeRunner{delay: 50 * time.Millisecond}
	srv, client := newTestServer(t, runner)

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	var wg sync.WaitGroup
	for _, msg := range []string{"one", "two"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := postChat(t, client, srv.URL, msg)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}()
	}
	wg.Wait()

	tasks := runner.seen()
	require.Len(t, tasks, 2)
	first := tasks[0]
	second := "two"
	if first == "two" {
		second = "one"
	}
	assert.Equal(t, "User: "+first+"\nAssistant: answer to: "+first+"\n\nCurrent request: "+second, tasks[1])

	hresp, err := client.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var hist historyResponse
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&hist))
	require.Len(t, hist.Messages, 4)
	for i, msg := range hist.Messages {
		want := chat.RoleUser
		if i%2 == 1 {
			want = chat.RoleAssistant
		}
		assert.Equal(t, want, msg.Role, "message %d", i)
	}
}

func TestSessionCreatedOnFirstTurn(t *testing.T) {
	s, err := New(&fakeRunner{}, Config{})
	require.NoError(t, err)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, 0, s.sessions.len())

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 0, s.sessions.len())

	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.sessions.len())
}

func TestPruneDropsIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newSessionStore()
	store.now = func() time.Time { return now }

	store.open("idle")
	busy := store.open("busy")
	store.open("fresh")

	now = now.Add(3 * time.Hour)
	store.open("fresh").touch(now)

	busy.turn.Lock()
	assert.Equal(t, 1, store.prune(2*time.Hour))
	busy.turn.Unlock()

	_, ok := store.lookup("idle")
	assert.False(t, ok)
	_, ok = store.lookup("busy")
	assert.True(t, ok)
	_, ok = store.lookup("fresh")
	assert.True(t, ok)

	assert.Equal(t, 1, store.prune(2*time.Hour))
	assert.Equal(t, 1, store.len())
}

func TestWebSocketDisconnectCancelsRun(t *testing.T) {
	runner := &fakeRunner{block: true, cancelled: make(chan struct{})}
	srv, _ := newTestServer(t, runner)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(chatRequest{Message: "long task"}))
	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "progress", ev.Type)

	require.NoError(t, conn.Close())

	select {
	case <-runner.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled after the client disconnected")
	}
}
