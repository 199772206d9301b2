package coordinator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
	"github.com/coopco/deskclock/internal/cron"
	"github.com/coopco/deskclock/internal/relay"
	"github.com/coopco/deskclock/internal/remote"
	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/store"
)

// fakeRelay is an ntfy stand-in that serves queued command lines and
// records everything published to it.
type fakeRelay struct {
	mu        sync.Mutex
	lines     []string
	queries   []string
	published map[string][]string
}

func newFakeRelay(t *testing.T) (*fakeRelay, *httptest.Server) {
	f := &fakeRelay{published: make(map[string][]string)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			f.queries = append(f.queries, r.URL.Path+"?"+r.URL.RawQuery)
			for _, line := range f.lines {
				io.WriteString(w, line+"\n")
			}
			f.lines = nil
		case http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			topic := strings.TrimPrefix(r.URL.Path, "/")
			f.published[topic] = append(f.published[topic], string(b))
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeRelay) queue(id, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env := `{"id":"` + id + `","time":1,"event":"message","topic":"desk-remote","message":` + jsonString(message) + `}`
	f.lines = append(f.lines, env)
}

func (f *fakeRelay) posts(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published[topic]...)
}

func (f *fakeRelay) polls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func jsonString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

type fakeIndicator struct {
	mu     sync.Mutex
	states []bool
}

func (f *fakeIndicator) Show(active bool, pending int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, active)
}

func (f *fakeIndicator) last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return false, false
	}
	return f.states[len(f.states)-1], true
}

var testNow = time.Date(2026, 10, 20, 7, 0, 0, 0, time.Local)

func newTestCoordinator(t *testing.T, srvURL string, settings config.RelayConfig) (*Coordinator, *store.Store, *bus.MessageBus, *fakeIndicator) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	b := bus.NewMessageBus(10)
	ind := &fakeIndicator{}
	c, err := New(Config{
		Store:     st,
		Bus:       b,
		Relay:     relay.New(srvURL, time.Second),
		Alarms:    cron.NewService(),
		Indicator: ind,
		Generator: schedule.Generator{Now: func() time.Time { return testNow }, Location: time.Local},
		Settings:  settings,
		Now:       func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, st, b, ind
}

func TestPollRemoteAppliesUpdate(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, st, _, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk", PollWindow: "2m"})

	f.queue("m1", "not a command")
	f.queue("m2", `{"type":"REMOTE_UPDATE","dates":["2026-10-20"],"clockIn":"09:00","clockOut":"17:00","isRandomized":false}`)
	f.queue("m3", `{"type":"SOMETHING_ELSE"}`)
	c.PollRemote(context.Background())

	sched, err := schedule.Load(st)
	if err != nil {
		t.Fatal(err)
	}
	if !sched.Active || len(sched.Tasks) != 2 {
		t.Fatalf("schedule = %+v, want 2 active tasks", sched)
	}
	if sched.Tasks[0].Action != schedule.ActionIn || sched.Tasks[1].Action != schedule.ActionOut {
		t.Errorf("tasks = %v", sched.Tasks)
	}
	if sched.ClockIn != "09:00" || sched.ClockOut != "17:00" {
		t.Errorf("times = %q %q", sched.ClockIn, sched.ClockOut)
	}

	c.PollRemote(context.Background())
	polls := f.polls()
	if len(polls) != 2 {
		t.Fatalf("polls = %v", polls)
	}
	if !strings.HasPrefix(polls[0], "/desk-remote/json") || !strings.Contains(polls[0], "since=2m") {
		t.Errorf("first poll = %q", polls[0])
	}
	if !strings.Contains(polls[1], "since=m3") {
		t.Errorf("second poll = %q, want since=m3", polls[1])
	}
}

func TestPollRemoteStop(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, st, _, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk"})

	if _, err := schedule.Activate(st, c.generator, schedule.Request{Dates: []string{"2026-10-20"}, ClockIn: "09:00"}); err != nil {
		t.Fatal(err)
	}
	f.queue("s1", `{"type":"REMOTE_STOP"}`)
	c.PollRemote(context.Background())

	sched, _ := schedule.Load(st)
	if sched.Active || len(sched.Tasks) != 0 {
		t.Errorf("schedule after stop = %+v", sched)
	}
}

func TestPollRemoteIgnoresDuplicatesAndStatus(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, st, _, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk"})

	status, _ := remote.EncodeStatus(remote.Status{Active: true, LastUpdate: testNow})
	f.queue("x1", string(status))
	c.PollRemote(context.Background())

	f.queue("u1", `{"type":"REMOTE_UPDATE","dates":["2026-10-20"],"clockIn":"09:00"}`)
	c.PollRemote(context.Background())
	if err := schedule.Clear(st); err != nil {
		t.Fatal(err)
	}
	// a websocket delivery of the same message must not re-apply it
	c.handleEnvelope(context.Background(), relay.Envelope{ID: "u1", Message: `{"type":"REMOTE_UPDATE","dates":["2026-10-20"],"clockIn":"09:00"}`})

	sched, _ := schedule.Load(st)
	if sched.Active {
		t.Error("duplicate envelope re-activated the schedule")
	}
}

func TestPollRemoteWithoutTopic(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, _, _, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{})
	c.PollRemote(context.Background())
	if polls := f.polls(); len(polls) != 0 {
		t.Errorf("polled without a topic: %v", polls)
	}
}

func TestStoredTopicWins(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, st, _, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "fallback"})
	if err := schedule.SetTopic(st, "  mine "); err != nil {
		t.Fatal(err)
	}
	if got := c.Topic(); got != "mine" {
		t.Fatalf("Topic() = %q", got)
	}
	c.PollRemote(context.Background())
	if polls := f.polls(); len(polls) != 1 || !strings.HasPrefix(polls[0], "/mine-remote/json") {
		t.Errorf("polls = %v", polls)
	}
}

func TestRequestSyncPushesStatus(t *testing.T) {
	tests := []struct {
		name      string
		settings  config.RelayConfig
		syncTopic string
	}{
		{"default sync topic", config.RelayConfig{Topic: "desk"}, "desk-remote"},
		{"hidden sync topic", config.RelayConfig{Topic: "desk", SyncTopic: "desk-hidden"}, "desk-hidden"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, srv := newFakeRelay(t)
			c, st, _, _ := newTestCoordinator(t, srv.URL, tc.settings)
			if _, err := schedule.Activate(st, c.generator, schedule.Request{Dates: []string{"2026-10-20"}, ClockIn: "09:00"}); err != nil {
				t.Fatal(err)
			}

			f.queue("r1", `{"type":"REQUEST_SYNC"}`)
			c.PollRemote(context.Background())

			posts := f.posts(tc.syncTopic)
			if len(posts) != 1 {
				t.Fatalf("posts to %s = %v", tc.syncTopic, posts)
			}
			doc := posts[0]
			if gjson.Get(doc, "type").String() != remote.StatusType {
				t.Errorf("type = %s", gjson.Get(doc, "type"))
			}
			if !gjson.Get(doc, "isActive").Bool() || gjson.Get(doc, "tasks.#").Int() != 1 {
				t.Errorf("status = %s", doc)
			}
			if gjson.Get(doc, "lastUpdate").Int() != testNow.UnixMilli() {
				t.Errorf("lastUpdate = %s", gjson.Get(doc, "lastUpdate"))
			}
			if !strings.HasPrefix(gjson.Get(doc, "source").String(), "deskclock-") {
				t.Errorf("source = %s", gjson.Get(doc, "source"))
			}
		})
	}
}

func TestHandleResultFatalDeactivates(t *testing.T) {
	_, srv := newFakeRelay(t)
	c, st, b, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk"})
	if _, err := schedule.Activate(st, c.generator, schedule.Request{Dates: []string{"2026-10-20"}, ClockIn: "09:00"}); err != nil {
		t.Fatal(err)
	}

	c.HandleResult(bus.Result{Type: bus.ResultFailed, Action: "IN", Err: "toggle element not found"})

	sched, _ := schedule.Load(st)
	if sched.Active {
		t.Error("fatal result left the schedule active")
	}
	msg, err := b.ConsumeOutbound(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Priority != "urgent" || !strings.Contains(msg.Content, "toggle element not found") {
		t.Errorf("unexpected notification %+v", msg)
	}
}

func TestHandleResultNonFatalKeepsActive(t *testing.T) {
	_, srv := newFakeRelay(t)
	c, st, b, _ := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk"})
	if _, err := schedule.Activate(st, c.generator, schedule.Request{Dates: []string{"2026-10-20"}, ClockIn: "09:00"}); err != nil {
		t.Fatal(err)
	}
	observed := false
	c.HandleResult(bus.Result{Type: bus.ResultRetryFailed, Action: "IN", Observed: &observed})

	sched, _ := schedule.Load(st)
	if !sched.Active {
		t.Error("retry failure deactivated the schedule")
	}
	msg, _ := b.ConsumeOutbound(context.Background())
	if msg.Priority != "high" || !strings.Contains(msg.Content, "toggle is off") {
		t.Errorf("unexpected notification %+v", msg)
	}
}

func TestCompose(t *testing.T) {
	at := time.Date(2026, 10, 20, 9, 0, 0, 0, time.Local).UnixMilli()
	tests := []struct {
		result   bus.Result
		title    string
		priority string
		tag      string
	}{
		{bus.Result{Type: bus.ResultCompleted, Action: "IN", Timestamp: at}, "Clock in done", "default", "white_check_mark"},
		{bus.Result{Type: bus.ResultCompleted, Action: "OUT", Timestamp: at}, "Clock out done", "default", "white_check_mark"},
		{bus.Result{Type: bus.ResultSkippedOn, Action: "IN", Timestamp: at}, "Already clocked in", "low", "information_source"},
		{bus.Result{Type: bus.ResultSkippedOff, Action: "OUT", Timestamp: at}, "Already clocked out", "low", "information_source"},
		{bus.Result{Type: bus.ResultRetryFailed, Action: "IN", Timestamp: at}, "Clock in failed", "high", "warning"},
		{bus.Result{Type: bus.ResultFailed}, "Desk clock stopped", "urgent", "rotating_light"},
	}
	for _, tc := range tests {
		t.Run(tc.result.String(), func(t *testing.T) {
			msg := Compose(tc.result)
			if msg.Title != tc.title || msg.Priority != tc.priority {
				t.Errorf("title=%q priority=%q", msg.Title, msg.Priority)
			}
			if len(msg.Tags) != 1 || msg.Tags[0] != tc.tag {
				t.Errorf("tags = %v", msg.Tags)
			}
			if msg.Channel != "" {
				t.Errorf("channel = %q, want broadcast", msg.Channel)
			}
			if tc.result.Timestamp != 0 && !strings.Contains(msg.Content, "09:00") {
				t.Errorf("content %q lacks the task time", msg.Content)
			}
		})
	}
}

func TestRunTracksScheduleAndResults(t *testing.T) {
	f, srv := newFakeRelay(t)
	c, st, b, ind := newTestCoordinator(t, srv.URL, config.RelayConfig{Topic: "desk", SyncOnChange: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	waitFor(t, func() bool {
		active, ok := ind.last()
		return ok && !active
	}, "initial inactive indicator")

	if _, err := schedule.Activate(st, c.generator, schedule.Request{Dates: []string{"2026-10-20"}, ClockIn: "09:00"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		active, _ := ind.last()
		return active
	}, "active indicator")
	waitFor(t, func() bool { return len(f.posts("desk-remote")) > 0 }, "status push on change")

	b.PublishResult(bus.Result{Type: bus.ResultFailed, Action: "IN"})
	msg, err := b.ConsumeOutbound(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Title != "Desk clock stopped" {
		t.Errorf("title = %q", msg.Title)
	}
	waitFor(t, func() bool {
		active, _ := ind.last()
		return !active
	}, "indicator off after fatal result")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
