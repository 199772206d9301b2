package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/coopco/deskclock/internal/store"
)

var utc = time.UTC

func fixedGenerator(now time.Time) Generator {
	return Generator{Now: func() time.Time { return now }, Location: utc}
}

func TestGenerateSorted(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, utc)
	offsets := []int{5, -5, 3, -2, 0, 4}
	i := 0
	g := fixedGenerator(now)
	g.Jitter = func() int {
		o := offsets[i%len(offsets)]
		i++
		return o
	}

	tasks, err := g.Generate(Request{
		Dates:      []string{"2026-10-21", "2026-10-19", "2026-10-20"},
		ClockIn:    "09:00",
		ClockOut:   "09:04",
		Randomized: true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tasks) != 6 {
		t.Fatalf("expected 6 tasks, got %d", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].Timestamp < tasks[i-1].Timestamp {
			t.Fatalf("tasks not sorted at %d: %v", i, tasks)
		}
	}
	if tasks[0].DateStr != "2026-10-19" {
		t.Errorf("expected first task on 2026-10-19, got %s", tasks[0].DateStr)
	}
}

func TestGenerateActions(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, utc)
	tasks, err := fixedGenerator(now).Generate(Request{
		Dates:    []string{"2026-10-19"},
		ClockIn:  "09:00",
		ClockOut: "17:30",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []Task{
		{Timestamp: time.Date(2026, 10, 19, 9, 0, 0, 0, utc).UnixMilli(), Action: ActionIn, DateStr: "2026-10-19"},
		{Timestamp: time.Date(2026, 10, 19, 17, 30, 0, 0, utc).UnixMilli(), Action: ActionOut, DateStr: "2026-10-19"},
	}
	if len(tasks) != len(want) {
		t.Fatalf("got %v, want %v", tasks, want)
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("task %d = %+v, want %+v", i, tasks[i], want[i])
		}
	}
}

func TestGenerateOnlyOneTime(t *testing.T) {
	now := time.Date(2026, 10, 19, 7, 0, 0, 0, utc)
	tasks, err := fixedGenerator(now).Generate(Request{Dates: []string{"2026-10-19"}, ClockOut: "18:00"})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Action != ActionOut {
		t.Fatalf("expected single OUT task, got %v", tasks)
	}
}

func TestGenerateGraceWindow(t *testing.T) {
	nine := time.Date(2026, 10, 19, 9, 0, 0, 0, utc)
	req := Request{Dates: []string{"2026-10-19"}, ClockIn: "09:00"}

	cases := []struct {
		name string
		now  time.Time
		keep bool
	}{
		{"future", nine.Add(-30 * time.Second), true},
		{"exactly now", nine, true},
		{"30s past", nine.Add(30 * time.Second), true},
		{"60s past", nine.Add(60 * time.Second), true},
		{"61s past", nine.Add(61 * time.Second), false},
		{"hours past", nine.Add(3 * time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks, err := fixedGenerator(tc.now).Generate(req)
			if tc.keep {
				if err != nil || len(tasks) != 1 {
					t.Fatalf("expected task kept, got %v err %v", tasks, err)
				}
				return
			}
			if !errors.Is(err, ErrEmptySchedule) {
				t.Fatalf("expected ErrEmptySchedule, got %v (%v)", err, tasks)
			}
			if len(tasks) != 0 {
				t.Fatalf("expected no tasks, got %v", tasks)
			}
		})
	}
}

func TestGenerateJitterRange(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, utc)
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, utc)
	g := Generator{Now: func() time.Time { return now }, Location: utc}

	for i := 0; i < 200; i++ {
		tasks, err := g.Generate(Request{Dates: []string{"2026-10-19"}, ClockIn: "12:00", Randomized: true})
		if err != nil {
			t.Fatal(err)
		}
		d := tasks[0].Time().Sub(base)
		if d < -5*time.Minute || d > 5*time.Minute {
			t.Fatalf("jitter %v outside [-5m, 5m]", d)
		}
		if d%time.Minute != 0 {
			t.Fatalf("jitter %v is not a whole minute", d)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	g := fixedGenerator(time.Date(2026, 10, 19, 7, 0, 0, 0, utc))
	cases := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"no times", Request{Dates: []string{"2026-10-19"}}, ErrNoTimes},
		{"blank times", Request{Dates: []string{"2026-10-19"}, ClockIn: "  "}, ErrNoTimes},
		{"no dates", Request{ClockIn: "09:00"}, ErrNoDates},
		{"bad date", Request{Dates: []string{"19/10/2026"}, ClockIn: "09:00"}, nil},
		{"bad time", Request{Dates: []string{"2026-10-19"}, ClockIn: "25:00"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Generate(tc.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:45")
	if err != nil || h != 7 || m != 45 {
		t.Fatalf("ParseClock: %d %d %v", h, m, err)
	}
	if h, m, err := ParseClock("9:05"); err != nil || h != 9 || m != 5 {
		t.Errorf("ParseClock(9:05) = %d %d %v", h, m, err)
	}
	for _, bad := range []string{"", "noon", "24:00", "12:60", "09:00pm", "17:30:99", "09:00 ", "9:5"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestActivateStoresSchedule(t *testing.T) {
	s := newTestStore(t)
	g := fixedGenerator(time.Date(2026, 10, 19, 7, 0, 0, 0, utc))

	tasks, err := Activate(s, g, Request{Dates: []string{"2026-10-19"}, ClockIn: "09:00", ClockOut: "17:00", Randomized: false})
	if err != nil {
		t.Fatal(err)
	}

	sched, err := Load(s)
	if err != nil {
		t.Fatal(err)
	}
	if !sched.Active {
		t.Error("expected schedule to be active")
	}
	if len(sched.Tasks) != len(tasks) || sched.Tasks[0] != tasks[0] {
		t.Errorf("stored tasks %v, want %v", sched.Tasks, tasks)
	}
	if sched.ClockIn != "09:00" || sched.ClockOut != "17:00" || len(sched.Dates) != 1 {
		t.Errorf("unexpected settings %+v", sched)
	}
}

func TestActivateAllPastDoesNotActivate(t *testing.T) {
	s := newTestStore(t)
	g := fixedGenerator(time.Date(2026, 10, 19, 20, 0, 0, 0, utc))

	_, err := Activate(s, g, Request{Dates: []string{"2026-10-19"}, ClockIn: "09:00", ClockOut: "17:00"})
	if !errors.Is(err, ErrEmptySchedule) {
		t.Fatalf("expected ErrEmptySchedule, got %v", err)
	}
	sched, _ := Load(s)
	if sched.Active || len(sched.Tasks) != 0 {
		t.Fatalf("expected nothing stored, got %+v", sched)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	g := fixedGenerator(time.Date(2026, 10, 19, 7, 0, 0, 0, utc))
	if _, err := Activate(s, g, Request{Dates: []string{"2026-10-19"}, ClockIn: "09:00"}); err != nil {
		t.Fatal(err)
	}
	if err := Clear(s); err != nil {
		t.Fatal(err)
	}
	sched, _ := Load(s)
	if sched.Active || len(sched.Tasks) != 0 {
		t.Fatalf("expected cleared schedule, got %+v", sched)
	}
}

func TestVerificationRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if v, err := PendingVerification(s); err != nil || v != nil {
		t.Fatalf("expected no intent, got %v %v", v, err)
	}

	task := Task{Timestamp: 1000, Action: ActionIn, DateStr: "2026-10-19"}
	if err := MarkClicked(s, Verification{Task: task, Expected: true, Attempt: 1}); err != nil {
		t.Fatal(err)
	}
	last, _ := LastProcessed(s)
	if last != 1000 {
		t.Errorf("lastProcessed = %d, want 1000", last)
	}
	v, err := PendingVerification(s)
	if err != nil || v == nil {
		t.Fatalf("expected intent, got %v %v", v, err)
	}
	if v.Task != task || !v.Expected || v.Attempt != 1 {
		t.Errorf("unexpected intent %+v", v)
	}

	if err := ClearVerification(s); err != nil {
		t.Fatal(err)
	}
	if v, _ := PendingVerification(s); v != nil {
		t.Errorf("expected intent cleared, got %+v", v)
	}
}

func TestTopicTrimmed(t *testing.T) {
	s := newTestStore(t)
	if topic, err := Topic(s); err != nil || topic != "" {
		t.Fatalf("unset topic = %q, err %v", topic, err)
	}
	if err := SetTopic(s, "  desk-42 \n"); err != nil {
		t.Fatal(err)
	}
	topic, err := Topic(s)
	if err != nil {
		t.Fatal(err)
	}
	if topic != "desk-42" {
		t.Errorf("Topic = %q, want %q", topic, "desk-42")
	}
}
