package scheduler

import (
	"testing"
	"time"

	"github.com/coopco/deskclock/internal/schedule"
)

func task(at time.Time, action schedule.Action) schedule.Task {
	return schedule.Task{Timestamp: at.UnixMilli(), Action: action, DateStr: at.Format("2006-01-02")}
}

func TestPlan(t *testing.T) {
	now := time.Date(2026, 10, 20, 9, 0, 0, 0, time.Local)
	in := task(now, schedule.ActionIn)
	out := task(now.Add(8*time.Hour), schedule.ActionOut)
	soon := task(now.Add(5*time.Minute), schedule.ActionIn)

	tests := []struct {
		name      string
		sched     schedule.Schedule
		last      int64
		threshold time.Duration
		want      DecisionKind
		wantTask  schedule.Task
		wantAt    time.Time
	}{
		{
			name:  "inactive",
			sched: schedule.Schedule{Tasks: []schedule.Task{in}},
			want:  Idle,
		},
		{
			name:  "active without tasks",
			sched: schedule.Schedule{Active: true},
			want:  Exhausted,
		},
		{
			name:     "due exactly now",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{in, out}},
			want:     DueNow,
			wantTask: in,
		},
		{
			name:     "inside grace window",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{task(now.Add(-59*time.Second), schedule.ActionIn), out}},
			want:     DueNow,
			wantTask: task(now.Add(-59*time.Second), schedule.ActionIn),
		},
		{
			name:     "past grace window falls through to next",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{task(now.Add(-61*time.Second), schedule.ActionIn), out}},
			want:     Keepalive,
			wantTask: out,
			wantAt:   out.Time().Add(-KeepaliveLead),
		},
		{
			name:     "last processed is skipped",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{in, soon}},
			last:     in.Timestamp,
			want:     Wait,
			wantTask: soon,
			wantAt:   soon.Time(),
		},
		{
			name:     "wait under keepalive horizon",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{soon}},
			want:     Wait,
			wantTask: soon,
			wantAt:   soon.Time(),
		},
		{
			name:     "keepalive beyond ten minutes",
			sched:    schedule.Schedule{Active: true, Tasks: []schedule.Task{out}},
			want:     Keepalive,
			wantTask: out,
			wantAt:   out.Time().Add(-2 * time.Minute),
		},
		{
			name:  "all processed or past",
			sched: schedule.Schedule{Active: true, Tasks: []schedule.Task{task(now.Add(-2*time.Minute), schedule.ActionIn), in}},
			last:  in.Timestamp,
			want:  Exhausted,
		},
		{
			name:      "post-verification threshold excludes the task just run",
			sched:     schedule.Schedule{Active: true, Tasks: []schedule.Task{in, soon}},
			threshold: PostVerifyThreshold,
			want:      Wait,
			wantTask:  soon,
			wantAt:    soon.Time(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			threshold := tc.threshold
			if threshold == 0 {
				threshold = NormalThreshold
			}
			d := Plan(now, tc.sched, tc.last, threshold)
			if d.Kind != tc.want {
				t.Fatalf("kind = %s, want %s", d.Kind, tc.want)
			}
			if d.Task != tc.wantTask {
				t.Errorf("task = %v, want %v", d.Task, tc.wantTask)
			}
			if !d.At.Equal(tc.wantAt) {
				t.Errorf("at = %v, want %v", d.At, tc.wantAt)
			}
		})
	}
}

func TestPlanIdempotent(t *testing.T) {
	now := time.Date(2026, 10, 20, 8, 55, 0, 0, time.Local)
	sched := schedule.Schedule{Active: true, Tasks: []schedule.Task{
		task(now.Add(-30*time.Minute), schedule.ActionIn),
		task(now.Add(3*time.Minute), schedule.ActionIn),
		task(now.Add(9*time.Hour), schedule.ActionOut),
	}}
	first := Plan(now, sched, 0, NormalThreshold)
	for i := 0; i < 5; i++ {
		if got := Plan(now, sched, 0, NormalThreshold); got != first {
			t.Fatalf("call %d: %+v, want %+v", i, got, first)
		}
	}
	if first.Kind != Wait || first.Task != sched.Tasks[1] {
		t.Errorf("unexpected decision %+v", first)
	}
}
