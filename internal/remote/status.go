package remote

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/coopco/deskclock/internal/schedule"
)

// StatusType tags the snapshot pushed on the hidden channel.
const StatusType = "PC_STATUS_SYNC"

// Status is the snapshot of the schedule sent to the remote controller.
type Status struct {
	Tasks      []schedule.Task
	Active     bool
	LastUpdate time.Time
	Source     string // id of the daemon that produced it
}

// EncodeStatus renders st as {type, tasks, isActive, lastUpdate, source}.
func EncodeStatus(st Status) ([]byte, error) {
	tasks := st.Tasks
	if tasks == nil {
		tasks = []schedule.Task{}
	}
	doc := []byte(`{}`)
	fields := []struct {
		path  string
		value any
	}{
		{"type", StatusType},
		{"tasks", tasks},
		{"isActive", st.Active},
		{"lastUpdate", st.LastUpdate.UnixMilli()},
	}
	if st.Source != "" {
		fields = append(fields, struct {
			path  string
			value any
		}{"source", st.Source})
	}
	var err error
	for _, f := range fields {
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, fmt.Errorf("encode status %s: %w", f.path, err)
		}
	}
	return doc, nil
}

// IsStatus reports whether message is a status snapshot, which shares the
// channel with commands when no separate sync topic is configured.
func IsStatus(message string) bool {
	return gjson.Get(message, "type").String() == StatusType
}
