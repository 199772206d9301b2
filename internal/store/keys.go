package store

// Keys of the shared document. Sync-scope keys describe the schedule and
// settings; local-scope keys describe this machine's reload cycle.
const (
	KeyScheduledTasks = "scheduledTasks"
	KeyIsActive       = "isActive"
	KeyClockInTime    = "clockInTime"
	KeyClockOutTime   = "clockOutTime"
	KeyTargetDates    = "targetDates"
	KeyIsRandomized   = "isRandomized"
	KeyNtfyTopic      = "ntfyTopic"

	KeyLastProcessed       = "lastProcessed"
	KeyVerificationPending = "verificationPending"
)
