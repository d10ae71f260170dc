package model

// TaskStatus represents the lifecycle state of a download task
type TaskStatus string

const (
	// TaskStatusCreated means the task is queued but not started
	TaskStatusCreated TaskStatus = "Created"

	// TaskStatusPeeking means media info is being resolved
	TaskStatusPeeking TaskStatus = "Peeking"

	// TaskStatusPeekRetry means the info peek is being retried without cookies
	TaskStatusPeekRetry TaskStatus = "PeekRetryNoCookies"

	// TaskStatusPlanned means a download plan has been built
	TaskStatusPlanned TaskStatus = "Planned"

	// TaskStatusDownloading means the extractor download is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusFallbackSniffer means the headless-browser sniffer is running
	TaskStatusFallbackSniffer TaskStatus = "FallbackSniffer"

	// TaskStatusFallbackEvasive means the evasive sniffer retry is running
	TaskStatusFallbackEvasive TaskStatus = "FallbackEvasive"

	// TaskStatusFallbackManual means a direct HTTP download is in progress
	TaskStatusFallbackManual TaskStatus = "FallbackManual"

	// TaskStatusPostProcessing means downloaded files are being finalized
	TaskStatusPostProcessing TaskStatus = "PostProcessing"

	// TaskStatusCutting means the cut stage is running
	TaskStatusCutting TaskStatus = "Cutting"

	// TaskStatusConvertingSubs means subtitle files are being converted
	TaskStatusConvertingSubs TaskStatus = "ConvertingSubs"

	// TaskStatusSuccess means the task finished successfully
	TaskStatusSuccess TaskStatus = "Success"

	// TaskStatusFailed means the task failed with an error
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCancelled means the task was cancelled by the user
	TaskStatusCancelled TaskStatus = "Cancelled"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in a non-terminal, non-queued state
func (ts TaskStatus) IsActive() bool {
	switch ts {
	case TaskStatusPeeking, TaskStatusPeekRetry, TaskStatusPlanned,
		TaskStatusDownloading, TaskStatusFallbackSniffer,
		TaskStatusFallbackEvasive, TaskStatusFallbackManual,
		TaskStatusPostProcessing, TaskStatusCutting, TaskStatusConvertingSubs:
		return true
	}
	return false
}

// IsTerminal returns true if the task reached a final state
func (ts TaskStatus) IsTerminal() bool {
	return ts == TaskStatusSuccess || ts == TaskStatusFailed || ts == TaskStatusCancelled
}

// IsFallback returns true for the fallback states entered from Downloading
func (ts TaskStatus) IsFallback() bool {
	return ts == TaskStatusFallbackSniffer || ts == TaskStatusFallbackEvasive || ts == TaskStatusFallbackManual
}
