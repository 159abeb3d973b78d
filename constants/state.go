package constants

// PipelineState is the canonical state of the single upload session.
type PipelineState string

// Stable values (these exact strings travel over the HTTP surface).
const (
	StateIdle            PipelineState = "IDLE"
	StateAwaitingPreview PipelineState = "AWAITING_PREVIEW" // converting / generating preview
	StateExtracting      PipelineState = "EXTRACTING"       // backend request in flight
	StateReady           PipelineState = "READY"            // result available
	StateFailed          PipelineState = "FAILED"           // terminal failure, retryable
)
