package model

// ConnectionState is the per-connection bookkeeping of a session
type ConnectionState struct {
	SessionId  string
	ClientIP   string
	ClientInfo string

	// handshake progress
	HelloReceived bool
	Connected     bool
}

// PipelineRun is the state of one wake, announce or continued-conversation run.
// It is only touched from the session's control goroutine; StreamingAudio is
// mirrored into an atomic for the audio goroutine.
type PipelineRun struct {
	RunId string

	StreamingAudio       bool
	TTSURL               string
	TTSPlayed            bool
	ContinueConversation bool
	PipelineActive       bool
	TimerFinished        bool
}

// Reset returns the run to idle
func (r *PipelineRun) Reset() {
	*r = PipelineRun{}
}
