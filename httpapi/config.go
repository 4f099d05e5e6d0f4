package httpapi

// Config defines HTTP API and UI settings.
type Config struct {
	Addr                   string
	SessionCookie          string
	SessionTTLHours        int
	SessionFile            string
	InitialTranscriptLines int
	UIMaxTranscriptLines   int
}
