package pipeline

// Response is the single reply to a webhook request.
type Response struct {
	StatusCode int
	// Message goes into the X-Message header.
	Message string
	Body    string
	HasBody bool
	// Terminate asks the transport to close the connection after writing,
	// because the job is still running.
	Terminate bool
}
