package values

type contextKey string

// response statuses
const (
	Success        = "success"
	Created        = "created"
	Error          = "error"
	SystemErr      = "system-error"
	BadRequestBody = "bad-request-body"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not-allowed"
	NotAuthorised  = "not-authorised"
	NotFound       = "not-found"
	Conflict       = "conflict"
	Retry          = "retry"
	Ignored        = "ignored"
)

const (
	HeaderRequestID = "X-Request-Id"

	HeaderSlackSignature = "X-Slack-Signature"
	HeaderSlackTimestamp = "X-Slack-Request-Timestamp"

	HeaderUpstashSignature = "Upstash-Signature"
	HeaderUpstashRetried   = "Upstash-Retried"
)

const ContextTracingKey contextKey = "tracing"
