package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUsername = "username"
	FieldConnID   = "conn_id"

	// Chat
	FieldGroupID   = "group_id"
	FieldMessageID = "message_id"
	FieldCommand   = "command"
	FieldSchedule  = "scheduled_id"

	FieldService = "service"
)
