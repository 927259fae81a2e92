package logger

// Standard field names for consistent logging.
const (
	FieldService   = "service"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldRoundID   = "round_id"
	FieldSessionID = "session_id"
	FieldAttendee  = "attendee"
)
