package logging

// Field names shared by every component so log lines stay filterable.
const (
	FieldFile          = "file_name"
	FieldFormat        = "format"
	FieldParser        = "parser"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldCount         = "count"
	FieldRow           = "row"
	FieldUserID        = "user_id"
	FieldCacheKey      = "cache_key"
	FieldEndpoint      = "endpoint"
	FieldAttempt       = "attempt"
	FieldSession       = "session_id"
	FieldTable         = "table"
)
