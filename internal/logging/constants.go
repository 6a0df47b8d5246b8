package logging

// Standardized field names for structured logging.
const (
	FieldComponent  = "component"
	FieldStage      = "stage"
	FieldTable      = "table"
	FieldOffset     = "offset"
	FieldCount      = "count"
	FieldRowsBefore = "rows_before"
	FieldRowsAfter  = "rows_after"
	FieldCutoff     = "cutoff"
	FieldFile       = "file_path"
	FieldDirectory  = "directory"
	FieldRunID      = "run_id"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)
