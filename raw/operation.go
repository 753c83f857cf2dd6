package raw

// Operation names a primitive accessor call. It is a label used for metrics,
// log fields and error context, never as control data.
type Operation string

const (
	OpMetadata          Operation = "metadata"
	OpCreate            Operation = "create"
	OpRead              Operation = "read"
	OpWrite             Operation = "write"
	OpStat              Operation = "stat"
	OpDelete            Operation = "delete"
	OpList              Operation = "list"
	OpPresign           Operation = "presign"
	OpCreateMultipart   Operation = "create_multipart"
	OpWriteMultipart    Operation = "write_multipart"
	OpCompleteMultipart Operation = "complete_multipart"
	OpAbortMultipart    Operation = "abort_multipart"
)

func (o Operation) String() string { return string(o) }

// Operations lists every operation, in a stable order. Used by the metrics
// layer to pre-register one counter and one histogram per operation.
func Operations() []Operation {
	return []Operation{
		OpMetadata,
		OpCreate,
		OpRead,
		OpWrite,
		OpStat,
		OpDelete,
		OpList,
		OpPresign,
		OpCreateMultipart,
		OpWriteMultipart,
		OpCompleteMultipart,
		OpAbortMultipart,
	}
}
