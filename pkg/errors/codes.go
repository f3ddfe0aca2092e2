package errors

import "strings"

// ErrorCode is a module-prefixed string identifying an error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Sentinel codes.
const (
	ErrCodeOK      ErrorCode = "OK"
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Common error codes.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeBadRequest     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_005"
	ErrCodeTimeout        ErrorCode = "COMMON_009"
	ErrCodeValidation     ErrorCode = "COMMON_010"
	ErrCodeSerialization  ErrorCode = "COMMON_011"
	ErrCodeNotImplemented ErrorCode = "COMMON_016"
)

// Input error codes cover the prediction, answer and report files.
const (
	ErrCodeInputOpen      ErrorCode = "INPUT_001"
	ErrCodeInputRead      ErrorCode = "INPUT_002"
	ErrCodeInputMalformed ErrorCode = "INPUT_003"
	ErrCodeInputGlob      ErrorCode = "INPUT_004"
	ErrCodeOutputWrite    ErrorCode = "INPUT_005"
)

// Scoring error codes.
const (
	ErrCodeScoreNoData     ErrorCode = "SCORE_001"
	ErrCodeReportExport    ErrorCode = "SCORE_002"
	ErrCodeScoreCategories ErrorCode = "SCORE_003"
)

// Sink error codes cover postgres, kafka and object storage.
const (
	ErrCodeSinkConnect   ErrorCode = "SINK_001"
	ErrCodeSinkWrite     ErrorCode = "SINK_002"
	ErrCodeSinkMigration ErrorCode = "SINK_003"
	ErrCodeSinkClosed    ErrorCode = "SINK_004"
	ErrCodePublish       ErrorCode = "SINK_005"
	ErrCodeUpload        ErrorCode = "SINK_006"
)

// Configuration error codes.
const (
	ErrCodeConfigRead    ErrorCode = "CFG_001"
	ErrCodeConfigInvalid ErrorCode = "CFG_002"
)

// ErrorCodeMessage maps codes to their default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:       "internal error",
	ErrCodeBadRequest:     "bad request",
	ErrCodeNotFound:       "not found",
	ErrCodeTimeout:        "operation timed out",
	ErrCodeValidation:     "validation failed",
	ErrCodeSerialization:  "serialization failed",
	ErrCodeNotImplemented: "not implemented",

	ErrCodeInputOpen:      "failed to open input",
	ErrCodeInputRead:      "failed to read input",
	ErrCodeInputMalformed: "malformed input",
	ErrCodeInputGlob:      "invalid input pattern",
	ErrCodeOutputWrite:    "failed to write output",

	ErrCodeScoreNoData:     "nothing to score",
	ErrCodeReportExport:    "failed to export report",
	ErrCodeScoreCategories: "invalid target categories",

	ErrCodeSinkConnect:   "failed to connect to sink",
	ErrCodeSinkWrite:     "failed to write to sink",
	ErrCodeSinkMigration: "sink schema migration failed",
	ErrCodeSinkClosed:    "sink closed",
	ErrCodePublish:       "failed to publish annotations",
	ErrCodeUpload:        "failed to upload artifact",

	ErrCodeConfigRead:    "failed to read configuration",
	ErrCodeConfigInvalid: "invalid configuration",
}

// moduleExitCodes maps a code's module prefix to the CLI exit status.
var moduleExitCodes = map[string]int{
	"COMMON": 1,
	"INPUT":  2,
	"SCORE":  3,
	"SINK":   4,
	"CFG":    5,
}

// DefaultMessageForCode returns the default message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of code.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

// ExitCodeForError returns the process exit status for err: 0 for nil, the
// module status for an AppError and 1 otherwise.
func ExitCodeForError(err error) int {
	if err == nil {
		return 0
	}
	if status, ok := moduleExitCodes[ModuleForCode(GetCode(err))]; ok {
		return status
	}
	return 1
}

//Personal.AI order the ending
