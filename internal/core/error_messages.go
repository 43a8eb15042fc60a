package core

// error_messages.go maps technical errors to user-facing messages with
// codes that can be quoted to support.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found
//	          Patterns: "file not found", "no such file"
//	FILE002 - File not readable
//	          Patterns: "file not readable", "permission denied"
//	FILE003 - Path is a directory
//	          Patterns: "is a directory"
//	FILE004 - File too large
//	          Patterns: "file too large", "body too large"
//	FILE005 - Empty file
//	          Patterns: "empty file"
//	FILE006 - No file provided
//	          Patterns: "no file provided"
//	FILE007 - Output would overwrite input
//	          Patterns: "output file is the input file"
//
// # Conversion Errors (CNV001-CNV099)
//
//	CNV001 - Malformed delimited data
//	         Patterns: "invalid csv"
//	CNV002 - Characters the output encoding cannot represent
//	         Patterns: "encoding error"
//	CNV003 - Unsupported encoding name
//	         Patterns: "unknown encoding"
//	CNV004 - Unknown field name
//	         Patterns: "unknown field"
//	CNV005 - Wrong number of fields
//	         Patterns: "wrong number of fields", "expected 11 fields"
//	CNV006 - Value needs quoting but quoting is disabled
//	         Patterns: "needs quoting"
//	CNV007 - Required field is empty
//	         Patterns: "empty required field"
//	CNV008 - Same field given twice
//	         Patterns: "duplicate field"
//
// # Request Errors (UPL001-UPL099)
//
//	UPL001 - Too many conversions in progress
//	         Patterns: "too many conversions"
//	UPL002 - Request cancelled
//	         Patterns: "context canceled"
//	UPL003 - Request timed out
//	         Patterns: "context deadline exceeded"
//	UPL004 - Invalid request parameter
//	         Patterns: "invalid parameter"
//	UPL005 - Too many requests from one client
//	         Patterns: "rate limit exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Duplicate run
//	DB004 - Timeout
//	DB005 - Run not found
//	        Patterns: "run not found"
//	DB006 - Persistence disabled
//	        Patterns: "persistence not configured"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file not found", UserMessage{"Input file not found", "Check the file path and try again", "FILE001"}},
	{"no such file", UserMessage{"Input file not found", "Check the file path and try again", "FILE001"}},
	{"file not readable", UserMessage{"Input file cannot be read", "Check the file permissions", "FILE002"}},
	{"permission denied", UserMessage{"Input file cannot be read", "Check the file permissions", "FILE002"}},
	{"is a directory", UserMessage{"The path is a directory, not a file", "Pass the path of a registry export file", "FILE003"}},
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file or convert it with the command line tool", "FILE004"}},
	{"body too large", UserMessage{"File exceeds the maximum upload size", "Split the file or convert it with the command line tool", "FILE004"}},
	{"empty file", UserMessage{"The file is empty", "Export the registry again and retry", "FILE005"}},
	{"no file provided", UserMessage{"No file was provided", "Attach the registry export as the request body or the 'file' form field", "FILE006"}},
	{"output file is the input file", UserMessage{"The output path would overwrite the input file", "Choose a different output path", "FILE007"}},

	// Conversion errors
	{"invalid csv", UserMessage{"The file is not valid delimited text", "Check the input encoding and delimiter settings", "CNV001"}},
	{"encoding error", UserMessage{"Some characters cannot be written in the output encoding", "Choose another output encoding or enable character replacement", "CNV002"}},
	{"unknown encoding", UserMessage{"Unsupported character encoding", "Use one of the listed encodings", "CNV003"}},
	{"unknown field", UserMessage{"Unknown field name", "Use the field names from the schema", "CNV004"}},
	{"wrong number of fields", UserMessage{"A record must have exactly 11 values", "Provide a value for every field, in schema order", "CNV005"}},
	{"expected 11 fields", UserMessage{"A row has fewer than 11 fields", "Check that the file uses the expected delimiter", "CNV005"}},
	{"needs quoting", UserMessage{"A value contains the delimiter, a quote or a line break", "Use a quoting mode other than none", "CNV006"}},
	{"empty required field", UserMessage{"A required field is empty", "Fill in the required fields or relax the required field list", "CNV007"}},
	{"duplicate field", UserMessage{"A field was given more than once", "Use either the field name or its legacy alias, not both", "CNV008"}},

	// Request errors
	{"too many conversions", UserMessage{"System is busy with other conversions", "Please wait a moment and try again", "UPL001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or convert it with the command line tool", "UPL003"}},
	{"invalid parameter", UserMessage{"A request parameter is invalid", "Check the query parameters", "UPL004"}},
	{"rate limit exceeded", UserMessage{"Too many requests", "Wait before sending more requests", "UPL005"}},

	// Database errors
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB001"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB002"}},
	{"duplicate key", UserMessage{"This run has already been stored", "Start a new conversion", "DB003"}},
	{"timeout", UserMessage{"Database operation timed out", "Please try again later", "DB004"}},
	{"run not found", UserMessage{"No stored conversion has this ID", "Check the X-Run-ID of the conversion", "DB005"}},
	{"persistence not configured", UserMessage{"Conversion runs are not being stored", "Set DATABASE_URL to keep run history", "DB006"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the zero UserMessage for a nil error and the ERR000 fallback
// when no pattern matches.
//
// Example:
//
//	msg := MapError(ErrTooManyConversions)
//	// msg.Code == "UPL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
