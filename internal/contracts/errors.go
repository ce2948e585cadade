package contracts

import (
	"fmt"
	"strings"
)

// QueryExecutionError wraps a failed warehouse query
type QueryExecutionError struct {
	Query string
	Err   error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryExecutionError) Unwrap() error { return e.Err }

// DatasetNotFoundError is returned by the file store for unknown datasets
type DatasetNotFoundError struct {
	Name string
	Path string
}

func (e *DatasetNotFoundError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dataset %s not found", e.Name)
	}
	return fmt.Sprintf("dataset %s not found at %s", e.Name, e.Path)
}

// MalformedInputError aborts a stage. Keys lists the offending identifiers.
type MalformedInputError struct {
	Stage  string
	Reason string
	Keys   []string
}

// maxKeysInMessage bounds the error text, Keys keeps the full list
const maxKeysInMessage = 10

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("%s: malformed input: %s", e.Stage, e.Reason)
	if len(e.Keys) == 0 {
		return msg
	}
	keys := e.Keys
	suffix := ""
	if len(keys) > maxKeysInMessage {
		suffix = fmt.Sprintf(" (+%d more)", len(keys)-maxKeysInMessage)
		keys = keys[:maxKeysInMessage]
	}
	return fmt.Sprintf("%s [%s]%s", msg, strings.Join(keys, ", "), suffix)
}
