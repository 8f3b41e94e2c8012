// Package errors defines the typed errors shared across the pipeline. Each
// stage produces its own variant so callers can discriminate with errors.As
// and decide whether to skip, retry, or abort.
package errors

import "fmt"

// ConfigError indicates invalid or missing configuration. Fatal at startup.
type ConfigError struct {
	Message string
	Err     error
}

func NewConfigError(message string, err error) *ConfigError {
	return &ConfigError{Message: message, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DownloadError indicates a source archive could not be fetched.
type DownloadError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func NewDownloadError(source, url string, err error) *DownloadError {
	return &DownloadError{Source: source, URL: url, Err: err}
}

// WithStatusCode records the HTTP status that caused the failure.
func (e *DownloadError) WithStatusCode(code int) *DownloadError {
	e.StatusCode = code
	return e
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download of %s from %s failed with status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download of %s from %s failed: %v", e.Source, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ParseError indicates a source file is missing, unreadable, or structurally
// invalid. Individual malformed records are skipped and counted instead.
type ParseError struct {
	Source string
	File   string
	Line   int
	Detail string
	Err    error
}

func NewParseError(source, detail string, err error) *ParseError {
	return &ParseError{Source: source, Detail: detail, Err: err}
}

// WithFile records the file within the source archive that failed.
func (e *ParseError) WithFile(file string) *ParseError {
	e.File = file
	return e
}

// WithLine records the 1-based line number that failed.
func (e *ParseError) WithLine(line int) *ParseError {
	e.Line = line
	return e
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error in %s source", e.Source)
	if e.File != "" {
		msg += fmt.Sprintf(" (%s", e.File)
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
		msg += ")"
	}
	msg += ": " + e.Detail
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StoreError indicates the database rejected an operation or is unreachable.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PipelineError indicates an ordering violation, such as merging before any
// sources have been loaded.
type PipelineError struct {
	Message string
}

func NewPipelineError(message string) *PipelineError {
	return &PipelineError{Message: message}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error: %s", e.Message)
}
