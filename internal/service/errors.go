package service

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDate is returned when a date bound cannot be parsed or the
// range is inverted.
var ErrInvalidDate = errors.New("invalid date")

// Stage names the pipeline step an error came from.
type Stage string

// Pipeline stages.
const (
	StageExtraction  Stage = "extraction"
	StageSchema      Stage = "schema validation"
	StageRead        Stage = "read"
	StageExportWrite Stage = "export write"
)

// StageError attributes a failure to a pipeline stage and file.
type StageError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	msg := e.Err.Error()
	if e.Path != "" && !strings.Contains(msg, e.Path) {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Path, msg)
	}
	return fmt.Sprintf("%s: %s", e.Stage, msg)
}

func (e *StageError) Unwrap() error { return e.Err }
