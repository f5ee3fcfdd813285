package export

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrMaxDepth          = errors.New("data is nested too deeply")
	ErrCyclicData        = errors.New("data contains a reference cycle")
)

// Error is returned by Exporter.Export when a file could not be produced.
type Error struct {
	Format       Format
	FileBaseName string
	Err          error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s (%s): %v", e.FileBaseName, e.Format, e.Err)
}

// Cause lets errors.Cause reach the underlying error.
func (e *Error) Cause() error { return e.Err }

func (e *Error) Unwrap() error { return e.Err }
