package jobctl

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidFile is returned for a stage whose redirect can't be opened.
	ErrInvalidFile = errors.New("invalid file")
	// ErrInvalidProgram is returned for a stage whose program can't be run.
	ErrInvalidProgram = errors.New("invalid program")
	// ErrLaunchFailed means the system ran out of processes or descriptors.
	// The shell can't continue after it.
	ErrLaunchFailed = errors.New("launch failed")
)

// StageError describes a pipeline stage that wasn't started. The rest of the
// pipeline runs without it.
type StageError struct {
	// Stage is the 0-based position of the stage in the pipeline.
	Stage   int
	Program string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s): %v", e.Stage+1, e.Program, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// isResourceError reports whether err came from the kernel running out of
// processes, memory or file descriptors.
func isResourceError(err error) bool {
	for _, errno := range []unix.Errno{unix.EAGAIN, unix.ENOMEM, unix.EMFILE, unix.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
