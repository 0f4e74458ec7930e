package cvfs

import "github.com/pkg/errors"

// Fatal construction and I/O error kinds. These are raised by Construct
// and by any operation that detects host I/O failure or on-disk
// corruption; they are never returned by Open/Create/Read/Write for
// ordinary argument or mode mismatches (those return null/zero, see
// the doc comments on Open/Create/Read/Write).
var (
	// ErrNoFiles is returned by Construct when the container path set is empty.
	ErrNoFiles = errors.New("cvfs: no container files given")

	// ErrTooManyFiles is returned by Construct when the container path set
	// exceeds Config.MaxContainers.
	ErrTooManyFiles = errors.New("cvfs: too many container files")

	// ErrRootIsNotDirectory is returned by Construct when rootDir exists
	// but is not a directory.
	ErrRootIsNotDirectory = errors.New("cvfs: root is not a directory")

	// ErrRootDoesNotExist is returned by Construct when rootDir does not exist.
	ErrRootDoesNotExist = errors.New("cvfs: root directory does not exist")

	// ErrFileAlreadyExists is returned by Construct when two configured
	// container paths resolve to the same host file.
	ErrFileAlreadyExists = errors.New("cvfs: container path already in use")

	// ErrDirAlreadyExists is raised by the directory index on a duplicate
	// insert. Under the single-writer rule this should never fire; if it
	// does, it indicates a logic bug rather than a recoverable condition.
	ErrDirAlreadyExists = errors.New("cvfs: directory already indexed")
)

// errCorruptSize indicates a container's size is not S + k*P for any k,
// violating invariant 1 in spec.md §3.3.
var errCorruptSize = errors.New("cvfs: container size is not page-aligned")

// ioError wraps a host file system failure encountered while reading,
// writing, or extending a container. It is always fatal: callers should
// treat it as evidence of I/O corruption rather than a retryable error.
type ioError struct {
	op   string
	path string
	err  error
}

func (e *ioError) Error() string {
	return errors.Wrapf(e.err, "cvfs: %s %s", e.op, e.path).Error()
}

func (e *ioError) Unwrap() error { return e.err }

func newIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &ioError{op: op, path: path, err: err}
}
