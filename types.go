package cvfs

import "sync"

// Status is the lifecycle state of an open file handle (§3.2).
type Status int

const (
	// StatusClosed marks a handle that has been fully closed and removed
	// from the file index. Handles are never returned to callers in this
	// state; it exists for completeness of the state space.
	StatusClosed Status = iota
	// StatusOpenRead is held by one or more readers simultaneously.
	StatusOpenRead
	// StatusOpenWrite is held by exactly one writer; no readers may exist
	// concurrently (§3.3 invariant 7).
	StatusOpenWrite
)

// Config holds the on-disk format parameters and runtime limits that a
// Construct call is bound by. The zero Config is invalid; use
// DefaultConfig() or the With* options passed to Construct.
type Config struct {
	// PageSize is P from spec.md §3.1 (reference default 4096). Must be
	// strictly greater than 2*wordSize.
	PageSize int
	// MaxContainers is the limit on the number of backing
	// container files a single VFS may be constructed over (reference
	// default 5).
	MaxContainers int
}

// DefaultConfig returns the reference configuration: 4096-byte pages,
// at most 5 containers.
func DefaultConfig() Config {
	return Config{PageSize: DefaultPageSize, MaxContainers: 5}
}

// Option customizes a Config passed to Construct.
type Option func(*Config)

// WithPageSize overrides the page size P.
func WithPageSize(size int) Option {
	return func(c *Config) { c.PageSize = size }
}

// WithMaxContainers overrides the maximum number of containers.
func WithMaxContainers(n int) Option {
	return func(c *Config) { c.MaxContainers = n }
}

// rootContainerID is a sentinel dirDescriptor.containerID meaning "the
// virtual root /, not yet resolved to a specific container" — root is
// implicit page 0 of every container (§3.3 invariant 2), so resolving a
// root-level name means searching all containers, not one.
const rootContainerID = -1

// dirDescriptor is the in-memory (container_id, first_page) pair for a
// directory (§3.2). The virtual root itself is never stored in dirIndex.
type dirDescriptor struct {
	containerID int
	firstPage   uint64
}

func rootDescriptor() dirDescriptor {
	return dirDescriptor{containerID: rootContainerID, firstPage: 0}
}

// Handle is the in-memory object returned to clients for an open logical
// file (§3.2's "File descriptor").
type Handle struct {
	containerID int
	name        string
	firstPage   uint64

	mu          sync.Mutex
	dataLen     uint64
	status      Status
	readerCount int32
}

// Name returns the absolute virtual path this handle was opened against.
func (h *Handle) Name() string { return h.name }

// Size returns the handle's logical length as of its last Open/Create or
// Write. It is not refreshed by concurrent writers (writers are
// exclusive, so there are none to race with).
func (h *Handle) Size() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(h.dataLen)
}

// VFS is the facade (C5) orchestrating container I/O, the page codec,
// the directory walker, and the handle table to implement
// Open/Create/Read/Write/Close/Stat/Walk.
type VFS struct {
	cfg Config

	containers []*container

	dirsMu  sync.RWMutex
	dirIndex map[string]dirDescriptor

	editMu sync.Mutex // guards all Open/Create/Close state transitions

	filesMu sync.Mutex
	files   map[string]*Handle
}
