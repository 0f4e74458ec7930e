package cvfs

import (
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// container owns one backing file (C1, spec.md §4.1). All positioned
// I/O against it is serialized by mu; mu also guards the cached size so
// callers never need a second round-trip to the host to learn how large
// the container has grown.
//
// Positioned reads and writes go through golang.org/x/sys/unix's
// pread(2)/pwrite(2) wrappers rather than os.File.ReadAt/WriteAt: the
// container format's contract is explicitly "byte-accurate positioned
// I/O" (spec.md §1) with no observable shared cursor, which unix.Pread
// and unix.Pwrite express directly.
type container struct {
	id   int
	path string

	mu   sync.Mutex
	f    *os.File
	size int64
}

// openContainer opens (creating if missing) the backing file at path and
// caches its current size.
func openContainer(id int, path string) (*container, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, newIOError("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newIOError("stat", path, err)
	}
	return &container{id: id, path: path, f: f, size: info.Size()}, nil
}

// Size returns the container's cached size in bytes.
func (c *container) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// readAt reads up to len(buf) bytes starting at offset off. A read that
// runs past the current end of file is clipped rather than erroring:
// the returned count reflects only the bytes actually available
// (spec.md §4.1 "Errors").
func (c *container) readAt(off int64, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readAtLocked(off, buf)
}

func (c *container) readAtLocked(off int64, buf []byte) (int, error) {
	if off >= c.size {
		return 0, nil
	}
	want := buf
	if off+int64(len(want)) > c.size {
		want = want[:c.size-off]
	}
	n, err := unix.Pread(int(c.f.Fd()), want, off)
	if err != nil && err != io.EOF {
		return n, newIOError("read", c.path, err)
	}
	return n, nil
}

// writeAt writes buf at offset off, extending the container and growing
// the cached size if the write runs past the current end of file. The
// write is flushed before returning so a subsequent readAt on any
// container handle observes it (spec.md §4.1).
func (c *container) writeAt(off int64, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeAtLocked(off, buf)
}

func (c *container) writeAtLocked(off int64, buf []byte) (int, error) {
	n, err := unix.Pwrite(int(c.f.Fd()), buf, off)
	if err != nil {
		return n, newIOError("write", c.path, err)
	}
	if err := c.f.Sync(); err != nil {
		return n, newIOError("sync", c.path, err)
	}
	if end := off + int64(n); end > c.size {
		c.size = end
	}
	return n, nil
}

// appendLocked writes buf at the current end of the container and
// returns the byte offset the write began at and the number of bytes
// written. Callers must already hold c.mu; they only ever append whole
// pages, so (offset-headerSize)/pageSize is the new page's index.
func (c *container) appendLocked(buf []byte) (int64, int, error) {
	off := c.size
	n, err := c.writeAtLocked(off, buf)
	return off, n, err
}

// close releases the underlying host file handle.
func (c *container) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}
