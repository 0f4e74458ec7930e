package cvfs

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// log is the package logger (ambient stack: github.com/sirupsen/logrus,
// as used throughout dragonflyoss-nydus and gazette-core). It is never
// on the Read/Write hot path — only construction and fatal errors are
// logged, per SPEC_FULL.md's ambient-stack logging rule.
var log = logrus.WithField("component", "cvfs")

// Construct creates (or opens) the containers at containerPaths,
// relative to rootDir when not absolute, ensures each has a well-formed
// empty layout if newly created, and runs the parallel initial scan
// (C7, spec.md §4.7/§5) before returning. It fails fast with one of the
// fatal error kinds in errors.go, or with a plain error for a page size
// that does not exceed 2*wordSize; it never returns a null VFS on
// success.
func Construct(containerPaths []string, rootDir string, opts ...Option) (*VFS, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PageSize <= 2*wordSize {
		return nil, errors.Errorf("cvfs: page size %d must exceed %d", cfg.PageSize, 2*wordSize)
	}

	if len(containerPaths) == 0 {
		return nil, ErrNoFiles
	}
	if len(containerPaths) > cfg.MaxContainers {
		return nil, ErrTooManyFiles
	}

	if info, err := os.Stat(rootDir); err == nil {
		if !info.IsDir() {
			return nil, ErrRootIsNotDirectory
		}
	} else if os.IsNotExist(err) {
		return nil, ErrRootDoesNotExist
	} else {
		return nil, newIOError("stat", rootDir, err)
	}

	resolved := make([]string, len(containerPaths))
	seen := make(map[string]bool, len(containerPaths))
	for i, p := range containerPaths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(rootDir, full)
		}
		if seen[full] {
			return nil, ErrFileAlreadyExists
		}
		seen[full] = true
		resolved[i] = full
	}

	v := &VFS{
		cfg:      cfg,
		dirIndex: make(map[string]dirDescriptor),
		files:    make(map[string]*Handle),
	}

	for i, path := range resolved {
		c, err := openContainer(i, path)
		if err != nil {
			return nil, err
		}
		if c.Size() == 0 {
			if err := initEmptyContainer(c, cfg.PageSize); err != nil {
				return nil, err
			}
		}
		v.containers = append(v.containers, c)
	}

	if err := v.scanAll(); err != nil {
		return nil, err
	}

	log.WithField("containers", len(v.containers)).Info("vfs constructed")
	return v, nil
}

// initEmptyContainer writes a brand-new container's well-formed empty
// layout: an all-zero file-count header followed by one root directory
// page (also all zero — a zeroed payload begins with the sentinel
// type byte, meaning "no records yet", and a zero next-page pointer
// meaning "no further root pages").
func initEmptyContainer(c *container, pageSize int) error {
	buf := make([]byte, headerSize+pageSize)
	_, err := c.writeAt(0, buf)
	return err
}

// scanAll runs one scanning goroutine per container (§5 "Initial scan
// parallelism") using golang.org/x/sync/errgroup, joining all of them
// before returning — any one container's scan failing fails
// construction as a whole.
func (v *VFS) scanAll() error {
	g := new(errgroup.Group)
	for _, c := range v.containers {
		c := c
		g.Go(func() error {
			return v.scanContainerDirs(c, 0, "/")
		})
	}
	return g.Wait()
}

// scanContainerDirs recursively walks every directory record reachable
// from startPage in container c, inserting each into the shared
// directory index. Concurrent scans from other containers only ever
// touch their own container's pages, so the only shared mutation here
// is the dirs-mutex-guarded insertDir call.
func (v *VFS) scanContainerDirs(c *container, startPage uint64, _ string) error {
	c.mu.Lock()
	limit := v.maxChainHops(c)
	page := startPage
	var children []record
	for hop := 0; hop < limit; hop++ {
		buf, err := v.readPageLocked(c, page)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		pos := 0
		pageLimit := len(buf) - wordSize
		for pos < pageLimit {
			rec, next, ok := decodeRecord(buf, pos)
			if !ok {
				break
			}
			if rec.Type == recordDirectory {
				children = append(children, rec)
			}
			pos = next
		}
		next := nextPageOf(buf)
		if next == 0 {
			break
		}
		page = next
	}
	c.mu.Unlock()

	for _, rec := range children {
		desc := dirDescriptor{containerID: c.id, firstPage: rec.FirstPage}
		if err := v.insertDir(rec.Name, desc); err != nil {
			return err
		}
		if err := v.scanContainerDirs(c, rec.FirstPage, rec.Name); err != nil {
			return err
		}
	}
	return nil
}
