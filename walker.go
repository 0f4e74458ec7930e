package cvfs

// This file implements the directory walker (C3, spec.md §4.3) and the
// chained-write routine it shares with file data writes (C4.4, §4.4).

// maxChainHops bounds how many pages a single chain walk will follow
// before declaring the container corrupt, matching the property-based
// invariant in spec.md §8.1.2: a well-formed chain terminates within
// ceil(container_size/P) hops.
//
// Callers always already hold c.mu (this is one of the *Locked-style
// helpers despite the name), so it reads c.size directly rather than
// going through c.Size(), which would re-lock the non-reentrant mutex.
func (v *VFS) maxChainHops(c *container) int {
	hops := int((c.size - int64(headerSize)) / int64(v.cfg.PageSize))
	if hops < 1 {
		hops = 1
	}
	return hops + 1
}

// scanChainForName walks the page chain starting at startPage in
// container c, looking for a record of the given type and name.
// Structural record-at-a-time scanning only (see page.go's decodeRecord
// doc comment and DESIGN.md).
func (v *VFS) scanChainForName(c *container, startPage uint64, name string, typ recordType) (rec record, found bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := v.maxChainHops(c)
	page := startPage
	for hop := 0; hop < limit; hop++ {
		buf, err := v.readPageLocked(c, page)
		if err != nil {
			return record{}, false, err
		}
		if pos := findRecord(buf, name, typ); pos >= 0 {
			rec, _, _ := decodeRecord(buf, pos)
			return rec, true, nil
		}
		next := nextPageOf(buf)
		if next == 0 {
			return record{}, false, nil
		}
		page = next
	}
	return record{}, false, newIOError("scan", c.path, errCorruptSize)
}

// lastPageOf walks the chain starting at startPage to its terminal page
// (next-page pointer == 0) and returns that page's index.
func (v *VFS) lastPageOf(c *container, startPage uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return v.lastPageOfLocked(c, startPage)
}

func (v *VFS) lastPageOfLocked(c *container, startPage uint64) (uint64, error) {
	limit := v.maxChainHops(c)
	page := startPage
	for hop := 0; hop < limit; hop++ {
		buf, err := v.readPageLocked(c, page)
		if err != nil {
			return 0, err
		}
		next := nextPageOf(buf)
		if next == 0 {
			return page, nil
		}
		page = next
	}
	return 0, newIOError("scan", c.path, errCorruptSize)
}

// findDirRecord resolves one path component under cur, the already
// resolved prefix. When cur is the virtual root, every container's page
// 0 is searched in turn (root is implicit in each container; a given
// top-level name lives in at most one of them, invariant 5 in §3.3).
func (v *VFS) findDirRecord(cur dirDescriptor, name string, typ recordType) (rec record, containerID int, found bool, err error) {
	if cur.containerID == rootContainerID {
		for _, c := range v.containers {
			rec, ok, err := v.scanChainForName(c, 0, name, typ)
			if err != nil {
				return record{}, 0, false, err
			}
			if ok {
				return rec, c.id, true, nil
			}
		}
		return record{}, 0, false, nil
	}
	c := v.containers[cur.containerID]
	rec, ok, err := v.scanChainForName(c, cur.firstPage, name, typ)
	if err != nil {
		return record{}, 0, false, err
	}
	return rec, cur.containerID, ok, nil
}

// insertDir adds name → desc to the directory index if absent. Returns
// ErrDirAlreadyExists if a *different* descriptor is already present —
// under the single-writer rule this should never happen (§7).
func (v *VFS) insertDir(name string, desc dirDescriptor) error {
	v.dirsMu.Lock()
	defer v.dirsMu.Unlock()
	if existing, ok := v.dirIndex[name]; ok {
		if existing != desc {
			return ErrDirAlreadyExists
		}
		return nil
	}
	v.dirIndex[name] = desc
	return nil
}

func (v *VFS) lookupDir(name string) (dirDescriptor, bool) {
	v.dirsMu.RLock()
	defer v.dirsMu.RUnlock()
	d, ok := v.dirIndex[name]
	return d, ok
}

// resolveResult is the outcome of walking as far as possible toward
// parent(path).
type resolveResult struct {
	// resolved is the deepest directory descriptor successfully reached
	// (may be the virtual root if nothing was resolved).
	resolved dirDescriptor
	// missing holds the remaining, unresolved ancestor path components
	// (outermost first) — empty when the full parent chain resolved.
	missing []string
}

// resolveParents implements §4.3 step 1-3: find the longest indexed
// prefix, then walk forward resolving (and indexing) each missing
// ancestor directory until one is not found or all are resolved.
func (v *VFS) resolveParents(path string) (resolveResult, error) {
	anc := ancestors(path)

	cur := rootDescriptor()
	curIdx := -1
	for i := len(anc) - 1; i >= 0; i-- {
		if d, ok := v.lookupDir(anc[i]); ok {
			cur = d
			curIdx = i
			break
		}
	}

	pending := anc[curIdx+1:]
	for i, name := range pending {
		rec, containerID, found, err := v.findDirRecord(cur, name, recordDirectory)
		if err != nil {
			return resolveResult{}, err
		}
		if !found {
			return resolveResult{resolved: cur, missing: pending[i:]}, nil
		}
		next := dirDescriptor{containerID: containerID, firstPage: rec.FirstPage}
		if err := v.insertDir(name, next); err != nil {
			return resolveResult{}, err
		}
		cur = next
	}
	return resolveResult{resolved: cur, missing: nil}, nil
}

// createRecord appends a brand-new page as the record's first page, then
// writes the (type, name, first_page) record into the tail of parent's
// chain, growing the chain with additional pages if the record does not
// fit in the parent's last page (§4.3 "Create a record", §4.4).
// If typ is recordFile, the container's file-count header is bumped.
func (v *VFS) createRecord(parent dirDescriptor, name string, typ recordType) (dirDescriptor, error) {
	c := v.containers[parent.containerID]

	c.mu.Lock()
	newPage, err := v.appendPageLocked(c)
	c.mu.Unlock()
	if err != nil {
		return dirDescriptor{}, err
	}

	rec := record{Type: typ, Name: name, FirstPage: newPage}
	data := encodeRecord(rec)

	lastPage, err := v.lastPageOf(c, parent.firstPage)
	if err != nil {
		return dirDescriptor{}, err
	}

	c.mu.Lock()
	buf, err := v.readPageLocked(c, lastPage)
	if err != nil {
		c.mu.Unlock()
		return dirDescriptor{}, err
	}
	startOffset := pageEnd(buf)
	c.mu.Unlock()

	if _, err := v.writeChain(c, lastPage, startOffset, data, false); err != nil {
		return dirDescriptor{}, err
	}

	if typ == recordFile {
		c.mu.Lock()
		err := v.incrementFileCountLocked(c)
		c.mu.Unlock()
		if err != nil {
			return dirDescriptor{}, err
		}
	}

	return dirDescriptor{containerID: parent.containerID, firstPage: newPage}, nil
}

// materializeDirs creates, in order (outermost first), every directory
// named by absolute path in missingPaths under parent, returning the
// descriptor of the innermost one created — the final parent for the
// file record itself.
func (v *VFS) materializeDirs(parent dirDescriptor, missingPaths []string) (dirDescriptor, error) {
	cur := parent
	for _, absPath := range missingPaths {
		desc, err := v.createRecord(cur, absPath, recordDirectory)
		if err != nil {
			return dirDescriptor{}, err
		}
		if err := v.insertDir(absPath, desc); err != nil {
			return dirDescriptor{}, err
		}
		cur = desc
	}
	return cur, nil
}

// writeChain implements §4.4's WriteToFile contract: it writes data
// starting at (startPage, startOffset), extending the chain with
// freshly appended pages as needed, and returns the number of payload
// bytes written (always len(data) — this routine never partially
// fails on host space; host I/O failure is fatal).
//
// The container lock is acquired once, here, for the whole call. The
// reference design instead takes a re-entrant lock and recurses back
// into lock-acquiring helpers (spec.md §9, "Per-container re-entrant
// locks"); that section explicitly invites refactoring the recursion
// out rather than hand-rolling a re-entrant mutex, which is not
// idiomatic Go. All of writeChain's helpers below assume the caller
// already holds c.mu (see the *Locked naming convention in pageio.go).
func (v *VFS) writeChain(c *container, startPage uint64, startOffset int, data []byte, carry bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pageSize := v.cfg.PageSize
	capacity := pageSize - startOffset - wordSize

	if len(data) <= capacity {
		buf, err := v.readPageLocked(c, startPage)
		if err != nil {
			return 0, err
		}
		copy(buf[startOffset:], data)
		if err := v.writePageLocked(c, startPage, buf); err != nil {
			return 0, err
		}
		return len(data), nil
	}

	remaining := data
	written := 0
	curPage := startPage

	if carry && capacity > 0 {
		buf, err := v.readPageLocked(c, startPage)
		if err != nil {
			return 0, err
		}
		n := capacity
		copy(buf[startOffset:], remaining[:n])
		if err := v.writePageLocked(c, startPage, buf); err != nil {
			return 0, err
		}
		remaining = remaining[n:]
		written += n
	}

	batchCap := pageSize - wordSize
	for len(remaining) > 0 {
		newPage, err := v.appendPageLocked(c)
		if err != nil {
			return written, err
		}
		if err := v.setNextPageLocked(c, curPage, newPage); err != nil {
			return written, err
		}

		n := batchCap
		if n > len(remaining) {
			n = len(remaining)
		}
		buf := make([]byte, pageSize)
		copy(buf, remaining[:n])
		if err := v.writePageLocked(c, newPage, buf); err != nil {
			return written, err
		}

		remaining = remaining[n:]
		written += n
		curPage = newPage
	}

	return written, nil
}
