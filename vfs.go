package cvfs

// This file implements the VFS facade (C5, spec.md §4.7): Open, Create,
// Read, Write, Close, plus the supplemented Stat and Walk operations
// (SPEC_FULL.md).

// Open resolves path for reading. It returns nil (not an error) on any
// argument problem, missing-parent, or missing-file condition — per
// spec.md §7, those are silent outcomes, not faults.
func (v *VFS) Open(name string) *Handle {
	path, ok := normalizePath(name)
	if !ok {
		return nil
	}

	v.editMu.Lock()
	defer v.editMu.Unlock()

	if h := v.lookupHandle(path); h != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.status != StatusOpenRead {
			return nil
		}
		h.readerCount++
		return h
	}

	res, err := v.resolveParents(path)
	if err != nil {
		log.WithError(err).Error("open: resolve parents")
		return nil
	}
	if len(res.missing) > 0 {
		return nil
	}

	rec, _, found, err := v.findDirRecord(res.resolved, path, recordFile)
	if err != nil {
		log.WithError(err).Error("open: find file record")
		return nil
	}
	if !found {
		return nil
	}

	containerID := res.resolved.containerID
	if containerID == rootContainerID {
		// Unreachable: normalizePath rejects any path whose parent is
		// "/", so ancestors(path) is always non-empty here and the loop
		// in resolveParents always advances cur off of the root sentinel
		// before len(res.missing) can be 0.
		return nil
	}

	c := v.containers[containerID]
	dataLen, err := v.readFileLength(c, rec.FirstPage)
	if err != nil {
		log.WithError(err).Error("open: read file length")
		return nil
	}

	h := &Handle{
		containerID: containerID,
		name:        path,
		firstPage:   rec.FirstPage,
		dataLen:     dataLen,
		status:      StatusOpenRead,
		readerCount: 1,
	}
	v.insertHandle(h)
	return h
}

// Create resolves (materializing missing directories as needed) and
// opens path for writing, creating the file record if it does not yet
// exist. Returns nil on any argument problem or if a handle for path is
// already open (single-writer exclusion, §4.7 step 3).
func (v *VFS) Create(name string) *Handle {
	path, ok := normalizePath(name)
	if !ok {
		return nil
	}

	v.editMu.Lock()
	defer v.editMu.Unlock()

	if v.lookupHandle(path) != nil {
		return nil
	}

	res, err := v.resolveParents(path)
	if err != nil {
		log.WithError(err).Error("create: resolve parents")
		return nil
	}

	parent := res.resolved
	if parent.containerID == rootContainerID {
		parent = dirDescriptor{containerID: v.selectContainer().id, firstPage: 0}
	}

	if len(res.missing) > 0 {
		parent, err = v.materializeDirs(parent, res.missing)
		if err != nil {
			log.WithError(err).Error("create: materialize directories")
			return nil
		}
	}

	c := v.containers[parent.containerID]

	rec, _, found, err := v.findDirRecord(parent, path, recordFile)
	if err != nil {
		log.WithError(err).Error("create: find file record")
		return nil
	}

	var firstPage uint64
	var dataLen uint64
	if found {
		firstPage = rec.FirstPage
		dataLen, err = v.readFileLength(c, firstPage)
		if err != nil {
			log.WithError(err).Error("create: read file length")
			return nil
		}
	} else {
		desc, err := v.createRecord(parent, path, recordFile)
		if err != nil {
			log.WithError(err).Error("create: create file record")
			return nil
		}
		firstPage = desc.firstPage
		dataLen = 0
	}

	h := &Handle{
		containerID: parent.containerID,
		name:        path,
		firstPage:   firstPage,
		dataLen:     dataLen,
		status:      StatusOpenWrite,
	}
	v.insertHandle(h)
	return h
}

// Read copies min(len(buf), handle.Size()) bytes of path's content into
// buf, starting from the beginning of the file every call — the
// reference implementation retains no per-handle read cursor (spec.md
// §9, "Single reader cursor"; see DESIGN.md for why this build keeps
// that behavior rather than adding a cursor). Returns 0 if handle is
// not open for reading.
func (v *VFS) Read(h *Handle, buf []byte) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	if h.status != StatusOpenRead {
		h.mu.Unlock()
		return 0
	}
	dataLen := h.dataLen
	containerID := h.containerID
	firstPage := h.firstPage
	h.mu.Unlock()

	want := len(buf)
	if uint64(want) > dataLen {
		want = int(dataLen)
	}
	if want == 0 {
		return 0
	}

	c := v.containers[containerID]
	n, err := v.readChain(c, firstPage, buf[:want])
	if err != nil {
		log.WithError(err).Error("read: chain read")
		return 0
	}
	return n
}

// Write appends len(buf) bytes to the logical end of the file, growing
// the page chain as needed. Returns 0 if handle is not open for
// writing.
func (v *VFS) Write(h *Handle, buf []byte) int {
	if h == nil || len(buf) == 0 {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != StatusOpenWrite {
		return 0
	}

	c := v.containers[h.containerID]
	lastPage, offset, err := v.writePosition(c, h.firstPage, h.dataLen)
	if err != nil {
		log.WithError(err).Error("write: locate write position")
		return 0
	}

	n, err := v.writeChain(c, lastPage, offset, buf, true)
	if err != nil {
		log.WithError(err).Error("write: chain write")
		return 0
	}

	h.dataLen += uint64(n)
	if err := v.writeFileLength(c, h.firstPage, h.dataLen); err != nil {
		log.WithError(err).Error("write: update data_len header")
		return 0
	}
	return n
}

// Close releases h. A writable handle is dropped from the file index
// unconditionally; a readable handle's reader count is decremented and
// the handle is dropped once it reaches zero (§4.7).
func (v *VFS) Close(h *Handle) {
	if h == nil {
		return
	}
	v.editMu.Lock()
	defer v.editMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.status {
	case StatusOpenWrite:
		h.status = StatusClosed
		v.removeHandle(h.name)
	case StatusOpenRead:
		h.readerCount--
		if h.readerCount <= 0 {
			h.status = StatusClosed
			v.removeHandle(h.name)
		}
	}
}

// Info is the result of Stat: minimal read-only metadata about a
// virtual path, without opening a handle (SPEC_FULL.md supplemented
// feature, grounded on the teacher's fileinfo.go).
type Info struct {
	Name  string
	Size  int64
	IsDir bool
}

// Stat reports metadata for path without affecting the handle table or
// reader counts. The second return value is false if path does not
// exist (or is malformed).
func (v *VFS) Stat(name string) (Info, bool) {
	// Top-level paths are valid here (they name directories), so only the
	// empty path and "/" itself are rejected.
	path, _ := normalizePath(name)
	if path == "" || path == "/" {
		return Info{}, false
	}

	res, err := v.resolveParents(path)
	if err != nil || len(res.missing) > 0 {
		return Info{}, false
	}

	if rec, _, found, err := v.findDirRecord(res.resolved, path, recordFile); err == nil && found {
		c := v.containers[res.resolved.containerID]
		size, err := v.readFileLength(c, rec.FirstPage)
		if err != nil {
			return Info{}, false
		}
		return Info{Name: path, Size: int64(size), IsDir: false}, true
	}

	if rec, _, found, err := v.findDirRecord(res.resolved, path, recordDirectory); err == nil && found {
		_ = rec
		return Info{Name: path, IsDir: true}, true
	}

	return Info{}, false
}
