package cvfs

// pageOffset returns the byte offset of page idx within a container, per
// spec.md §3.1: [S + idx*P, S + (idx+1)*P).
func pageOffset(idx uint64, pageSize int) int64 {
	return int64(headerSize) + int64(idx)*int64(pageSize)
}

// readPageLocked reads one full page into a freshly allocated buffer.
// Callers must already hold c.mu.
func (v *VFS) readPageLocked(c *container, idx uint64) ([]byte, error) {
	buf := make([]byte, v.cfg.PageSize)
	_, err := c.readAtLocked(pageOffset(idx, v.cfg.PageSize), buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// writePageLocked writes a full page buffer back to its slot. Callers
// must already hold c.mu.
func (v *VFS) writePageLocked(c *container, idx uint64, buf []byte) error {
	_, err := c.writeAtLocked(pageOffset(idx, v.cfg.PageSize), buf)
	return err
}

// appendPageLocked appends one brand-new, zero-filled page (next-page
// pointer 0) to the container tail and returns its index. Callers must
// already hold c.mu.
func (v *VFS) appendPageLocked(c *container) (uint64, error) {
	pageSize := v.cfg.PageSize
	if (c.size-int64(headerSize))%int64(pageSize) != 0 {
		return 0, newIOError("append", c.path, errCorruptSize)
	}
	idx := uint64((c.size - int64(headerSize)) / int64(pageSize))
	buf := make([]byte, pageSize)
	if _, _, err := c.appendLocked(buf); err != nil {
		return 0, err
	}
	return idx, nil
}

// setNextPageLocked rewrites the trailing next-page pointer of an
// already-written page. Callers must already hold c.mu.
func (v *VFS) setNextPageLocked(c *container, idx uint64, next uint64) error {
	buf := make([]byte, wordSize)
	putWord(buf, next)
	off := pageOffset(idx, v.cfg.PageSize) + int64(v.cfg.PageSize) - int64(wordSize)
	_, err := c.writeAtLocked(off, buf)
	return err
}

// fileCountLocked reads the container's file-count header. Callers must
// already hold c.mu.
func (v *VFS) fileCountLocked(c *container) (uint64, error) {
	buf := make([]byte, headerSize)
	if _, err := c.readAtLocked(0, buf); err != nil {
		return 0, err
	}
	return getWord(buf), nil
}

// incrementFileCountLocked bumps the container's file-count header by
// one. Callers must already hold c.mu.
func (v *VFS) incrementFileCountLocked(c *container) error {
	n, err := v.fileCountLocked(c)
	if err != nil {
		return err
	}
	buf := make([]byte, headerSize)
	putWord(buf, n+1)
	_, err = c.writeAtLocked(0, buf)
	return err
}
