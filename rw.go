package cvfs

// This file implements the read/write position arithmetic and the
// chain-spanning Read used by Read/Write (§4.7).

// readFileLength reads the data_len header from a file's first page.
func (v *VFS) readFileLength(c *container, firstPage uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, wordSize)
	if _, err := c.readAtLocked(pageOffset(firstPage, v.cfg.PageSize), buf); err != nil {
		return 0, err
	}
	return getWord(buf), nil
}

// writeFileLength rewrites the data_len header on a file's first page.
func (v *VFS) writeFileLength(c *container, firstPage uint64, length uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, wordSize)
	putWord(buf, length)
	_, err := c.writeAtLocked(pageOffset(firstPage, v.cfg.PageSize), buf)
	return err
}

// readChain reads up to len(buf) bytes of a file's content, always
// starting from the first page's content offset (wordSize, past the
// data_len header) regardless of any previous Read call — see the doc
// comment on VFS.Read and DESIGN.md's "Single reader cursor" entry.
func (v *VFS) readChain(c *container, firstPage uint64, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pageSize := v.cfg.PageSize
	page := firstPage
	read := 0
	first := true
	limit := v.maxChainHops(c)

	for hop := 0; hop < limit && read < len(buf); hop++ {
		raw, err := v.readPageLocked(c, page)
		if err != nil {
			return read, err
		}
		var content []byte
		if first {
			content = raw[wordSize : pageSize-wordSize]
			first = false
		} else {
			content = raw[:pageSize-wordSize]
		}
		n := copy(buf[read:], content)
		read += n

		next := nextPageOf(raw)
		if next == 0 || read >= len(buf) {
			break
		}
		page = next
	}
	return read, nil
}

// writePosition locates the actual last page of a file's chain and the
// byte offset within it at which the next Write should begin, given the
// file's current logical length dataLen.
//
// spec.md §4.7 gives a single textual expression for this offset,
// "(data_len mod (P - W)) + W", and notes it is applied uniformly to
// both the first page (where it is exactly right — content starts at
// W) and later pages (where the parenthetical says it represents
// "offset past the raw-content prefix"). Applied literally and
// uniformly, that expression only tracks the true in-page offset for
// page 0: the first page holds P-2W content bytes but the modulus uses
// P-W, so the running position drifts by W bytes at every page
// boundary after the first — breaking exactly the round-trip and
// crash-free-growth invariants spec.md §8.1 requires to hold. This
// build instead walks the chain and accumulates each page's true
// capacity (P-2W for the first page, P-W for every later one), which
// agrees with the spec's expression on the first page and generalizes
// it correctly beyond it. See DESIGN.md, "Write position formula".
func (v *VFS) writePosition(c *container, firstPage uint64, dataLen uint64) (uint64, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pageSize := v.cfg.PageSize
	firstCap := uint64(pageSize - 2*wordSize)
	otherCap := uint64(pageSize - wordSize)

	limit := v.maxChainHops(c)
	page := firstPage
	hops := 0
	for hop := 0; hop < limit; hop++ {
		buf, err := v.readPageLocked(c, page)
		if err != nil {
			return 0, 0, err
		}
		next := nextPageOf(buf)
		if next == 0 {
			break
		}
		page = next
		hops++
	}

	if hops == 0 {
		return page, wordSize + int(dataLen), nil
	}
	consumed := firstCap + uint64(hops-1)*otherCap
	return page, int(dataLen - consumed), nil
}
