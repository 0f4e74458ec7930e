package cvfs

import "encoding/binary"

// wordSize is W from spec.md §3.1: the width, in bytes, of every count
// and page-number field in the on-disk format. The reference design
// ties this to native pointer width; this build fixes it at 8 bytes
// (uint64) so containers are portable across hosts regardless of native
// int size — see DESIGN.md, "byte ordering" Open Question.
const wordSize = 8

// DefaultPageSize is the reference page size P (§3.1).
const DefaultPageSize = 4096

// headerSize is S, the global file-count-header prefix size (§3.1): one word.
const headerSize = wordSize

// Record type tags (§3.1.1).
type recordType byte

const (
	recordSentinel  recordType = 0x00
	recordDirectory recordType = 0x07
	recordFile      recordType = 0x70
)

// record is one directory entry: (type, name, first_page), the decoded
// form of spec.md §3.1.1's file-info record.
type record struct {
	Type      recordType
	Name      string
	FirstPage uint64
}

// putWord and getWord encode/decode a single W-byte unsigned field.
// The format fixes little-endian byte order for on-disk portability.
func putWord(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}

func getWord(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

// encodeRecord serializes a record to its on-disk byte form:
// type(1) + name_len(W) + name(name_len) + first_page(W).
func encodeRecord(rec record) []byte {
	n := len(rec.Name)
	buf := make([]byte, 1+wordSize+n+wordSize)
	buf[0] = byte(rec.Type)
	putWord(buf[1:1+wordSize], uint64(n))
	copy(buf[1+wordSize:1+wordSize+n], rec.Name)
	putWord(buf[1+wordSize+n:], rec.FirstPage)
	return buf
}

// recordSize returns the encoded length of a record with the given name.
func recordSize(name string) int {
	return 1 + wordSize + len(name) + wordSize
}

// decodeRecord reads one record from page starting at byte offset pos.
// It implements spec.md §4.2's read_record: if page[pos] is the sentinel
// tag, it reports ok == false and does not look past the tag byte.
//
// This performs structural decoding only — it never substring-searches
// raw payload bytes. spec.md's own Open Questions flag the reference
// FindFileInPage as unsafe for exactly that reason; see DESIGN.md.
func decodeRecord(page []byte, pos int) (rec record, next int, ok bool) {
	if pos < 0 || pos >= len(page) {
		return record{}, pos, false
	}
	if recordType(page[pos]) == recordSentinel {
		return record{}, pos, false
	}
	typ := recordType(page[pos])
	pos++
	if pos+wordSize > len(page) {
		return record{}, pos, false
	}
	nameLen := int(getWord(page[pos : pos+wordSize]))
	pos += wordSize
	if pos+nameLen+wordSize > len(page) {
		return record{}, pos, false
	}
	name := string(page[pos : pos+nameLen])
	pos += nameLen
	firstPage := getWord(page[pos : pos+wordSize])
	pos += wordSize
	return record{Type: typ, Name: name, FirstPage: firstPage}, pos, true
}

// pageEnd walks records in a directory page's payload window
// (page[:len(page)-wordSize]) until a sentinel type byte is found,
// returning the first free offset (§4.2's page_end).
func pageEnd(page []byte) int {
	limit := len(page) - wordSize
	pos := 0
	for pos < limit {
		_, next, ok := decodeRecord(page, pos)
		if !ok {
			return pos
		}
		pos = next
	}
	return limit
}

// findRecord scans a directory page for a record matching name and typ,
// returning its byte offset or -1. Structural iteration, never a raw
// byte-pattern search over the payload (§4.2, §9 Open Questions).
func findRecord(page []byte, name string, typ recordType) int {
	limit := len(page) - wordSize
	pos := 0
	for pos < limit {
		rec, next, ok := decodeRecord(page, pos)
		if !ok {
			return -1
		}
		if rec.Type == typ && rec.Name == name {
			return pos
		}
		pos = next
	}
	return -1
}

// nextPageOf reads the trailing W-byte next-page pointer of a page.
// Zero means "no next page" (terminator).
func nextPageOf(page []byte) uint64 {
	return getWord(page[len(page)-wordSize:])
}

// setNextPageIn writes the trailing next-page pointer within an
// in-memory page buffer (the caller is responsible for persisting it).
func setNextPageIn(page []byte, next uint64) {
	putWord(page[len(page)-wordSize:], next)
}

// fileLengthOf reads the data_len header at the start of a file's first
// page payload.
func fileLengthOf(page []byte) uint64 {
	return getWord(page[:wordSize])
}

// setFileLengthIn writes the data_len header within an in-memory first
// page buffer.
func setFileLengthIn(page []byte, length uint64) {
	putWord(page[:wordSize], length)
}
