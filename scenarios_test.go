package cvfs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// containerPaths returns n bare container filenames (relative to a
// Construct rootDir), matching spec.md §8.2 scenario 1's "1.vfs" .. "n.vfs".
func containerPaths(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d.vfs", i+1)
	}
	return out
}

// Scenario 1: constructing over N fresh containers leaves each exactly
// S + P bytes with a zero file-count header.
func TestScenarioFreshContainersAreWellFormed(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(5), dir)
	require.NoError(t, err)
	require.Len(t, v.containers, 5)

	for _, c := range v.containers {
		require.EqualValues(t, headerSize+DefaultPageSize, c.Size())
		c.mu.Lock()
		n, err := v.fileCountLocked(c)
		c.mu.Unlock()
		require.NoError(t, err)
		require.Zero(t, n)
	}
}

// Scenario 2: create, write, close, reopen, read round-trip.
func TestScenarioCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(2), dir)
	require.NoError(t, err)

	h := v.Create("/new_dir/new_file")
	require.NotNil(t, h)
	n := v.Write(h, []byte("Hello world!"))
	require.Equal(t, 12, n)
	v.Close(h)

	h2 := v.Open("/new_dir/new_file")
	require.NotNil(t, h2)
	buf := make([]byte, 12)
	got := v.Read(h2, buf)
	require.Equal(t, 12, got)
	require.Equal(t, "Hello world!", string(buf))
	v.Close(h2)
}

// Scenario 3: a direct child of root cannot be created.
func TestScenarioTopLevelFileRejected(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(2), dir)
	require.NoError(t, err)

	require.Nil(t, v.Create("/a"))
	for _, c := range v.containers {
		require.EqualValues(t, headerSize+DefaultPageSize, c.Size())
	}
}

// Scenario 4: a second Create while the first handle is still open fails.
func TestScenarioDoubleCreateWhileOpenRejected(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(2), dir)
	require.NoError(t, err)

	h := v.Create("/d/f")
	require.NotNil(t, h)
	require.Nil(t, v.Create("/d/f"))
	v.Close(h)
}

// Scenario 5: after closing, a nonexistent sibling does not Open.
func TestScenarioOpenMissingSiblingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(2), dir)
	require.NoError(t, err)

	h := v.Create("/d/f")
	require.NotNil(t, h)
	v.Close(h)

	require.Nil(t, v.Open("/d/g"))
}

// Scenario 6: writing exactly P-2W bytes then one more byte spans two
// pages, with the first page's next-page slot pointing at the second and
// the second page's next-page slot at 0.
func TestScenarioWriteSpansTwoPages(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	h := v.Create("/d/f")
	require.NotNil(t, h)

	firstPageCap := DefaultPageSize - 2*wordSize
	payload := make([]byte, firstPageCap)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.Equal(t, firstPageCap, v.Write(h, payload))
	require.Equal(t, 1, v.Write(h, []byte{0xAB}))
	v.Close(h)

	c := v.containers[0]
	c.mu.Lock()
	firstBuf, err := v.readPageLocked(c, h.firstPage)
	require.NoError(t, err)
	next := nextPageOf(firstBuf)
	require.NotZero(t, next)
	secondBuf, err := v.readPageLocked(c, next)
	require.NoError(t, err)
	require.Zero(t, nextPageOf(secondBuf))
	c.mu.Unlock()

	h2 := v.Open("/d/f")
	require.NotNil(t, h2)
	buf := make([]byte, firstPageCap+1)
	got := v.Read(h2, buf)
	require.Equal(t, firstPageCap+1, got)
	require.Equal(t, payload, buf[:firstPageCap])
	require.Equal(t, byte(0xAB), buf[firstPageCap])
	v.Close(h2)
}

// Property 7: many small writes accumulate byte-for-byte, spanning
// several pages.
func TestPropertyCrashFreeGrowth(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	h := v.Create("/d/f")
	require.NotNil(t, h)

	const n = DefaultPageSize * 3
	want := make([]byte, n)
	for i := 0; i < n; i++ {
		want[i] = byte(i % 251)
		require.Equal(t, 1, v.Write(h, want[i:i+1]))
	}
	v.Close(h)

	h2 := v.Open("/d/f")
	require.NotNil(t, h2)
	got := make([]byte, n)
	require.Equal(t, n, v.Read(h2, got))
	require.Equal(t, want, got)
	v.Close(h2)
}

// Property 6: a brand-new top-level directory lands in the
// minimum-size container at the moment of Create, not always the first.
func TestScenarioSmallestContainerPolicy(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(3), dir)
	require.NoError(t, err)

	h0 := v.Create("/bulk/first")
	require.NotNil(t, h0)
	require.Equal(t, 4000, v.Write(h0, make([]byte, 4000)))
	v.Close(h0)

	bulkDesc, ok := v.lookupDir("/bulk")
	require.True(t, ok)
	require.Greater(t, v.containers[bulkDesc.containerID].Size(), int64(headerSize+DefaultPageSize))

	// Every other container is still at its freshly-constructed size, so
	// selectContainer must not pick bulkDesc.containerID again.
	h1 := v.Create("/other_top/leaf")
	require.NotNil(t, h1)
	v.Close(h1)

	otherDesc, ok := v.lookupDir("/other_top")
	require.True(t, ok)
	require.NotEqual(t, bulkDesc.containerID, otherDesc.containerID)
}

func TestStatFileAndDirectory(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	h := v.Create("/a/b")
	require.NotNil(t, h)
	v.Write(h, []byte("xyz"))
	v.Close(h)

	info, ok := v.Stat("/a/b")
	require.True(t, ok)
	require.False(t, info.IsDir)
	require.EqualValues(t, 3, info.Size)

	dinfo, ok := v.Stat("/a")
	require.True(t, ok)
	require.True(t, dinfo.IsDir)

	_, ok = v.Stat("/nope/nope")
	require.False(t, ok)
}

func TestWalkVisitsCreatedTree(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	h1 := v.Create("/a/one")
	require.NotNil(t, h1)
	v.Write(h1, []byte("1"))
	v.Close(h1)

	h2 := v.Create("/a/b/two")
	require.NotNil(t, h2)
	v.Write(h2, []byte("22"))
	v.Close(h2)

	visited := map[string]Info{}
	err = v.Walk("/", func(path string, info Info) error {
		visited[path] = info
		return nil
	})
	require.NoError(t, err)

	require.Contains(t, visited, "/a")
	require.True(t, visited["/a"].IsDir)
	require.Contains(t, visited, "/a/one")
	require.EqualValues(t, 1, visited["/a/one"].Size)
	require.Contains(t, visited, "/a/b")
	require.True(t, visited["/a/b"].IsDir)
	require.Contains(t, visited, "/a/b/two")
	require.EqualValues(t, 2, visited["/a/b/two"].Size)
}

func TestConstructRejectsBadRoot(t *testing.T) {
	_, err := Construct(containerPaths(1), "/path/does/not/exist")
	require.ErrorIs(t, err, ErrRootDoesNotExist)
}

func TestConstructRejectsEmptyContainerList(t *testing.T) {
	_, err := Construct(nil, t.TempDir())
	require.ErrorIs(t, err, ErrNoFiles)
}

func TestConstructRejectsTooManyContainers(t *testing.T) {
	_, err := Construct(containerPaths(6), t.TempDir(), WithMaxContainers(5))
	require.ErrorIs(t, err, ErrTooManyFiles)
}

func TestConstructRejectsDuplicateContainerPath(t *testing.T) {
	_, err := Construct([]string{"a.vfs", "a.vfs"}, t.TempDir())
	require.ErrorIs(t, err, ErrFileAlreadyExists)
}

func TestConstructCustomPageSize(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir, WithPageSize(512))
	require.NoError(t, err)
	require.Equal(t, 512, v.cfg.PageSize)
}
