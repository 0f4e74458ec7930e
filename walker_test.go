package cvfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParentsMaterializesMissingAncestors(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	res, err := v.resolveParents("/a/b/c")
	require.NoError(t, err)
	require.Equal(t, rootDescriptor(), res.resolved)
	require.Equal(t, []string{"/a", "/a/b"}, res.missing)

	h := v.Create("/a/b/c")
	require.NotNil(t, h)
	v.Close(h)

	// Now both ancestors are indexed; resolving again should hit them
	// without reporting anything missing.
	res2, err := v.resolveParents("/a/b/c")
	require.NoError(t, err)
	require.Empty(t, res2.missing)

	_, ok := v.lookupDir("/a")
	require.True(t, ok)
	_, ok = v.lookupDir("/a/b")
	require.True(t, ok)
}

func TestResolveParentsReusesIndexedPrefix(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	h1 := v.Create("/a/b/one")
	require.NotNil(t, h1)
	v.Close(h1)

	// /a and /a/b are now indexed; resolving a sibling should reuse
	// the longest already-indexed prefix rather than re-walking from root.
	res, err := v.resolveParents("/a/b/two")
	require.NoError(t, err)
	require.Empty(t, res.missing)
	want, ok := v.lookupDir("/a/b")
	require.True(t, ok)
	require.Equal(t, want, res.resolved)
}

func TestFindDirRecordSearchesAllContainersAtRoot(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(3), dir)
	require.NoError(t, err)

	h := v.Create("/somewhere/file")
	require.NotNil(t, h)
	v.Close(h)

	rec, containerID, found, err := v.findDirRecord(rootDescriptor(), "/somewhere", recordDirectory)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "/somewhere", rec.Name)

	desc, ok := v.lookupDir("/somewhere")
	require.True(t, ok)
	require.Equal(t, desc.containerID, containerID)
}

func TestInsertDirRejectsConflictingDescriptor(t *testing.T) {
	dir := t.TempDir()
	v, err := Construct(containerPaths(1), dir)
	require.NoError(t, err)

	require.NoError(t, v.insertDir("/x", dirDescriptor{containerID: 0, firstPage: 1}))
	require.NoError(t, v.insertDir("/x", dirDescriptor{containerID: 0, firstPage: 1}))
	require.ErrorIs(t, v.insertDir("/x", dirDescriptor{containerID: 0, firstPage: 2}), ErrDirAlreadyExists)
}
