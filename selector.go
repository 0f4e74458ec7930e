package cvfs

// selectContainer implements the container selector (C6, spec.md §4.6):
// when Create must allocate a brand-new top-level directory, it picks
// the container with the smallest current on-disk size, breaking ties
// by first-in-insertion-order (i.e. lowest container id).
func (v *VFS) selectContainer() *container {
	best := v.containers[0]
	bestSize := best.Size()
	for _, c := range v.containers[1:] {
		if s := c.Size(); s < bestSize {
			best, bestSize = c, s
		}
	}
	return best
}
