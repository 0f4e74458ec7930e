// Package cvfs implements a paged virtual file system that packs many
// logical files and directory trees into a small, fixed set of backing
// container files on the host file system.
//
// Each container is laid out as a file-count header followed by an array
// of fixed-size pages (see container.go and page.go for the exact byte
// layout). Logical files and non-root directories are singly-linked
// chains of pages inside one container; the virtual root "/" is the
// implicit page 0 of every container.
//
// # Concurrency
//
// A single mutex ("edit") guards state transitions of the handle table
// (Open/Create/Close). Each container has its own mutex guarding all
// positioned I/O against it and its cached size. Directory and file
// index mutations are guarded by their own mutexes. See DESIGN.md (C1,
// C3 and C4) for how the container and handle locks are used.
//
// # Usage example
//
//	v, err := cvfs.Construct([]string{"1.vfs", "2.vfs"}, "/var/lib/myapp")
//	if err != nil {
//		log.Fatal(err)
//	}
//	h := v.Create("/reports/q1.csv")
//	v.Write(h, []byte("a,b,c\n"))
//	v.Close(h)
package cvfs
