// Command vfsdemo drives a cvfs container set from the shell: construct
// a set of backing files, then create, write, read, stat, or walk
// virtual paths against them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/containervfs/cvfs"
)

func containerPaths(c *cli.Context) []string {
	return strings.Split(c.String("containers"), ",")
}

func openVFS(c *cli.Context) (*cvfs.VFS, error) {
	opts := []cvfs.Option{cvfs.WithPageSize(c.Int("page-size"))}
	v, err := cvfs.Construct(containerPaths(c), c.String("root"), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "construct vfs")
	}
	return v, nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:  "vfsdemo",
		Usage: "exercise a cvfs container set from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "directory containing the backing container files"},
			&cli.StringFlag{Name: "containers", Value: "1.vfs,2.vfs,3.vfs,4.vfs,5.vfs", Usage: "comma-separated backing container filenames"},
			&cli.IntFlag{Name: "page-size", Value: cvfs.DefaultPageSize, Usage: "page size in bytes"},
		},
		Commands: []*cli.Command{
			{
				Name:      "write",
				Usage:     "create (or reopen) a virtual file and append literal data to it",
				ArgsUsage: "<path> <data>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 2 {
						return fmt.Errorf("usage: vfsdemo write <path> <data>")
					}
					v, err := openVFS(c)
					if err != nil {
						return err
					}
					path, data := c.Args().Get(0), c.Args().Get(1)
					h := v.Create(path)
					if h == nil {
						return fmt.Errorf("create %s: rejected (bad path or already open)", path)
					}
					n := v.Write(h, []byte(data))
					v.Close(h)
					fmt.Printf("wrote %d bytes to %s\n", n, path)
					return nil
				},
			},
			{
				Name:      "read",
				Usage:     "open a virtual file for reading and print its content",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 1 {
						return fmt.Errorf("usage: vfsdemo read <path>")
					}
					v, err := openVFS(c)
					if err != nil {
						return err
					}
					path := c.Args().Get(0)
					h := v.Open(path)
					if h == nil {
						return fmt.Errorf("open %s: not found", path)
					}
					buf := make([]byte, h.Size())
					n := v.Read(h, buf)
					v.Close(h)
					fmt.Println(string(buf[:n]))
					return nil
				},
			},
			{
				Name:      "stat",
				Usage:     "print metadata for a virtual path without opening it",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 1 {
						return fmt.Errorf("usage: vfsdemo stat <path>")
					}
					v, err := openVFS(c)
					if err != nil {
						return err
					}
					info, ok := v.Stat(c.Args().Get(0))
					if !ok {
						return fmt.Errorf("stat %s: not found", c.Args().Get(0))
					}
					fmt.Printf("%s\tdir=%v\tsize=%d\n", info.Name, info.IsDir, info.Size)
					return nil
				},
			},
			{
				Name:  "walk",
				Usage: "walk the whole virtual tree from /",
				Action: func(c *cli.Context) error {
					v, err := openVFS(c)
					if err != nil {
						return err
					}
					return v.Walk("/", func(path string, info cvfs.Info) error {
						kind := "file"
						if info.IsDir {
							kind = "dir"
						}
						fmt.Printf("%-5s %-40s %d\n", kind, path, info.Size)
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "vfsdemo: %v\n", err)
		os.Exit(1)
	}
}
