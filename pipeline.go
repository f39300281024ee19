package nitro

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/bodgit/nitro/ntr"
)

func (n *Nitro) findFiles(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if info.Size() > maxFileSize {
				return nil
			}

			ok, err := hasMagic(file)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (n *Nitro) scanFile(base, file string) error {
	b, digest, err := readFile(file)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(base, file)
	if err != nil {
		return err
	}

	c, err := ntr.Parse(b)
	if err != nil {
		n.logger.Printf("Skipping \"%s\": %v\n", file, err)
		return nil
	}

	e, err := fromContainer(c)
	if err != nil {
		n.logger.Printf("Skipping \"%s\": %v\n", file, err)
		return nil
	}

	out, err := WriteContainer(e)
	if err != nil {
		n.logger.Printf("Skipping \"%s\": %v\n", file, err)
		return nil
	}

	kind, _ := KindOf(c.Magic)
	a := Asset{
		Path:    filepath.ToSlash(rel),
		Kind:    kind,
		Version: c.Version.String(),
		Size:    int64(len(b)),
		Chunks:  len(c.Chunks()),
		Digest:  digest,
		Exact:   bytes.Equal(out, b),
	}
	if !a.Exact {
		n.logger.Printf("\"%s\" does not round trip exactly\n", file)
	}

	return n.catalog.Record(a)
}

func (n *Nitro) fileWorker(ctx context.Context, base string, in <-chan string) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			if err := n.scanFile(base, file); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(cancel context.CancelFunc, errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			// Stop the walker and drain the remaining channels
			cancel()
			for range errc {
			}
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan walks path and records every container found in the catalog. Hidden
// files and directories are skipped, as are files that do not start with a
// recognised magic. Containers that fail to decode are logged and skipped.
func (n *Nitro) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := n.findFiles(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < n.workers; i++ {
		errc, err := n.fileWorker(ctx, dir, files)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(cancelFunc, errcList...)
}
