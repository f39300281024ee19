/*
Package nitro is a library for inspecting and converting the graphics
containers used by Nintendo DS software.

Palettes (NCLR), character tiles (NCGR), screens (NSCR) and cell banks
(NCER) are all stored in the same chunked container. The codecs live in
their own packages; this package ties them together and maintains a catalog
of the containers found under a directory tree.
*/
package nitro

import (
	"log"
	"runtime"
)

// Nitro scans directories of containers into a Catalog.
type Nitro struct {
	catalog *Catalog
	logger  *log.Logger
	workers int
}

// New opens or creates the catalog database in file. Scans use workers
// goroutines, or one per CPU if workers is zero or less.
func New(file string, logger *log.Logger, workers int) (*Nitro, error) {
	catalog, err := NewCatalog(file)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Nitro{
		catalog: catalog,
		logger:  logger,
		workers: workers,
	}, nil
}

// Catalog returns the underlying catalog.
func (n *Nitro) Catalog() *Catalog {
	return n.catalog
}

// Close closes the catalog.
func (n *Nitro) Close() error {
	return n.catalog.Close()
}
