package nitro

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Asset is one container recorded in the catalog.
type Asset struct {
	Path    string
	Kind    Kind
	Version string
	Size    int64
	Chunks  int
	// Digest is the hex encoded BLAKE3 hash of the file.
	Digest string
	// Exact records that decoding and encoding the container reproduced
	// the file byte for byte.
	Exact bool
}

// Catalog is a sqlite database of scanned containers.
type Catalog struct {
	db *sql.DB
}

// NewCatalog opens or creates the catalog in file.
func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, kind INTEGER NOT NULL, version TEXT NOT NULL, size INTEGER NOT NULL, chunks INTEGER NOT NULL, digest TEXT NOT NULL, exact BOOLEAN NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS asset_digest ON asset (digest)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record adds or replaces the entry for a.Path.
func (c *Catalog) Record(a Asset) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO asset (path, kind, version, size, chunks, digest, exact) VALUES (?, ?, ?, ?, ?, ?, ?)", a.Path, int(a.Kind), a.Version, a.Size, a.Chunks, a.Digest, a.Exact); err != nil {
		return err
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(s scanner) (Asset, error) {
	var (
		a    Asset
		kind int
	)
	if err := s.Scan(&a.Path, &kind, &a.Version, &a.Size, &a.Chunks, &a.Digest, &a.Exact); err != nil {
		return Asset{}, err
	}
	a.Kind = Kind(kind)
	return a, nil
}

const selectAsset = "SELECT path, kind, version, size, chunks, digest, exact FROM asset"

// Find returns the entry for path, or nil if there isn't one.
func (c *Catalog) Find(path string) (*Asset, error) {
	a, err := scanAsset(c.db.QueryRow(selectAsset+" WHERE path = ?", path))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return &a, nil
	default:
		return nil, err
	}
}

func (c *Catalog) query(query string, args ...interface{}) ([]Asset, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}

// Inexact returns every entry that did not round trip exactly, ordered by
// path.
func (c *Catalog) Inexact() ([]Asset, error) {
	return c.query(selectAsset+" WHERE exact = 0 ORDER BY path")
}

// FindByDigest returns every entry whose file has the given digest, ordered
// by path.
func (c *Catalog) FindByDigest(digest string) ([]Asset, error) {
	return c.query(selectAsset+" WHERE digest = ? ORDER BY path", digest)
}

// All returns every entry ordered by path.
func (c *Catalog) All() ([]Asset, error) {
	return c.query(selectAsset + " ORDER BY path")
}
