// Package hypercube implements C7: an optional disk-backed tile cache
// sitting in front of a MapSheet's Grids, so surfaces too large to hold
// entirely in memory can still be built. Tiles are evicted LRU-first,
// weighted to prefer evicting tiles already synchronised with backing
// store (spec.md's "HyperCUBE" extension; grounded on the reference's
// mapsheet_cube.c status-weighted purge).
package hypercube

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/seabed-data/cube.survey/internal/cube/geometry"
	"github.com/seabed-data/cube.survey/internal/cube/grid"
	"github.com/seabed-data/cube.survey/internal/cube/params"
	"github.com/seabed-data/cube.survey/internal/fsutil"
	"github.com/seabed-data/cube.survey/internal/monitoring"
	"github.com/seabed-data/cube.survey/internal/timeutil"
)

// Default cache tuning, matching the reference's HyperParam defaults
// (DEFAULT_MAX_TILE_DIMENSION's companion cache depth and
// DEFAULT_TILE_EXPIRY).
const (
	DefaultCapacity = 4
	DefaultExpiry   = 600 * time.Second
)

// Cache is a bounded set of in-memory Grid tiles backed by gob+gzip blobs
// on disk, indexed by a migrated sqlite catalog (C7).
type Cache struct {
	dir   string
	fsys  fsutil.FileSystem
	clock timeutil.Clock
	idx   *index
	id    uuid.UUID

	counts     geometry.CellCounts
	sizes      geometry.CellSizes
	parameters *params.Parameters

	capacity int
	expiry   time.Duration

	resident   map[geometry.GridIndex]*grid.Grid
	status     map[geometry.GridIndex]tileStatus
	lastAccess map[geometry.GridIndex]time.Time
}

// Open creates or reopens a tile cache rooted at dir.
func Open(dir string, fsys fsutil.FileSystem, clock timeutil.Clock, counts geometry.CellCounts, sizes geometry.CellSizes, parameters *params.Parameters, capacity int, expiry time.Duration) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("hypercube: create backing store %q: %w", dir, err)
	}

	idx, err := newIndex(filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, err
	}

	return &Cache{
		dir:        dir,
		fsys:       fsys,
		clock:      clock,
		idx:        idx,
		id:         uuid.New(),
		counts:     counts,
		sizes:      sizes,
		parameters: parameters,
		capacity:   capacity,
		expiry:     expiry,
		resident:   make(map[geometry.GridIndex]*grid.Grid),
		status:     make(map[geometry.GridIndex]tileStatus),
		lastAccess: make(map[geometry.GridIndex]time.Time),
	}, nil
}

// Close releases the cache's index database. Resident tiles are left
// exactly as they are: call Flush first if they must survive on disk.
func (c *Cache) Close() error {
	return c.idx.Close()
}

// ID reports the identifier generated for this Cache when it was opened.
// It is held in memory only and is not part of any tile path.
func (c *Cache) ID() uuid.UUID { return c.id }

func (c *Cache) tilePath(gx, gy int32) string {
	return filepath.Join(c.dir, fmt.Sprintf("tile_%d_%d.bin.gz", gx, gy))
}

// Ensure returns the Grid tile at idx, loading it from disk or creating
// it if necessary, evicting the least valuable resident tile first if
// the cache is at capacity (spec.md's HyperCUBE extension; grounded on
// mapsheet_cube_ensure_tile).
func (c *Cache) Ensure(idx geometry.GridIndex) (*grid.Grid, error) {
	if g, ok := c.resident[idx]; ok {
		c.touch(idx)
		return g, nil
	}

	if len(c.resident) >= c.capacity {
		if err := c.evictOldest(); err != nil {
			return nil, err
		}
	}

	rec, found, err := c.idx.get(idx.X, idx.Y)
	if err != nil {
		return nil, err
	}

	var g *grid.Grid
	if found {
		g, err = c.load(rec.Path)
		if err != nil {
			return nil, fmt.Errorf("hypercube: load tile (%d,%d): %w", idx.X, idx.Y, err)
		}
		monitoring.Logf("hypercube: loaded tile (%d,%d) from %s", idx.X, idx.Y, rec.Path)
	} else {
		origin := geometry.Origin(idx, c.sizes, c.counts)
		g = grid.New(c.counts, c.sizes, origin, c.parameters)
		monitoring.Logf("hypercube: created tile (%d,%d)", idx.X, idx.Y)
	}
	g.Attach(c.parameters)

	c.resident[idx] = g
	c.status[idx] = statusClean
	c.touch(idx)

	return g, nil
}

// Put adopts an already-built Grid as idx's resident tile, marking it
// dirty so the next Flush (or eviction) writes it to backing store. Used
// by batch producers that build tiles in memory (e.g. a one-shot CLI
// ingest) and then hand them to a cache for later incremental runs,
// rather than growing them cell-by-cell through Ensure.
func (c *Cache) Put(idx geometry.GridIndex, g *grid.Grid) error {
	if len(c.resident) >= c.capacity {
		if _, ok := c.resident[idx]; !ok {
			if err := c.evictOldest(); err != nil {
				return err
			}
		}
	}
	g.Attach(c.parameters)
	c.resident[idx] = g
	c.status[idx] = 0
	c.touch(idx)
	return nil
}

// MarkDirty records that idx's resident tile has been modified since its
// last sync with backing store.
func (c *Cache) MarkDirty(idx geometry.GridIndex) {
	c.status[idx] &^= statusClean
}

// MarkRead records that idx's resident tile has been read back by the
// caller since its last in-memory modification.
func (c *Cache) MarkRead(idx geometry.GridIndex) {
	c.status[idx] |= statusRead
}

func (c *Cache) touch(idx geometry.GridIndex) {
	c.lastAccess[idx] = c.clock.Now()
}

// Flush writes every dirty resident tile to backing store without
// evicting it from memory.
func (c *Cache) Flush() error {
	for idx, g := range c.resident {
		if c.status[idx]&statusClean != 0 {
			continue
		}
		if err := c.flushTile(idx, g); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) flushTile(idx geometry.GridIndex, g *grid.Grid) error {
	path := c.tilePath(idx.X, idx.Y)
	if err := c.save(path, g); err != nil {
		return fmt.Errorf("hypercube: save tile (%d,%d): %w", idx.X, idx.Y, err)
	}
	if err := c.idx.upsert(tileRecord{
		GridX:          idx.X,
		GridY:          idx.Y,
		Path:           path,
		Status:         statusClean,
		LastAccessUnix: c.clock.Now().Unix(),
	}); err != nil {
		return err
	}
	c.status[idx] = statusClean
	return nil
}

// evict flushes (if dirty) and drops idx's resident tile from memory.
func (c *Cache) evict(idx geometry.GridIndex) error {
	g, ok := c.resident[idx]
	if !ok {
		return nil
	}
	if c.status[idx]&statusClean == 0 {
		if err := c.flushTile(idx, g); err != nil {
			return err
		}
	}
	delete(c.resident, idx)
	delete(c.status, idx)
	delete(c.lastAccess, idx)
	monitoring.Logf("hypercube: evicted tile (%d,%d)", idx.X, idx.Y)
	return nil
}

// evictOldest picks the least valuable resident tile — preferring
// clean-and-read tiles over dirty-and-unread ones at equal age — and
// evicts it (grounded on mapsheet_cube_make_list's status-weighted
// ordering and mapsheet_cube_delete_oldest).
func (c *Cache) evictOldest() error {
	if len(c.resident) == 0 {
		return nil
	}

	var minStamp, maxStamp int64
	first := true
	for idx := range c.resident {
		stamp := c.lastAccess[idx].Unix()
		if first {
			minStamp, maxStamp = stamp, stamp
			first = false
			continue
		}
		if stamp < minStamp {
			minStamp = stamp
		}
		if stamp > maxStamp {
			maxStamp = stamp
		}
	}
	weightScale := 2 * (maxStamp - minStamp)

	var victim geometry.GridIndex
	var victimScore int64
	first = true
	for idx := range c.resident {
		stamp := c.lastAccess[idx].Unix()
		weight := weightScale * int64(^c.status[idx]&0x3)
		score := (stamp - minStamp) + weight
		if first || score < victimScore {
			victim, victimScore = idx, score
			first = false
		}
	}

	return c.evict(victim)
}

// Remove permanently deletes idx's tile from the cache: flushing it first
// if dirty, then dropping it from memory, the backing store, and the index
// catalog. Unlike evict, which keeps the catalog row (and blob) so the tile
// can be reloaded later, Remove is for tiles that genuinely leave the
// surface, e.g. a resurvey that drops a tile outside the new bounds
// (grounded on mapsheet_cube_delete, which releases the in-memory CubeGrid
// and never reconstructs it).
func (c *Cache) Remove(idx geometry.GridIndex) error {
	if g, ok := c.resident[idx]; ok {
		if c.status[idx]&statusClean == 0 {
			if err := c.flushTile(idx, g); err != nil {
				return fmt.Errorf("hypercube: flush tile (%d,%d) before remove: %w", idx.X, idx.Y, err)
			}
		}
		delete(c.resident, idx)
		delete(c.status, idx)
		delete(c.lastAccess, idx)
	}

	rec, found, err := c.idx.get(idx.X, idx.Y)
	if err != nil {
		return err
	}
	if found {
		if err := c.fsys.Remove(rec.Path); err != nil {
			return fmt.Errorf("hypercube: remove backing file for tile (%d,%d): %w", idx.X, idx.Y, err)
		}
	}
	if err := c.idx.delete(idx.X, idx.Y); err != nil {
		return err
	}
	monitoring.Logf("hypercube: removed tile (%d,%d)", idx.X, idx.Y)
	return nil
}

// Tiles reports every tile index known to the catalog, resident or not, for
// reconstructing a MapSheet's tile layout after reopening a Cache without
// reloading every tile's contents into memory up front.
func (c *Cache) Tiles() ([]geometry.GridIndex, error) {
	records, err := c.idx.all()
	if err != nil {
		return nil, err
	}
	out := make([]geometry.GridIndex, len(records))
	for i, r := range records {
		out[i] = geometry.GridIndex{X: r.GridX, Y: r.GridY}
	}
	return out, nil
}

// PurgeExpired evicts every resident tile unused for longer than the
// cache's expiry, in LRU order. If flushAll is false, the single most
// recently used tile is always retained (grounded on
// mapsheet_cube_purge_cache).
func (c *Cache) PurgeExpired(flushAll bool) error {
	n := len(c.resident)
	if n == 0 || (!flushAll && n == 1) {
		return nil
	}

	type entry struct {
		idx   geometry.GridIndex
		stamp time.Time
	}
	list := make([]entry, 0, n)
	for idx, stamp := range c.lastAccess {
		list = append(list, entry{idx, stamp})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].stamp.After(list[j].stamp) })

	minKeep := 1
	if flushAll {
		minKeep = 0
	}

	now := c.clock.Now()
	for i := len(list) - 1; i >= minKeep; i-- {
		if now.Sub(list[i].stamp) >= c.expiry {
			if err := c.evict(list[i].idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resident reports how many tiles currently occupy memory.
func (c *Cache) Resident() int { return len(c.resident) }

func (c *Cache) save(path string, g *grid.Grid) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(g); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return c.fsys.WriteFile(path, buf.Bytes(), 0o644)
}

func (c *Cache) load(path string) (*grid.Grid, error) {
	data, err := c.fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	g := &grid.Grid{}
	if err := gob.NewDecoder(gz).Decode(g); err != nil {
		return nil, err
	}
	return g, nil
}
