package pdf

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	inventoryTTL       = 5 * time.Minute
	inventoryMaxDepth  = 5
	inventoryFileLimit = 100
	inventoryTimeLimit = 3 * time.Second
)

// Inventory lists the PDF files under a directory with depth, count and
// time bounds, caching each listing for a short while.
type Inventory struct {
	maxDepth  int
	fileLimit int
	timeLimit time.Duration
	ttl       time.Duration

	mu      sync.Mutex
	entries map[string]inventoryEntry
}

type inventoryEntry struct {
	files   []FileInfo
	scanned time.Time
}

// NewInventory creates an inventory with the default bounds
func NewInventory() *Inventory {
	return &Inventory{
		maxDepth:  inventoryMaxDepth,
		fileLimit: inventoryFileLimit,
		timeLimit: inventoryTimeLimit,
		ttl:       inventoryTTL,
		entries:   make(map[string]inventoryEntry),
	}
}

// List returns the PDF files under root. A scan cut short by a bound or by
// ctx still returns what it found.
func (inv *Inventory) List(ctx context.Context, root string) []FileInfo {
	inv.mu.Lock()
	if e, ok := inv.entries[root]; ok && time.Since(e.scanned) <= inv.ttl {
		inv.mu.Unlock()
		return e.files
	}
	inv.mu.Unlock()

	files := inv.scan(ctx, root)

	inv.mu.Lock()
	inv.entries[root] = inventoryEntry{files: files, scanned: time.Now()}
	inv.mu.Unlock()
	return files
}

// Invalidate drops the cached listing for root
func (inv *Inventory) Invalidate(root string) {
	inv.mu.Lock()
	delete(inv.entries, root)
	inv.mu.Unlock()
}

func (inv *Inventory) scan(ctx context.Context, root string) []FileInfo {
	files := []FileInfo{}
	if inv.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeLimit)
		defer cancel()
	}

	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
			if inv.maxDepth > 0 && depth >= inv.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), ".pdf") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if inv.fileLimit > 0 && len(files) >= inv.fileLimit {
			return filepath.SkipAll
		}
		return nil
	})

	return files
}
