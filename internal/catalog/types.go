// Package catalog holds the append-only reference store the matcher
// looks hashes up against: parallel sequences of signatures and media
// items, persisted in a length-prefixed binary format.
package catalog

import "github.com/wavemark/fprint/internal/pipeline"

// MediaItem describes one catalog entry's reference metadata. It is
// immutable once added.
type MediaItem struct {
	Title      string
	Subtitle   string
	Channels   int
	CustomInfo map[string]string
}

// Catalog holds parallel, index-aligned sequences of signatures and
// media items; index i is the sole external identity for entry i.
type Catalog struct {
	signatures [][]pipeline.SignaturePoint
	mediaItems []MediaItem
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Add appends a new entry, returning its index. Points are expected
// sorted by timestamp and deduplicated on (hash, timestamp) by the
// caller.
func (c *Catalog) Add(points []pipeline.SignaturePoint, item MediaItem) int {
	c.signatures = append(c.signatures, points)
	c.mediaItems = append(c.mediaItems, item)
	return len(c.signatures) - 1
}

// Len returns the number of entries in the catalog.
func (c *Catalog) Len() int {
	return len(c.signatures)
}

// Get returns entry i's signature points and media item.
func (c *Catalog) Get(i int) ([]pipeline.SignaturePoint, MediaItem) {
	return c.signatures[i], c.mediaItems[i]
}

// Signatures exposes the full signature table for matcher index
// construction.
func (c *Catalog) Signatures() [][]pipeline.SignaturePoint {
	return c.signatures
}

// MediaItems exposes the full media-item table.
func (c *Catalog) MediaItems() []MediaItem {
	return c.mediaItems
}
