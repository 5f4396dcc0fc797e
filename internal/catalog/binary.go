package catalog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/wavemark/fprint/internal/ferrors"
	"github.com/wavemark/fprint/internal/logger"
	"github.com/wavemark/fprint/internal/pipeline"
)

const (
	catalogVersion = uint32(1)

	maxEntryCount = 1000
	maxPointCount = 1_000_000
	maxTitleLen   = 1000
)

// Format overview (little-endian throughout):
//
//	Header:  u32 version (= 1), u32 entryCount
//	Entry (× entryCount):
//	  u32 pointCount
//	  SignaturePoint × pointCount   // u32 hash, f64 timestamp, u32 freq, u32 amp
//	  u32 titleLen, bytes[titleLen]
//	  u32 subtitleLen, bytes[subtitleLen]
//	  u32 channels
//	  u32 customInfoCount
//	  repeated: u32 keyLen, bytes[keyLen], u32 valLen, bytes[valLen]
//	Trailer: u32 checksum (= entryCount)

// Save serializes the catalog to w.
func (c *Catalog) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian
	write := func(v any) error { return binary.Write(bw, le, v) }

	if err := write(catalogVersion); err != nil {
		return fmt.Errorf("catalog: save version: %w", err)
	}
	if err := write(uint32(len(c.signatures))); err != nil {
		return fmt.Errorf("catalog: save entry count: %w", err)
	}

	for i, points := range c.signatures {
		item := c.mediaItems[i]

		if err := write(uint32(len(points))); err != nil {
			return fmt.Errorf("catalog: save point count: %w", err)
		}
		for _, pt := range points {
			if err := write(pt.Hash); err != nil {
				return fmt.Errorf("catalog: save hash: %w", err)
			}
			if err := write(pt.Timestamp); err != nil {
				return fmt.Errorf("catalog: save timestamp: %w", err)
			}
			if err := write(pt.Frequency); err != nil {
				return fmt.Errorf("catalog: save frequency: %w", err)
			}
			if err := write(pt.Amplitude); err != nil {
				return fmt.Errorf("catalog: save amplitude: %w", err)
			}
		}

		if err := writeString(bw, item.Title); err != nil {
			return fmt.Errorf("catalog: save title: %w", err)
		}
		if err := writeString(bw, item.Subtitle); err != nil {
			return fmt.Errorf("catalog: save subtitle: %w", err)
		}
		if err := write(uint32(item.Channels)); err != nil {
			return fmt.Errorf("catalog: save channels: %w", err)
		}
		if err := write(uint32(len(item.CustomInfo))); err != nil {
			return fmt.Errorf("catalog: save custom info count: %w", err)
		}
		for k, v := range item.CustomInfo {
			if err := writeString(bw, k); err != nil {
				return fmt.Errorf("catalog: save custom key: %w", err)
			}
			if err := writeString(bw, v); err != nil {
				return fmt.Errorf("catalog: save custom value: %w", err)
			}
		}
	}

	if err := write(uint32(len(c.signatures))); err != nil {
		return fmt.Errorf("catalog: save checksum: %w", err)
	}

	return bw.Flush()
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// Load decodes a new catalog from r, checking the version, entry-count,
// point-count and string-length limits above and the trailing checksum.
// On any violation it returns a nil catalog and an error, and a
// diagnostic line is logged; the host decides whether to proceed.
func Load(r io.Reader) (c *Catalog, err error) {
	defer func() {
		if err != nil {
			logger.Log.Warn("catalog load failed", zap.Error(err))
		}
	}()
	return load(r)
}

func load(r io.Reader) (*Catalog, error) {
	br := bufio.NewReader(r)
	le := binary.LittleEndian
	read := func(v any) error { return binary.Read(br, le, v) }

	var version, entryCount uint32
	if err := read(&version); err != nil {
		return nil, ferrors.CorruptCatalog("read version", err)
	}
	if version != catalogVersion {
		return nil, ferrors.CorruptCatalog(fmt.Sprintf("unsupported version %d", version), nil)
	}
	if err := read(&entryCount); err != nil {
		return nil, ferrors.CorruptCatalog("read entry count", err)
	}
	if entryCount > maxEntryCount {
		return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry count %d exceeds limit %d", entryCount, maxEntryCount), nil)
	}

	c := &Catalog{
		signatures: make([][]pipeline.SignaturePoint, 0, entryCount),
		mediaItems: make([]MediaItem, 0, entryCount),
	}

	for i := uint32(0); i < entryCount; i++ {
		var pointCount uint32
		if err := read(&pointCount); err != nil {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: read point count", i), err)
		}
		if pointCount > maxPointCount {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: point count %d exceeds limit %d", i, pointCount, maxPointCount), nil)
		}

		points := make([]pipeline.SignaturePoint, pointCount)
		for j := uint32(0); j < pointCount; j++ {
			var pt pipeline.SignaturePoint
			if err := read(&pt.Hash); err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d point %d: read hash", i, j), err)
			}
			if err := read(&pt.Timestamp); err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d point %d: read timestamp", i, j), err)
			}
			if err := read(&pt.Frequency); err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d point %d: read frequency", i, j), err)
			}
			if err := read(&pt.Amplitude); err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d point %d: read amplitude", i, j), err)
			}
			points[j] = pt
		}

		title, err := readString(br, maxTitleLen)
		if err != nil {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: read title", i), err)
		}
		subtitle, err := readString(br, maxTitleLen)
		if err != nil {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: read subtitle", i), err)
		}

		var channels uint32
		if err := read(&channels); err != nil {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: read channels", i), err)
		}

		var customCount uint32
		if err := read(&customCount); err != nil {
			return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d: read custom info count", i), err)
		}
		custom := make(map[string]string, customCount)
		for j := uint32(0); j < customCount; j++ {
			key, err := readString(br, maxTitleLen)
			if err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d custom %d: read key", i, j), err)
			}
			val, err := readString(br, maxTitleLen)
			if err != nil {
				return nil, ferrors.CorruptCatalog(fmt.Sprintf("entry %d custom %d: read value", i, j), err)
			}
			custom[key] = val
		}

		c.signatures = append(c.signatures, points)
		c.mediaItems = append(c.mediaItems, MediaItem{
			Title:      title,
			Subtitle:   subtitle,
			Channels:   int(channels),
			CustomInfo: custom,
		})
	}

	var checksum uint32
	if err := read(&checksum); err != nil {
		return nil, ferrors.CorruptCatalog("read checksum", err)
	}
	if checksum != entryCount {
		return nil, ferrors.CorruptCatalog(fmt.Sprintf("checksum %d does not match entry count %d", checksum, entryCount), nil)
	}

	return c, nil
}

func readString(r io.Reader, maxLen uint32) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length > maxLen {
		return "", fmt.Errorf("string length %d exceeds limit %d", length, maxLen)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
