package tier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fitstride/mediacache/codec"
)

const (
	payloadDirName   = "payloads"
	payloadExt       = ".fsm"
	manifestFileName = "manifest.json"
)

// DiskConfig holds configuration for the durable tier.
type DiskConfig struct {
	// RootDir is the directory where payload files and the manifest live.
	RootDir string
	// Compression selects the payload frame compression.
	Compression Compression
	// MaxConcurrentWrites bounds concurrent payload writes so preload
	// batches cannot flood the disk. Defaults to 4 if <= 0.
	MaxConcurrentWrites int64
	// Codec encodes the manifest. Defaults to codec.Default.
	Codec codec.Codec
}

// Disk is the durable tier: one framed file per payload plus a manifest.
type Disk struct {
	root        string
	compression Compression
	codec       codec.Codec
	writeSem    *semaphore.Weighted
}

// NewDisk creates a durable tier rooted at cfg.RootDir, creating the
// directory tree if needed.
func NewDisk(cfg DiskConfig) (*Disk, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("durable tier: root directory is required")
	}
	if err := os.MkdirAll(filepath.Join(cfg.RootDir, payloadDirName), 0o755); err != nil {
		return nil, fmt.Errorf("durable tier: %w", err)
	}

	maxWrites := cfg.MaxConcurrentWrites
	if maxWrites <= 0 {
		maxWrites = 4
	}
	c := cfg.Codec
	if c == nil {
		c = codec.Default
	}

	return &Disk{
		root:        cfg.RootDir,
		compression: cfg.Compression,
		codec:       c,
		writeSem:    semaphore.NewWeighted(maxWrites),
	}, nil
}

func (d *Disk) payloadPath(id string) string {
	return filepath.Join(d.root, payloadDirName, id+payloadExt)
}

// Get implements Tier. A payload that fails frame validation is removed
// and reported as ErrCorrupt.
func (d *Disk) Get(_ context.Context, id string) ([]byte, error) {
	frame, err := os.ReadFile(d.payloadPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	data, err := decodeFrame(frame)
	if err != nil {
		_ = os.Remove(d.payloadPath(id))
		return nil, err
	}
	return data, nil
}

// Put implements Tier. The frame is written to a temp file and renamed so
// readers never observe a partial payload.
func (d *Disk) Put(ctx context.Context, id string, data []byte) error {
	if err := d.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.writeSem.Release(1)

	frame, err := encodeFrame(data, d.compression)
	if err != nil {
		return err
	}

	dst := d.payloadPath(id)
	tmp, err := os.CreateTemp(filepath.Dir(dst), "tmp-payload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(frame); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// Delete implements Tier.
func (d *Disk) Delete(_ context.Context, id string) error {
	err := os.Remove(d.payloadPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear implements Tier. It removes all payloads and the manifest.
func (d *Disk) Clear(_ context.Context) error {
	dir := filepath.Join(d.root, payloadDirName)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(d.root, manifestFileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// Scan returns the ids of all payload files currently on disk. Frames are
// not validated here; corruption is detected lazily on Get.
func (d *Disk) Scan() (map[string]struct{}, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, payloadDirName))
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), payloadExt) {
			continue
		}
		ids[strings.TrimSuffix(e.Name(), payloadExt)] = struct{}{}
	}
	return ids, nil
}

// ManifestEntry is the persisted metadata for one cached item.
type ManifestEntry struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Kind         string    `json:"kind"`
	Category     string    `json:"category"`
	SizeBytes    int64     `json:"size_bytes"`
	LastAccessed time.Time `json:"last_accessed"`
}

// manifestEnvelope makes the manifest self-describing: the envelope is
// always stdlib JSON, the body is encoded by the named codec.
type manifestEnvelope struct {
	Codec   string          `json:"codec"`
	Entries json.RawMessage `json:"entries"`
}

// SaveManifest atomically writes the item manifest.
func (d *Disk) SaveManifest(entries []ManifestEntry) error {
	body, err := d.codec.Marshal(entries)
	if err != nil {
		return err
	}
	out, err := json.Marshal(manifestEnvelope{Codec: d.codec.Name(), Entries: body})
	if err != nil {
		return err
	}

	dst := filepath.Join(d.root, manifestFileName)
	tmp, err := os.CreateTemp(d.root, "tmp-manifest-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}

// LoadManifest reads the item manifest. A missing manifest yields
// (nil, nil); a malformed one yields ErrCorrupt so the caller can start
// from an empty cache.
func (d *Disk) LoadManifest() ([]ManifestEntry, error) {
	raw, err := os.ReadFile(filepath.Join(d.root, manifestFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var env manifestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	c, ok := codec.ByName(env.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown manifest codec %q", ErrCorrupt, env.Codec)
	}

	var entries []ManifestEntry
	if err := c.Unmarshal(env.Entries, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return entries, nil
}
