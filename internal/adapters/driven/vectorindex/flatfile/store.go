package flatfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorIndexStore = (*Store)(nil)

const (
	currentFile  = "CURRENT"
	vecExt       = ".vec"
	manifestExt  = ".json"
	formatV1     = 1
	headerSize   = 20
	staleTempAge = time.Hour
)

var vecMagic = [4]byte{'R', 'S', 'V', 'I'}

// DefaultRetain is the number of superseded versions kept after a save.
// Keeping one lets a reader that resolved CURRENT just before the swap finish.
const DefaultRetain = 1

// Store persists Index values as versioned flat files.
type Store struct {
	retain int
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRetain sets how many superseded versions survive pruning.
func WithRetain(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retain = n
		}
	}
}

// WithClock overrides the clock used for version ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a flat-file index store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		retain: DefaultRetain,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// manifest is the JSON half of a persisted version.
type manifest struct {
	Format     int             `json:"format"`
	Version    string          `json:"version"`
	Model      string          `json:"model"`
	Dimensions int             `json:"dimensions"`
	Count      int             `json:"count"`
	CreatedAt  time.Time       `json:"created_at"`
	Entries    []manifestEntry `json:"entries,omitempty"`
}

type manifestEntry struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id"`
	Source      string         `json:"source"`
	Index       int            `json:"index"`
	Page        int            `json:"page,omitempty"`
	Text        string         `json:"text"`
	Fingerprint string         `json:"fingerprint"`
	Origin      domain.Origin  `json:"origin,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Create builds an empty index.
func (s *Store) Create(dimensions int, model string) driven.VectorIndex {
	return NewIndex(dimensions, model)
}

// Version returns the active version id at path.
func (s *Store) Version(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(path, currentFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, domain.ErrIndexNotFound)
		}
		return "", fmt.Errorf("read %s: %w", currentFile, err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" || strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("%s: invalid version %q: %w", currentFile, version, domain.ErrIndexCorrupt)
	}
	return version, nil
}

// Load reads the active version at path.
func (s *Store) Load(ctx context.Context, path string) (driven.VectorIndex, error) {
	version, err := s.Version(path)
	if err != nil {
		return nil, err
	}

	m, err := readManifest(filepath.Join(path, version+manifestExt), true)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors, err := readVectors(filepath.Join(path, version+vecExt), m.Dimensions, m.Count)
	if err != nil {
		return nil, err
	}
	if len(m.Entries) != m.Count {
		return nil, fmt.Errorf("manifest lists %d entries, header %d: %w", len(m.Entries), m.Count, domain.ErrIndexCorrupt)
	}

	idx := NewIndex(m.Dimensions, m.Model)
	idx.vectors = vectors
	idx.chunks = make([]domain.Chunk, len(m.Entries))
	for i, e := range m.Entries {
		idx.chunks[i] = domain.Chunk{
			ID:          e.ID,
			DocumentID:  e.DocumentID,
			Source:      e.Source,
			Index:       e.Index,
			Page:        e.Page,
			Text:        e.Text,
			Fingerprint: e.Fingerprint,
			Origin:      e.Origin,
			Metadata:    e.Metadata,
		}
	}

	logger.Debug("loaded index %s version %s (%d entries)", path, version, m.Count)
	return idx, nil
}

// Save persists the index as a new version and makes it current.
// Any failure wraps domain.ErrIndexSave and leaves the previous version active.
func (s *Store) Save(ctx context.Context, index driven.VectorIndex, path string) error {
	idx, ok := index.(*Index)
	if !ok {
		return fmt.Errorf("%w: unsupported index type %T", domain.ErrIndexSave, index)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexSave, err)
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return fmt.Errorf("%w: create index directory: %w", domain.ErrIndexSave, err)
	}

	dims, vectors, chunks := idx.snapshot()
	now := s.now().UTC()
	version := newVersionID(now)

	// 1. Vectors
	if err := file.WriteAtomic(filepath.Join(path, version+vecExt), encodeVectors(dims, len(chunks), vectors), 0600); err != nil {
		return fmt.Errorf("%w: write vectors: %w", domain.ErrIndexSave, err)
	}

	// 2. Manifest
	m := manifest{
		Format:     formatV1,
		Version:    version,
		Model:      idx.Model(),
		Dimensions: dims,
		Count:      len(chunks),
		CreatedAt:  now,
		Entries:    make([]manifestEntry, len(chunks)),
	}
	for i, c := range chunks {
		m.Entries[i] = manifestEntry{
			ID:          c.ID,
			DocumentID:  c.DocumentID,
			Source:      c.Source,
			Index:       c.Index,
			Page:        c.Page,
			Text:        c.Text,
			Fingerprint: c.Fingerprint,
			Origin:      c.Origin,
			Metadata:    c.Metadata,
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %w", domain.ErrIndexSave, err)
	}
	if err := file.WriteAtomic(filepath.Join(path, version+manifestExt), data, 0600); err != nil {
		return fmt.Errorf("%w: write manifest: %w", domain.ErrIndexSave, err)
	}

	// 3. Swap CURRENT
	if err := file.WriteAtomic(filepath.Join(path, currentFile), []byte(version+"\n"), 0600); err != nil {
		return fmt.Errorf("%w: swap %s: %w", domain.ErrIndexSave, currentFile, err)
	}

	// 4. Prune superseded versions
	if err := s.prune(path, version); err != nil {
		logger.Warn("prune index %s: %v", path, err)
	}

	logger.Debug("saved index %s version %s (%d entries)", path, version, len(chunks))
	return nil
}

// Stats summarises the active version without decoding vectors.
func (s *Store) Stats(_ context.Context, path string) (*domain.IndexStats, error) {
	version, err := s.Version(path)
	if err != nil {
		return nil, err
	}

	m, err := readManifest(filepath.Join(path, version+manifestExt), false)
	if err != nil {
		return nil, err
	}

	var size int64
	for _, ext := range []string{vecExt, manifestExt} {
		info, err := os.Stat(filepath.Join(path, version+ext))
		if err != nil {
			return nil, fmt.Errorf("stat %s%s: %w", version, ext, err)
		}
		size += info.Size()
	}

	return &domain.IndexStats{
		Version:    version,
		Entries:    m.Count,
		Dimensions: m.Dimensions,
		Model:      m.Model,
		SizeBytes:  size,
	}, nil
}

// prune removes versions other than current and the newest s.retain others,
// plus temp files abandoned by a crashed save.
func (s *Store) prune(path, current string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, file.TempPrefix) {
			if info, err := e.Info(); err == nil && s.now().Sub(info.ModTime()) > staleTempAge {
				_ = os.Remove(filepath.Join(path, name))
			}
			continue
		}
		if v, ok := strings.CutSuffix(name, manifestExt); ok && v != current {
			versions = append(versions, v)
		}
	}

	// Version ids sort chronologically.
	slices.Sort(versions)
	if len(versions) <= s.retain {
		return nil
	}

	var errs []error
	for _, v := range versions[:len(versions)-s.retain] {
		for _, ext := range []string{manifestExt, vecExt} {
			if err := os.Remove(filepath.Join(path, v+ext)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// newVersionID returns a lexically time-ordered, collision-resistant id.
func newVersionID(t time.Time) string {
	return t.Format("20060102T150405.000000000Z") + "-" + uuid.NewString()[:8]
}

func readManifest(path string, withEntries bool) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("missing manifest %s: %w", filepath.Base(path), domain.ErrIndexCorrupt)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w: %w", domain.ErrIndexCorrupt, err)
	}
	if m.Format != formatV1 {
		return nil, fmt.Errorf("unsupported manifest format %d: %w", m.Format, domain.ErrIndexCorrupt)
	}
	if m.Count < 0 || m.Dimensions < 0 {
		return nil, fmt.Errorf("negative count or dimensions: %w", domain.ErrIndexCorrupt)
	}
	if !withEntries {
		m.Entries = nil
	}
	return &m, nil
}

// encodeVectors lays out the .vec file:
//
//	magic[4] format:u16 reserved:u16 dims:u32 count:u64 rows:float32[count*dims]
func encodeVectors(dims, count int, vectors []float32) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+4*len(vectors)))

	var header [headerSize]byte
	copy(header[0:4], vecMagic[:])
	binary.LittleEndian.PutUint16(header[4:6], formatV1)
	binary.LittleEndian.PutUint32(header[8:12], uint32(dims))
	binary.LittleEndian.PutUint64(header[12:20], uint64(count))
	buf.Write(header[:])

	var word [4]byte
	for _, v := range vectors {
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
		buf.Write(word[:])
	}
	return buf.Bytes()
}

func readVectors(path string, dims, count int) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("missing vectors %s: %w", filepath.Base(path), domain.ErrIndexCorrupt)
		}
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	if len(data) < headerSize || !bytes.Equal(data[0:4], vecMagic[:]) {
		return nil, fmt.Errorf("bad vector header: %w", domain.ErrIndexCorrupt)
	}
	if f := binary.LittleEndian.Uint16(data[4:6]); f != formatV1 {
		return nil, fmt.Errorf("unsupported vector format %d: %w", f, domain.ErrIndexCorrupt)
	}
	hdrDims := int(binary.LittleEndian.Uint32(data[8:12]))
	hdrCount := binary.LittleEndian.Uint64(data[12:20])
	if hdrDims != dims || hdrCount != uint64(count) {
		return nil, fmt.Errorf("vector header %dx%d does not match manifest %dx%d: %w",
			hdrCount, hdrDims, count, dims, domain.ErrIndexCorrupt)
	}

	body := data[headerSize:]
	want := count * dims
	if len(body) != 4*want {
		return nil, fmt.Errorf("vector payload has %d bytes, want %d: %w", len(body), 4*want, domain.ErrIndexCorrupt)
	}

	vectors := make([]float32, want)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return vectors, nil
}
