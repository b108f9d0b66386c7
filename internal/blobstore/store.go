// Package blobstore is the Blob Store Adapter: it addresses every
// artifact the pipeline produces (original uploads, derived page images,
// pattern-registry snapshots, audit-log exports) by a (bucket, key) tuple
// on top of the sandboxed filesystem in internal/storage, and applies the
// compression codec appropriate to the artifact's class on write/read.
package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/krai/engine/internal/storage"
	"github.com/ulikunitz/xz"
)

// Bucket names the top-level partitions of the blob store, mirroring the
// distinct lifecycles and access patterns of what each one holds.
type Bucket string

const (
	BucketDocuments      Bucket = "documents"
	BucketDocumentImages Bucket = "document-images"
	BucketErrorImages    Bucket = "error-images"
	BucketPartsImages    Bucket = "parts-images"
	BucketPatternSnaps   Bucket = "pattern-snapshots"
	BucketAuditExports   Bucket = "audit-exports"
)

// Codec identifies a compression scheme bound to an artifact class.
type Codec string

const (
	// CodecNone stores bytes as given, no transformation.
	CodecNone Codec = "none"
	// CodecBrotli is used for chunk and page text: small objects, read
	// far more often than written, where brotli's higher compression
	// ratio at low levels outweighs its slower compression speed.
	CodecBrotli Codec = "brotli"
	// CodecXZ is used for pattern-registry snapshots: infrequently
	// written, read rarely (only on registry reload), so xz's high
	// ratio matters more than encode speed.
	CodecXZ Codec = "xz"
	// CodecBzip2 is used for audit-log exports: large, append-only,
	// write-once/read-rarely blobs where block-based bzip2 compresses
	// well and decompression is only needed for operator review.
	CodecBzip2 Codec = "bzip2"
)

// Store wraps a sandboxed directory with bucket/key addressing and
// per-artifact-class compression.
type Store struct {
	sandbox *storage.Sandbox
}

// New creates a Store rooted at the given sandbox.
func New(sandbox *storage.Sandbox) *Store {
	return &Store{sandbox: sandbox}
}

// OriginalKey builds the key for an original uploaded document, addressed
// by the content hash of its bytes so identical uploads collide onto the
// same blob regardless of filename.
func OriginalKey(sha256Hex, filename string) string {
	return path.Join("sha256", sha256Hex, filename)
}

// DerivedImageKey builds the key for an image derived from a specific
// page of a document (extracted figure, rendered page, error-code
// screenshot, parts diagram).
func DerivedImageKey(documentID, kind, ext string, page int) string {
	return path.Join(documentID, fmt.Sprintf("p%d", page), fmt.Sprintf("%s.%s", kind, ext))
}

// HashBytes returns the lowercase hex SHA-256 digest of data, the form
// used in OriginalKey.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put compresses data per codec and writes it to bucket/key, atomically.
func (s *Store) Put(bucket Bucket, key string, data []byte, codec Codec) error {
	encoded, err := compress(codec, data)
	if err != nil {
		return fmt.Errorf("blobstore: compressing %s/%s: %w", bucket, key, err)
	}
	relPath := path.Join(string(bucket), key)
	if err := s.sandbox.AtomicWrite(relPath, encoded); err != nil {
		return fmt.Errorf("blobstore: writing %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get reads bucket/key and decompresses it per codec.
func (s *Store) Get(bucket Bucket, key string, codec Codec) ([]byte, error) {
	relPath := path.Join(string(bucket), key)
	raw, err := s.sandbox.ReadFile(relPath)
	if err != nil {
		return nil, fmt.Errorf("blobstore: reading %s/%s: %w", bucket, key, err)
	}
	decoded, err := decompress(codec, raw)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decompressing %s/%s: %w", bucket, key, err)
	}
	return decoded, nil
}

// Exists reports whether bucket/key has been written.
func (s *Store) Exists(bucket Bucket, key string) (bool, error) {
	return s.sandbox.Exists(path.Join(string(bucket), key))
}

// Delete removes bucket/key, if present.
func (s *Store) Delete(bucket Bucket, key string) error {
	return s.sandbox.Remove(path.Join(string(bucket), key))
}

func compress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone, "":
		return data, nil
	case CodecBrotli:
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecXZ:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecBzip2:
		var buf bytes.Buffer
		w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", codec)
	}
}

func decompress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone, "":
		return data, nil
	case CodecBrotli:
		r := brotli.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case CodecXZ:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case CodecBzip2:
		r, err := bzip2.NewReader(bytes.NewReader(data), nil)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unknown codec %q", codec)
	}
}
