// Package artifact stores generated patterns in a blobstore.
//
// A pattern of item id is saved as
//
//	<prefix><id>.<codec>[.lz4|.zst]
//
// so every artifact can be read back without knowing the writer's
// configuration. The default prefix is "patterns/".
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/stitchgo/blobstore"
	"github.com/hupe1980/stitchgo/codec"
	"github.com/hupe1980/stitchgo/pattern"
)

// DefaultPrefix is the name prefix of stored patterns.
const DefaultPrefix = "patterns/"

// ErrInvalidID is returned for ids that cannot be used as a blob name.
var ErrInvalidID = errors.New("artifact: invalid id")

// ErrUnknownFormat is returned by Load for names without a known codec
// or compression suffix.
var ErrUnknownFormat = errors.New("artifact: unknown format")

type options struct {
	codec       codec.Codec
	compression Compression
	prefix      string
}

// Option configures a Store.
type Option func(*options)

// WithCodec sets the encoding of saved patterns. Defaults to codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the compression of saved patterns.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithPrefix sets the name prefix of saved patterns.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// Store saves and loads patterns.
type Store struct {
	blobs blobstore.Store
	opts  options
}

// New creates a Store on top of blobs.
func New(blobs blobstore.Store, optFns ...Option) *Store {
	o := options{
		codec:       codec.Default,
		compression: CompressionNone,
		prefix:      DefaultPrefix,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Store{blobs: blobs, opts: o}
}

// Key returns the blob name a pattern of id is saved under.
func (s *Store) Key(id string) string {
	name := s.opts.prefix + id + "." + codec.Extension(s.opts.codec)
	if ext := s.opts.compression.Extension(); ext != "" {
		name += "." + ext
	}
	return name
}

// Save encodes, compresses and writes p. It returns the blob name.
func (s *Store) Save(ctx context.Context, id string, p *pattern.Pattern) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	data, err := s.opts.codec.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("artifact: encode %s: %w", id, err)
	}

	data, err = compressBlock(data, s.opts.compression)
	if err != nil {
		return "", fmt.Errorf("artifact: compress %s: %w", id, err)
	}

	key := s.Key(id)
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Load reads the pattern stored under key. Codec and compression are
// derived from the name.
func (s *Store) Load(ctx context.Context, key string) (*pattern.Pattern, error) {
	c, comp, err := parseKey(key)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	data, err = decompressBlock(data, comp)
	if err != nil {
		return nil, fmt.Errorf("artifact: %s: %w", key, err)
	}

	var p pattern.Pattern
	if err := c.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("artifact: decode %s: %w", key, err)
	}
	return &p, nil
}

// List returns the names of all stored patterns.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.blobs.List(ctx, s.opts.prefix)
}

func parseKey(key string) (codec.Codec, Compression, error) {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, key)
	}

	comp := CompressionNone
	last := parts[len(parts)-1]
	switch last {
	case CompressionLZ4.Extension():
		comp = CompressionLZ4
		parts = parts[:len(parts)-1]
	case CompressionZSTD.Extension():
		comp = CompressionZSTD
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, key)
	}

	c, ok := codec.ByExtension(parts[len(parts)-1])
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownFormat, key)
	}
	return c, comp, nil
}
