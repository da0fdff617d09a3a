package lang

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/ajnin/log"
	"github.com/ardnew/ajnin/pkg"
)

// cache holds decoded scripts keyed by the hash of their content. Scripts
// that are loaded repeatedly, by the watch command or by several file
// statements, are decoded once. Each source keeps only its latest content,
// so edits do not accumulate entries.
var cache = scriptCache{
	sources: map[string]string{},
	entries: map[string]*entry{},
}

type entry struct {
	once  sync.Once
	block Block
	err   error
	refs  int
}

type scriptCache struct {
	mu      sync.Mutex
	sources map[string]string // source path to content key
	entries map[string]*entry
}

// acquire returns the entry of key and makes it the current content of
// source, releasing whatever source held before.
func (c *scriptCache) acquire(source, key string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.sources[source]; ok {
		if old == key {
			return c.entries[key], true
		}

		c.release(old)
	}

	e, hit := c.entries[key]
	if !hit {
		e = new(entry)
		c.entries[key] = e
	}

	e.refs++
	c.sources[source] = key

	return e, hit
}

func (c *scriptCache) release(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}

	if e.refs--; e.refs <= 0 {
		delete(c.entries, key)
	}
}

func (c *scriptCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Option configures [Decode] and [Load].
type Option func(*options)

type options struct {
	logger  log.Logger
	noCache bool
}

// WithLogger sets the logger used to trace decoding.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithoutCache decodes the input even when identical content was decoded
// before.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

func makeOptions(opts ...Option) options {
	o := options{logger: log.Default()}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Decode reads a script from r and returns its statements.
func Decode(ctx context.Context, r io.Reader, opts ...Option) (Block, error) {
	return decode(ctx, r, "", makeOptions(opts...))
}

// Load reads and decodes the script at path.
func Load(ctx context.Context, path string, opts ...Option) (Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	b, err := decode(ctx, f, path, makeOptions(opts...))
	if err != nil {
		return nil, pkg.WrapError(err).With(slog.String("path", path))
	}

	return b, nil
}

// decode reads r to the end and decodes it. Source names the cache slot of
// the content; all readers share the empty source.
func decode(ctx context.Context, r io.Reader, source string, o options) (Block, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	o.logger.TraceContext(ctx, "read script", slog.Int("bytes", len(data)))

	if o.noCache {
		return decodeScript(data)
	}

	key := strconv.FormatUint(xxh3.Hash(data), 36)

	e, hit := cache.acquire(source, key)
	e.once.Do(func() { e.block, e.err = decodeScript(data) })

	o.logger.TraceContext(ctx, "script cache",
		slog.String("key", key),
		slog.Bool("hit", hit),
	)

	return e.block, e.err
}
