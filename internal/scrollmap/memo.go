package scrollmap

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zjrosen/difflens/internal/cachemanager"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/tracing"
)

// Key identifies an Input by content.
type Key string

// Fingerprint hashes everything Build reads from in. Equal inputs always have
// equal fingerprints.
func Fingerprint(in Input) Key {
	d := xxhash.New()
	var buf [8]byte
	num := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = d.Write(buf[:])
	}
	float := func(f float64) { num(math.Float64bits(f)) }
	flag := func(b bool) {
		if b {
			num(1)
		} else {
			num(0)
		}
	}

	float(in.PageSpacing)
	for _, side := range sides {
		doc := in.Doc(side)
		num(uint64(len(doc.Images)))
		for _, img := range doc.Images {
			float(img.Width)
			float(img.Height)
			float(img.CanvasWidth)
			float(img.CanvasHeight)
		}
		num(uint64(len(doc.Chunks)))
		for _, c := range doc.Chunks {
			num(uint64(c.ID))
			num(uint64(c.PageIndex))
			num(uint64(len(c.Type)))
			_, _ = d.WriteString(string(c.Type))
			num(uint64(len(c.Y)))
			for _, y := range c.Y {
				float(y[0])
				float(y[1])
			}
			flag(c.Style != nil)
			if c.Style != nil {
				flag(c.Style.FontFamily)
				flag(c.Style.FontSize)
				flag(c.Style.Color)
			}
		}
	}
	return Key(strconv.FormatUint(d.Sum64(), 16))
}

// Cache memoizes Build by input fingerprint.
type Cache struct {
	store *cachemanager.InMemoryCacheManager[Key, *ScrollMap]
	rt    *cachemanager.ReadThroughCache[Key, *ScrollMap, Input]
	ttl   time.Duration
}

// NewCache creates a memo whose entries expire ttl after their last use.
// A zero ttl uses cachemanager.DefaultExpiration. When disabled every call
// builds a fresh map.
func NewCache(ttl time.Duration, disabled bool) *Cache {
	if ttl <= 0 {
		ttl = cachemanager.DefaultExpiration
	}
	store := cachemanager.NewInMemoryCacheManager[Key, *ScrollMap]("scrollmap", ttl, cachemanager.DefaultCleanupInterval)
	build := func(_ context.Context, in Input) (*ScrollMap, error) {
		return Build(in), nil
	}
	return &Cache{
		store: store,
		rt:    cachemanager.NewReadThroughCache(cachemanager.CacheManager[Key, *ScrollMap](store), build, disabled),
		ttl:   ttl,
	}
}

// Get returns the scroll map for in, building it on a miss. Callers must not
// modify the returned map.
func (c *Cache) Get(ctx context.Context, in Input) *ScrollMap {
	key := Fingerprint(in)
	_, span := tracing.Tracer().Start(ctx, tracing.SpanScrollMapBuild)
	defer span.End()

	m, hit, _ := c.rt.Get(ctx, key, in, c.ttl)
	span.SetAttributes(
		attribute.String(tracing.AttrScrollMapFingerprint, string(key)),
		attribute.Bool(tracing.AttrScrollMapCacheHit, hit),
		attribute.Int(tracing.AttrScrollMapSections, len(m.Sections)),
		attribute.Int(tracing.AttrChunksLeft, len(in.Left.Chunks)),
		attribute.Int(tracing.AttrChunksRight, len(in.Right.Chunks)),
	)
	if !hit {
		log.Debug(log.CatCache, "Scroll map cache miss", "key", key)
	}
	return m
}

// Invalidate drops the cached map for in.
func (c *Cache) Invalidate(ctx context.Context, in Input) {
	c.store.Delete(ctx, Fingerprint(in))
}

// Stats reports hit and miss counts.
func (c *Cache) Stats() cachemanager.Stats {
	return c.store.Stats()
}
