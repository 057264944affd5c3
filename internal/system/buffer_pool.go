package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool reuses decode buffers (*image.RGBA) of identical size so that
// scrubbing through a sequence does not allocate a fresh frame per decode.
type ImagePool struct {
	pools map[image.Point]*sync.Pool
	mu    sync.RWMutex

	allocs atomic.Int64
	puts   atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

var globalPool = NewImagePool()

// SharedPool is the process wide pool used when no pool is injected.
func SharedPool() *ImagePool {
	return globalPool
}

// Get returns an *image.RGBA of rect's size anchored at the origin. Reused
// buffers keep their old pixels; callers overwrite them fully.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.Size()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					p.allocs.Add(1)
					return image.NewRGBA(image.Rectangle{Max: key})
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	key := img.Rect.Size()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		p.puts.Add(1)
		pool.Put(img)
	}
}

// Stats reports how many buffers were allocated and how many were returned.
func (p *ImagePool) Stats() (allocs, puts int64) {
	return p.allocs.Load(), p.puts.Load()
}
