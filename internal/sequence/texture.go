package sequence

import "image"

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// TextureOptions are the sampling parameters a surface applies to an
// uploaded frame.
type TextureOptions struct {
	Filter  Filter
	Mipmaps bool
	// FlipY flips rows on upload. Frames are always uploaded with a top-left
	// origin; orientation is the Presenter's job.
	FlipY bool
}

// FrameTextureOptions is what the loader requests for every frame.
var FrameTextureOptions = TextureOptions{Filter: FilterLinear, Mipmaps: false, FlipY: false}

// Texture is a display-ready frame owned by a player's cache.
type Texture interface {
	Size() image.Point
	Release()
}

// Surface is the display the player renders into.
type Surface interface {
	// NewTexture uploads a decoded frame. The surface may keep a reference
	// to img until the texture is released.
	NewTexture(img *image.RGBA, opts TextureOptions) (Texture, error)
	// Invalidate requests a redraw from on-demand surfaces.
	Invalidate()
}

// QualityHint reports an effective connection type such as "4g".
type QualityHint interface {
	Hint() string
}
