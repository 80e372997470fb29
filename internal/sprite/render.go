package sprite

import (
	"fmt"
	"image"
	"math"
	"os"

	"github.com/dgraph-io/ristretto"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultCacheCost is the number of cached icon pixels kept by servers.
const DefaultCacheCost = 16 << 20

// Renderer rasterises SVG marker files into square icons. Rasterised icons
// are memoised by path and pixel size.
type Renderer struct {
	cache *ristretto.Cache
}

// NewRenderer creates a renderer whose cache holds up to maxPixels pixels.
func NewRenderer(maxPixels int64) (*Renderer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxPixels,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating icon cache: %w", err)
	}
	return &Renderer{cache: cache}, nil
}

// Render draws the SVG at path onto a size x size transparent canvas. The
// 2x icon of a marker must be produced by calling Render with the doubled
// size so strokes stay crisp, never by scaling the 1x raster.
func (r *Renderer) Render(path string, size float64) (image.Image, error) {
	px := int(math.Round(size))
	if px < 1 {
		px = 1
	}
	key := fmt.Sprintf("%s@%d", path, px)
	if r != nil && r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			if img, ok := v.(image.Image); ok {
				return img, nil
			}
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening icon: %w", err)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f)
	if err != nil {
		return nil, fmt.Errorf("parsing icon %s: %w", path, err)
	}
	icon.SetTarget(0, 0, float64(px), float64(px))

	img := image.NewRGBA(image.Rect(0, 0, px, px))
	scanner := rasterx.NewScannerGV(px, px, img, img.Bounds())
	dasher := rasterx.NewDasher(px, px, scanner)
	icon.Draw(dasher, 1)

	if r != nil && r.cache != nil {
		r.cache.Set(key, image.Image(img), int64(px*px))
		r.cache.Wait()
	}
	return img, nil
}

// Close releases the cache.
func (r *Renderer) Close() {
	if r != nil && r.cache != nil {
		r.cache.Close()
	}
}
