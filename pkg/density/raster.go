package density

import (
	"fmt"
	"image"
	_ "image/png" // register PNG rasters
	"io"

	_ "golang.org/x/image/tiff" // register GeoTIFF rasters

	"github.com/ChicagoDave/casemap/pkg/features"
	"github.com/ChicagoDave/casemap/pkg/geo"
)

// DecodeRaster reads a PNG or TIFF population raster.
func DecodeRaster(r io.Reader) (image.Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding raster: %w", err)
	}
	if format != "png" && format != "tiff" {
		return nil, fmt.Errorf("unsupported raster format %q", format)
	}
	return img, nil
}

// Rasterize scans an equirectangular global population raster and assigns
// every non-empty pixel to the first feature containing it. The pixel's red
// channel, scaled to [0,1], is its weight. Only every step-th pixel on each
// axis is visited. The result has one entry per feature, in feature order.
func Rasterize(img image.Image, c features.Collection, step int) []RegionDensity {
	if step < 1 {
		step = 1
	}
	out := make([]RegionDensity, len(c.Features))
	for i, f := range c.Features {
		out[i] = RegionDensity{Admin: f.Key.Country, Admin1: f.Key.State, Densities: []RawSample{}}
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, _, _, _ := img.At(x, y).RGBA()
			weight := float64(r>>8) / 255
			if weight <= 0 {
				continue
			}
			p := geo.Equirect(float64(x-b.Min.X)/w, float64(y-b.Min.Y)/h)
			i := c.Locate(p)
			if i < 0 {
				continue
			}
			out[i].Densities = append(out[i].Densities, RawSample{Point: p, Density: weight})
		}
	}
	return out
}
