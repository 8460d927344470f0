package processor

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// alphaCutoff is the alpha below which a pixel becomes the transparent entry.
const alphaCutoff = 0x80

type colorBucket struct {
	key        uint16
	r, g, b, n uint64
}

// bucketKey keeps the top five bits of each channel.
func bucketKey(r, g, b uint8) uint16 {
	return uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
}

// adaptivePaletted maps img onto a palette of at most maxColors entries built
// from its most common colours. When any pixel is transparent, entry 0 is
// reserved as fully transparent and those pixels point at it, which the GIF
// encoder writes as the transparent index.
func adaptivePaletted(img image.Image, maxColors int) *image.Paletted {
	src := imaging.Clone(img)
	bounds := src.Bounds()

	buckets := make(map[uint16]*colorBucket)
	transparent := false
	for i := 0; i+3 < len(src.Pix); i += 4 {
		if src.Pix[i+3] < alphaCutoff {
			transparent = true
			continue
		}
		r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		k := bucketKey(r, g, b)
		cb := buckets[k]
		if cb == nil {
			cb = &colorBucket{key: k}
			buckets[k] = cb
		}
		cb.r += uint64(r)
		cb.g += uint64(g)
		cb.b += uint64(b)
		cb.n++
	}

	ranked := make([]*colorBucket, 0, len(buckets))
	for _, cb := range buckets {
		ranked = append(ranked, cb)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].key < ranked[j].key
	})

	offset := 0
	if transparent {
		offset = 1
	}
	if limit := maxColors - offset; len(ranked) > limit {
		ranked = ranked[:limit]
	}

	pal := make(color.Palette, 0, offset+len(ranked))
	if transparent {
		pal = append(pal, color.NRGBA{})
	}
	for _, cb := range ranked {
		pal = append(pal, color.NRGBA{
			R: uint8(cb.r / cb.n),
			G: uint8(cb.g / cb.n),
			B: uint8(cb.b / cb.n),
			A: 0xff,
		})
	}
	if len(pal) == 0 {
		pal = append(pal, color.NRGBA{A: 0xff})
	}
	opaque := pal[offset:]

	dst := image.NewPaletted(bounds, pal)
	lookup := make(map[uint16]uint8, len(buckets))
	w := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < w; x++ {
			i := y*src.Stride + x*4
			if src.Pix[i+3] < alphaCutoff {
				dst.Pix[y*dst.Stride+x] = 0
				continue
			}
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			k := bucketKey(r, g, b)
			idx, ok := lookup[k]
			if !ok {
				idx = uint8(opaque.Index(color.NRGBA{R: r, G: g, B: b, A: 0xff}) + offset)
				lookup[k] = idx
			}
			dst.Pix[y*dst.Stride+x] = idx
		}
	}
	return dst
}
