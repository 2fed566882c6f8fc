package decode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"howett.net/plist"

	"github.com/movingbox/movingbox-migrator/internal/domain"
)

var (
	errNotKeyedArchive    = errors.New("not a keyed archive")
	errNoColorComponents  = errors.New("archive root has no color components")
	errUnsupportedSpace   = errors.New("unsupported color space")
	errMalformedComponent = errors.New("malformed color component")
)

// RGBA is a color normalized into the sRGB space with components in [0,1]
type RGBA struct {
	R, G, B, A float64
}

// Pack packs the color into a 32-bit 0xRRGGBBAA integer
func (c RGBA) Pack() uint32 {
	return uint32(channel(c.R))<<24 | uint32(channel(c.G))<<16 | uint32(channel(c.B))<<8 | uint32(channel(c.A))
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

type keyedArchive struct {
	Archiver string                 `plist:"$archiver"`
	Top      map[string]interface{} `plist:"$top"`
	Objects  []interface{}          `plist:"$objects"`
}

// UnarchiveColor decodes a keyed-archive color object and converts it to sRGB
func UnarchiveColor(data []byte) (RGBA, error) {
	var archive keyedArchive
	if _, err := plist.Unmarshal(data, &archive); err != nil {
		return RGBA{}, fmt.Errorf("failed to read archive: %w", err)
	}
	if archive.Archiver != "NSKeyedArchiver" || len(archive.Objects) == 0 {
		return RGBA{}, errNotKeyedArchive
	}

	root, err := archive.object(archive.Top["root"])
	if err != nil {
		return RGBA{}, err
	}
	return colorFromObject(root)
}

func (a keyedArchive) object(ref interface{}) (map[string]interface{}, error) {
	uid, ok := ref.(plist.UID)
	if !ok {
		return nil, fmt.Errorf("%w: root is %T", errNotKeyedArchive, ref)
	}
	if int(uid) >= len(a.Objects) {
		return nil, fmt.Errorf("%w: object %d out of range", errNotKeyedArchive, uid)
	}
	obj, ok := a.Objects[uid].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: object %d is %T", errNotKeyedArchive, uid, a.Objects[uid])
	}
	return obj, nil
}

func colorFromObject(obj map[string]interface{}) (RGBA, error) {
	// UIKit archives carry float components directly
	if r, ok := number(obj["UIRed"]); ok {
		g, gok := number(obj["UIGreen"])
		b, bok := number(obj["UIBlue"])
		if !gok || !bok {
			return RGBA{}, errMalformedComponent
		}
		return RGBA{R: r, G: g, B: b, A: alpha(obj["UIAlpha"])}, nil
	}
	if w, ok := number(obj["UIWhite"]); ok {
		return RGBA{R: w, G: w, B: w, A: alpha(obj["UIAlpha"])}, nil
	}

	// AppKit style archives carry ASCII component strings keyed by color space
	space, _ := number(obj["NSColorSpace"])
	switch {
	case obj["NSRGB"] != nil:
		comps, err := components(obj["NSRGB"])
		if err != nil {
			return RGBA{}, err
		}
		return rgbFromComponents(comps)
	case obj["NSWhite"] != nil:
		comps, err := components(obj["NSWhite"])
		if err != nil {
			return RGBA{}, err
		}
		a := 1.0
		if len(comps) > 1 {
			a = comps[1]
		}
		return RGBA{R: comps[0], G: comps[0], B: comps[0], A: a}, nil
	case obj["NSComponents"] != nil:
		comps, err := components(obj["NSComponents"])
		if err != nil {
			return RGBA{}, err
		}
		switch len(comps) {
		case 2:
			return RGBA{R: comps[0], G: comps[0], B: comps[0], A: comps[1]}, nil
		case 3, 4:
			return rgbFromComponents(comps)
		}
		return RGBA{}, fmt.Errorf("%w: %d components", errUnsupportedSpace, len(comps))
	case space != 0:
		return RGBA{}, fmt.Errorf("%w: %v", errUnsupportedSpace, space)
	}
	return RGBA{}, errNoColorComponents
}

func rgbFromComponents(comps []float64) (RGBA, error) {
	if len(comps) < 3 {
		return RGBA{}, fmt.Errorf("%w: need 3 components, got %d", errMalformedComponent, len(comps))
	}
	c := RGBA{R: comps[0], G: comps[1], B: comps[2], A: 1}
	if len(comps) > 3 {
		c.A = comps[3]
	}
	return c, nil
}

func alpha(v interface{}) float64 {
	if a, ok := number(v); ok {
		return a
	}
	return 1
}

// components parses the NUL-terminated ASCII float list stored in NSRGB and friends
func components(v interface{}) ([]float64, error) {
	var s string
	switch t := v.(type) {
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return nil, fmt.Errorf("%w: %T", errMalformedComponent, v)
	}
	fields := strings.Fields(strings.TrimRight(s, "\x00"))
	if len(fields) == 0 {
		return nil, errMalformedComponent
	}
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedComponent, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// Color runs the color chain. A nil or empty blob yields (nil, false): the label
// simply has no color. A blob that cannot be unarchived yields the fallback gray
// and skipped=true.
func Color(ctx context.Context, field string, data []byte) (color *uint32, skipped bool) {
	if len(data) == 0 {
		return nil, false
	}
	chain := Chain[uint32]{
		Field: field,
		Steps: []Step[uint32]{
			{Name: "keyed_archive", Decode: func(b []byte) (uint32, error) {
				c, err := UnarchiveColor(b)
				if err != nil {
					return 0, err
				}
				return c.Pack(), nil
			}},
		},
		Fallback: func() uint32 { return domain.FALLBACK_COLOR_RGBA },
	}
	out := chain.Decode(ctx, data)
	return &out.Value, out.Fallback
}
