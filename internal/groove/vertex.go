package groove

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/mesh"
)

// HorizontalModulation returns the displacement that leans a groove wall
// toward center: the unit XY vector from (x, y) to center scaled by gH.
func HorizontalModulation(center mgl64.Vec2, x, y, gH float64) mgl64.Vec3 {
	d := center.Sub(mgl64.Vec2{x, y})
	m := d.Len()
	if m == 0 {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{gH * d[0] / m, gH * d[1] / m, 0}
}

func modulated(cfg geometry.Config, w, theta, z, gH float64) mesh.Vertex {
	x, y := w*math.Cos(theta), w*math.Sin(theta)
	h := HorizontalModulation(cfg.Center, x, y, gH)
	return mesh.Vertex{x + h[0], y + h[1], z}
}

// OuterUpper is the top edge of the groove's outer wall.
func OuterUpper(cfg geometry.Config, r, a, b, theta, rH, gH float64) mesh.Vertex {
	return modulated(cfg, r+a*b, theta, rH, gH)
}

// InnerUpper is the top edge of the groove's inner wall.
func InnerUpper(cfg geometry.Config, r, a, b, theta, rH, gH float64) mesh.Vertex {
	return modulated(cfg, r-cfg.GrooveWidth-a*b, theta, rH, gH)
}

// OuterLower is the outer corner of the groove floor.
func OuterLower(cfg geometry.Config, r, theta, gH float64) mesh.Vertex {
	return modulated(cfg, r, theta, cfg.RH-cfg.FloorOffset, gH)
}

// InnerLower is the inner corner of the groove floor, one groove width in
// from OuterLower.
func InnerLower(cfg geometry.Config, r, theta, gH float64) mesh.Vertex {
	return modulated(cfg, r-cfg.GrooveWidth, theta, cfg.RH-cfg.FloorOffset, gH)
}

// Profile is the groove cross-section at one angular step.
type Profile struct {
	OU, OL, IL, IU mesh.Vertex
}

// ProfileAt computes the four ring vertices for radius r, angle theta and
// groove height gH.
func ProfileAt(cfg geometry.Config, r, theta, gH float64) Profile {
	return Profile{
		OU: OuterUpper(cfg, r, cfg.Amplitude, cfg.Bevel, theta, cfg.RH, gH),
		OL: OuterLower(cfg, r, theta, gH),
		IL: InnerLower(cfg, r, theta, gH),
		IU: InnerUpper(cfg, r, cfg.Amplitude, cfg.Bevel, theta, cfg.RH, gH),
	}
}
