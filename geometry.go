package main

import "math"

// WallKind distinguishes the two static collision shapes
type WallKind int

const (
	WallRect    WallKind = 0
	WallPolygon WallKind = 1
)

// Vec2 is a 2D point in world units
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Wall is a static, immutable collision shape. Rect walls use X/Y/W/H with
// X,Y the top-left corner; polygon walls use Points. Walls are loaded once
// per world and shared read-only by all collision checks.
type Wall struct {
	Kind   WallKind `json:"k" yaml:"kind"`
	X      float64  `json:"x,omitempty" yaml:"x"`
	Y      float64  `json:"y,omitempty" yaml:"y"`
	W      float64  `json:"w,omitempty" yaml:"w"`
	H      float64  `json:"h,omitempty" yaml:"h"`
	Points []Vec2   `json:"pts,omitempty" yaml:"points"`
}

// Body is the mutable kinematic core shared by players, mobs and projectiles
type Body struct {
	X, Y   float64
	VX, VY float64
	Radius float64
}

// PointInSolid reports whether (x,y) lies inside the wall. Rect walls use an
// inclusive bounding-box test with the given margin; polygon walls use
// even-odd ray casting and ignore the margin (callers inflate by radius via
// ResolveCircle instead).
func (w *Wall) PointInSolid(x, y, margin float64) bool {
	if w.Kind == WallRect {
		return x >= w.X-margin && x <= w.X+w.W+margin &&
			y >= w.Y-margin && y <= w.Y+w.H+margin
	}
	return pointInPolygon(x, y, w.Points)
}

// pointInPolygon is the even-odd crossing test
func pointInPolygon(x, y float64, pts []Vec2) bool {
	inside := false
	j := len(pts) - 1
	for i := 0; i < len(pts); i++ {
		xi, yi := pts[i].X, pts[i].Y
		xj, yj := pts[j].X, pts[j].Y
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// closestOnSegment returns the point on segment a-b closest to p
func closestOnSegment(px, py, ax, ay, bx, by float64) (float64, float64) {
	dx := bx - ax
	dy := by - ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return ax, ay
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	t = Clamp(t, 0, 1)
	return ax + dx*t, ay + dy*t
}

// ResolveCircle pushes the body out of the wall by the minimum translation
// vector when overlapping and kills the velocity component pointing into the
// surface, so the body does not slide back in on the next tick. Returns true
// when a push was applied. Callers must process walls in a fixed, stable
// order and apply pushes cumulatively, one wall at a time.
func ResolveCircle(b *Body, w *Wall) bool {
	if w.Kind == WallRect {
		return resolveCircleRect(b, w)
	}
	return resolveCirclePolygon(b, w)
}

func resolveCircleRect(b *Body, w *Wall) bool {
	cx := Clamp(b.X, w.X, w.X+w.W)
	cy := Clamp(b.Y, w.Y, w.Y+w.H)
	dx := b.X - cx
	dy := b.Y - cy
	d2 := dx*dx + dy*dy
	if d2 >= b.Radius*b.Radius && d2 > 0 {
		return false
	}

	if d2 > 0 {
		d := math.Sqrt(d2)
		nx := dx / d
		ny := dy / d
		push := b.Radius - d
		b.X += nx * push
		b.Y += ny * push
		killVelocityInto(b, nx, ny)
		return true
	}

	// Center on or inside the rect: push out along the axis with the
	// smaller penetration and zero both velocity components.
	penLeft := b.X - w.X
	penRight := w.X + w.W - b.X
	penTop := b.Y - w.Y
	penBottom := w.Y + w.H - b.Y

	minPen := penLeft
	axis := 0 // 0=left,1=right,2=top,3=bottom
	if penRight < minPen {
		minPen = penRight
		axis = 1
	}
	if penTop < minPen {
		minPen = penTop
		axis = 2
	}
	if penBottom < minPen {
		axis = 3
	}
	switch axis {
	case 0:
		b.X = w.X - b.Radius
	case 1:
		b.X = w.X + w.W + b.Radius
	case 2:
		b.Y = w.Y - b.Radius
	case 3:
		b.Y = w.Y + w.H + b.Radius
	}
	b.VX = 0
	b.VY = 0
	return true
}

func resolveCirclePolygon(b *Body, w *Wall) bool {
	if len(w.Points) < 3 {
		return false
	}

	// Nearest edge point across the whole outline
	bestD2 := math.MaxFloat64
	var qx, qy float64
	j := len(w.Points) - 1
	for i := 0; i < len(w.Points); i++ {
		px, py := closestOnSegment(b.X, b.Y,
			w.Points[j].X, w.Points[j].Y, w.Points[i].X, w.Points[i].Y)
		d2 := DistanceSq(b.X, b.Y, px, py)
		if d2 < bestD2 {
			bestD2 = d2
			qx, qy = px, py
		}
		j = i
	}

	inside := pointInPolygon(b.X, b.Y, w.Points)
	d := math.Sqrt(bestD2)
	if !inside && d >= b.Radius {
		return false
	}

	// Candidate normal from the nearest edge point toward the center;
	// degenerate when the center sits exactly on the outline.
	var nx, ny float64
	if d > 1e-9 {
		nx = (b.X - qx) / d
		ny = (b.Y - qy) / d
	} else {
		nx, ny = 0, -1
	}
	// Sign check: a point offset along the candidate normal must fall
	// outside the polygon, otherwise flip.
	const probe = 1e-3
	if pointInPolygon(qx+nx*probe, qy+ny*probe, w.Points) {
		nx = -nx
		ny = -ny
	}

	b.X = qx + nx*b.Radius
	b.Y = qy + ny*b.Radius
	killVelocityInto(b, nx, ny)
	return true
}

// killVelocityInto removes the velocity component along -n when the body is
// moving into the surface whose outward normal is n
func killVelocityInto(b *Body, nx, ny float64) {
	vn := b.VX*nx + b.VY*ny
	if vn < 0 {
		b.VX -= vn * nx
		b.VY -= vn * ny
	}
}

// ResolveWalls applies ResolveCircle against every wall in slice order.
// Slice order is the load order of the map, which keeps resolution
// reproducible when several walls overlap.
func ResolveWalls(b *Body, walls []Wall) {
	for i := range walls {
		ResolveCircle(b, &walls[i])
	}
}

// segmentsIntersect reports proper crossing of segments p1-p2 and p3-p4
func segmentsIntersect(p1, p2, p3, p4 Vec2) bool {
	d1 := cross2D(p3, p4, p1)
	d2 := cross2D(p3, p4, p2)
	d3 := cross2D(p1, p2, p3)
	d4 := cross2D(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross2D(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// PolygonSimple validates a polygon outline: at least 3 distinct points and
// no two non-adjacent edges crossing. Used by the map loader to reject bad
// generated geometry before it reaches the simulation.
func PolygonSimple(pts []Vec2) bool {
	distinct := make(map[Vec2]struct{}, len(pts))
	for _, p := range pts {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return false
	}
	n := len(pts)
	for i := 0; i < n; i++ {
		a1 := pts[i]
		a2 := pts[(i+1)%n]
		for k := i + 1; k < n; k++ {
			// Skip adjacent edges (they share a vertex)
			if k == i || (k+1)%n == i || (i+1)%n == k {
				continue
			}
			if segmentsIntersect(a1, a2, pts[k], pts[(k+1)%n]) {
				return false
			}
		}
	}
	return true
}
