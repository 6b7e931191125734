package track

import "github.com/trackday/racer/pkg/core"

// Smooth samples a uniform Catmull-Rom spline through the control points.
// The result has `samples` points spread evenly over the spline parameter;
// an open spline starts and ends on the first and last control points.
// Fewer than 2 control points or samples are returned unchanged.
func Smooth(points []core.Position3D, samples int, closed bool) []core.Position3D {
	n := len(points)
	if n < 2 || samples < 2 {
		return append([]core.Position3D(nil), points...)
	}

	segments := n - 1
	if closed {
		segments = n
	}

	ctrl := func(i int) core.Position3D {
		if closed {
			return points[((i%n)+n)%n]
		}
		if i < 0 {
			return points[0]
		}
		if i >= n {
			return points[n-1]
		}
		return points[i]
	}

	out := make([]core.Position3D, samples)
	for s := 0; s < samples; s++ {
		var u float64
		if closed {
			u = float64(s) / float64(samples) * float64(segments)
		} else {
			u = float64(s) / float64(samples-1) * float64(segments)
		}
		seg := int(u)
		if seg >= segments {
			seg = segments - 1
		}
		t := u - float64(seg)
		out[s] = catmullRom(ctrl(seg-1), ctrl(seg), ctrl(seg+1), ctrl(seg+2), t)
	}
	return out
}

func catmullRom(p0, p1, p2, p3 core.Position3D, t float64) core.Position3D {
	t2 := t * t
	t3 := t2 * t
	f := func(a, b, c, d float64) float64 {
		return 0.5 * (2*b + (-a+c)*t + (2*a-5*b+4*c-d)*t2 + (-a+3*b-3*c+d)*t3)
	}
	return core.Position3D{
		X: f(p0.X, p1.X, p2.X, p3.X),
		Y: f(p0.Y, p1.Y, p2.Y, p3.Y),
		Z: f(p0.Z, p1.Z, p2.Z, p3.Z),
	}
}
