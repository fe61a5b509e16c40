package merging

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// halfSpace evaluates constraint k of the reference simplex of dimension
// dim at x: x_k >= 0 for k < dim and 1 - sum(x) >= 0 for k == dim
func halfSpace(k, dim int, x []float64) float64 {
	if k < dim {
		return x[k]
	}
	return 1 - floats.Sum(x[:dim])
}

// level is halfSpace snapped to zero within eps, so points that round to
// just outside a face count as on it
func level(k, dim int, x []float64, eps float64) float64 {
	if h := halfSpace(k, dim, x); math.Abs(h) > eps {
		return h
	}
	return 0
}

// clipSegment clips the segment a-b, given in reference coordinates of a
// simplex of dimension dim, to that simplex
func clipSegment(a, b []float64, dim int, eps float64) (p, q []float64, ok bool) {
	tmin, tmax := 0., 1.
	for k := 0; k <= dim; k++ {
		ha, hb := level(k, dim, a, eps), level(k, dim, b, eps)
		switch {
		case ha < 0 && hb < 0:
			return nil, nil, false
		case ha < 0:
			tmin = max(tmin, ha/(ha-hb))
		case hb < 0:
			tmax = min(tmax, ha/(ha-hb))
		}
	}
	if tmax <= tmin {
		return nil, nil, false
	}
	return clamp(lerpPoint(a, b, tmin), dim), clamp(lerpPoint(a, b, tmax), dim), true
}

// clipPolygon clips a convex polygon, given in reference coordinates of a
// simplex of dimension dim, to that simplex. The polygon keeps its winding.
func clipPolygon(poly [][]float64, dim int, eps float64) [][]float64 {
	for k := 0; k <= dim && len(poly) > 0; k++ {
		var out [][]float64
		for i, cur := range poly {
			var (
				prev   = poly[(i+len(poly)-1)%len(poly)]
				hc, hp = level(k, dim, cur, eps), level(k, dim, prev, eps)
			)
			if hc >= 0 {
				if hp < 0 {
					out = append(out, lerpPoint(prev, cur, hp/(hp-hc)))
				}
				out = append(out, cur)
			} else if hp >= 0 {
				out = append(out, lerpPoint(prev, cur, hp/(hp-hc)))
			}
		}
		poly = out
	}
	for i := range poly {
		poly[i] = clamp(poly[i], dim)
	}
	return poly
}

// clamp moves a point lying just outside the reference simplex onto it
func clamp(x []float64, dim int) []float64 {
	for d := 0; d < dim; d++ {
		x[d] = max(x[d], 0)
	}
	if sum := floats.Sum(x[:dim]); sum > 1 {
		floats.Scale(1/sum, x[:dim])
	}
	return x
}

func lerpPoint(a, b []float64, t float64) []float64 {
	p := make([]float64, len(a))
	for d := range p {
		p[d] = a[d] + t*(b[d]-a[d])
	}
	return p
}

// dedupe drops polygon vertices closer than eps to their predecessor,
// including across the closing edge
func dedupe(poly [][]float64, eps float64) [][]float64 {
	var out [][]float64
	for _, p := range poly {
		if len(out) > 0 && floats.Distance(p, out[len(out)-1], 2) <= eps {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && floats.Distance(out[0], out[len(out)-1], 2) <= eps {
		out = out[:len(out)-1]
	}
	return out
}
