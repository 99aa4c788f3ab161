package meshnoc

// Distance is the Manhattan distance between two router coordinates.
func Distance(src, dst Coord) int {
	return absInt(dst.X-src.X) + absInt(dst.Y-src.Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ComputeRoute implements §4.4's strict XY dimension-ordered routing: first
// traverse W/E until x matches, then N/S until y matches, then Local at the
// destination. If src == dst the route is the single-hop (dx, dy, L).
func ComputeRoute(src, dst Coord) Route {
	if src == dst {
		return Route{{X: dst.X, Y: dst.Y, Port: Local}}
	}

	var route Route
	x, y := src.X, src.Y
	for x != dst.X {
		if dst.X > x {
			route = append(route, Hop{X: x, Y: y, Port: East})
			x++
		} else {
			route = append(route, Hop{X: x, Y: y, Port: West})
			x--
		}
	}
	for y != dst.Y {
		if dst.Y > y {
			route = append(route, Hop{X: x, Y: y, Port: South})
			y++
		} else {
			route = append(route, Hop{X: x, Y: y, Port: North})
			y--
		}
	}
	route = append(route, Hop{X: dst.X, Y: dst.Y, Port: Local})
	return route
}

// maxDistance returns the largest Manhattan distance from src to any of
// dsts, used for broadcast targets (§4.4 sub-mode A: "for cache targets
// that are broadcast, use the maximum distance across all targets").
func maxDistance(src Coord, dsts []Coord) int {
	best := 0
	for i, d := range dsts {
		dist := Distance(src, d)
		if i == 0 || dist > best {
			best = dist
		}
	}
	return best
}
