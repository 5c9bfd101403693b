package model

// Coords is a tile position on a map.
type Coords struct {
	X int
	Y int
}

// Direction a character or NPC faces.
type Direction int

const (
	DirectionDown Direction = iota
	DirectionLeft
	DirectionUp
	DirectionRight
)

// SitState of a character.
type SitState int

const (
	SitStand SitState = iota
	SitChair
	SitFloor
)

// NextCoords returns the neighboring tile in the given direction. Coordinates
// may go negative; bounds checking is the map's job.
func NextCoords(c Coords, d Direction) Coords {
	switch d {
	case DirectionDown:
		return Coords{X: c.X, Y: c.Y + 1}
	case DirectionLeft:
		return Coords{X: c.X - 1, Y: c.Y}
	case DirectionUp:
		return Coords{X: c.X, Y: c.Y - 1}
	case DirectionRight:
		return Coords{X: c.X + 1, Y: c.Y}
	}
	return c
}

// Distance is the Chebyshev distance between two tiles, which is what client
// visibility ranges are measured in.
func Distance(a, b Coords) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}

// InRange reports whether two tiles are within the given Chebyshev radius.
func InRange(a, b Coords, radius int) bool {
	return Distance(a, b) <= radius
}
