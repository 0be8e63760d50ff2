package swipe

// Direction is the outcome of a released drag.
type Direction string

const (
	None  Direction = ""
	Left  Direction = "left"
	Right Direction = "right"
)

const (
	// DefaultThreshold is the horizontal distance, in px, a drag must exceed
	// to count as a decision.
	DefaultThreshold = 100.0
	// FlyOut is how far a decided card is thrown off screen.
	FlyOut = 500.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Resolve maps a horizontal displacement to a decision.
func Resolve(dx, threshold float64) Direction {
	switch {
	case dx > threshold:
		return Right
	case dx < -threshold:
		return Left
	default:
		return None
	}
}

// Gesture tracks one drag on the current card.
type Gesture struct {
	threshold float64
	start     Point
	offset    Point
	dragging  bool
}

func NewGesture(threshold float64) *Gesture {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gesture{threshold: threshold}
}

func (g *Gesture) Down(p Point) {
	g.dragging = true
	g.start = Point{X: p.X - g.offset.X, Y: p.Y - g.offset.Y}
}

func (g *Gesture) Move(p Point) {
	if !g.dragging {
		return
	}
	g.offset = Point{X: p.X - g.start.X, Y: p.Y - g.start.Y}
}

// Release ends the drag. A decided card flies out horizontally; otherwise
// the card snaps back to the origin.
func (g *Gesture) Release() (Direction, Point) {
	g.dragging = false
	dir := Resolve(g.offset.X, g.threshold)
	switch dir {
	case Right:
		g.offset = Point{X: FlyOut, Y: g.offset.Y}
	case Left:
		g.offset = Point{X: -FlyOut, Y: g.offset.Y}
	default:
		g.offset = Point{}
	}
	return dir, g.offset
}

// Cancel abandons the drag, e.g. when the pointer leaves the card.
func (g *Gesture) Cancel() {
	g.dragging = false
	g.offset = Point{}
}

func (g *Gesture) Offset() Point  { return g.offset }
func (g *Gesture) Dragging() bool { return g.dragging }
func (g *Gesture) Reset()         { *g = Gesture{threshold: g.threshold} }
