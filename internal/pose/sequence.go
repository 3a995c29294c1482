package pose

import "fmt"

// Sequence is an ordered list of fixed-width feature rows, one per frame
// that carried a pose. FrameIndex[i] is the position in the document's frame
// list that produced Rows[i].
type Sequence struct {
	Width      int
	Rows       [][]float64
	FrameIndex []int
}

// NewSequence returns an empty sequence of the given width.
func NewSequence(width int) *Sequence {
	return &Sequence{Width: width, Rows: [][]float64{}, FrameIndex: []int{}}
}

// Len returns the number of rows.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Append adds a row. It panics if the row width does not match.
func (s *Sequence) Append(frameIndex int, row []float64) {
	if len(row) != s.Width {
		panic(fmt.Sprintf("pose: row width %d does not match sequence width %d", len(row), s.Width))
	}
	s.Rows = append(s.Rows, row)
	s.FrameIndex = append(s.FrameIndex, frameIndex)
}

// Project returns a new sequence holding only the given columns of every
// row, in the given order.
func (s *Sequence) Project(cols []int) *Sequence {
	out := &Sequence{
		Width:      len(cols),
		Rows:       make([][]float64, len(s.Rows)),
		FrameIndex: append([]int(nil), s.FrameIndex...),
	}
	for i, row := range s.Rows {
		p := make([]float64, len(cols))
		for j, c := range cols {
			p[j] = row[c]
		}
		out.Rows[i] = p
	}
	return out
}

// Clone deep-copies the sequence.
func (s *Sequence) Clone() *Sequence {
	out := &Sequence{
		Width:      s.Width,
		Rows:       make([][]float64, len(s.Rows)),
		FrameIndex: append([]int(nil), s.FrameIndex...),
	}
	for i, row := range s.Rows {
		out.Rows[i] = append([]float64(nil), row...)
	}
	return out
}

// Shape formats the sequence dimensions as "(rows, width)", or "Empty".
func (s *Sequence) Shape() string {
	if s.Len() == 0 {
		return "Empty"
	}
	return fmt.Sprintf("(%d, %d)", len(s.Rows), s.Width)
}
