package export

import "image"

// Layout describes the collage grid: a fixed column count, square cells, and
// one uniform margin around the edges and between cells.
type Layout struct {
	Columns  int
	CellSize int
	Margin   int
}

// Plan is the computed collage geometry for a photo count.
type Plan struct {
	Columns int // grid columns
	Rows    int // grid rows needed for the photo count
	Width   int // canvas width in pixels
	Height  int // canvas height in pixels

	cell   int
	margin int
}

// Plan computes the canvas geometry for n photos:
//
//	width  = columns*cell + (columns+1)*margin
//	height = ceil(n/columns)*(cell+margin) + margin
func (l Layout) Plan(n int) Plan {
	cols := l.Columns
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	return Plan{
		Columns: cols,
		Rows:    rows,
		Width:   cols*l.CellSize + (cols+1)*l.Margin,
		Height:  rows*(l.CellSize+l.Margin) + l.Margin,
		cell:    l.CellSize,
		margin:  l.Margin,
	}
}

// CellRect returns the canvas rectangle for the photo at original sequence
// index i. Placement depends only on the index (row = i/columns,
// col = i%columns), never on processing order.
func (p Plan) CellRect(i int) image.Rectangle {
	col := i % p.Columns
	row := i / p.Columns
	x := p.margin + col*(p.cell+p.margin)
	y := p.margin + row*(p.cell+p.margin)
	return image.Rect(x, y, x+p.cell, y+p.cell)
}
