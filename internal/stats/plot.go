package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is a named sequence of percentages in the 0..100 range.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions controls the size and decoration of a percentage plot.
type PlotOptions struct {
	// Width is the plot area in terminal cells; 0 fits the terminal.
	Width  int
	Height int
	// Threshold draws a dotted reference line when positive.
	Threshold  float64
	ForceColor bool
}

type linePattern struct {
	name   string
	period int
	on     int
}

func (p linePattern) draws(x int) bool {
	if p.period <= 1 {
		return true
	}
	return x%p.period < p.on
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	fallbackTermWidth = 80
	axisSeparator     = " │ "
	colorReset        = "\x1b[0m"
	thresholdColor    = "\x1b[33m"
)

var (
	axisLabels = [3]string{"100%", "50%", "0%"}
	patterns   = []linePattern{
		{name: "solid", period: 1, on: 1},
		{name: "dashed", period: 6, on: 3},
		{name: "dashdot", period: 8, on: 3},
	}
	thresholdPattern = linePattern{name: "dotted", period: 4, on: 1}
	palette          = []string{"\x1b[36m", "\x1b[35m", "\x1b[32m", "\x1b[34m"}
	// dotBits maps a dot position inside a braille cell to its bit.
	dotBits = [4][2]uint8{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
)

// canvas is a grid of braille cells, each holding 2x4 dots.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for i := range cells {
		cells[i] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

func (c *canvas) dotsHigh() int { return len(c.cells) * 4 }

func (c *canvas) set(x, y int) {
	row, col := y/4, x/2
	if x < 0 || y < 0 || row >= len(c.cells) || col >= len(c.cells[row]) {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// line draws a Bresenham segment, skipping dots the pattern leaves out.
func (c *canvas) line(x0, y0, x1, y1 int, p linePattern) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if p.draws(x0) {
			c.set(x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PlotPercentages renders series on a fixed 0..100% braille plot.
func PlotPercentages(w io.Writer, title string, series []Series, opts PlotOptions) error {
	nonEmpty := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	layers := make([]*canvas, 0, len(nonEmpty)+1)
	for i, s := range nonEmpty {
		layer := newCanvas(width, height)
		p := patterns[i%len(patterns)]
		points := resample(s.Values, width)
		prevX, prevY := -1, -1
		for x, v := range points {
			px, py := x*2, percentToDot(v, layer.dotsHigh())
			if prevX < 0 {
				layer.set(px, py)
			} else {
				layer.line(prevX, prevY, px, py, p)
			}
			prevX, prevY = px, py
		}
		layers = append(layers, layer)
	}
	var threshold *canvas
	if opts.Threshold > 0 {
		threshold = newCanvas(width, height)
		y := percentToDot(opts.Threshold, threshold.dotsHigh())
		threshold.line(0, y, width*2-1, y, thresholdPattern)
	}

	useColor := colorEnabled(w, opts.ForceColor)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labelWidth := utf8.RuneCountInString(axisLabels[0])
	for y := 0; y < height; y++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%*s%s", labelWidth, axisLabelFor(y, height), axisSeparator)
		for x := 0; x < width; x++ {
			row.WriteString(renderCell(layers, threshold, x, y, useColor))
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, legend(nonEmpty, opts.Threshold, useColor)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func renderCell(layers []*canvas, threshold *canvas, x, y int, useColor bool) string {
	var mask uint8
	owner := -1
	for i, layer := range layers {
		if bits := layer.cells[y][x]; bits != 0 {
			mask |= bits
			if owner < 0 {
				owner = i
			}
		}
	}
	color := ""
	if owner >= 0 {
		color = palette[owner%len(palette)]
	}
	if threshold != nil && threshold.cells[y][x] != 0 {
		if owner < 0 {
			color = thresholdColor
		}
		mask |= threshold.cells[y][x]
	}
	ch := string(rune(0x2800 + int(mask)))
	if !useColor || color == "" {
		return ch
	}
	return color + ch + colorReset
}

func axisLabelFor(row, height int) string {
	switch {
	case row == 0:
		return axisLabels[0]
	case row == height-1:
		return axisLabels[2]
	case height > 2 && row == height/2:
		return axisLabels[1]
	default:
		return ""
	}
}

func legend(series []Series, threshold float64, useColor bool) string {
	parts := make([]string, 0, len(series)+1)
	for i, s := range series {
		label := fmt.Sprintf("%s (%s)", s.Name, patterns[i%len(patterns)].name)
		if useColor {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	if threshold > 0 {
		label := fmt.Sprintf("Pass %.0f%% (%s)", threshold, thresholdPattern.name)
		if useColor {
			label = thresholdColor + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// percentToDot maps a percentage onto a dot row, 0 being the top.
func percentToDot(v float64, dots int) int {
	v = math.Max(0, math.Min(100, v))
	return int(math.Round((1 - v/100) * float64(dots-1)))
}

// resample stretches or squeezes values to exactly width points. Squeezing
// averages buckets; stretching interpolates linearly.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == 0 || width == 0:
		return nil
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	case n > width:
		for i := range out {
			lo := i * n / width
			hi := max((i+1)*n/width, lo+1)
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx] + (values[idx+1]-values[idx])*frac
		}
	}
	return out
}

// PlotWidthFor returns the plot area that fits in totalWidth columns.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axis := utf8.RuneCountInString(axisLabels[0]) + utf8.RuneCountInString(axisSeparator)
	return max(totalWidth-axis, minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func colorEnabled(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
