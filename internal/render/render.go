// Package render draws the piece model as a PNG board diagram.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/boardsync/internal/board"
)

type Highlight struct {
	From board.Square
	To   board.Square
}

type Options struct {
	// Orientation is the side drawn at the bottom; NoSide means White.
	Orientation board.Side
	Highlight   *Highlight
	// Caption is printed above the board, with the material balance.
	Caption  string
	Material int
	// SquareSize in pixels; zero uses DefaultSquareSize.
	SquareSize int
}

const (
	DefaultSquareSize = 64
	minSquareSize     = 16
	maxSquareSize     = 160

	margin       = 24
	headerHeight = 28
)

var (
	lightSquare      = color.RGBA{233, 207, 163, 255}
	darkSquare       = color.RGBA{187, 136, 96, 255}
	backgroundColor  = color.RGBA{28, 31, 46, 255}
	whiteMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveArrow = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	coordinateColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
	captionTextColor = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

// PNG draws every on-board piece of pieces.
func PNG(ctx context.Context, pieces *board.Set, opts Options) ([]byte, error) {
	if pieces == nil {
		return nil, fmt.Errorf("piece set is nil")
	}
	size := opts.SquareSize
	if size == 0 {
		size = DefaultSquareSize
	}
	if size < minSquareSize || size > maxSquareSize {
		return nil, fmt.Errorf("square size %d out of range [%d,%d]", size, minSquareSize, maxSquareSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := layout{size: size, flip: opts.Orientation == board.Black}
	l.origin = image.Point{X: margin, Y: margin + headerHeight}
	img := image.NewRGBA(image.Rect(0, 0, 8*size+2*margin, 8*size+2*margin+headerHeight))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, l)
	if opts.Highlight != nil && moverSide(pieces, opts.Highlight) == board.White {
		drawSquareOverlay(img, l, opts.Highlight.From, whiteMoveFill)
		drawSquareOverlay(img, l, opts.Highlight.To, whiteMoveFill)
	}
	if err := drawPieces(ctx, img, pieces, l); err != nil {
		return nil, err
	}
	if h := opts.Highlight; h != nil {
		switch moverSide(pieces, h) {
		case board.White:
		case board.Black:
			drawArrow(img, l, h.From, h.To, blackMoveArrow)
		default:
			drawArrow(img, l, h.From, h.To, neutralMoveArrow)
		}
	}
	drawCoordinates(img, l)
	drawCaption(img, opts)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type layout struct {
	size   int
	origin image.Point
	flip   bool
}

func (l layout) squareRect(sq board.Square) image.Rectangle {
	row, col := 7-sq.Rank, sq.File
	if l.flip {
		row, col = sq.Rank, 7-sq.File
	}
	x := l.origin.X + col*l.size
	y := l.origin.Y + row*l.size
	return image.Rect(x, y, x+l.size, y+l.size)
}

func (l layout) center(sq board.Square) pointF {
	r := l.squareRect(sq)
	return pointF{X: float64(r.Min.X) + float64(l.size)/2, Y: float64(r.Min.Y) + float64(l.size)/2}
}

func squareColor(sq board.Square) color.Color {
	if (sq.Rank+sq.File)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst *image.RGBA, l layout) {
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			sq := board.Square{Rank: rank, File: file}
			imagedraw.Draw(dst, l.squareRect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(ctx context.Context, dst *image.RGBA, pieces *board.Set, l layout) error {
	for _, p := range pieces.OnBoard() {
		if err := ctx.Err(); err != nil {
			return err
		}
		icon, err := renderPieceImage(p.Kind, p.Side, l.size)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.squareRect(p.Square), icon, image.Point{}, imagedraw.Over)
	}
	return nil
}

// moverSide looks at the destination first since the piece has already moved.
func moverSide(pieces *board.Set, h *Highlight) board.Side {
	if p, ok := pieces.At(h.To); ok {
		return p.Side
	}
	if p, ok := pieces.At(h.From); ok {
		return p.Side
	}
	return board.NoSide
}

func drawSquareOverlay(img *image.RGBA, l layout, sq board.Square, clr color.Color) {
	if !sq.Valid() {
		return
	}
	imagedraw.Draw(img, l.squareRect(sq), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(dst *image.RGBA, l layout) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(coordinateColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		rankSq := board.Square{Rank: i, File: 0}
		r := l.squareRect(rankSq)
		drawCenteredText(drawer, string(rune('1'+i)), l.origin.X-margin/2, r.Min.Y+l.size/2+ascent/2)

		fileSq := board.Square{Rank: 0, File: i}
		f := l.squareRect(fileSq)
		drawCenteredText(drawer, string(rune('a'+i)), f.Min.X+l.size/2, l.origin.Y+8*l.size+ascent+4)
	}
}

func drawCaption(dst *image.RGBA, opts Options) {
	text := strings.TrimSpace(opts.Caption)
	if opts.Material != 0 {
		text = strings.TrimSpace(fmt.Sprintf("%s  %+d", text, opts.Material))
	}
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(captionTextColor), Face: face}
	drawer.Dot = fixed.P(margin, margin+face.Metrics().Ascent.Ceil())
	drawer.DrawString(truncateToWidth(drawer, text, dst.Bounds().Dx()-2*margin))
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateToWidth(drawer *font.Drawer, text string, maxWidth int) string {
	if drawer.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}
