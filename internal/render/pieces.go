package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/boardsync/internal/board"
)

// Silhouettes on a 45x45 canvas. Fill and stroke are substituted per side.
var pieceShapes = map[board.Kind]string{
	board.Pawn: `<circle cx="22.5" cy="13" r="5.5"/>` +
		`<path d="M17 22 Q22.5 16 28 22 L30 33 L15 33 Z"/>` +
		`<path d="M11 39 L34 39 L32 33 L13 33 Z"/>`,
	board.Rook: `<path d="M11 9 L15 9 L15 12 L20 12 L20 9 L25 9 L25 12 L30 12 L30 9 L34 9 L34 15 L11 15 Z"/>` +
		`<path d="M14 15 L31 15 L30 32 L15 32 Z"/>` +
		`<path d="M10 39 L35 39 L35 35 L32 32 L13 32 L10 35 Z"/>`,
	board.Knight: `<path d="M22 10 C32 11 36 18 35 39 L14 39 C14 30 22 29 19 22 ` +
		`C17 24 14 26 12 25 C10 24 9 22 11 19 C14 15 16 12 17 10 Z"/>` +
		`<circle cx="20" cy="15" r="1.5"/>`,
	board.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>` +
		`<path d="M22.5 11 C30 17 31 23 27 28 L18 28 C14 23 15 17 22.5 11 Z"/>` +
		`<path d="M16 28 L29 28 L30 32 L15 32 Z"/>` +
		`<path d="M9 39 C14 35 19 36 22.5 33 C26 36 31 35 36 39 Z"/>`,
	board.Queen: `<circle cx="6" cy="12" r="2.5"/><circle cx="14" cy="9" r="2.5"/>` +
		`<circle cx="22.5" cy="8" r="2.5"/><circle cx="31" cy="9" r="2.5"/><circle cx="39" cy="12" r="2.5"/>` +
		`<path d="M9 26 L6 14 L14 24 L14 11 L19 24 L22.5 10 L26 24 L31 11 L31 24 L39 14 L36 26 Z"/>` +
		`<path d="M9 26 L36 26 L34 32 L11 32 Z"/><path d="M10 39 L35 39 L34 32 L11 32 Z"/>`,
	board.King: `<path d="M21 4 L24 4 L24 7 L27 7 L27 10 L24 10 L24 14 L21 14 L21 10 L18 10 L18 7 L21 7 Z"/>` +
		`<path d="M22.5 14 C30 14 38 17 36 25 L33 31 L12 31 L9 25 C7 17 15 14 22.5 14 Z"/>` +
		`<path d="M11 39 L34 39 L33 31 L12 31 Z"/>`,
}

type pieceCacheKey struct {
	kind board.Kind
	side board.Side
	size int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceSVG(kind board.Kind, side board.Side) ([]byte, error) {
	shape, ok := pieceShapes[kind]
	if !ok {
		return nil, fmt.Errorf("no icon for %s", kind)
	}
	fill, stroke := "#ffffff", "#000000"
	if side == board.Black {
		fill, stroke = "#000000", "#ffffff"
	}
	var b strings.Builder
	b.WriteString(`<svg viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">`, fill, stroke)
	b.WriteString(shape)
	b.WriteString(`</g></svg>`)
	return []byte(b.String()), nil
}

func renderPieceImage(kind board.Kind, side board.Side, size int) (image.Image, error) {
	key := pieceCacheKey{kind: kind, side: side, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	data, err := pieceSVG(kind, side)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s %s icon: %w", side, kind, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
