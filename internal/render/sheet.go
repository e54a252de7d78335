// Package render lays out template slots as one printable PNG sheet.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/constants"
	"github.com/kozaktomas/photo-booth/internal/database"
	"github.com/kozaktomas/photo-booth/internal/objectstore"
)

// frameWidth is the border drawn around photos taken with the booth camera.
const frameWidth = 8

var (
	frameColor   = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
	captionColor = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
)

// Sheet renders a 3x3 grid of photos loaded from an object store.
type Sheet struct {
	objects objectstore.Store
	log     zerolog.Logger
}

// NewSheet creates a renderer reading photo files from objects.
func NewSheet(objects objectstore.Store, log zerolog.Logger) *Sheet {
	return &Sheet{
		objects: objects,
		log:     log.With().Str("component", "render").Logger(),
	}
}

// Size returns the pixel size of a rendered sheet.
func Size() (int, int) {
	rows := (constants.SlotCount + constants.GridColumns - 1) / constants.GridColumns
	return constants.GridColumns * cellWidth(), rows * cellHeight()
}

func cellWidth() int {
	return constants.CellSize + 2*constants.CellPadding
}

func cellHeight() int {
	return constants.CellSize + constants.CaptionHeight + 2*constants.CellPadding
}

// CellOrigin returns the top-left pixel of the photo area of slot index.
func CellOrigin(index int) image.Point {
	col := index % constants.GridColumns
	row := index / constants.GridColumns
	return image.Pt(col*cellWidth()+constants.CellPadding, row*cellHeight()+constants.CellPadding)
}

// Render implements booth.Renderer. Empty slots stay white.
func (s *Sheet) Render(ctx context.Context, cells []booth.SheetCell) ([]byte, error) {
	w, h := Size()
	canvas := imaging.New(w, h, color.White)

	for _, cell := range cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cell.Index < 0 || cell.Index >= constants.SlotCount {
			return nil, fmt.Errorf("cell index %d out of range", cell.Index)
		}

		src, err := s.load(ctx, cell.Photo)
		if err != nil {
			return nil, err
		}

		origin := CellOrigin(cell.Index)
		canvas = imaging.Paste(canvas, composeCell(src, cell.Transform), origin)
		if cell.Photo.Origin == database.OriginCamera {
			drawFrame(canvas, image.Rectangle{Min: origin, Max: origin.Add(image.Pt(constants.CellSize, constants.CellSize))})
		}
		if cell.Photo.OrderCode != "" {
			drawCaption(canvas, origin, cell.Photo.OrderCode)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode sheet: %w", err)
	}
	s.log.Debug().Int("cells", len(cells)).Int("bytes", buf.Len()).Msg("Rendered sheet")
	return buf.Bytes(), nil
}

func (s *Sheet) load(ctx context.Context, photo database.Photo) (image.Image, error) {
	rc, err := s.objects.Open(ctx, photo.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("open photo %s: %w", photo.ID, err)
	}
	defer rc.Close()

	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", photo.ID, err)
	}
	return img, nil
}

// composeCell crops src to a square cell, applies the zoom around the cell
// center and shifts it by the pan offsets.
func composeCell(src image.Image, tr booth.Transform) *image.NRGBA {
	size := constants.CellSize
	cell := imaging.New(size, size, color.White)

	base := imaging.Fill(src, size, size, imaging.Center, imaging.Lanczos)
	zoom := booth.ClampZoom(tr.Zoom)
	scaled := int(math.Round(float64(size) * zoom))
	if scaled < 1 {
		scaled = 1
	}
	var zoomed image.Image = base
	if scaled != size {
		zoomed = imaging.Resize(base, scaled, scaled, imaging.Lanczos)
	}

	offset := (size - scaled) / 2
	at := image.Pt(offset+int(math.Round(tr.X)), offset+int(math.Round(tr.Y)))
	return imaging.Paste(cell, zoomed, at)
}

func drawFrame(dst *image.NRGBA, r image.Rectangle) {
	ink := image.NewUniform(frameColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+frameWidth),
		image.Rect(r.Min.X, r.Max.Y-frameWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+frameWidth, r.Max.Y),
		image.Rect(r.Max.X-frameWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, ink, image.Point{}, draw.Src)
	}
}

func drawCaption(dst *image.NRGBA, origin image.Point, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(captionColor),
		Face: face,
	}
	width := d.MeasureString(text).Round()
	x := origin.X + (constants.CellSize-width)/2
	y := origin.Y + constants.CellSize + (constants.CaptionHeight+face.Ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
