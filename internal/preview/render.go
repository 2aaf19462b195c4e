// Package preview paints resolved page frames into a PNG image.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	defaultScale    = 1.0
	defaultFontSize = 12.0
	maxScale        = 4.0
	labelInset      = 4.0
)

var (
	ErrPageNotFound = errors.New("preview: page not found")
	errInvalidScale = errors.New("preview: scale must be within (0, 4]")
	outlineColor    = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
	labelColor      = color.Black
)

// Config tunes the rendered image.
type Config struct {
	Scale    float64
	FontSize float64
}

// Renderer draws pages at the canvas size multiplied by the scale.
type Renderer struct {
	scale float64
	face  font.Face
}

// NewRenderer parses the embedded monospace face once.
func NewRenderer(cfg Config) (*Renderer, error) {
	scale := cfg.Scale
	if scale == 0 {
		scale = defaultScale
	}
	if scale < 0 || scale > maxScale {
		return nil, errInvalidScale
	}
	fontSize := cfg.FontSize
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("preview: parse font: %w", err)
	}
	face := truetype.NewFace(ttfFont, &truetype.Options{
		Size:    fontSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	return &Renderer{scale: scale, face: face}, nil
}

// Render paints one page. Frames are drawn by ascending z-index, ties in tree order.
func (r *Renderer) Render(doc *canvas.Document, pageID canvas.PageID) (image.Image, error) {
	placed, ok := canvas.NewResolver(doc).ResolvePage(pageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].ZIndex < placed[j].ZIndex
	})

	width := int(canvas.CanvasWidth * r.scale)
	height := int(canvas.CanvasHeight * r.scale)
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetFontFace(r.face)

	for _, frame := range placed {
		r.drawFrame(dc, doc, frame)
	}
	return dc.Image(), nil
}

// WritePNG renders the page and encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, doc *canvas.Document, pageID canvas.PageID) error {
	img, err := r.Render(doc, pageID)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}

func (r *Renderer) drawFrame(dc *gg.Context, doc *canvas.Document, frame canvas.PlacedFrame) {
	x := frame.CanvasLeft * r.scale
	y := frame.CanvasTop * r.scale
	w := frame.Width * r.scale
	h := frame.Height * r.scale
	radius := frame.BorderRadius * r.scale

	if fill, ok := parseHexColor(frame.Background); ok {
		dc.SetColor(fill)
		dc.DrawRoundedRectangle(x, y, w, h, radius)
		dc.Fill()
	}

	stroke, hasBorder := parseHexColor(frame.BorderColor)
	lineWidth := frame.BorderWidth * r.scale
	if !hasBorder || lineWidth <= 0 {
		stroke = outlineColor
		lineWidth = 1
	}
	dc.SetColor(stroke)
	dc.SetLineWidth(lineWidth)
	dc.DrawRoundedRectangle(x, y, w, h, radius)
	dc.Stroke()

	component, ok := doc.FindByID(frame.ID)
	if !ok {
		return
	}
	text, textColor := label(component)
	if text == "" {
		return
	}
	dc.SetColor(textColor)
	dc.DrawStringWrapped(text, x+labelInset*r.scale, y+labelInset*r.scale, 0, 0, w-2*labelInset*r.scale, 1.2, gg.AlignLeft)
}

// label is the visible text of a component; containers fall back to their kind.
func label(component *canvas.Component) (string, color.Color) {
	switch payload := component.Payload.(type) {
	case *canvas.TextPayload:
		return payload.Text, colorOr(payload.TextColor, labelColor)
	case *canvas.ButtonPayload:
		if payload.Text != "" {
			return payload.Text, colorOr(payload.TextColor, labelColor)
		}
		return payload.Icon, colorOr(payload.TextColor, labelColor)
	case *canvas.AppBarPayload:
		return payload.Title, labelColor
	case *canvas.TextFieldPayload:
		if payload.Value != "" {
			return payload.Value, colorOr(payload.InputTextColor, labelColor)
		}
		return payload.HintText, colorOr(payload.HintColor, outlineColor)
	case *canvas.DropdownPayload:
		return payload.SelectedOption, labelColor
	case *canvas.CheckboxPayload:
		if payload.Checked {
			return "x", colorOr(payload.ActiveColor, labelColor)
		}
		return "", labelColor
	}
	if len(component.Children) > 0 {
		return "", labelColor
	}
	return string(component.Kind), outlineColor
}

func colorOr(raw string, fallback color.Color) color.Color {
	if parsed, ok := parseHexColor(raw); ok {
		return parsed
	}
	return fallback
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa.
func parseHexColor(raw string) (color.Color, bool) {
	hex := strings.TrimSpace(raw)
	alpha := uint8(0xff)
	if len(hex) == 9 {
		parsed, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return nil, false
		}
		alpha = uint8(parsed)
		hex = hex[:7]
	}
	if len(hex) != 4 && len(hex) != 7 {
		return nil, false
	}
	parsed, err := colorful.Hex(hex)
	if err != nil {
		return nil, false
	}
	r, g, b := parsed.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, true
}
