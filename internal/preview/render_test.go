package preview

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
)

func mustRenderer(t *testing.T, cfg Config) *Renderer {
	t.Helper()
	renderer, err := NewRenderer(cfg)
	if err != nil {
		t.Fatalf("failed to construct renderer: %v", err)
	}
	return renderer
}

func filledPage() *canvas.Document {
	width, height, left, top := 100.0, 50.0, 20.0, 30.0
	box := canvas.NewComponent("box", canvas.KindContainer)
	box.Width, box.Height, box.Left, box.Top = &width, &height, &left, &top
	box.Decoration.Color = "#ff0000"
	return canvas.NewDocument(&canvas.Page{ID: "page-1", Name: "Inicio", Components: []*canvas.Component{box}})
}

func TestRenderFillsComponentBackground(t *testing.T) {
	renderer := mustRenderer(t, Config{})
	img, err := renderer.Render(filledPage(), "page-1")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != int(canvas.CanvasWidth) || bounds.Dy() != int(canvas.CanvasHeight) {
		t.Fatalf("unexpected bounds %v", bounds)
	}
	red, green, blue, _ := img.At(110, 75).RGBA()
	if red>>8 != 0xff || green>>8 != 0 || blue>>8 != 0 {
		t.Fatalf("expected red fill inside the box, got %d %d %d", red>>8, green>>8, blue>>8)
	}
	red, green, blue, _ = img.At(5, 5).RGBA()
	if red>>8 != 0xff || green>>8 != 0xff || blue>>8 != 0xff {
		t.Fatalf("expected white background outside the box")
	}
}

func TestRenderScalesImage(t *testing.T) {
	renderer := mustRenderer(t, Config{Scale: 2})
	img, err := renderer.Render(filledPage(), "page-1")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if img.Bounds().Dx() != int(canvas.CanvasWidth*2) {
		t.Fatalf("expected doubled width, got %d", img.Bounds().Dx())
	}
	red, _, _, _ := img.At(220, 150).RGBA()
	if red>>8 != 0xff {
		t.Fatalf("expected scaled fill")
	}
}

func TestWritePNGProducesDecodableImage(t *testing.T) {
	renderer := mustRenderer(t, Config{})
	var buffer bytes.Buffer
	if err := renderer.WritePNG(&buffer, filledPage(), "page-1"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	decoded, err := png.Decode(&buffer)
	if err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
	if decoded.Bounds().Dy() != int(canvas.CanvasHeight) {
		t.Fatalf("unexpected height %d", decoded.Bounds().Dy())
	}
}

func TestRenderUnknownPage(t *testing.T) {
	renderer := mustRenderer(t, Config{})
	if _, err := renderer.Render(filledPage(), "missing"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected page not found, got %v", err)
	}
}

func TestNewRendererRejectsScale(t *testing.T) {
	if _, err := NewRenderer(Config{Scale: 10}); !errors.Is(err, errInvalidScale) {
		t.Fatalf("expected invalid scale, got %v", err)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		raw  string
		want color.NRGBA
		ok   bool
	}{
		{raw: "#fff", want: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, ok: true},
		{raw: "#2196f3", want: color.NRGBA{R: 0x21, G: 0x96, B: 0xf3, A: 0xff}, ok: true},
		{raw: "#00000080", want: color.NRGBA{A: 0x80}, ok: true},
		{raw: "2196f3"},
		{raw: "#zzzzzz"},
		{raw: "#000000zz"},
		{raw: "#12345"},
		{raw: ""},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			parsed, ok := parseHexColor(tc.raw)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && parsed != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, parsed)
			}
		})
	}
}
