package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
)

const exportedPages = `[
  {"id":"page-1","name":"Inicio","components":[
    {"id":"bar","type":"AppBar","width":360,"height":56,"title":"Inicio","children":[]},
    {"id":"box","type":"Container","left":10,"top":10,"width":100,"height":80,"children":[]}
  ]},
  {"id":"page-2","name":"Perfil","components":[]}
]`

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pages.json")
	if err := os.WriteFile(path, []byte(exportedPages), 0o600); err != nil {
		t.Fatalf("failed to write export: %v", err)
	}
	return path
}

func TestRunLayoutReservesHeader(t *testing.T) {
	var out bytes.Buffer
	if err := runLayout(writeExport(t), "", &out); err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	var result layoutOutput
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if result.PageID != "page-1" || result.ReservedHeaderHeight != 56 {
		t.Fatalf("unexpected layout %+v", result)
	}
	if len(result.Frames) != 2 || result.Frames[1].CanvasTop != 66 {
		t.Fatalf("expected box pushed below the header, got %+v", result.Frames)
	}
}

func TestRunPreviewWritesPNG(t *testing.T) {
	var out bytes.Buffer
	if err := runPreview(writeExport(t), "page-2", 1, &out); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if _, err := png.Decode(&out); err != nil {
		t.Fatalf("expected png output: %v", err)
	}
}

func TestLoadDocumentErrors(t *testing.T) {
	if _, _, err := loadDocument("", ""); !errors.Is(err, errMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
	if _, _, err := loadDocument(writeExport(t), "page-9"); !errors.Is(err, canvas.ErrPageNotFound) {
		t.Fatalf("expected page not found, got %v", err)
	}
}
