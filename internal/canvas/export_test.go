package canvas

import (
	"encoding/json"
	"testing"
)

func TestCleanForExportClearsOffsetsOfAlignedComponents(t *testing.T) {
	aligned := box("aligned", KindContainer, 12, 34, 50, 50)
	aligned.Alignment = AlignCenter
	free := box("free", KindContainer, 5, 6, 50, 50)
	doc := newSinglePageDocument(t, aligned, free)

	cleaned := CleanForExport(doc.Pages())
	cleanedAligned := cleaned[0].Components[0]
	if cleanedAligned.Top != nil || cleanedAligned.Left != nil {
		t.Fatalf("expected offsets cleared on aligned component")
	}
	if left, top := cleaned[0].Components[1].Offset(); left != 5 || top != 6 {
		t.Fatalf("expected free component offsets kept, got (%v,%v)", left, top)
	}
	if aligned.Top == nil {
		t.Fatalf("source tree must not be modified")
	}
}

func TestExportJSONOmitsClearedOffsets(t *testing.T) {
	aligned := box("aligned", KindContainer, 12, 34, 50, 50)
	aligned.Alignment = AlignTopRight
	doc := newSinglePageDocument(t, aligned)

	payload, err := ExportJSON(doc.Pages())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var pages []map[string]any
	if err := json.Unmarshal(payload, &pages); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	component := pages[0]["components"].([]any)[0].(map[string]any)
	if _, ok := component["top"]; ok {
		t.Fatalf("expected top to be omitted, got %v", component)
	}
	if component["alignment"] != "topRight" {
		t.Fatalf("expected alignment to be kept, got %v", component["alignment"])
	}
}
