package canvas

import (
	"errors"
	"testing"
)

func TestEmbeddedCatalogBuildsEveryKind(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	kinds := catalog.Kinds()
	if len(kinds) < 10 {
		t.Fatalf("expected every palette widget, got %v", kinds)
	}
	for _, kind := range kinds {
		component, err := catalog.New(kind, ComponentID("id-"+string(kind)), false)
		if err != nil {
			t.Fatalf("failed to build %s: %v", kind, err)
		}
		if component.Kind != kind || component.Width == nil || component.Height == nil {
			t.Fatalf("expected sized %s, got %+v", kind, component)
		}
	}
}

func TestCatalogDefaults(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	appBar, _ := catalog.New(KindAppBar, "bar", false)
	if size := appBar.Size(); size.Width != 360 || size.Height != 70 || appBar.Decoration.Color != "#2196f3" {
		t.Fatalf("unexpected app bar defaults %+v", appBar)
	}
	dropdown, _ := catalog.New(KindDropdownButton, "dd", false)
	if options := dropdown.Payload.(*DropdownPayload).Options; len(options) != 2 {
		t.Fatalf("expected two default options, got %v", options)
	}
	nested, _ := catalog.New(KindContainer, "inner", true)
	if size := nested.Size(); size.Width != 80 || size.Height != 80 {
		t.Fatalf("expected nested container 80x80, got %+v", size)
	}
	if left, top := nested.Offset(); left != 10 || top != 10 {
		t.Fatalf("expected nested container at (10,10), got (%v,%v)", left, top)
	}
	text, _ := catalog.New(KindText, "txt", true)
	if size := text.Size(); size.Width != 44 || size.Height != 30 {
		t.Fatalf("expected nested text to fall back to palette defaults, got %+v", size)
	}
}

func TestCatalogRejectsUnknownKindsAndKeys(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	if _, err := catalog.New("Slider", "s", false); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if _, err := ParseCatalog([]byte("[widgets.Container]\nwdth = 10.0\n")); err == nil {
		t.Fatalf("expected misspelled key to be rejected")
	}
}
