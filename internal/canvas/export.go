package canvas

import (
	"encoding/json"
	"fmt"
)

// CleanForExport returns a copy of the pages in which every aligned component has its
// absolute offsets cleared, so exactly one geometry mode remains per component.
func CleanForExport(pages []*Page) []*Page {
	cleaned := make([]*Page, 0, len(pages))
	for _, page := range pages {
		clone := page.Clone()
		for _, root := range clone.Components {
			root.Walk(func(node *Component) bool {
				if node.Alignment != AlignNone {
					node.Top = nil
					node.Left = nil
				}
				return true
			})
		}
		cleaned = append(cleaned, clone)
	}
	return cleaned
}

// ExportJSON serializes the cleaned pages. The input pages are never modified.
func ExportJSON(pages []*Page) ([]byte, error) {
	payload, err := json.MarshalIndent(PagesToWire(CleanForExport(pages)), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("canvas: export pages: %w", err)
	}
	return payload, nil
}
