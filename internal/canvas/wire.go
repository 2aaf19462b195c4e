package canvas

import (
	"encoding/json"
	"fmt"
)

// ComponentWire is the flat camelCase shape exchanged with editors.
// Kind-specific fields live at the top level next to the geometry.
type ComponentWire struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	ParentID       string          `json:"parentId,omitempty"`
	Top            *float64        `json:"top,omitempty"`
	Left           *float64        `json:"left,omitempty"`
	Alignment      string          `json:"alignment,omitempty"`
	Width          *float64        `json:"width,omitempty"`
	Height         *float64        `json:"height,omitempty"`
	Decoration     *DecorationWire `json:"decoration,omitempty"`
	ChildrenLayout string          `json:"childrenLayout,omitempty"`
	Gap            *float64        `json:"gap,omitempty"`
	PaddingAll     *float64        `json:"paddingAll,omitempty"`
	Padding        *Padding        `json:"padding,omitempty"`
	Children       []ComponentWire `json:"children"`

	Text               string   `json:"text,omitempty"`
	Title              string   `json:"title,omitempty"`
	Icon               string   `json:"icon,omitempty"`
	NavigateTo         string   `json:"navigateTo,omitempty"`
	FontSize           *float64 `json:"fontSize,omitempty"`
	TextColor          string   `json:"textColor,omitempty"`
	TextAlign          string   `json:"textAlign,omitempty"`
	FontFamily         string   `json:"fontFamily,omitempty"`
	AutoSize           *bool    `json:"autoSize,omitempty"`
	Checked            *bool    `json:"checked,omitempty"`
	CheckColor         string   `json:"checkColor,omitempty"`
	ActiveColor        string   `json:"activeColor,omitempty"`
	BorderColor        string   `json:"borderColor,omitempty"`
	BorderWidth        *float64 `json:"borderWidth,omitempty"`
	BorderRadius       *float64 `json:"borderRadius,omitempty"`
	Scale              *float64 `json:"scale,omitempty"`
	CheckSize          *float64 `json:"checkSize,omitempty"`
	Options            []string `json:"options,omitempty"`
	SelectedOption     string   `json:"selectedOption,omitempty"`
	HintText           string   `json:"hintText,omitempty"`
	Value              string   `json:"value,omitempty"`
	InputType          string   `json:"inputType,omitempty"`
	Enabled            *bool    `json:"enabled,omitempty"`
	BorderType         string   `json:"borderType,omitempty"`
	FocusedBorderColor string   `json:"focusedBorderColor,omitempty"`
	LabelColor         string   `json:"labelColor,omitempty"`
	HintColor          string   `json:"hintColor,omitempty"`
	InputTextColor     string   `json:"inputTextColor,omitempty"`
}

// DecorationWire mirrors Decoration on the wire.
type DecorationWire struct {
	Color        string      `json:"color,omitempty"`
	Border       *BorderWire `json:"border,omitempty"`
	BorderRadius *float64    `json:"borderRadius,omitempty"`
}

// BorderWire mirrors Border on the wire.
type BorderWire struct {
	Color string   `json:"color,omitempty"`
	Width *float64 `json:"width,omitempty"`
}

// PageWire is the wire shape of a page.
type PageWire struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Components []ComponentWire `json:"components"`
}

// ToWire flattens the component and its subtree.
func (c *Component) ToWire() ComponentWire {
	wire := ComponentWire{
		ID:             c.ID.String(),
		Type:           string(c.Kind),
		ParentID:       c.ParentID.String(),
		Top:            clonePtr(c.Top),
		Left:           clonePtr(c.Left),
		Alignment:      string(c.Alignment),
		Width:          clonePtr(c.Width),
		Height:         clonePtr(c.Height),
		ChildrenLayout: string(c.ChildrenLayout),
		Gap:            clonePtr(c.Gap),
		PaddingAll:     clonePtr(c.PaddingAll),
		Padding:        clonePtr(c.Padding),
		Children:       make([]ComponentWire, 0, len(c.Children)),
	}
	if c.Decoration != (Decoration{}) {
		decoration := &DecorationWire{Color: c.Decoration.Color}
		if c.Decoration.BorderRadius != 0 {
			decoration.BorderRadius = floatPtr(c.Decoration.BorderRadius)
		}
		if c.Decoration.Border != nil {
			decoration.Border = &BorderWire{Color: c.Decoration.Border.Color, Width: floatPtr(c.Decoration.Border.Width)}
		}
		wire.Decoration = decoration
	}
	for _, child := range c.Children {
		wire.Children = append(wire.Children, child.ToWire())
	}

	switch payload := c.Payload.(type) {
	case *TextPayload:
		wire.Text = payload.Text
		wire.FontSize = floatPtr(payload.FontSize)
		wire.TextColor = payload.TextColor
		wire.TextAlign = payload.TextAlign
		wire.FontFamily = payload.FontFamily
		wire.AutoSize = boolPtr(payload.AutoSize)
	case *ButtonPayload:
		wire.Text = payload.Text
		wire.Icon = payload.Icon
		wire.NavigateTo = payload.NavigateTo
		wire.TextColor = payload.TextColor
		wire.TextAlign = payload.TextAlign
		wire.FontFamily = payload.FontFamily
		if payload.FontSize != 0 {
			wire.FontSize = floatPtr(payload.FontSize)
		}
	case *CheckboxPayload:
		wire.Checked = boolPtr(payload.Checked)
		wire.CheckColor = payload.CheckColor
		wire.ActiveColor = payload.ActiveColor
		wire.BorderColor = payload.BorderColor
		wire.BorderWidth = floatPtr(payload.BorderWidth)
		wire.BorderRadius = floatPtr(payload.BorderRadius)
		wire.Scale = floatPtr(payload.Scale)
		wire.CheckSize = floatPtr(payload.CheckSize)
	case *DropdownPayload:
		wire.Options = append([]string{}, payload.Options...)
		wire.SelectedOption = payload.SelectedOption
	case *TextFieldPayload:
		wire.HintText = payload.HintText
		wire.Value = payload.Value
		wire.InputType = payload.InputType
		wire.Enabled = boolPtr(payload.Enabled)
		wire.BorderType = payload.BorderType
		wire.FocusedBorderColor = payload.FocusedBorderColor
		wire.LabelColor = payload.LabelColor
		wire.HintColor = payload.HintColor
		wire.InputTextColor = payload.InputTextColor
		if payload.FontSize != 0 {
			wire.FontSize = floatPtr(payload.FontSize)
		}
	case *AppBarPayload:
		wire.Title = payload.Title
	}
	return wire
}

// ComponentFromWire validates and converts a wire component and its subtree.
// Children get their parentId rewired to the decoded parent.
func ComponentFromWire(wire ComponentWire) (*Component, error) {
	id, err := NewComponentID(wire.ID)
	if err != nil {
		return nil, err
	}
	alignment, ok := ParseAlignment(wire.Alignment)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlignment, wire.Alignment)
	}
	layout, ok := ParseChildrenLayout(wire.ChildrenLayout)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChildrenLayout, wire.ChildrenLayout)
	}

	kind := Kind(wire.Type)
	component := NewComponent(id, kind)
	if wire.ParentID != "" {
		component.ParentID = ComponentID(wire.ParentID)
	}
	component.Top = clonePtr(wire.Top)
	component.Left = clonePtr(wire.Left)
	component.Alignment = alignment
	component.Width = clonePtr(wire.Width)
	component.Height = clonePtr(wire.Height)
	component.ChildrenLayout = layout
	component.Gap = clonePtr(wire.Gap)
	component.PaddingAll = clonePtr(wire.PaddingAll)
	component.Padding = clonePtr(wire.Padding)
	if wire.Decoration != nil {
		component.Decoration.Color = wire.Decoration.Color
		component.Decoration.BorderRadius = valueOr(wire.Decoration.BorderRadius, 0)
		if wire.Decoration.Border != nil {
			component.Decoration.Border = &Border{
				Color: wire.Decoration.Border.Color,
				Width: valueOr(wire.Decoration.Border.Width, 0),
			}
		}
	}

	switch payload := component.Payload.(type) {
	case *TextPayload:
		payload.Text = wire.Text
		payload.FontSize = valueOr(wire.FontSize, defaultFontSize)
		payload.TextColor = wire.TextColor
		payload.TextAlign = wire.TextAlign
		payload.FontFamily = wire.FontFamily
		payload.AutoSize = boolOr(wire.AutoSize, false)
	case *ButtonPayload:
		payload.Text = wire.Text
		payload.Icon = wire.Icon
		payload.NavigateTo = wire.NavigateTo
		payload.TextColor = wire.TextColor
		payload.TextAlign = wire.TextAlign
		payload.FontSize = valueOr(wire.FontSize, 0)
		payload.FontFamily = wire.FontFamily
	case *CheckboxPayload:
		payload.Checked = boolOr(wire.Checked, false)
		payload.CheckColor = wire.CheckColor
		payload.ActiveColor = wire.ActiveColor
		payload.BorderColor = wire.BorderColor
		payload.BorderWidth = valueOr(wire.BorderWidth, 0)
		payload.BorderRadius = valueOr(wire.BorderRadius, 0)
		payload.Scale = valueOr(wire.Scale, defaultScale)
		payload.CheckSize = valueOr(wire.CheckSize, defaultCheckSize)
	case *DropdownPayload:
		payload.Options = append([]string{}, wire.Options...)
		payload.SelectedOption = wire.SelectedOption
	case *TextFieldPayload:
		payload.HintText = wire.HintText
		payload.Value = wire.Value
		payload.InputType = wire.InputType
		payload.Enabled = boolOr(wire.Enabled, true)
		payload.BorderType = wire.BorderType
		payload.FocusedBorderColor = wire.FocusedBorderColor
		payload.LabelColor = wire.LabelColor
		payload.HintColor = wire.HintColor
		payload.InputTextColor = wire.InputTextColor
		payload.FontSize = valueOr(wire.FontSize, 0)
	case *AppBarPayload:
		payload.Title = wire.Title
	}

	for _, childWire := range wire.Children {
		child, err := ComponentFromWire(childWire)
		if err != nil {
			return nil, err
		}
		child.ParentID = component.ID
		component.Children = append(component.Children, child)
	}
	return component, nil
}

// ToWire converts the page and its trees.
func (p *Page) ToWire() PageWire {
	wire := PageWire{ID: p.ID.String(), Name: p.Name, Components: make([]ComponentWire, 0, len(p.Components))}
	for _, component := range p.Components {
		wire.Components = append(wire.Components, component.ToWire())
	}
	return wire
}

// PageFromWire validates and converts a wire page. Root components lose any parentId.
func PageFromWire(wire PageWire) (*Page, error) {
	id, err := NewPageID(wire.ID)
	if err != nil {
		return nil, err
	}
	page := &Page{ID: id, Name: wire.Name, Components: make([]*Component, 0, len(wire.Components))}
	for _, componentWire := range wire.Components {
		component, err := ComponentFromWire(componentWire)
		if err != nil {
			return nil, err
		}
		component.ParentID = ""
		page.Components = append(page.Components, component)
	}
	return page, nil
}

// PagesToWire converts an ordered page list.
func PagesToWire(pages []*Page) []PageWire {
	wires := make([]PageWire, 0, len(pages))
	for _, page := range pages {
		wires = append(wires, page.ToWire())
	}
	return wires
}

// PagesFromWire converts an ordered page list, failing on the first invalid page.
func PagesFromWire(wires []PageWire) ([]*Page, error) {
	pages := make([]*Page, 0, len(wires))
	for _, wire := range wires {
		page, err := PageFromWire(wire)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// MarshalJSON encodes the component in its flat wire shape.
func (c *Component) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToWire())
}

// UnmarshalJSON decodes the flat wire shape.
func (c *Component) UnmarshalJSON(data []byte) error {
	var wire ComponentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded, err := ComponentFromWire(wire)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

// MarshalJSON encodes the page in its wire shape.
func (p *Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToWire())
}

// UnmarshalJSON decodes the page wire shape.
func (p *Page) UnmarshalJSON(data []byte) error {
	var wire PageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	decoded, err := PageFromWire(wire)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

func boolPtr(value bool) *bool {
	return &value
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
