package canvas

import "strings"

// Kind tags a component with the widget it represents. Unknown kinds are kept verbatim.
type Kind string

const (
	KindContainer      Kind = "Container"
	KindText           Kind = "Text"
	KindColumn         Kind = "Column"
	KindRow            Kind = "Row"
	KindAppBar         Kind = "AppBar"
	KindIconButton     Kind = "IconButton"
	KindTextButton     Kind = "TextButton"
	KindCheckbox       Kind = "Checkbox"
	KindDropdownButton Kind = "DropdownButton"
	KindTextField      Kind = "TextField"
)

// Alignment is one of the nine anchor points used instead of absolute offsets.
type Alignment string

const (
	AlignNone         Alignment = ""
	AlignTopLeft      Alignment = "topLeft"
	AlignTopCenter    Alignment = "topCenter"
	AlignTopRight     Alignment = "topRight"
	AlignCenterLeft   Alignment = "centerLeft"
	AlignCenter       Alignment = "center"
	AlignCenterRight  Alignment = "centerRight"
	AlignBottomLeft   Alignment = "bottomLeft"
	AlignBottomCenter Alignment = "bottomCenter"
	AlignBottomRight  Alignment = "bottomRight"
)

const alignmentPrefix = "Alignment."

// ParseAlignment accepts both bare anchor names and the "Alignment." prefixed form.
// An empty string yields AlignNone.
func ParseAlignment(raw string) (Alignment, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), alignmentPrefix)
	switch Alignment(trimmed) {
	case AlignNone:
		return AlignNone, true
	case AlignTopLeft, AlignTopCenter, AlignTopRight,
		AlignCenterLeft, AlignCenter, AlignCenterRight,
		AlignBottomLeft, AlignBottomCenter, AlignBottomRight:
		return Alignment(trimmed), true
	default:
		return AlignNone, false
	}
}

// ChildrenLayout selects how a component distributes its children.
type ChildrenLayout string

const (
	LayoutAbsolute ChildrenLayout = ""
	LayoutRow      ChildrenLayout = "row"
	LayoutColumn   ChildrenLayout = "column"
)

// ParseChildrenLayout normalizes the flex mode flag.
func ParseChildrenLayout(raw string) (ChildrenLayout, bool) {
	switch ChildrenLayout(strings.ToLower(strings.TrimSpace(raw))) {
	case LayoutAbsolute:
		return LayoutAbsolute, true
	case LayoutRow:
		return LayoutRow, true
	case LayoutColumn:
		return LayoutColumn, true
	default:
		return LayoutAbsolute, false
	}
}

const (
	// DefaultDimension is used for width and height when a component does not declare one.
	DefaultDimension = 100.0
	// DefaultFlexGap separates flex children when no positive gap is declared.
	DefaultFlexGap = 8.0
)

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Border describes a decoration stroke.
type Border struct {
	Color string
	Width float64
}

// Decoration holds the paint attributes of a box.
type Decoration struct {
	Color        string
	Border       *Border
	BorderRadius float64
}

// BorderWidth returns the stroke width or zero when no border is set.
func (d Decoration) BorderWidth() float64 {
	if d.Border == nil {
		return 0
	}
	return d.Border.Width
}

// Padding holds per-edge insets.
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Component is a node of a page tree.
type Component struct {
	ID             ComponentID
	Kind           Kind
	ParentID       ComponentID
	Top            *float64
	Left           *float64
	Alignment      Alignment
	Width          *float64
	Height         *float64
	Decoration     Decoration
	ChildrenLayout ChildrenLayout
	Gap            *float64
	PaddingAll     *float64
	Padding        *Padding
	Payload        Payload
	Children       []*Component
}

// NewComponent returns a bare component of the given kind with its empty payload.
func NewComponent(id ComponentID, kind Kind) *Component {
	return &Component{
		ID:       id,
		Kind:     kind,
		Payload:  PayloadFor(kind),
		Children: []*Component{},
	}
}

// Size reports the declared box, substituting defaults for missing axes.
func (c *Component) Size() Size {
	return Size{Width: valueOr(c.Width, DefaultDimension), Height: valueOr(c.Height, DefaultDimension)}
}

// SetSize assigns both axes.
func (c *Component) SetSize(size Size) {
	c.Width = floatPtr(size.Width)
	c.Height = floatPtr(size.Height)
}

// Offset returns the absolute offsets, zero when unset.
func (c *Component) Offset() (left, top float64) {
	return valueOr(c.Left, 0), valueOr(c.Top, 0)
}

// EffectivePadding resolves paddingAll against per-edge padding; a positive paddingAll wins.
func (c *Component) EffectivePadding() Padding {
	if c.PaddingAll != nil && *c.PaddingAll > 0 {
		all := *c.PaddingAll
		return Padding{Top: all, Right: all, Bottom: all, Left: all}
	}
	if c.Padding == nil {
		return Padding{}
	}
	return *c.Padding
}

// FlexGap returns the gap between flex children.
func (c *Component) FlexGap() float64 {
	if c.Gap == nil || *c.Gap <= 0 {
		return DefaultFlexGap
	}
	return *c.Gap
}

// IsFlexContainer reports whether the component lays out its children in a row or column.
func (c *Component) IsFlexContainer() bool {
	return c.ChildrenLayout == LayoutRow || c.ChildrenLayout == LayoutColumn
}

// Clone returns a deep copy of the component and its subtree.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Top = clonePtr(c.Top)
	clone.Left = clonePtr(c.Left)
	clone.Width = clonePtr(c.Width)
	clone.Height = clonePtr(c.Height)
	clone.Gap = clonePtr(c.Gap)
	clone.PaddingAll = clonePtr(c.PaddingAll)
	clone.Padding = clonePtr(c.Padding)
	if c.Decoration.Border != nil {
		border := *c.Decoration.Border
		clone.Decoration.Border = &border
	}
	if c.Payload != nil {
		clone.Payload = c.Payload.clone()
	}
	if c.Children != nil {
		clone.Children = make([]*Component, len(c.Children))
		for index, child := range c.Children {
			clone.Children[index] = child.Clone()
		}
	}
	return &clone
}

// Walk visits the component and its descendants in pre-order. Returning false stops the walk.
func (c *Component) Walk(visit func(*Component) bool) bool {
	if !visit(c) {
		return false
	}
	for _, child := range c.Children {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}

// Page is a named ordered collection of root components.
type Page struct {
	ID         PageID
	Name       string
	Components []*Component
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	clone := &Page{ID: p.ID, Name: p.Name}
	if p.Components != nil {
		clone.Components = make([]*Component, len(p.Components))
		for index, component := range p.Components {
			clone.Components[index] = component.Clone()
		}
	}
	return clone
}

func valueOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

func floatPtr(value float64) *float64 {
	return &value
}

func clonePtr[T any](value *T) *T {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
