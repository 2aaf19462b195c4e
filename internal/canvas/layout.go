package canvas

import "math"

const (
	// CanvasWidth and CanvasHeight are the logical page dimensions.
	CanvasWidth  = 360.0
	CanvasHeight = 812.0

	textFieldMinWidth  = 120.0
	textFieldMinHeight = 56.0

	zIndexDefault      = 1
	zIndexFloatingText = 10
	zIndexAppBar       = 999
)

// Positioning tells a presentation layer whether a frame is placed by offsets or by flex flow.
type Positioning string

const (
	PositionAbsolute Positioning = "absolute"
	PositionFlow     Positioning = "relative"
)

// FlexAlign is a main or cross axis placement inside a flex container.
type FlexAlign string

const (
	FlexStart  FlexAlign = "flex-start"
	FlexCenter FlexAlign = "center"
	FlexEnd    FlexAlign = "flex-end"
)

// FlexContainer describes how a frame distributes its own children.
type FlexContainer struct {
	Direction      ChildrenLayout `json:"direction"`
	JustifyContent FlexAlign      `json:"justifyContent"`
	AlignItems     FlexAlign      `json:"alignItems"`
	Gap            float64        `json:"gap"`
	Padding        Padding        `json:"padding"`
}

// Frame is the resolved box of a component relative to its parent box
// (or the page canvas for roots), plus its paint attributes.
type Frame struct {
	ID           ComponentID    `json:"id"`
	Kind         Kind           `json:"type"`
	Left         float64        `json:"left"`
	Top          float64        `json:"top"`
	Width        float64        `json:"width"`
	Height       float64        `json:"height"`
	Positioning  Positioning    `json:"position"`
	ZIndex       int            `json:"zIndex"`
	Background   string         `json:"backgroundColor,omitempty"`
	BorderColor  string         `json:"borderColor,omitempty"`
	BorderWidth  float64        `json:"borderWidth"`
	BorderRadius float64        `json:"borderRadius"`
	AlignSelf    FlexAlign      `json:"alignSelf,omitempty"`
	Flex         *FlexContainer `json:"flex,omitempty"`
}

// PlacedFrame is a frame with its absolute canvas position.
type PlacedFrame struct {
	Frame
	CanvasLeft float64 `json:"canvasLeft"`
	CanvasTop  float64 `json:"canvasTop"`
	Depth      int     `json:"depth"`
}

// AlignOffset positions a w×h box inside a refW×refH reference box using the
// nine-point table. Each axis is clamped to [0, ref-size]; when the box is larger
// than the reference on an axis the offset on that axis is 0.
func AlignOffset(alignment Alignment, refW, refH, w, h float64) (left, top float64) {
	column, row := anchorFractions(alignment)
	left = clampAxis(column*(refW-w), refW-w)
	top = clampAxis(row*(refH-h), refH-h)
	return left, top
}

// anchorFractions maps an anchor to the share of the free space placed before the box.
func anchorFractions(alignment Alignment) (column, row float64) {
	switch alignment {
	case AlignTopCenter:
		return 0.5, 0
	case AlignTopRight:
		return 1, 0
	case AlignCenterLeft:
		return 0, 0.5
	case AlignCenter:
		return 0.5, 0.5
	case AlignCenterRight:
		return 1, 0.5
	case AlignBottomLeft:
		return 0, 1
	case AlignBottomCenter:
		return 0.5, 1
	case AlignBottomRight:
		return 1, 1
	default:
		return 0, 0
	}
}

func clampAxis(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Min(math.Max(value, 0), limit)
}

// Resolver computes frames from the document. It reads the tree and never mutates it.
type Resolver struct {
	doc *Document
}

// NewResolver returns a resolver bound to doc.
func NewResolver(doc *Document) *Resolver {
	return &Resolver{doc: doc}
}

// ReservedHeaderHeight is the height of the first root AppBar on the page, or 0.
func (r *Resolver) ReservedHeaderHeight(pageID PageID) float64 {
	page, ok := r.doc.Page(pageID)
	if !ok {
		return 0
	}
	for _, component := range page.Components {
		if component.Kind == KindAppBar {
			return valueOr(component.Height, 0)
		}
	}
	return 0
}

// Frame resolves a single component.
func (r *Resolver) Frame(id ComponentID) (Frame, bool) {
	component, ok := r.doc.FindByID(id)
	if !ok {
		return Frame{}, false
	}
	return r.resolve(component), true
}

// ResolvePage returns every frame of the page in paint order (pre-order) with canvas coordinates.
func (r *Resolver) ResolvePage(pageID PageID) ([]PlacedFrame, bool) {
	page, ok := r.doc.Page(pageID)
	if !ok {
		return nil, false
	}
	var placed []PlacedFrame
	var visit func(component *Component, originLeft, originTop float64, depth int)
	visit = func(component *Component, originLeft, originTop float64, depth int) {
		frame := r.resolve(component)
		entry := PlacedFrame{
			Frame:      frame,
			CanvasLeft: originLeft + frame.Left,
			CanvasTop:  originTop + frame.Top,
			Depth:      depth,
		}
		placed = append(placed, entry)
		for _, child := range component.Children {
			visit(child, entry.CanvasLeft, entry.CanvasTop, depth+1)
		}
	}
	for _, root := range page.Components {
		visit(root, 0, 0, 0)
	}
	return placed, true
}

func (r *Resolver) resolve(component *Component) Frame {
	frame := paintFrame(component)
	size := intrinsicSize(component)

	parent, hasParent := r.doc.Parent(component)
	switch {
	case !hasParent:
		r.resolveRoot(component, size, &frame)
	case !parent.IsFlexContainer():
		resolveInParent(component, parent, size, &frame)
	case component.Kind == KindText:
		resolveInParent(component, parent, size, &frame)
		frame.ZIndex = zIndexFloatingText
	default:
		resolveFlexChild(component, parent, &frame)
	}

	if component.IsFlexContainer() && len(component.Children) > 0 {
		frame.Flex = flexContainer(component)
	}
	return frame
}

func paintFrame(component *Component) Frame {
	frame := Frame{
		ID:           component.ID,
		Kind:         component.Kind,
		Positioning:  PositionAbsolute,
		ZIndex:       zIndexDefault,
		Background:   component.Decoration.Color,
		BorderWidth:  component.Decoration.BorderWidth(),
		BorderRadius: component.Decoration.BorderRadius,
	}
	if component.Decoration.Border != nil {
		frame.BorderColor = component.Decoration.Border.Color
	}
	if component.Kind == KindAppBar {
		frame.ZIndex = zIndexAppBar
	}
	return frame
}

// intrinsicSize applies kind overrides to the declared size.
func intrinsicSize(component *Component) Size {
	size := component.Size()
	switch payload := component.Payload.(type) {
	case *CheckboxPayload:
		edge := payload.CheckboxSize()
		return Size{Width: edge, Height: edge}
	case *TextFieldPayload:
		return Size{
			Width:  math.Max(size.Width, textFieldMinWidth),
			Height: math.Max(size.Height, textFieldMinHeight),
		}
	}
	return size
}

func (r *Resolver) resolveRoot(component *Component, size Size, frame *Frame) {
	frame.Width = size.Width
	frame.Height = size.Height

	reserved := 0.0
	if component.Kind != KindAppBar {
		if pageID, ok := r.doc.PageOf(component.ID); ok {
			reserved = r.ReservedHeaderHeight(pageID)
		}
	}

	if component.Alignment == AlignNone {
		left, top := component.Offset()
		frame.Left = left
		frame.Top = top + reserved
		return
	}

	left, top := AlignOffset(component.Alignment, CanvasWidth, CanvasHeight-reserved, size.Width, size.Height)
	frame.Left = left
	frame.Top = clampAxis(top+reserved, CanvasHeight-size.Height)
}

type interior struct {
	border  float64
	padding Padding
	width   float64
	height  float64
	outer   Size
}

func interiorOf(parent *Component) interior {
	border := parent.Decoration.BorderWidth()
	padding := parent.EffectivePadding()
	outer := parent.Size()
	return interior{
		border:  border,
		padding: padding,
		width:   outer.Width - border*2 - padding.Left - padding.Right,
		height:  outer.Height - border*2 - padding.Top - padding.Bottom,
		outer:   outer,
	}
}

// resolveInParent places a child by offsets or alignment inside the parent interior.
func resolveInParent(component, parent *Component, size Size, frame *Frame) {
	inner := interiorOf(parent)

	var rawLeft, rawTop float64
	if component.Alignment == AlignNone {
		rawLeft, rawTop = component.Offset()
		frame.Width = math.Min(size.Width, math.Max(0, inner.width-rawLeft))
		frame.Height = math.Min(size.Height, math.Max(0, inner.height-rawTop))
	} else {
		frame.Width = math.Max(0, math.Min(size.Width, inner.width))
		frame.Height = math.Max(0, math.Min(size.Height, inner.height))
		rawLeft, rawTop = AlignOffset(component.Alignment, inner.width, inner.height, frame.Width, frame.Height)
	}

	left := inner.border + inner.padding.Left + rawLeft
	top := inner.border + inner.padding.Top + rawTop
	frame.Left = math.Min(math.Max(left, inner.border), inner.outer.Width-frame.Width)
	frame.Top = math.Min(math.Max(top, inner.border), inner.outer.Height-frame.Height)
}

// flowSiblings are the children that take part in flex flow.
func flowSiblings(parent *Component) []*Component {
	siblings := make([]*Component, 0, len(parent.Children))
	for _, child := range parent.Children {
		if child.Kind != KindText {
			siblings = append(siblings, child)
		}
	}
	return siblings
}

// flexSlot is the largest main-axis extent each flow child may take.
func flexSlot(parent *Component, inner interior, count int) Size {
	available := Size{Width: inner.width, Height: inner.height}
	if count <= 1 {
		return available
	}
	totalGap := parent.FlexGap() * float64(count-1)
	switch parent.ChildrenLayout {
	case LayoutRow:
		available.Width = math.Max(0, (inner.width-totalGap)/float64(count))
	case LayoutColumn:
		available.Height = math.Max(0, (inner.height-totalGap)/float64(count))
	}
	return available
}

func flowSize(child *Component, slot Size) Size {
	size := intrinsicSize(child)
	return Size{Width: math.Min(size.Width, slot.Width), Height: math.Min(size.Height, slot.Height)}
}

// resolveFlexChild sizes a flow child and places it the way a centered flexbox would.
func resolveFlexChild(component, parent *Component, frame *Frame) {
	inner := interiorOf(parent)
	siblings := flowSiblings(parent)
	slot := flexSlot(parent, inner, len(siblings))
	gap := parent.FlexGap()
	row := parent.ChildrenLayout == LayoutRow

	total := 0.0
	before := 0.0
	var own Size
	for index, sibling := range siblings {
		size := flowSize(sibling, slot)
		extent := size.Height
		if row {
			extent = size.Width
		}
		if index > 0 {
			total += gap
		}
		if sibling == component {
			before = total
			own = size
		}
		total += extent
	}

	frame.Positioning = PositionFlow
	frame.Width = own.Width
	frame.Height = own.Height
	frame.AlignSelf = selfAlignment(component.Alignment, parent.ChildrenLayout)

	crossAlign := frame.AlignSelf
	if crossAlign == "" {
		crossAlign = itemsAlignment(parent)
	}

	mainExtent, crossExtent, ownCross := inner.height, inner.width, own.Width
	if row {
		mainExtent, crossExtent, ownCross = inner.width, inner.height, own.Height
	}
	mainOffset := math.Max(0, (mainExtent-total)/2) + before
	crossOffset := crossPosition(crossAlign, crossExtent, ownCross)

	if row {
		frame.Left = inner.border + inner.padding.Left + mainOffset
		frame.Top = inner.border + inner.padding.Top + crossOffset
	} else {
		frame.Left = inner.border + inner.padding.Left + crossOffset
		frame.Top = inner.border + inner.padding.Top + mainOffset
	}
}

func crossPosition(align FlexAlign, extent, size float64) float64 {
	switch align {
	case FlexStart:
		return 0
	case FlexEnd:
		return math.Max(0, extent-size)
	default:
		return math.Max(0, (extent-size)/2)
	}
}

// selfAlignment maps a child's anchor to its cross-axis placement in the parent flow.
func selfAlignment(alignment Alignment, layout ChildrenLayout) FlexAlign {
	if alignment == AlignNone {
		return ""
	}
	column, row := anchorFractions(alignment)
	share := row
	if layout == LayoutColumn {
		share = column
	}
	return fractionToFlex(share)
}

// itemsAlignment derives a container's cross-axis item placement from its own anchor.
func itemsAlignment(container *Component) FlexAlign {
	if container.Alignment == AlignNone {
		return FlexCenter
	}
	return selfAlignment(container.Alignment, container.ChildrenLayout)
}

func fractionToFlex(share float64) FlexAlign {
	switch share {
	case 0:
		return FlexStart
	case 1:
		return FlexEnd
	default:
		return FlexCenter
	}
}

func flexContainer(component *Component) *FlexContainer {
	padding := component.EffectivePadding()
	border := component.Decoration.BorderWidth()
	return &FlexContainer{
		Direction:      component.ChildrenLayout,
		JustifyContent: FlexCenter,
		AlignItems:     itemsAlignment(component),
		Gap:            component.FlexGap(),
		Padding: Padding{
			Top:    padding.Top + border,
			Right:  padding.Right + border,
			Bottom: padding.Bottom + border,
			Left:   padding.Left + border,
		},
	}
}
