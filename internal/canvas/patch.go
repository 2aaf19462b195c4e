package canvas

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// PropertyPath names one settable component field in dotted form.
type PropertyPath string

const (
	PathTop                    PropertyPath = "top"
	PathLeft                   PropertyPath = "left"
	PathWidth                  PropertyPath = "width"
	PathHeight                 PropertyPath = "height"
	PathAlignment              PropertyPath = "alignment"
	PathChildrenLayout         PropertyPath = "childrenLayout"
	PathGap                    PropertyPath = "gap"
	PathPaddingAll             PropertyPath = "paddingAll"
	PathPaddingTop             PropertyPath = "padding.top"
	PathPaddingRight           PropertyPath = "padding.right"
	PathPaddingBottom          PropertyPath = "padding.bottom"
	PathPaddingLeft            PropertyPath = "padding.left"
	PathDecorationColor        PropertyPath = "decoration.color"
	PathDecorationBorderRadius PropertyPath = "decoration.borderRadius"
	PathDecorationBorderColor  PropertyPath = "decoration.border.color"
	PathDecorationBorderWidth  PropertyPath = "decoration.border.width"
	PathText                   PropertyPath = "text"
	PathTitle                  PropertyPath = "title"
	PathIcon                   PropertyPath = "icon"
	PathNavigateTo             PropertyPath = "navigateTo"
	PathFontSize               PropertyPath = "fontSize"
	PathTextColor              PropertyPath = "textColor"
	PathTextAlign              PropertyPath = "textAlign"
	PathFontFamily             PropertyPath = "fontFamily"
	PathAutoSize               PropertyPath = "autoSize"
	PathChecked                PropertyPath = "checked"
	PathCheckColor             PropertyPath = "checkColor"
	PathActiveColor            PropertyPath = "activeColor"
	PathBorderColor            PropertyPath = "borderColor"
	PathBorderWidth            PropertyPath = "borderWidth"
	PathBorderRadius           PropertyPath = "borderRadius"
	PathScale                  PropertyPath = "scale"
	PathCheckSize              PropertyPath = "checkSize"
	PathOptions                PropertyPath = "options"
	PathSelectedOption         PropertyPath = "selectedOption"
	PathHintText               PropertyPath = "hintText"
	PathValue                  PropertyPath = "value"
	PathInputType              PropertyPath = "inputType"
	PathEnabled                PropertyPath = "enabled"
	PathBorderType             PropertyPath = "borderType"
	PathFocusedBorderColor     PropertyPath = "focusedBorderColor"
	PathLabelColor             PropertyPath = "labelColor"
	PathHintColor              PropertyPath = "hintColor"
	PathInputTextColor         PropertyPath = "inputTextColor"
)

// PropertyUpdate sets one path to one value. A nil value clears optional geometry.
type PropertyUpdate struct {
	Path  PropertyPath
	Value any
}

// Patch is an ordered list of property updates applied last-write-wins.
type Patch []PropertyUpdate

// SizeChange reports how a patch moved the declared box of a component.
type SizeChange struct {
	Before Size
	After  Size
}

// Grew reports an increase on either axis.
func (c SizeChange) Grew() bool {
	return c.After.Width > c.Before.Width || c.After.Height > c.Before.Height
}

// Shrank reports a decrease on either axis.
func (c SizeChange) Shrank() bool {
	return c.After.Width < c.Before.Width || c.After.Height < c.Before.Height
}

type setter func(component *Component, value any) error

var setters = map[PropertyPath]setter{
	PathTop:    optionalFloat(func(c *Component) **float64 { return &c.Top }),
	PathLeft:   optionalFloat(func(c *Component) **float64 { return &c.Left }),
	PathWidth:  optionalFloat(func(c *Component) **float64 { return &c.Width }),
	PathHeight: optionalFloat(func(c *Component) **float64 { return &c.Height }),
	PathAlignment: func(c *Component, value any) error {
		if value == nil {
			c.Alignment = AlignNone
			return nil
		}
		raw, err := coerceString(value)
		if err != nil {
			return err
		}
		alignment, ok := ParseAlignment(raw)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidAlignment, raw)
		}
		c.Alignment = alignment
		return nil
	},
	PathChildrenLayout: func(c *Component, value any) error {
		if value == nil {
			c.ChildrenLayout = LayoutAbsolute
			return nil
		}
		raw, err := coerceString(value)
		if err != nil {
			return err
		}
		layout, ok := ParseChildrenLayout(raw)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidChildrenLayout, raw)
		}
		c.ChildrenLayout = layout
		return nil
	},
	PathGap:           optionalFloat(func(c *Component) **float64 { return &c.Gap }),
	PathPaddingAll:    optionalFloat(func(c *Component) **float64 { return &c.PaddingAll }),
	PathPaddingTop:    paddingEdge(func(p *Padding) *float64 { return &p.Top }),
	PathPaddingRight:  paddingEdge(func(p *Padding) *float64 { return &p.Right }),
	PathPaddingBottom: paddingEdge(func(p *Padding) *float64 { return &p.Bottom }),
	PathPaddingLeft:   paddingEdge(func(p *Padding) *float64 { return &p.Left }),
	PathDecorationColor: func(c *Component, value any) error {
		return assignString(&c.Decoration.Color, value)
	},
	PathDecorationBorderRadius: func(c *Component, value any) error {
		return assignFloat(&c.Decoration.BorderRadius, value)
	},
	PathDecorationBorderColor: func(c *Component, value any) error {
		return assignString(&ensureBorder(c).Color, value)
	},
	PathDecorationBorderWidth: func(c *Component, value any) error {
		return assignFloat(&ensureBorder(c).Width, value)
	},
	PathText: func(c *Component, value any) error {
		switch payload := c.Payload.(type) {
		case *TextPayload:
			return assignString(&payload.Text, value)
		case *ButtonPayload:
			return assignString(&payload.Text, value)
		}
		return notApplicable(c, PathText)
	},
	PathTitle: appBarField(func(p *AppBarPayload) *string { return &p.Title }),
	PathIcon: buttonField(func(p *ButtonPayload, value any) error {
		return assignString(&p.Icon, value)
	}),
	PathNavigateTo: buttonField(func(p *ButtonPayload, value any) error {
		return assignString(&p.NavigateTo, value)
	}),
	PathFontSize: func(c *Component, value any) error {
		switch payload := c.Payload.(type) {
		case *TextPayload:
			return assignFloat(&payload.FontSize, value)
		case *ButtonPayload:
			return assignFloat(&payload.FontSize, value)
		case *TextFieldPayload:
			return assignFloat(&payload.FontSize, value)
		}
		return notApplicable(c, PathFontSize)
	},
	PathTextColor:  textStyleField(PathTextColor, func(p *TextPayload) *string { return &p.TextColor }, func(p *ButtonPayload) *string { return &p.TextColor }),
	PathTextAlign:  textStyleField(PathTextAlign, func(p *TextPayload) *string { return &p.TextAlign }, func(p *ButtonPayload) *string { return &p.TextAlign }),
	PathFontFamily: textStyleField(PathFontFamily, func(p *TextPayload) *string { return &p.FontFamily }, func(p *ButtonPayload) *string { return &p.FontFamily }),
	PathAutoSize: func(c *Component, value any) error {
		payload, ok := c.Payload.(*TextPayload)
		if !ok {
			return notApplicable(c, PathAutoSize)
		}
		return assignBool(&payload.AutoSize, value)
	},
	PathChecked: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignBool(&p.Checked, value)
	}),
	PathCheckColor: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignString(&p.CheckColor, value)
	}),
	PathActiveColor: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignString(&p.ActiveColor, value)
	}),
	PathBorderColor: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignString(&p.BorderColor, value)
	}),
	PathBorderWidth: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignFloat(&p.BorderWidth, value)
	}),
	PathBorderRadius: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignFloat(&p.BorderRadius, value)
	}),
	PathScale: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignFloat(&p.Scale, value)
	}),
	PathCheckSize: checkboxField(func(p *CheckboxPayload, value any) error {
		return assignFloat(&p.CheckSize, value)
	}),
	PathOptions: func(c *Component, value any) error {
		payload, ok := c.Payload.(*DropdownPayload)
		if !ok {
			return notApplicable(c, PathOptions)
		}
		options, err := coerceStrings(value)
		if err != nil {
			return err
		}
		payload.Options = options
		return nil
	},
	PathSelectedOption: func(c *Component, value any) error {
		payload, ok := c.Payload.(*DropdownPayload)
		if !ok {
			return notApplicable(c, PathSelectedOption)
		}
		return assignString(&payload.SelectedOption, value)
	},
	PathHintText:           textFieldString(PathHintText, func(p *TextFieldPayload) *string { return &p.HintText }),
	PathValue:              textFieldString(PathValue, func(p *TextFieldPayload) *string { return &p.Value }),
	PathInputType:          textFieldString(PathInputType, func(p *TextFieldPayload) *string { return &p.InputType }),
	PathBorderType:         textFieldString(PathBorderType, func(p *TextFieldPayload) *string { return &p.BorderType }),
	PathFocusedBorderColor: textFieldString(PathFocusedBorderColor, func(p *TextFieldPayload) *string { return &p.FocusedBorderColor }),
	PathLabelColor:         textFieldString(PathLabelColor, func(p *TextFieldPayload) *string { return &p.LabelColor }),
	PathHintColor:          textFieldString(PathHintColor, func(p *TextFieldPayload) *string { return &p.HintColor }),
	PathInputTextColor:     textFieldString(PathInputTextColor, func(p *TextFieldPayload) *string { return &p.InputTextColor }),
	PathEnabled: func(c *Component, value any) error {
		payload, ok := c.Payload.(*TextFieldPayload)
		if !ok {
			return notApplicable(c, PathEnabled)
		}
		return assignBool(&payload.Enabled, value)
	},
}

// KnownPath reports whether the path has a setter.
func KnownPath(path PropertyPath) bool {
	_, ok := setters[path]
	return ok
}

// ParsePatch turns a wire update map into a typed patch. Object values are flattened
// into dotted sub-paths, so {"decoration": {"border": {"color": "#000"}}} becomes
// decoration.border.color. Keys are applied in sorted order. Unknown paths and paths
// reached twice are returned as errors and left out of the patch.
func ParsePatch(updates map[string]any) (Patch, []error) {
	flat := make(map[string]any)
	duplicates := make(map[string]struct{})
	flatten("", updates, flat, duplicates)

	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	patch := make(Patch, 0, len(keys))
	var errs []error
	for _, key := range keys {
		path := PropertyPath(key)
		if _, duplicate := duplicates[key]; duplicate {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateProperty, key))
			continue
		}
		if !KnownPath(path) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownProperty, key))
			continue
		}
		patch = append(patch, PropertyUpdate{Path: path, Value: flat[key]})
	}
	return patch, errs
}

func flatten(prefix string, value map[string]any, out map[string]any, duplicates map[string]struct{}) {
	for key, nested := range value {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if object, ok := asObject(nested); ok && !KnownPath(PropertyPath(path)) {
			flatten(path, object, out, duplicates)
			continue
		}
		if _, seen := out[path]; seen {
			duplicates[path] = struct{}{}
		}
		out[path] = nested
	}
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		converted := make(map[string]any, len(typed))
		for key, nested := range typed {
			converted[fmt.Sprint(key)] = nested
		}
		return converted, true
	default:
		return nil, false
	}
}

// Map renders the patch as a dotted-path update map for the wire.
func (p Patch) Map() map[string]any {
	updates := make(map[string]any, len(p))
	for _, update := range p {
		updates[string(update.Path)] = update.Value
	}
	return updates
}

// Apply runs every update against the component. Failing updates are skipped and
// reported; the rest still apply.
func (p Patch) Apply(component *Component) (SizeChange, []error) {
	change := SizeChange{Before: component.Size()}
	var errs []error
	for _, update := range p {
		set, ok := setters[update.Path]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownProperty, update.Path))
			continue
		}
		if err := set(component, update.Value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", update.Path, err))
		}
	}
	change.After = component.Size()
	return change, errs
}

// SizePatch builds the update that propagates an engine resize.
func SizePatch(resize Resize) Patch {
	return Patch{
		{Path: PathWidth, Value: resize.Width},
		{Path: PathHeight, Value: resize.Height},
	}
}

// PositionPatch builds the update that sets absolute offsets.
func PositionPatch(left, top float64) Patch {
	return Patch{
		{Path: PathLeft, Value: left},
		{Path: PathTop, Value: top},
	}
}

func optionalFloat(field func(*Component) **float64) setter {
	return func(c *Component, value any) error {
		target := field(c)
		if value == nil {
			*target = nil
			return nil
		}
		number, err := coerceFloat(value)
		if err != nil {
			return err
		}
		*target = floatPtr(number)
		return nil
	}
}

func paddingEdge(edge func(*Padding) *float64) setter {
	return func(c *Component, value any) error {
		if c.Padding == nil {
			c.Padding = &Padding{}
		}
		return assignFloat(edge(c.Padding), value)
	}
}

func ensureBorder(c *Component) *Border {
	if c.Decoration.Border == nil {
		c.Decoration.Border = &Border{}
	}
	return c.Decoration.Border
}

func notApplicable(c *Component, path PropertyPath) error {
	return fmt.Errorf("%w: %s on %s", ErrPropertyNotApplicable, path, c.Kind)
}

func appBarField(field func(*AppBarPayload) *string) setter {
	return func(c *Component, value any) error {
		payload, ok := c.Payload.(*AppBarPayload)
		if !ok {
			return notApplicable(c, PathTitle)
		}
		return assignString(field(payload), value)
	}
}

func buttonField(assign func(*ButtonPayload, any) error) setter {
	return func(c *Component, value any) error {
		payload, ok := c.Payload.(*ButtonPayload)
		if !ok {
			return fmt.Errorf("%w: button field on %s", ErrPropertyNotApplicable, c.Kind)
		}
		return assign(payload, value)
	}
}

func checkboxField(assign func(*CheckboxPayload, any) error) setter {
	return func(c *Component, value any) error {
		payload, ok := c.Payload.(*CheckboxPayload)
		if !ok {
			return fmt.Errorf("%w: checkbox field on %s", ErrPropertyNotApplicable, c.Kind)
		}
		return assign(payload, value)
	}
}

func textStyleField(path PropertyPath, text func(*TextPayload) *string, button func(*ButtonPayload) *string) setter {
	return func(c *Component, value any) error {
		switch payload := c.Payload.(type) {
		case *TextPayload:
			return assignString(text(payload), value)
		case *ButtonPayload:
			return assignString(button(payload), value)
		}
		return notApplicable(c, path)
	}
}

func textFieldString(path PropertyPath, field func(*TextFieldPayload) *string) setter {
	return func(c *Component, value any) error {
		payload, ok := c.Payload.(*TextFieldPayload)
		if !ok {
			return notApplicable(c, path)
		}
		return assignString(field(payload), value)
	}
}

func assignFloat(target *float64, value any) error {
	number, err := coerceFloat(value)
	if err != nil {
		return err
	}
	*target = number
	return nil
}

func assignString(target *string, value any) error {
	text, err := coerceString(value)
	if err != nil {
		return err
	}
	*target = text
	return nil
}

func assignBool(target *bool, value any) error {
	flag, err := coerceBool(value)
	if err != nil {
		return err
	}
	*target = flag
	return nil
}

// coerceFloat accepts the numeric shapes produced by JSON and CBOR decoders, and numeric strings.
func coerceFloat(value any) (float64, error) {
	var number float64
	switch typed := value.(type) {
	case float64:
		number = typed
	case float32:
		number = float64(typed)
	case int:
		number = float64(typed)
	case int8:
		number = float64(typed)
	case int16:
		number = float64(typed)
	case int32:
		number = float64(typed)
	case int64:
		number = float64(typed)
	case uint:
		number = float64(typed)
	case uint8:
		number = float64(typed)
	case uint16:
		number = float64(typed)
	case uint32:
		number = float64(typed)
	case uint64:
		number = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPropertyValue, value)
		}
		number = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPropertyValue, typed)
		}
		number = parsed
	default:
		return 0, fmt.Errorf("%w: %T", ErrInvalidPropertyValue, value)
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPropertyValue, number)
	}
	return number, nil
}

func coerceString(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case nil:
		return "", nil
	case fmt.Stringer:
		return typed.String(), nil
	case float64, float32, int, int64, uint64, bool:
		return fmt.Sprint(typed), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidPropertyValue, value)
	}
}

func coerceBool(value any) (bool, error) {
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return false, fmt.Errorf("%w: %q", ErrInvalidPropertyValue, typed)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %T", ErrInvalidPropertyValue, value)
	}
}

func coerceStrings(value any) ([]string, error) {
	switch typed := value.(type) {
	case []string:
		return append([]string{}, typed...), nil
	case []any:
		options := make([]string, 0, len(typed))
		for _, item := range typed {
			text, err := coerceString(item)
			if err != nil {
				return nil, err
			}
			options = append(options, text)
		}
		return options, nil
	case nil:
		return []string{}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidPropertyValue, value)
	}
}
