package canvas

// Payload carries the kind-specific fields of a component.
// The set of variants is closed; PayloadFor maps each kind to its variant.
type Payload interface {
	clone() Payload
}

// TextPayload backs Text components.
type TextPayload struct {
	Text       string
	FontSize   float64
	TextColor  string
	TextAlign  string
	FontFamily string
	AutoSize   bool
}

// ButtonPayload backs TextButton and IconButton components.
type ButtonPayload struct {
	Text       string
	Icon       string
	NavigateTo string
	TextColor  string
	TextAlign  string
	FontSize   float64
	FontFamily string
}

// CheckboxPayload backs Checkbox components.
type CheckboxPayload struct {
	Checked      bool
	CheckColor   string
	ActiveColor  string
	BorderColor  string
	BorderWidth  float64
	BorderRadius float64
	Scale        float64
	CheckSize    float64
}

// DropdownPayload backs DropdownButton components.
type DropdownPayload struct {
	Options        []string
	SelectedOption string
}

// TextFieldPayload backs TextField components.
type TextFieldPayload struct {
	HintText           string
	Value              string
	InputType          string
	Enabled            bool
	BorderType         string
	FocusedBorderColor string
	LabelColor         string
	HintColor          string
	InputTextColor     string
	FontSize           float64
}

// AppBarPayload backs AppBar components.
type AppBarPayload struct {
	Title string
}

func (p *TextPayload) clone() Payload {
	copied := *p
	return &copied
}

func (p *ButtonPayload) clone() Payload {
	copied := *p
	return &copied
}

func (p *CheckboxPayload) clone() Payload {
	copied := *p
	return &copied
}

func (p *DropdownPayload) clone() Payload {
	copied := *p
	if p.Options != nil {
		copied.Options = append([]string(nil), p.Options...)
	}
	return &copied
}

func (p *TextFieldPayload) clone() Payload {
	copied := *p
	return &copied
}

func (p *AppBarPayload) clone() Payload {
	copied := *p
	return &copied
}

const (
	defaultCheckSize = 24.0
	defaultScale     = 1.0
	defaultFontSize  = 16.0
)

// PayloadFor returns the zero payload for kind, or nil for kinds without kind-specific fields.
func PayloadFor(kind Kind) Payload {
	switch kind {
	case KindText:
		return &TextPayload{FontSize: defaultFontSize}
	case KindTextButton, KindIconButton:
		return &ButtonPayload{}
	case KindCheckbox:
		return &CheckboxPayload{Scale: defaultScale, CheckSize: defaultCheckSize}
	case KindDropdownButton:
		return &DropdownPayload{Options: []string{}}
	case KindTextField:
		return &TextFieldPayload{Enabled: true}
	case KindAppBar:
		return &AppBarPayload{}
	default:
		return nil
	}
}

// CheckboxSize is the rendered edge length of a checkbox.
func (p *CheckboxPayload) CheckboxSize() float64 {
	checkSize := p.CheckSize
	if checkSize <= 0 {
		checkSize = defaultCheckSize
	}
	scale := p.Scale
	if scale <= 0 {
		scale = defaultScale
	}
	return checkSize * scale
}
