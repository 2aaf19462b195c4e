package canvas

import "errors"

var (
	// ErrInvalidAlignment indicates an alignment outside the nine anchors.
	ErrInvalidAlignment = errors.New("canvas: invalid alignment")
	// ErrInvalidChildrenLayout indicates a flex mode other than row or column.
	ErrInvalidChildrenLayout = errors.New("canvas: invalid children layout")
	// ErrUnknownProperty indicates a property path outside the supported set.
	ErrUnknownProperty = errors.New("canvas: unknown property")
	// ErrDuplicateProperty indicates one update naming the same path twice, e.g. as a
	// dotted key and as a nested object.
	ErrDuplicateProperty = errors.New("canvas: duplicate property")
	// ErrPropertyNotApplicable indicates a payload property sent to a kind that does not carry it.
	ErrPropertyNotApplicable = errors.New("canvas: property not applicable")
	// ErrInvalidPropertyValue indicates a value that cannot be coerced to the property type.
	ErrInvalidPropertyValue = errors.New("canvas: invalid property value")
	// ErrUnknownKind indicates a widget kind missing from the catalog.
	ErrUnknownKind = errors.New("canvas: unknown widget kind")
	// ErrPageNotFound indicates that a page is not part of the document.
	ErrPageNotFound = errors.New("canvas: page not found")
	// ErrComponentNotFound indicates that a component is not part of the document.
	ErrComponentNotFound = errors.New("canvas: component not found")
)
