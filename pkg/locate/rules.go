package locate

// Kind is a class of subresource that can be toggled on or off.
type Kind uint8

// Resource kinds.
const (
	KindImage Kind = iota + 1
	KindStylesheet
	KindScript
	KindInlineStyle
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindStylesheet:
		return "stylesheet"
	case KindScript:
		return "script"
	case KindInlineStyle:
		return "inline-style"
	default:
		return "unknown"
	}
}

// Kinds is the set of enabled resource kinds.
type Kinds struct {
	Images       bool
	Stylesheets  bool
	Scripts      bool
	InlineStyles bool
}

// AllKinds enables every kind.
func AllKinds() Kinds {
	return Kinds{Images: true, Stylesheets: true, Scripts: true, InlineStyles: true}
}

// Enabled reports whether k is in the set.
func (ks Kinds) Enabled(k Kind) bool {
	switch k {
	case KindImage:
		return ks.Images
	case KindStylesheet:
		return ks.Stylesheets
	case KindScript:
		return ks.Scripts
	case KindInlineStyle:
		return ks.InlineStyles
	}
	return false
}

// Any reports whether at least one kind is enabled.
func (ks Kinds) Any() bool {
	return ks.Images || ks.Stylesheets || ks.Scripts || ks.InlineStyles
}

// Format describes how an attribute value holds its URLs.
type Format uint8

const (
	// Single is an attribute holding exactly one URL.
	Single Format = iota
	// SrcSet is a comma separated list of "url descriptor" candidates.
	SrcSet
	// StyleURLs is inline CSS with zero or more url(...) tokens.
	StyleURLs
)

// AnyTag matches every element.
const AnyTag = "*"

// Rule binds one tag.attribute pair to the kind it governs.
type Rule struct {
	Kind   Kind
	Tag    string
	Attr   string
	Format Format
}

// DefaultRules is the kind to attribute table used by Locate.
var DefaultRules = []Rule{
	{Kind: KindImage, Tag: "img", Attr: "src"},
	{Kind: KindImage, Tag: "img", Attr: "data-src"},
	{Kind: KindImage, Tag: "source", Attr: "src"},
	{Kind: KindImage, Tag: "source", Attr: "srcset", Format: SrcSet},
	{Kind: KindStylesheet, Tag: "link", Attr: "href"},
	{Kind: KindScript, Tag: "script", Attr: "src"},
	{Kind: KindInlineStyle, Tag: AnyTag, Attr: "style", Format: StyleURLs},
}
