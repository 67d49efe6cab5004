package block

import "strings"

// Kind names a block type. Values match the document store's block type names.
type Kind string

const (
	KindHeading1  Kind = "heading_1"
	KindHeading2  Kind = "heading_2"
	KindHeading3  Kind = "heading_3"
	KindParagraph Kind = "paragraph"
	KindToggle    Kind = "toggle"
	KindBulleted  Kind = "bulleted_list_item"
	KindNumbered  Kind = "numbered_list_item"
	KindQuote     Kind = "quote"
	KindDivider   Kind = "divider"
	KindCallout   Kind = "callout"
	KindEmbed     Kind = "embed"
	KindBookmark  Kind = "bookmark"
	KindImage     Kind = "image"
	KindOther     Kind = "other"
)

// MaxToggleDepth is the deepest toggle nesting the document store accepts.
const MaxToggleDepth = 2

// ParseKind is lenient about the spellings template authors use.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "heading_1", "heading1", "h1":
		return KindHeading1
	case "heading_2", "heading2", "h2":
		return KindHeading2
	case "heading_3", "heading3", "h3":
		return KindHeading3
	case "paragraph", "text", "p":
		return KindParagraph
	case "toggle", "collapsible", "details":
		return KindToggle
	case "bulleted_list_item", "bullet", "list_item", "bulleted":
		return KindBulleted
	case "numbered_list_item", "numbered", "ordered":
		return KindNumbered
	case "quote":
		return KindQuote
	case "divider", "hr":
		return KindDivider
	case "callout":
		return KindCallout
	case "embed":
		return KindEmbed
	case "bookmark":
		return KindBookmark
	case "image":
		return KindImage
	default:
		return KindOther
	}
}

func (k Kind) IsHeading() bool {
	return k == KindHeading1 || k == KindHeading2 || k == KindHeading3
}

// HeadingLevel returns 1-3 for headings and 0 otherwise.
func (k Kind) HeadingLevel() int {
	switch k {
	case KindHeading1:
		return 1
	case KindHeading2:
		return 2
	case KindHeading3:
		return 3
	default:
		return 0
	}
}

// RichText is one annotated run of text.
type RichText struct {
	Content string `json:"content"`
	Bold    bool   `json:"bold,omitempty"`
	Italic  bool   `json:"italic,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Block is one renderable node of the output document (and of templates).
type Block struct {
	Kind     Kind       `json:"type"`
	RichText []RichText `json:"rich_text,omitempty"`
	URL      string     `json:"url,omitempty"`
	Icon     string     `json:"icon,omitempty"`
	Color    string     `json:"color,omitempty"`
	Children []Block    `json:"children,omitempty"`
}

// Text wraps s in a single plain run.
func Text(s string) []RichText {
	if s == "" {
		return nil
	}
	return []RichText{{Content: s}}
}

// PlainText concatenates the block's runs.
func (b Block) PlainText() string {
	var sb strings.Builder
	for _, rt := range b.RichText {
		sb.WriteString(rt.Content)
	}
	return sb.String()
}

func Paragraph(runs ...RichText) Block {
	return Block{Kind: KindParagraph, RichText: runs}
}

func Heading(level int, title string) Block {
	kind := KindHeading2
	switch {
	case level <= 1:
		kind = KindHeading1
	case level >= 3:
		kind = KindHeading3
	}
	return Block{Kind: kind, RichText: Text(title)}
}

func Bullet(runs ...RichText) Block {
	return Block{Kind: KindBulleted, RichText: runs}
}

func Numbered(runs ...RichText) Block {
	return Block{Kind: KindNumbered, RichText: runs}
}

func Toggle(title string, children []Block) Block {
	return Block{Kind: KindToggle, RichText: []RichText{{Content: title, Bold: true}}, Children: children}
}

func Callout(icon, color string, runs ...RichText) Block {
	return Block{Kind: KindCallout, Icon: icon, Color: color, RichText: runs}
}

func Divider() Block {
	return Block{Kind: KindDivider}
}

func Embed(url string) Block {
	return Block{Kind: KindEmbed, URL: url}
}

func Bookmark(url string) Block {
	return Block{Kind: KindBookmark, URL: url}
}

func Image(url string) Block {
	return Block{Kind: KindImage, URL: url}
}

// ToggleDepth returns the deepest toggle nesting in blocks.
// A toggle with no toggle children has depth 1.
func ToggleDepth(blocks []Block) int {
	deepest := 0
	for _, b := range blocks {
		d := ToggleDepth(b.Children)
		if b.Kind == KindToggle {
			d++
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}
