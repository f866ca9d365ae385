// Package model defines the document, block, and region types shared across
// the extraction and translation pipeline.
package model

import "github.com/google/uuid"

// BlockType tags the variant carried by a ContentBlock's Payload.
type BlockType string

const (
	BlockHeading          BlockType = "heading"
	BlockParagraph        BlockType = "paragraph"
	BlockListItem         BlockType = "list_item"
	BlockTable            BlockType = "table"
	BlockCodeBlock        BlockType = "code_block"
	BlockEquation         BlockType = "equation"
	BlockCaption          BlockType = "caption"
	BlockImagePlaceholder BlockType = "image_placeholder"
	BlockMetadata         BlockType = "metadata"
)

// MetadataType distinguishes the kinds of non-content block the classifier
// can still choose to emit (artifacts, headers, footers, page numbers).
type MetadataType string

const (
	MetadataArtifact MetadataType = "artifact"
	MetadataHeader   MetadataType = "header"
	MetadataFooter   MetadataType = "footer"
	MetadataPageNum  MetadataType = "pagenum"
)

// SpatialRelationship describes where an image region sits relative to the
// text block it is bound to.
type SpatialRelationship string

const (
	RelBefore    SpatialRelationship = "before"
	RelAfter     SpatialRelationship = "after"
	RelAlongside SpatialRelationship = "alongside"
	RelWrapped   SpatialRelationship = "wrapped"
	RelStandalone SpatialRelationship = "standalone"
)

// BBox is an axis-aligned bounding box in page coordinates.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Area returns the box's area; zero for degenerate boxes.
func (b BBox) Area() float64 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CenterX returns the horizontal midpoint.
func (b BBox) CenterX() float64 { return (b.X0 + b.X1) / 2 }

// CenterY returns the vertical midpoint.
func (b BBox) CenterY() float64 { return (b.Y0 + b.Y1) / 2 }

// OverlapArea returns the area shared by two boxes, zero if disjoint.
func (b BBox) OverlapArea(o BBox) float64 {
	x0, y0 := max(b.X0, o.X0), max(b.Y0, o.Y0)
	x1, y1 := min(b.X1, o.X1), min(b.Y1, o.Y1)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	return (x1 - x0) * (y1 - y0)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Formatting carries the typographic attributes of a run of text.
type Formatting struct {
	FontName string
	FontSize float64
	IsBold   bool
	IsItalic bool
	Color    string
	Flags    int
}

// Payload is implemented by every block-type-specific variant. It exists so
// ContentBlock can behave as a tagged union: a type switch on Payload
// recovers the variant without a string-keyed map of optional fields.
type Payload interface {
	blockType() BlockType
}

// Heading is the payload for BlockHeading blocks.
type Heading struct {
	Level   int // 1..6
	Content string
}

func (Heading) blockType() BlockType { return BlockHeading }

// Paragraph is the payload for BlockParagraph blocks.
type Paragraph struct {
	Content string
}

func (Paragraph) blockType() BlockType { return BlockParagraph }

// ListItem is the payload for BlockListItem blocks.
type ListItem struct {
	Content     string
	MarkerStyle string
}

func (ListItem) blockType() BlockType { return BlockListItem }

// Table is the payload for BlockTable blocks.
type Table struct {
	MarkdownContent string
	RowCount        int
	ColumnCount     int
}

func (Table) blockType() BlockType { return BlockTable }

// CodeBlock is the payload for BlockCodeBlock blocks.
type CodeBlock struct {
	Content string
}

func (CodeBlock) blockType() BlockType { return BlockCodeBlock }

// Equation is the payload for BlockEquation blocks.
type Equation struct {
	Content string
}

func (Equation) blockType() BlockType { return BlockEquation }

// Caption is the payload for BlockCaption blocks.
type Caption struct {
	Content       string
	TargetBlockID string // empty when unbound
}

func (Caption) blockType() BlockType { return BlockCaption }

// ImagePlaceholder is the payload for BlockImagePlaceholder blocks.
type ImagePlaceholder struct {
	ImagePath           string
	Width               float64
	Height              float64
	OCRText             string
	CaptionBlockID      string // empty when unbound
	SpatialRelationship SpatialRelationship
	TranslationNeeded   bool
	State               ImageState
}

func (ImagePlaceholder) blockType() BlockType { return BlockImagePlaceholder }

// Metadata is the payload for BlockMetadata blocks (artifacts, running
// headers/footers, page numbers, or the zero-block error placeholder).
type Metadata struct {
	Content      string
	MetadataType MetadataType
}

func (Metadata) blockType() BlockType { return BlockMetadata }

// ContentBlock is one typed, ordered unit of a Document.
type ContentBlock struct {
	BlockID              string
	BlockType            BlockType
	PageNum              int
	BBox                 BBox
	BlockNum             int
	Formatting           Formatting
	ReadingOrderPosition int
	Payload              Payload
}

// NewBlockID mints a globally unique block identifier (spec §3 invariant).
func NewBlockID() string {
	return uuid.NewString()
}

// TextContent returns the translatable text carried by the block's payload,
// and whether the variant carries translatable text at all. Images, tables
// represented as markdown, and metadata blocks are handled by their own
// callers; this accessor is for the common "plain natural-language text"
// variants the Markup-Aware Translator and orchestrator operate on.
func (b *ContentBlock) TextContent() (string, bool) {
	switch p := b.Payload.(type) {
	case Heading:
		return p.Content, true
	case Paragraph:
		return p.Content, true
	case ListItem:
		return p.Content, true
	case CodeBlock:
		return p.Content, true
	case Caption:
		return p.Content, true
	default:
		return "", false
	}
}

// WithTextContent returns a copy of the block with its translatable text
// replaced, for variants TextContent recognizes. Unrecognized variants are
// returned unchanged.
func (b ContentBlock) WithTextContent(text string) ContentBlock {
	switch p := b.Payload.(type) {
	case Heading:
		p.Content = text
		b.Payload = p
	case Paragraph:
		p.Content = text
		b.Payload = p
	case ListItem:
		p.Content = text
		b.Payload = p
	case CodeBlock:
		p.Content = text
		b.Payload = p
	case Caption:
		p.Content = text
		b.Payload = p
	}
	return b
}
