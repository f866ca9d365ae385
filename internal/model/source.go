package model

// Span is one text run as reported by the host PDF parsing library (spec
// §6's `get_text_dict()` span shape). It is the unit the Page Geometry
// Analyzer, Spatial Reading Orderer, and Content Classifier all consume.
type Span struct {
	Text     string
	BBox     BBox
	FontName string
	FontSize float64
	Bold     bool
	Italic   bool
	Color    string
	Flags    int
	Page     int
}

// ImageRef is one embedded raster image as reported by the host PDF
// library's `get_images()` (spec §6).
type ImageRef struct {
	BBox   BBox
	Page   int
	Bytes  []byte
	Width  int
	Height int
	Path   string // populated once written to the output image directory
}

// PageContent is everything the Image/Region Extractor and Page Geometry
// Analyzer need from one page of the host PDF library.
type PageContent struct {
	PageNum      int
	Width        float64
	Height       float64
	Spans        []Span
	Images       []ImageRef
	DrawingCount int
}
