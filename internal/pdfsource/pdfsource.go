// Package pdfsource implements the external parse_pdf port (spec §6): it
// opens a PDF file and produces one model.PageContent per page, ready for
// the Page Geometry Analyzer, Spatial Reading Orderer, Content Classifier,
// and Image/Region Extractor to consume.
//
// It is grounded on the teacher's internal/pdf/parser.go ExtractText, which
// merges ledongthuc/pdf row content into text blocks and rejects
// PostScript-operator garbage left over in malformed content streams. Two
// differences from the teacher: the merged rows become model.Span values
// instead of a flat TextBlock, one Span per row rather than one block per
// document, and every Y coordinate is flipped from ledongthuc/pdf's
// bottom-left origin into this module's top-left, Y-down convention before
// it ever reaches downstream packages.
package pdfsource

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	pdfcpuapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ledongthuc/pdf"

	"latex-translator/internal/model"
)

// defaultPageWidth/defaultPageHeight are the US-Letter fallback dimensions
// used when a page's MediaBox cannot be read.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Config tunes the source adapter.
type Config struct {
	// ExtractImages controls whether embedded raster images are pulled via
	// pdfcpu in addition to text. Disabled in tests that only care about
	// text layout, since image extraction writes every image to a temp
	// directory and reads it back.
	ExtractImages bool
	ImageWorkDir  string
}

// DefaultConfig enables image extraction into the OS temp directory.
func DefaultConfig() Config {
	return Config{ExtractImages: true, ImageWorkDir: os.TempDir()}
}

// Source loads PDFs into the page-content shape the rest of the pipeline
// consumes.
type Source struct {
	cfg Config
}

// New returns a Source configured per cfg.
func New(cfg Config) *Source {
	return &Source{cfg: cfg}
}

// Load opens pdfPath and extracts every page's text spans (and, if enabled,
// embedded images) into model.PageContent.
func (s *Source) Load(pdfPath string) ([]model.PageContent, error) {
	if _, err := os.Stat(pdfPath); err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]model.PageContent, 0, total)

	var images map[int][]model.ImageRef
	if s.cfg.ExtractImages {
		images, err = s.extractImages(pdfPath, total)
		if err != nil {
			// Image extraction is best-effort: a scanned or malformed PDF
			// that pdfcpu can't parse still yields its text content.
			images = nil
		}
	}

	for pageNum := 1; pageNum <= total; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		width, height := pageDimensions(page)

		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}

		spans := make([]model.Span, 0, len(rows))
		for _, row := range rows {
			span, ok := mergeRow(row, pageNum, height)
			if !ok {
				continue
			}
			spans = append(spans, span)
		}

		pages = append(pages, model.PageContent{
			PageNum:      pageNum,
			Width:        width,
			Height:       height,
			Spans:        spans,
			Images:       images[pageNum],
			DrawingCount: len(images[pageNum]), // vector-path counting is not exposed by this library; raster presence is the available proxy
		})
	}

	return pages, nil
}

// mergeRow folds one ledongthuc/pdf text row into a single Span, the way
// the teacher folds a row into one TextBlock, then flips its Y coordinates
// into top-left, Y-down space.
func mergeRow(row pdf.Row, pageNum int, pageHeight float64) (model.Span, bool) {
	if len(row.Content) == 0 {
		return model.Span{}, false
	}

	var textBuilder strings.Builder
	var minX, maxX, minY, maxY float64
	var totalFontSize float64
	var fontName string
	var bold, italic bool
	first := true

	for _, text := range row.Content {
		if text.S == "" {
			continue
		}
		if isPostScriptCode(text.S) {
			continue
		}

		textBuilder.WriteString(text.S)

		if first {
			minX, maxX = text.X, text.X
			minY, maxY = text.Y, text.Y
			fontName = text.Font
			first = false
		} else {
			minX = min(minX, text.X)
			maxX = max(maxX, text.X)
			minY = min(minY, text.Y)
			maxY = max(maxY, text.Y)
		}

		totalFontSize += text.FontSize

		fontLower := strings.ToLower(text.Font)
		if strings.Contains(fontLower, "bold") {
			bold = true
		}
		if strings.Contains(fontLower, "italic") || strings.Contains(fontLower, "oblique") {
			italic = true
		}
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" || isPostScriptCode(text) || hasExcessiveNonPrintable(text) {
		return model.Span{}, false
	}

	avgFontSize := totalFontSize / float64(len(row.Content))
	if avgFontSize <= 0 {
		avgFontSize = 10.0
	}

	estimatedWidth := float64(len(text)) * avgFontSize * 0.5
	if actualWidth := maxX - minX + avgFontSize; actualWidth > estimatedWidth {
		estimatedWidth = actualWidth
	}
	estimatedHeight := avgFontSize * 1.2

	// ledongthuc/pdf reports Y from the page's bottom edge; flip to a
	// top-left origin so BBox.Y0 is this row's upper edge.
	y1 := pageHeight - minY
	y0 := y1 - estimatedHeight
	if flippedTop := pageHeight - maxY; flippedTop < y0 {
		y0 = flippedTop
	}

	return model.Span{
		Text:     text,
		BBox:     model.BBox{X0: minX, Y0: y0, X1: minX + estimatedWidth, Y1: y1},
		FontName: fontName,
		FontSize: avgFontSize,
		Bold:     bold,
		Italic:   italic,
		Page:     pageNum,
	}, true
}

// pageDimensions reads a page's MediaBox, falling back to US Letter when
// the box is absent or malformed.
func pageDimensions(page pdf.Page) (width, height float64) {
	box := page.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() < 4 {
		return defaultPageWidth, defaultPageHeight
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	w, h := x1-x0, y1-y0
	if w <= 0 || h <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return w, h
}

// extractImages calls pdfcpu to dump every page's embedded raster images to
// a temp directory, then reads them back without a bounding box (BBox stays
// zero): pdfcpu's extraction API reports image bytes per page but not their
// placement within the page, so downstream region extraction relies on its
// raster/aspect-ratio filters rather than precise overlap with text.
func (s *Source) extractImages(pdfPath string, totalPages int) (map[int][]model.ImageRef, error) {
	outDir, err := os.MkdirTemp(s.cfg.ImageWorkDir, "pdfsource-images-*")
	if err != nil {
		return nil, fmt.Errorf("create image extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := pdfcpuapi.ExtractImagesFile(pdfPath, outDir, nil, nil); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read image extraction dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make(map[int][]model.ImageRef)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		pageNum := pageNumFromImageName(name, totalPages)
		if pageNum == 0 {
			continue
		}
		data, err := os.ReadFile(outDir + "/" + name)
		if err != nil {
			continue
		}
		out[pageNum] = append(out[pageNum], model.ImageRef{
			Page:  pageNum,
			Bytes: data,
			Path:  name,
		})
	}
	return out, nil
}

// pageNumFromImageName recovers the source page number from pdfcpu's
// "<stem>_<page>_Im<n>.<ext>" extraction filename convention by scanning the
// underscore-separated parts from the end for the first page number in
// range, so stems that contain underscores still resolve. When no part
// qualifies it returns 1 for a single-page document and 0 otherwise.
func pageNumFromImageName(name string, totalPages int) int {
	parts := strings.Split(strings.TrimSuffix(name, extOf(name)), "_")
	for i := len(parts) - 1; i >= 0; i-- {
		n := atoiSafe(parts[i])
		if n >= 1 && n <= totalPages {
			return n
		}
	}
	if totalPages == 1 {
		return 1
	}
	return 0
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func atoiSafe(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// isPostScriptCode checks if text looks like PostScript/PDF operator code
// leaking out of a malformed content stream rather than real page text.
func isPostScriptCode(text string) bool {
	if len(text) == 0 {
		return false
	}
	textLower := strings.ToLower(text)

	if strings.Contains(text, " def ") || strings.HasSuffix(text, " def") {
		if strings.Contains(text, "/") {
			return true
		}
	}
	if strings.Contains(textLower, "null def") {
		return true
	}
	if strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	if strings.Contains(textLower, "/burl") || strings.Contains(textLower, "burl@") {
		return true
	}

	psSpecificPatterns := []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
		"moveto", "lineto", "curveto", "stroke", "fill",
	}
	for _, pattern := range psSpecificPatterns {
		if strings.Contains(textLower, pattern) {
			return true
		}
	}

	if !strings.Contains(text, "://") && !strings.Contains(textLower, "http") {
		slashNameCount := 0
		for _, word := range strings.Fields(text) {
			if len(word) > 1 && word[0] == '/' {
				isName := true
				for _, c := range word[1:] {
					if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '@') {
						isName = false
						break
					}
				}
				if isName {
					slashNameCount++
				}
			}
		}
		if slashNameCount >= 3 {
			return true
		}
	}

	return false
}

// hasExcessiveNonPrintable rejects text dominated by control characters,
// the signature of garbled font-encoding extraction rather than prose.
func hasExcessiveNonPrintable(text string) bool {
	if len(text) == 0 {
		return false
	}
	nonPrintable := 0
	for _, r := range text {
		if r < 32 && r != '\t' && r != '\n' {
			nonPrintable++
		} else if r == unicode.ReplacementChar {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len([]rune(text))) > 0.3
}
