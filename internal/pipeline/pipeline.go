// Package pipeline assembles the per-document flow the spec's §2 dataflow
// diagram names: parse_pdf → Page Geometry Analyzer → Content Classifier +
// Image/Region Extractor → Image↔Text Associator → ToC Reconciler →
// Translation Orchestrator (cache-first, then translate_text) → Document.
//
// It is grounded on the teacher's top-level orchestration in app.go
// (LoadPDF → TranslatePDF, driving parser/translator/generator in
// sequence) and TranslationEngine.TranslateTeXWithProgress's
// extract-then-translate-then-reassemble shape
// (internal/translator/translator.go), generalized from a single LaTeX
// document into the spec's per-page, per-block pipeline.
package pipeline

import (
	"context"
	"fmt"

	"latex-translator/internal/associate"
	"latex-translator/internal/cache"
	"latex-translator/internal/classifier"
	"latex-translator/internal/diagnostics"
	pipelineerrors "latex-translator/internal/errors"
	"latex-translator/internal/geometry"
	"latex-translator/internal/logger"
	"latex-translator/internal/markup"
	"latex-translator/internal/model"
	"latex-translator/internal/orchestrator"
	"latex-translator/internal/pdfsource"
	"latex-translator/internal/reading"
	"latex-translator/internal/region"
	"latex-translator/internal/toc"
)

// OCR is the narrow OCR collaborator the pipeline needs: recognize text in
// a raster region's bytes. internal/ocrapi.Client satisfies this.
type OCR interface {
	Recognize(imageData []byte) (string, error)
}

// Config bundles every sub-stage's tunables plus the pipeline-level
// settings spec §6 exposes.
type Config struct {
	TargetLanguage  string
	ImageOutputDir  string // where ImagePlaceholder.ImagePath is written
	ClassifierCfg   classifier.Config
	RegionCfg       region.Config
	AssociateCfg    associate.Config
	OrchestratorCfg orchestrator.Config
	CacheCfg        cache.Config
	CachePath       string
	JournalDir      string
}

// DefaultConfig returns the documented defaults for every sub-stage,
// targeting targetLanguage.
func DefaultConfig(targetLanguage string) Config {
	return Config{
		TargetLanguage:  targetLanguage,
		ClassifierCfg:   classifier.DefaultConfig(),
		RegionCfg:       region.DefaultConfig(),
		AssociateCfg:    associate.DefaultConfig(),
		OrchestratorCfg: orchestrator.DefaultConfig(),
		CacheCfg:        cache.DefaultConfig(),
	}
}

// taskPriority maps a block's item type to the spec §3 priority tier
// (1 = issued first). Headings carry the document's visible structure, so
// they are prioritized for fast user-visible feedback; captions are lowest
// urgency since they qualify a nearby image rather than carry primary
// content. This mapping is not spec-mandated (the spec leaves item-type
// weighting unspecified); it is this implementation's resolution of that
// open question.
func taskPriority(itemType string) int {
	switch itemType {
	case "heading":
		return 1
	case "caption":
		return 3
	default:
		return 2
	}
}

// Run executes the full pipeline for one PDF and returns the assembled,
// translated Document. It never returns an error for recoverable failures
// (spec §4.11/§7): extraction or translation problems degrade into
// diagnostics and, in the worst case, the single-block error Document.
func Run(ctx context.Context, pdfPath string, src *pdfsource.Source, translator orchestrator.Translator, ocr OCR, cfg Config) (model.Document, diagnostics.Counts) {
	diag := diagnostics.New()

	var journal *pipelineerrors.Journal
	if j, err := pipelineerrors.NewJournal(cfg.JournalDir); err == nil {
		journal = j
	} else {
		logger.Warn("could not open error journal, continuing without retry history", logger.Err(err))
	}

	pages, err := src.Load(pdfPath)
	if err != nil {
		logger.Error("pdf extraction failed", err, logger.String("path", pdfPath))
		if journal != nil {
			journal.Record(pdfPath, pipelineerrors.KindExtraction, err.Error())
		}
		return model.EmptyDocumentWithError(pdfPath, err.Error()), diag.Snapshot()
	}
	if len(pages) == 0 {
		return model.EmptyDocumentWithError(pdfPath, "no pages extracted"), diag.Snapshot()
	}

	sa := geometry.Analyze(pages)

	var blocks []model.ContentBlock
	var tocEntries []model.ToCEntry
	c, err := cache.New(cfg.CacheCfg, cfg.CachePath)
	if err != nil {
		logger.Warn("persistent cache unavailable, continuing with an empty in-memory cache", logger.Err(err))
		c, _ = cache.New(cfg.CacheCfg, "")
	}

	for _, page := range pages {
		pageBlocks, pageToCLines := processPage(page, sa, ocr, diag, cfg)
		blocks = append(blocks, pageBlocks...)

		tocInput := toc.PageInput{PageNum: page.PageNum, Lines: pageToCLines}
		if toc.IsTocPage(tocInput) {
			tocEntries = append(tocEntries, toc.ExtractFromTocPage(tocInput)...)
		}
	}

	tocEntries = append(tocEntries, toc.FromHeadings(blocks)...)
	tocEntries = toc.Reconcile(tocEntries)

	tasks, taskByID := buildTranslationTasks(blocks, cfg.TargetLanguage)
	rec := pipelineerrors.NewRecorder()
	results := orchestrator.Run(ctx, tasks, c, newMarkupTranslator(translator, tasks), diag, rec, cfg.OrchestratorCfg)
	applyTranslations(blocks, taskByID, results)

	if rec.Count() > 0 {
		logger.Warn("translation tasks fell back to original text",
			logger.Int("distinctFailures", rec.Count()))
		if journal != nil {
			for _, record := range rec.All() {
				journal.Record(record.ID, record.Kind, record.Message)
			}
		}
	}

	if err := c.Save(); err != nil {
		logger.Warn("failed to persist translation cache", logger.Err(err))
	}

	doc := model.Document{
		SourcePath: pdfPath,
		TotalPages: len(pages),
		ToC:        tocEntries,
		Blocks:     blocks,
	}
	doc.SortBlocks()

	if len(doc.Blocks) == 0 {
		if journal != nil {
			journal.Record(pdfPath, pipelineerrors.KindExtraction, "zero content blocks extracted")
		}
		return model.EmptyDocumentWithError(pdfPath, "zero content blocks extracted"), diag.Snapshot()
	}

	return doc, diag.Snapshot()
}

// processPage runs the Content Classifier and Image/Region Extractor over
// one page, associates surviving regions with nearby text, and returns the
// page's content blocks plus its lines for ToC scoring.
func processPage(page model.PageContent, sa geometry.StructureAnalysis, ocr OCR, diag *diagnostics.Summary, cfg Config) ([]model.ContentBlock, []toc.PageLine) {
	columns := sa.ColumnBoundsPerPage[page.PageNum]

	type classifiedSpan struct {
		span  model.Span
		block model.ContentBlock
	}
	var classified []classifiedSpan
	var lines []region.TextLine
	var pageLines []toc.PageLine
	var pageText string

	for _, span := range page.Spans {
		pageLines = append(pageLines, toc.PageLine{Text: span.Text})
		pageText += span.Text + "\n"
		lines = append(lines, region.TextLine{Text: span.Text, BBox: span.BBox})

		block, ok := classifier.Classify(span, sa, page.Height, cfg.ClassifierCfg)
		if !ok {
			continue
		}
		classified = append(classified, classifiedSpan{span: span, block: block})
	}

	extracted, stats := region.Extract(region.PageInput{
		PageNum:      page.PageNum,
		Width:        page.Width,
		Height:       page.Height,
		Images:       page.Images,
		Lines:        lines,
		DrawingCount: page.DrawingCount,
		PageText:     pageText,
	}, cfg.RegionCfg)
	diag.AddRegionsFiltered(stats.Filtered)
	diag.AddRegionsKept(stats.Kept)

	elements := make([]reading.Element, 0, len(classified)+len(extracted))
	for _, cs := range classified {
		elements = append(elements, reading.Element{BBox: cs.span.BBox, Page: page.PageNum, Height: cs.span.BBox.Height()})
	}
	imageStart := len(classified)
	for _, ex := range extracted {
		elements = append(elements, reading.Element{BBox: ex.Region.BBox, Page: page.PageNum, Height: ex.Region.BBox.Height()})
	}
	order := reading.Order(elements, columns)

	candidates := make([]associate.TextCandidate, 0, len(classified))
	for i, cs := range classified {
		text, hasText := cs.block.TextContent()
		if !hasText {
			continue
		}
		candidates = append(candidates, associate.TextCandidate{
			BlockID:              cs.block.BlockID,
			BBox:                 cs.span.BBox,
			Text:                 text,
			ReadingOrderPosition: order[i],
		})
	}

	blocks := make([]model.ContentBlock, 0, len(classified)+len(extracted))
	for i, cs := range classified {
		b := cs.block
		b.ReadingOrderPosition = order[i]
		blocks = append(blocks, b)
	}

	for i, ex := range extracted {
		assoc := associate.Associate(ex.Region, candidates, cfg.AssociateCfg)
		placeholder := model.ImagePlaceholder{
			ImagePath:           ex.Region.SourcePath,
			Width:               ex.Region.BBox.Width(),
			Height:              ex.Region.BBox.Height(),
			SpatialRelationship: assoc.SpatialRelationship,
			CaptionBlockID:      assoc.CaptionBlockID,
			TranslationNeeded:   assoc.HasCaption,
			State:               model.ImageAssociated,
		}

		// OCR only applies to regions traced back to an embedded raster
		// image's bytes; detected tables/equations/visual areas are
		// synthesized from text geometry and carry no image bytes to OCR.
		if ocr != nil && ex.Region.Kind == model.RegionRasterImage {
			if src, found := matchingImage(page.Images, ex.Region.BBox); found {
				placeholder.ImagePath = src.Path
				if text, err := ocr.Recognize(src.Bytes); err == nil && text != "" {
					placeholder.OCRText = text
					placeholder.State = model.ImageTextExtracted
				} else {
					placeholder.State = model.ImageNoText
				}
			}
		}

		blocks = append(blocks, model.ContentBlock{
			BlockID:              model.NewBlockID(),
			BlockType:            model.BlockImagePlaceholder,
			PageNum:              page.PageNum,
			BBox:                 ex.Region.BBox,
			ReadingOrderPosition: order[imageStart+i],
			Payload:              placeholder,
		})

		if assoc.CaptionBlockID != "" {
			linkCaption(blocks, assoc.CaptionBlockID, blocks[len(blocks)-1].BlockID)
		}
	}

	return blocks, pageLines
}

// matchingImage finds the source ImageRef a raster region's quality
// resolution kept, by exact bounding-box match (rasterPass copies the
// ImageRef's own BBox onto the Region it produces).
func matchingImage(images []model.ImageRef, bbox model.BBox) (model.ImageRef, bool) {
	for _, img := range images {
		if img.BBox == bbox {
			return img, true
		}
	}
	return model.ImageRef{}, false
}

// linkCaption sets a Caption payload's TargetBlockID once its bound image
// placeholder's BlockID is known.
func linkCaption(blocks []model.ContentBlock, captionBlockID, imageBlockID string) {
	for i := range blocks {
		if blocks[i].BlockID != captionBlockID {
			continue
		}
		if caption, ok := blocks[i].Payload.(model.Caption); ok {
			caption.TargetBlockID = imageBlockID
			blocks[i].Payload = caption
		}
		return
	}
}

// contextSnippetLen bounds the neighboring-block text carried as
// continuity context, per spec §4.7's "~200 chars" input contract.
const contextSnippetLen = 200

// buildTranslationTasks turns every text-bearing block into a
// TranslationTask, filling ContextBefore/ContextAfter from the immediately
// preceding/following blocks (empty when that neighbor has no text
// content), and returns a lookup from task
// ID back to the owning block's index so results can be written back in
// place.
func buildTranslationTasks(blocks []model.ContentBlock, targetLang string) ([]model.TranslationTask, map[string]int) {
	tasks := make([]model.TranslationTask, 0, len(blocks))
	byID := make(map[string]int, len(blocks))

	textOf := func(i int) string {
		if i < 0 || i >= len(blocks) {
			return ""
		}
		text, ok := blocks[i].TextContent()
		if !ok {
			return ""
		}
		return text
	}

	for i, b := range blocks {
		text, ok := b.TextContent()
		if !ok || text == "" {
			continue
		}
		taskID := fmt.Sprintf("%s:%s", b.BlockID, targetLang)
		tasks = append(tasks, model.TranslationTask{
			TaskID:        taskID,
			Text:          text,
			TargetLang:    targetLang,
			ItemType:      string(b.BlockType),
			Priority:      taskPriority(string(b.BlockType)),
			State:         model.TaskCreated,
			ContextBefore: trailingSnippet(textOf(i-1), contextSnippetLen),
			ContextAfter:  leadingSnippet(textOf(i+1), contextSnippetLen),
		})
		byID[taskID] = i
	}
	return tasks, byID
}

func trailingSnippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[len(text)-n:]
}

func leadingSnippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}

// markupTranslator adapts a plain translate_text collaborator into one
// that routes every call through the Markup-Aware Translator (spec
// §4.7), so headings, lists, inline code, and math spans survive
// translation intact regardless of which orchestrator task is in
// flight. Context is looked up by source text since the underlying
// Translator interface (shared with the orchestrator) carries no task
// identifier through the call.
type markupTranslator struct {
	underlying orchestrator.Translator
	contexts   map[string]markup.Context
}

func newMarkupTranslator(underlying orchestrator.Translator, tasks []model.TranslationTask) markupTranslator {
	contexts := make(map[string]markup.Context, len(tasks))
	for _, task := range tasks {
		contexts[task.Text] = markup.Context{Before: task.ContextBefore, After: task.ContextAfter}
	}
	return markupTranslator{underlying: underlying, contexts: contexts}
}

func (m markupTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	return markup.Translate(ctx, text, targetLang, m.contexts[text], m.underlying)
}

// applyTranslations writes each task's outcome back into its owning
// block.
func applyTranslations(blocks []model.ContentBlock, taskByID map[string]int, results []orchestrator.Result) {
	for _, r := range results {
		idx, ok := taskByID[r.Task.TaskID]
		if !ok {
			continue
		}
		blocks[idx] = blocks[idx].WithTextContent(r.TranslatedText)
	}
}
