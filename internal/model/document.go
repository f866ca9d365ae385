package model

import "sort"

// ImageState is the lifecycle state of an ImagePlaceholder (spec §4.10).
type ImageState string

const (
	ImageNew              ImageState = "new"
	ImageExtracted        ImageState = "extracted"
	ImageFilteredOut      ImageState = "filtered_out"
	ImageAssociated       ImageState = "associated"
	ImageOCRPending       ImageState = "ocr_pending"
	ImageTextExtracted    ImageState = "text_extracted"
	ImageNoText           ImageState = "no_text"
	ImageCaptionLinked    ImageState = "caption_linked"
	ImageUnlinked         ImageState = "unlinked"
	ImageEmbeddedInDoc    ImageState = "embedded_in_document"
)

// IsTerminal reports whether a state is one of the lifecycle's terminal
// states (spec §4.10).
func (s ImageState) IsTerminal() bool {
	return s == ImageFilteredOut || s == ImageEmbeddedInDoc
}

// TaskState is the lifecycle state of a TranslationTask (spec §4.10).
type TaskState string

const (
	TaskCreated            TaskState = "created"
	TaskQueued             TaskState = "queued"
	TaskCacheHit           TaskState = "cache_hit"
	TaskDispatched         TaskState = "dispatched"
	TaskSuccess            TaskState = "success"
	TaskCached             TaskState = "cached"
	TaskTimeout            TaskState = "timeout"
	TaskError              TaskState = "error"
	TaskFallbackOriginal   TaskState = "fallback_original"
	TaskDone               TaskState = "done"
)

// Document is the ordered sequence of ContentBlocks produced for one PDF,
// plus document-level metadata (spec §3).
type Document struct {
	Title      string
	SourcePath string
	TotalPages int
	ToC        []ToCEntry
	Blocks     []ContentBlock
}

// SortBlocks enforces the global ordering invariant: blocks are ordered by
// (page_num ascending, reading_order_position ascending).
func (d *Document) SortBlocks() {
	sort.SliceStable(d.Blocks, func(i, j int) bool {
		a, b := d.Blocks[i], d.Blocks[j]
		if a.PageNum != b.PageNum {
			return a.PageNum < b.PageNum
		}
		return a.ReadingOrderPosition < b.ReadingOrderPosition
	})
}

// EmptyDocumentWithError returns the degenerate Document spec §4.11
// prescribes when the whole pipeline yields zero blocks: a single
// Metadata(artifact) block carrying the error text.
func EmptyDocumentWithError(sourcePath, errMsg string) Document {
	return Document{
		SourcePath: sourcePath,
		Blocks: []ContentBlock{
			{
				BlockID:   NewBlockID(),
				BlockType: BlockMetadata,
				PageNum:   1,
				Payload: Metadata{
					Content:      "error=" + errMsg,
					MetadataType: MetadataArtifact,
				},
			},
		},
	}
}

// ToCEntry is one node of the reconciled table of contents (spec §3).
type ToCEntry struct {
	Title      string
	Page       int
	Level      int // 1..6
	Source     ToCSource
	Confidence float64
}

// ToCSource identifies which extraction pass produced a ToCEntry.
type ToCSource string

const (
	ToCSourceTocPageDots     ToCSource = "toc_page_dots"
	ToCSourceTocPageNumbered ToCSource = "toc_page_numbered"
	ToCSourceTocPageChapter  ToCSource = "toc_page_chapter"
	ToCSourceHeadingStruct   ToCSource = "heading_structure"
	ToCSourceContentAnalysis ToCSource = "content_analysis"
)

// Region is an intermediate, pre-block extraction candidate (spec §3).
type Region struct {
	RegionID   string
	Kind       RegionKind
	BBox       BBox
	PageNum    int
	SourcePath string
	Confidence float64
	OCRText    string
	FileSizeMB float64
}

// RegionKind enumerates the kinds of region the Image/Region Extractor
// produces.
type RegionKind string

const (
	RegionRasterImage     RegionKind = "raster_image"
	RegionDetectedTable   RegionKind = "detected_table"
	RegionDetectedEquation RegionKind = "detected_equation"
	RegionVisualArea      RegionKind = "visual_area"
)

// NewRegionID mints a globally unique region identifier.
func NewRegionID() string { return NewBlockID() }

// TranslationTask is one unit of translatable work submitted to the
// orchestrator (spec §3).
type TranslationTask struct {
	TaskID        string
	Text          string
	TargetLang    string
	ItemType      string
	Priority      int // 1, 2, or 3 -- lower value means higher priority
	ContextBefore string
	ContextAfter  string
	State         TaskState
}

// CacheEntry is one persisted translation (spec §3).
type CacheEntry struct {
	OriginalText         string
	TranslatedText       string
	TargetLanguage       string
	ModelName            string
	ContextFingerprint   string
	SimilarityFingerprint string
	Timestamp            int64 // unix seconds
	UsageCount           int
	QualityScore         float64
}
