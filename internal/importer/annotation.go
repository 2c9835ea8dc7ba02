package importer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
	"github.com/FocuswithJustin/ScriptureImport/internal/notes"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
)

// DefaultNoteType is used when neither the source nor the mapping names one.
const DefaultNoteType = "translator"

// annotation adds a note for seg at the reference in effect. Chapter and
// verse markers of an annotation file only move the reference.
func (im *Importer) annotation(seg segment.Segment, p *styles.Proxy) error {
	if p.Function == styles.FunctionChapter || p.Function == styles.FunctionVerse {
		if seg.LastRef.IsValid() {
			im.curRef = seg.LastRef
		} else if seg.FirstRef.IsValid() {
			im.curRef = seg.FirstRef
		}
		return nil
	}
	if !im.s.Settings.ImportAnnotations {
		return nil
	}

	ref := seg.FirstRef
	if ref == 0 {
		ref = im.curRef
	}
	if ref == 0 || !ref.IsValid() {
		logging.SegmentSkipped(im.log, seg.Marker, "annotation without a reference")
		return nil
	}
	end := seg.LastRef
	if end < ref {
		end = ref
	}

	text := strings.TrimSpace(seg.Text)
	if text == "" && seg.Quote == "" {
		return nil
	}
	typ := seg.NoteType
	if typ == "" {
		typ = p.NoteType
	}
	if typ == "" {
		typ = DefaultNoteType
	}
	cat := seg.Category
	if cat == "" {
		cat = p.Category
	}
	a := notes.Annotation{Type: typ, Begin: ref, End: end, Text: text, Quote: seg.Quote, WS: seg.WS}
	if cat != "" {
		a.Categories = []string{cat}
	}
	if _, added := im.s.Notes.Insert(a); added {
		im.log.Debug("annotation added", zap.Stringer("ref", ref), zap.String("type", typ))
	}
	return nil
}
