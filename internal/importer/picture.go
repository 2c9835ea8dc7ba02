package importer

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FocuswithJustin/ScriptureImport/core/scripture"
	"github.com/FocuswithJustin/ScriptureImport/core/tss"
	"github.com/FocuswithJustin/ScriptureImport/internal/logging"
	"github.com/FocuswithJustin/ScriptureImport/internal/segment"
	"github.com/FocuswithJustin/ScriptureImport/internal/styles"
)

// pictureFields accumulates the markers describing one picture. The picture
// is emitted when the first marker that is not a picture field arrives.
type pictureFields struct {
	set         bool
	filename    string
	caption     string
	copyright   string
	description string
	layoutPos   string
	refRange    string
	scale       string
	btCaption   map[string]string
	btCopyright map[string]string
}

func (f *pictureFields) add(t styles.Target, text string) {
	f.set = true
	switch t {
	case styles.TargetFigureFilename:
		f.filename = text
	case styles.TargetFigureCaption:
		f.caption = text
	case styles.TargetFigureCopyright:
		f.copyright = text
	case styles.TargetFigureDescription:
		f.description = text
	case styles.TargetFigureLayoutPos:
		f.layoutPos = text
	case styles.TargetFigureRefRange:
		f.refRange = text
	case styles.TargetFigureScale:
		f.scale = text
	}
}

func (f *pictureFields) addBT(t styles.Target, ws, text string) bool {
	var m *map[string]string
	switch t {
	case styles.TargetFigureCaption:
		m = &f.btCaption
	case styles.TargetFigureCopyright:
		m = &f.btCopyright
	default:
		return false
	}
	if *m == nil {
		*m = map[string]string{}
	}
	(*m)[ws] = text
	f.set = true
	return true
}

func textPara(style, text, ws string, bt map[string]string) *scripture.Paragraph {
	if text == "" && len(bt) == 0 {
		return nil
	}
	p := scripture.NewParagraph(style, tss.Plain(text, ws))
	for w, t := range bt {
		p.SetBackTranslation(w, tss.Plain(t, w))
	}
	return p
}

func (im *Importer) pictureField(seg segment.Segment, p *styles.Proxy, bt bool) {
	if im.skipPara {
		return
	}
	text := strings.TrimSpace(seg.Text)
	if !bt {
		if im.mode == modeWalker {
			logging.SegmentSkipped(im.log, seg.Marker, "vernacular picture field while attaching back translation")
			return
		}
		im.pic.add(p.Target, text)
		return
	}
	if !im.s.Settings.ImportBackTranslation {
		return
	}
	if !im.pic.addBT(p.Target, im.btWS(seg, p), text) {
		logging.SegmentSkipped(im.log, seg.Marker, "picture field has no back translation", zap.Stringer("target", p.Target))
	}
}

// emitPicture adds the accumulated picture to the book and anchors it in
// the current paragraph. When attaching to existing paragraphs the back
// translated fields go to the paragraph's next picture instead.
func (im *Importer) emitPicture() error {
	if !im.pic.set {
		return nil
	}
	f := im.pic
	im.pic = pictureFields{}

	if im.mode == modeWalker {
		an := im.aligner.Anchor()
		if an == nil {
			return nil
		}
		id, ok := an.NextPicture()
		pic := im.book.FindPicture(id)
		if !ok || pic == nil {
			logging.SegmentSkipped(im.log, `\cap`, "no picture in vernacular paragraph")
			return nil
		}
		for ws, t := range f.btCaption {
			if pic.Caption != nil {
				pic.Caption.SetBackTranslation(ws, tss.Plain(t, ws))
			}
		}
		for ws, t := range f.btCopyright {
			if pic.Copyright != nil {
				pic.Copyright.SetBackTranslation(ws, tss.Plain(t, ws))
			}
		}
		return nil
	}

	pic := &scripture.Picture{
		ID:          uuid.New(),
		Filename:    f.filename,
		Caption:     textPara(scripture.StyleCaption, f.caption, im.vernWS, f.btCaption),
		Copyright:   textPara(scripture.StyleFigureCopyright, f.copyright, im.vernWS, f.btCopyright),
		Description: f.description,
		LayoutPos:   f.layoutPos,
		RefRange:    f.refRange,
		Scale:       f.scale,
	}
	if err := im.ensurePara(); err != nil {
		return err
	}
	im.book.Pictures = append(im.book.Pictures, pic)
	im.para.AppendORC(tss.ObjPicture, pic.ID)
	im.log.Debug("picture added", zap.String("file", pic.Filename), zap.Stringer("ref", im.curRef))
	return nil
}
