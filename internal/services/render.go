package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RenderService turns Markdown-like generated content into a downloadable PDF.
type RenderService struct {
	md goldmark.Markdown
}

func NewRenderService() *RenderService {
	return &RenderService{md: goldmark.New()}
}

// RenderPDF lays the content out as a simple A4 document: the title on top,
// headings bold and sized by level, list items bulleted, code monospaced.
func (s *RenderService) RenderPDF(title, content string) ([]byte, error) {
	source := []byte(content)
	root := s.md.Parser().Parse(text.NewReader(source))

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if title != "" {
		doc.SetFont("Helvetica", "B", 18)
		doc.MultiCell(0, 9, tr(title), "", "L", false)
		doc.Ln(4)
	}

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			size := 16.0 - float64(node.Level)
			if size < 10 {
				size = 10
			}
			doc.SetFont("Helvetica", "B", size)
			doc.MultiCell(0, 7, tr(string(node.Text(source))), "", "L", false)
			doc.Ln(2)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if _, inItem := node.Parent().(*ast.ListItem); inItem {
				return ast.WalkContinue, nil
			}
			doc.SetFont("Helvetica", "", 11)
			doc.MultiCell(0, 6, tr(string(node.Text(source))), "", "L", false)
			doc.Ln(2)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			doc.SetFont("Helvetica", "", 11)
			doc.MultiCell(0, 6, tr("- "+string(node.Text(source))), "", "L", false)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			writeCodeLines(doc, tr, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeCodeLines(doc, tr, node.Lines(), source)
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			doc.Ln(4)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("write pdf: %w", err)}
	}
	return buf.Bytes(), nil
}

func writeCodeLines(doc *fpdf.Fpdf, tr func(string) string, lines *text.Segments, source []byte) {
	doc.SetFont("Courier", "", 9)
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		doc.MultiCell(0, 5, tr(string(bytes.TrimRight(segment.Value(source), "\n"))), "", "L", false)
	}
	doc.Ln(2)
}
