package document

import (
	"archive/zip"
	"bytes"
	"context"
	"embed"
	"text/template"

	"github.com/leasegen/backend/internal/domain/lease"
)

//go:embed templates/*.tmpl
var templates embed.FS

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DocxRenderer writes a minimal Office Open XML word-processing package.
type DocxRenderer struct {
	body *template.Template
}

func NewDocxRenderer() (*DocxRenderer, error) {
	tmpl, err := template.New("document.xml.tmpl").
		Funcs(template.FuncMap{"x": xmlEscape, "inc": inc}).
		ParseFS(templates, "templates/document.xml.tmpl")
	if err != nil {
		return nil, newRenderError(ErrCodeTemplate, "parse docx template", err)
	}
	return &DocxRenderer{body: tmpl}, nil
}

func (r *DocxRenderer) Render(ctx context.Context, doc *lease.Output) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newRenderError(ErrCodeRenderTimeout, "docx rendering was cancelled", err)
	}

	var body bytes.Buffer
	if err := r.body.Execute(&body, newView(doc)); err != nil {
		return nil, newRenderError(ErrCodeTemplate, "fill docx template", err)
	}

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/document.xml", body.Bytes()},
	}
	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Deflate})
		if err != nil {
			return nil, newRenderError(ErrCodeRenderFailed, "create docx part "+part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, newRenderError(ErrCodeRenderFailed, "write docx part "+part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, newRenderError(ErrCodeRenderFailed, "finish docx package", err)
	}
	return out.Bytes(), nil
}

func (r *DocxRenderer) ContentType() string { return docxContentType }

func (r *DocxRenderer) Extension() string { return FormatDocx }

func inc(i int) int { return i + 1 }
