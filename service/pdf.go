package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emhgit/pdf-voice-assistant/model"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFService parses uploaded PDFs: interactive form fields via pdfcpu's form
// export, page text via ledongthuc/pdf. Both operations are stateless and
// never mutate the input buffer.
type PDFService struct{}

func NewPDFService() *PDFService {
	return &PDFService{}
}

// formExport mirrors the JSON document produced by pdfcpu's form export.
// Fields are grouped by widget type; within a group they follow the document.
type formExport struct {
	Forms []struct {
		TextFields  []formValueField  `json:"textfield"`
		DateFields  []formValueField  `json:"datefield"`
		CheckBoxes  []formCheckBox    `json:"checkbox"`
		RadioGroups []formValueField  `json:"radiobuttongroup"`
		ComboBoxes  []formValueField  `json:"combobox"`
		ListBoxes   []formListBox     `json:"listbox"`
	} `json:"forms"`
}

type formValueField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type formCheckBox struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type formListBox struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ExtractFields returns every interactive form field of the PDF with its
// name, a type tag (text, checkbox, choice) and whether its current value is
// empty. A valid PDF without an interactive form yields an empty list, not an
// error.
func (s *PDFService) ExtractFields(pdfBytes []byte) ([]model.PdfField, error) {
	if err := api.Validate(bytes.NewReader(pdfBytes), nil); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := api.ExportFormJSON(bytes.NewReader(pdfBytes), &buf, "", nil); err != nil {
		// The document validated above, so an export failure means there is
		// no AcroForm to read.
		slog.Debug("PDF has no extractable form", "error", err)
		return []model.PdfField{}, nil
	}

	return parseFormExport(buf.Bytes())
}

// parseFormExport maps pdfcpu's form export JSON onto the field descriptors
// served by GET /api/pdf/fields.
func parseFormExport(data []byte) ([]model.PdfField, error) {
	var export formExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse form export: %w", err)
	}

	fields := []model.PdfField{}
	for _, form := range export.Forms {
		for _, f := range form.TextFields {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeText, IsEmpty: f.Value == ""})
		}
		for _, f := range form.DateFields {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeText, IsEmpty: f.Value == ""})
		}
		for _, f := range form.CheckBoxes {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeCheckbox, IsEmpty: !f.Value})
		}
		for _, f := range form.RadioGroups {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeChoice, IsEmpty: f.Value == ""})
		}
		for _, f := range form.ComboBoxes {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeChoice, IsEmpty: f.Value == ""})
		}
		for _, f := range form.ListBoxes {
			fields = append(fields, model.PdfField{Name: f.Name, Type: model.FieldTypeChoice, IsEmpty: len(f.Values) == 0})
		}
	}

	return fields, nil
}

// ExtractText concatenates the extracted text of every page: words within a
// page joined by single spaces, pages joined by a newline. Any parse failure
// fails the whole operation; there is no partial-text fallback.
func (s *PDFService) ExtractText(pdfBytes []byte) (text string, err error) {
	// The underlying parser panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to parse PDF content: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		var words []string
		for _, row := range rows {
			for _, word := range row.Content {
				if w := strings.TrimSpace(word.S); w != "" {
					words = append(words, w)
				}
			}
		}
		pages = append(pages, strings.Join(words, " "))
	}

	return strings.Join(pages, "\n"), nil
}
