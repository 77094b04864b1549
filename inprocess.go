package pdfarena

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// docRow is one label/value line in the fixed in-process layout.
type docRow struct {
	Label string
	Value string
}

// docModel is the fixed layout skeleton shared by the in-process adapters:
// a title, labelled rows, free paragraphs, footer lines and any raster
// images that resolved. In-process writers take no markup — the model is
// constructed programmatically from the resolved fields.
type docModel struct {
	Title      string
	Rows       []docRow
	Paragraphs []string
	Footer     []string
	Images     []asset  // resolved raster images, ready to embed
	Notes      []string // skipped/missing asset reports
}

// buildDocModel assembles the document model for one render. Vector assets
// are never embedded by in-process writers (pre-conversion would be needed)
// and are reported as skipped; a missing raster asset places an inline error
// marker in the output and the build continues.
func buildDocModel(ctx context.Context, templates *templateResolver, assets *assetResolver, templateName string, req RenderRequest) (*docModel, error) {
	tpl, err := templates.Load(templateName)
	if err != nil {
		return nil, err
	}

	fields := req.Resolved()

	title := tpl.Meta.Title
	if title == "" {
		title = "Prescription Record"
	}

	m := &docModel{
		Title: title,
		Rows: []docRow{
			{"Patient", fields["patientName"]},
			{"Date of birth", fields["patientDOB"]},
			{"Issued", fields["issueDate"]},
			{"Medication", fields["medicationName"]},
			{"Dosage", fields["dosage"]},
			{"Frequency", fields["frequency"]},
			{"Duration", fields["duration"]},
			{"Refills", fields["refills"]},
		},
		Paragraphs: []string{fields["instructions"]},
		Footer: []string{
			fmt.Sprintf("Prescribed by %s (%s)", fields["prescriberName"], fields["prescriberID"]),
			"Dispensed at " + fields["pharmacyName"],
		},
	}

	for _, ref := range tpl.Meta.Images {
		if isVectorAsset(ref) {
			m.Notes = append(m.Notes, "skipped vector asset: "+ref+" (pre-conversion required)")
			continue
		}

		a := assets.Resolve(ctx, ref)
		if !a.Found() {
			m.Paragraphs = append(m.Paragraphs, "[missing asset: "+ref+"]")
			m.Notes = append(m.Notes, "missing asset: "+ref)
			continue
		}
		m.Images = append(m.Images, a)
	}

	return m, nil
}

// isVectorAsset reports whether the reference points at a vector image.
func isVectorAsset(ref string) bool {
	switch strings.ToLower(path.Ext(ref)) {
	case ".svg", ".eps", ".pdf":
		return true
	}
	return false
}
