// Package extract recovers plain text from uploaded and fetched content.
//
// Supported formats are PDF, plain text, markdown, HTML, remote transcripts
// and search snippets. PDFs are checked for the "%PDF-" signature before
// the structural parser runs, so a file that is not a PDF at all reports
// core.KindMalformedFormat while a PDF the parser cannot read reports
// core.KindExtractorFault. A readable PDF without a text layer, typically a
// scan, reports core.KindNoExtractableText.
//
// Basic usage:
//
//	e := extract.New()
//	text, err := e.Extract(ctx, core.RawInput{
//	    Data:     data,
//	    Filename: "paper.pdf",
//	    Format:   core.FormatPDF,
//	})
//	if core.IsKind(err, core.KindNoExtractableText) {
//	    // ask for a text version of the document
//	}
package extract
