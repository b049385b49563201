package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/tablemigrate/pkg/typemap"
)

// sampleTypes are declared source types shown in the mapping reference.
var sampleTypes = []string{
	"INTEGER", "BIGINT", "SMALLINT", "SERIAL",
	"VARCHAR(255)", "TEXT", "CHAR(10)", "CLOB",
	"REAL", "DOUBLE PRECISION", "FLOAT", "NUMERIC(10,2)", "DECIMAL",
	"BLOB", "BYTEA", "VARBINARY(16)",
	"BOOLEAN", "BOOL",
	"DATE", "TIMESTAMP", "JSON", "UUID",
}

// generateTypeDocs writes the type mapping reference.
func generateTypeDocs(outDir string) error {
	log.Printf("Generating type docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	dialects := make([]typemap.Dialect, 0, len(typemap.Names()))
	for _, name := range typemap.Names() {
		d, err := typemap.Lookup(name)
		if err != nil {
			return err
		}
		dialects = append(dialects, d)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Type Mapping", "How source column types are declared on each target backend")
	w.GeneratedMarker()

	w.Header(1, "Type Mapping")
	w.Paragraph("Each source column type is classified into a family by case-insensitive substring rules. " +
		"The first matching rule wins; types that match no rule are treated as text.")

	w.Header(2, "Families")
	headers := []string{"Family"}
	for _, d := range dialects {
		headers = append(headers, d.Name)
	}
	var familyRows [][]string
	for _, fam := range []string{"INTEGER", "TEXT", "REAL", "BLOB", "BOOLEAN"} {
		row := []string{InlineCode(typemap.Classify(fam).String())}
		for _, d := range dialects {
			row = append(row, InlineCode(typemap.Map(fam, d)))
		}
		familyRows = append(familyRows, row)
	}
	w.Table(headers, familyRows)

	w.Header(2, "Examples")
	headers = []string{"Source type", "Family"}
	for _, d := range dialects {
		headers = append(headers, d.Name)
	}
	var rows [][]string
	for _, src := range sampleTypes {
		row := []string{InlineCode(src), typemap.Classify(src).String()}
		for _, d := range dialects {
			row = append(row, InlineCode(typemap.Map(src, d)))
		}
		rows = append(rows, row)
	}
	w.Table(headers, rows)

	w.Header(2, "Identifiers and Parameters")
	var idRows [][]string
	for _, d := range dialects {
		idRows = append(idRows, []string{d.Name, InlineCode(d.QuoteIdent("my table")), InlineCode(d.FormatPlaceholder(1))})
	}
	w.Table([]string{"Dialect", "Quoted identifier", "First placeholder"}, idRows)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}
