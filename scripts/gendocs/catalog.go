package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapbind/pkg/catalog"
	"github.com/leapstack-labs/leapbind/pkg/core"
)

// generateCatalogDocs generates the builtin catalog reference.
func generateCatalogDocs(outDir string) error {
	log.Printf("Generating builtin catalog docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Join(outDir, "builtin-catalog.md")
	if err := os.WriteFile(filename, builtinCatalogDoc(catalog.MustBuiltin()), 0600); err != nil {
		return err
	}
	log.Printf("  Generated builtin-catalog.md")
	return nil
}

var modKindNames = map[core.ModKind]string{
	core.ModNone:      "-",
	core.ModLength:    "(n)",
	core.ModPadLength: "(n), blank padded",
	core.ModNumeric:   "(p,s)",
}

// builtinCatalogDoc renders the types, casts, operators and functions every
// catalog with "extends: builtin" starts from.
func builtinCatalogDoc(cat *catalog.Memory) []byte {
	w := NewMarkdownWriter()

	w.Frontmatter("Builtin Catalog", "Types, casts, operators and functions available to every catalog")
	w.GeneratedMarker()

	w.Header(1, "Builtin Catalog")
	w.Paragraph("A catalog definition with `extends: builtin` starts from everything listed here.")

	w.Header(2, "Types")
	var typeRows [][]string
	for _, t := range cat.Types() {
		integral := ""
		if t.Integral {
			integral = "yes"
		}
		typeRows = append(typeRows, []string{InlineCode(string(t.Tag)), t.Category.String(), modKindNames[t.Mod], integral})
	}
	w.Table([]string{"Type", "Category", "Modifier", "Integral"}, typeRows)

	w.Header(2, "Casts")
	w.Paragraph("Implicit casts are inserted by the binder; explicit casts need CAST or ::.")
	var castRows [][]string
	for _, c := range cat.Casts() {
		castRows = append(castRows, []string{InlineCode(string(c.Source)), InlineCode(string(c.Target)), c.Kind.String(), c.Method.String()})
	}
	w.Table([]string{"From", "To", "Kind", "Method"}, castRows)

	w.Header(2, "Operators")
	w.Table([]string{"Operator", "Arguments", "Result"}, signatureRows(cat.Operators()))

	w.Header(2, "Functions")
	w.Table([]string{"Function", "Arguments", "Result"}, signatureRows(cat.Functions()))

	return w.Bytes()
}

func signatureRows(sigs []core.Signature) [][]string {
	rows := make([][]string, 0, len(sigs))
	for _, s := range sigs {
		params := make([]string, len(s.Params))
		for i, p := range s.Params {
			params[i] = string(p)
		}
		rows = append(rows, []string{InlineCode(s.Name), "(" + strings.Join(params, ", ") + ")", InlineCode(string(s.Result))})
	}
	return rows
}
