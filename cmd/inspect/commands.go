package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ai-docfill-be/pkg/docx"
	"ai-docfill-be/pkg/placeholder"
	"ai-docfill-be/pkg/prompt"
	"ai-docfill-be/pkg/render"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	valuesPath string
	outPath    string
	promptsDir string
)

var placeholdersCmd = &cobra.Command{
	Use:   "placeholders FILE",
	Short: "List the placeholders of a document in the order they are asked",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaceholders,
}

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Convert and fill a document with values from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the document types with an instruction file",
	Args:  cobra.NoArgs,
	RunE:  runPrompts,
}

func init() {
	renderCmd.Flags().StringVar(&valuesPath, "values", "", "JSON file mapping placeholder names to values")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "filled.docx", "output path")
	_ = renderCmd.MarkFlagRequired("values")

	promptsCmd.Flags().StringVar(&promptsDir, "dir", "prompts", "instruction directory")
}

// openConverted opens path and converts its bracket placeholders in memory.
func openConverted(path string) (*docx.Document, []string, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return nil, nil, err
	}

	texts, err := doc.Texts()
	if err != nil {
		return nil, nil, err
	}

	if _, err := doc.MapText(func(text string) (string, error) {
		return placeholder.Convert(text), nil
	}); err != nil {
		return nil, nil, err
	}
	return doc, texts, nil
}

func runPlaceholders(cmd *cobra.Command, args []string) error {
	doc, original, err := openConverted(args[0])
	if err != nil {
		return err
	}
	converted, err := doc.Texts()
	if err != nil {
		return err
	}

	heading("Paragraphs with placeholders")
	highlight := color.New(color.FgMagenta, color.Bold).SprintFunc()
	found := 0
	for i, text := range original {
		if text == converted[i] {
			continue
		}
		found++
		plain("  %3d  %s", i+1, text)
		plain("       %s", placeholder.TokenPattern.ReplaceAllStringFunc(converted[i], func(tok string) string {
			return highlight(tok)
		}))
	}
	if found == 0 {
		warn("  none")
	}

	names := placeholder.Extract(converted...)
	heading("\nFields (%d)", len(names))
	for i, name := range names {
		plain("  %2d. %s", i+1, name)
	}
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, _, err := openConverted(args[0])
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(valuesPath)
	if err != nil {
		return err
	}
	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("%s: %w", valuesPath, err)
	}

	result, err := render.NewRenderer().RenderDocument(doc, values)
	if err != nil {
		return err
	}
	if err := doc.Save(outPath); err != nil {
		return err
	}

	ok("Wrote %s (%d paragraphs rendered)", outPath, result.Paragraphs)
	if len(result.Missing) > 0 {
		warn("No value for: %s", strings.Join(result.Missing, ", "))
	}
	return nil
}

func runPrompts(cmd *cobra.Command, args []string) error {
	registry := prompt.NewRegistry(promptsDir)
	types, err := registry.List()
	if err != nil {
		return err
	}

	heading("Document types in %s", promptsDir)
	if len(types) == 0 {
		warn("  none, every request uses the fallback instruction")
		return nil
	}
	for _, t := range types {
		first, _, _ := strings.Cut(strings.TrimSpace(registry.Load(t)), "\n")
		plain("  %-12s %s", t, first)
	}
	return nil
}
