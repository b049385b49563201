package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/tablemigrate/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs generates CLI documentation from Cobra commands.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	// Create output directory
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Get root command
	rootCmd := cli.NewRootCmd()

	// Generate index page
	if err := generateCLIIndex(rootCmd, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	// Generate page for each command
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}

	return nil
}

// generateCLIIndex generates the CLI overview page.
func generateCLIIndex(rootCmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("CLI Reference", "Command-line interface reference for tablemigrate")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("tablemigrate copies a table from one database into another, creating the target table from the source schema.")

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/tablemigrate/cmd/tablemigrate@latest")

	w.Header(2, "Basic Usage")
	w.CodeBlock("bash", "tablemigrate <command> [options]")

	w.Header(2, "Commands")
	headers := []string{"Command", "Description"}
	var rows [][]string
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}
	w.Table(headers, rows)

	w.Header(2, "Global Options")
	w.Paragraph("These flags are available for all commands:")
	w.Table([]string{"Option", "Type", "Default", "Description", "Environment"}, flagRows(rootCmd.PersistentFlags(), true))

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set with the `TABLEMIGRATE_` prefix; a double underscore separates nested keys. " +
		"Besides the variables listed with the global options, endpoint fields can be set one by one:")
	var envRows [][]string
	for _, side := range []string{"SOURCE", "TARGET"} {
		for _, field := range []string{"PATH", "URI", "USER", "PASSWORD", "DRIVER"} {
			envRows = append(envRows, []string{
				InlineCode("TABLEMIGRATE_" + side + "__" + field),
				strings.ToLower(side) + "." + strings.ToLower(field),
			})
		}
	}
	w.Table([]string{"Variable", "Config key"}, envRows)
	w.Paragraph("Command-line flags take precedence over environment variables, which take precedence over the config file.")

	w.Header(2, "Exit Codes")
	exitRows := [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error (check stderr for details)"},
	}
	w.Table([]string{"Code", "Meaning"}, exitRows)

	w.Header(2, "Getting Help")
	w.CodeBlock("bash", `# General help
tablemigrate --help

# Command-specific help
tablemigrate migrate --help`)

	filename := filepath.Join(outDir, "index.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateCommandPage documents one top-level command. Subcommands are
// rendered as sections of the same page.
func generateCommandPage(cmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	w.Paragraph(description(cmd))
	writeCommandBody(w, cmd, 2)

	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" {
			continue
		}
		w.Header(2, cmd.Name()+" "+sub.Name())
		w.Paragraph(description(sub))
		writeCommandBody(w, sub, 3)
	}

	w.Paragraph("Global options are listed in the [CLI reference](/cli/).")

	filename := filepath.Join(outDir, cmd.Name()+".md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// writeCommandBody writes usage, local options and examples at the given heading level.
func writeCommandBody(w *MarkdownWriter, cmd *cobra.Command, level int) {
	if cmd.Runnable() {
		w.Header(level, "Usage")
		w.CodeBlock("bash", strings.TrimSuffix(cmd.UseLine(), " [flags]"))
	}

	if rows := flagRows(cmd.LocalNonPersistentFlags(), false); len(rows) > 0 {
		w.Header(level, "Options")
		w.Table([]string{"Option", "Type", "Default", "Description"}, rows)
	}

	if cmd.Example != "" {
		w.Header(level, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
}

func description(cmd *cobra.Command) string {
	if cmd.Long != "" {
		return cmd.Long
	}
	return cmd.Short
}

// flagRows lists visible flags. withEnv adds the environment variable that
// sets the same configuration key.
func flagRows(flags *pflag.FlagSet, withEnv bool) [][]string {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}

		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}

		def := f.DefValue
		if def != "" && def != "[]" && def != "0s" {
			def = InlineCode(def)
		} else {
			def = ""
		}

		row := []string{option, f.Value.Type(), def, cleanDescription(f.Usage)}
		if withEnv {
			env := ""
			if name := envVar(f.Name); name != "" {
				env = InlineCode(name)
			}
			row = append(row, env)
		}
		rows = append(rows, row)
	})
	return rows
}

// envVar maps a global flag to its TABLEMIGRATE_ variable. Flags that are
// not configuration keys map to "".
func envVar(flag string) string {
	key := strings.ReplaceAll(flag, "-", "_")
	switch flag {
	case "config", "source", "target":
		return ""
	case "state":
		key = "state_path"
	case "source-driver", "target-driver":
		key = strings.Replace(key, "_", "__", 1)
	}
	return "TABLEMIGRATE_" + strings.ToUpper(key)
}

// cleanExample removes common leading whitespace from example text.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	if minIndent <= 0 {
		return strings.TrimSpace(example)
	}

	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) >= minIndent {
			result = append(result, line[minIndent:])
		} else {
			result = append(result, strings.TrimLeft(line, " \t"))
		}
	}
	return strings.TrimSpace(strings.Join(result, "\n"))
}
