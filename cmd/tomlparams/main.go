// Command tomlparams is the console entry point for the tomlparams
// library: it prints usage, reports the version, and copies the bundled
// example files into the working directory.
package main

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed examples
var examplesFS embed.FS

// Version is set via ldflags at build time.
var Version = "dev"

const usage = `TOMLParams

USAGE:
    tomlparams help      --- show this message
    tomlparams version   --- report version number
    tomlparams examples  --- copy the examples to ./tomlparams_examples
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "help", "--help", "-h":
		fmt.Print(usage)
	case "version", "--version", "-v":
		fmt.Println(Version)
	case "examples":
		return copyExamples("tomlparams_examples")
	default:
		fmt.Fprintf(os.Stderr, "*** Unknown command: %s\n\n%s", strings.Join(args, " "), usage)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return nil
}

// copyExamples writes the embedded example tree into destDir under the
// working directory.
func copyExamples(destDir string) error {
	dest, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}
	err = fs.WalkDir(examplesFS, "examples", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, "examples"), "/")
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := examplesFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return fmt.Errorf("copying examples: %w", err)
	}
	fmt.Printf("Examples copied to %s.\n", dest)
	return nil
}
