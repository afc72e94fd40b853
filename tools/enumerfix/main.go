// Package main rewrites enumer-generated files to build errors with
// cockroachdb/errors instead of fmt.
package main

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	minArgs         = 2
	filePermissions = 0o644
	errorsImport    = `"github.com/cockroachdb/errors"`
)

var importBlock = regexp.MustCompile(`import \(\n([\s\S]*?)\n\)`)

func main() {
	if len(os.Args) < minArgs {
		fmt.Fprintln(os.Stderr, "Usage: enumerfix <file>...")
		os.Exit(1)
	}

	failed := false

	for _, filename := range os.Args[1:] {
		changed, err := fixFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "enumerfix: %s: %v\n", filename, err)

			failed = true

			continue
		}

		if changed {
			fmt.Printf("enumerfix: rewrote %s\n", filename)
		}
	}

	if failed {
		os.Exit(1)
	}
}

// fixFile rewrites filename in place and reports whether it changed.
func fixFile(filename string) (bool, error) {
	//nolint:gosec // G304: file path from CLI argument is expected
	content, err := os.ReadFile(filename)
	if err != nil {
		return false, err
	}

	fixed := fixEnumerFile(content)
	if bytes.Equal(fixed, content) {
		return false, nil
	}

	return true, os.WriteFile(filename, fixed, filePermissions)
}

func fixEnumerFile(content []byte) []byte {
	result := strings.ReplaceAll(string(content), "fmt.Errorf", "errors.Newf")

	if !strings.Contains(result, "errors.Newf") {
		return []byte(result)
	}

	if usesFmt(result) {
		result = addImport(result, errorsImport)
	} else {
		result = replaceImport(result, `"fmt"`, errorsImport)
	}

	return []byte(result)
}

func usesFmt(content string) bool {
	for _, fn := range []string{"fmt.Sprintf", "fmt.Stringer", "fmt.Fprintf", "fmt.Printf"} {
		if strings.Contains(content, fn) {
			return true
		}
	}

	return false
}

func addImport(content, path string) string {
	match := importBlock.FindStringSubmatch(content)
	if match == nil || strings.Contains(match[1], path) {
		return content
	}

	return importBlock.ReplaceAllLiteralString(content, "import (\n"+match[1]+"\n\t"+path+"\n)")
}

func replaceImport(content, oldImport, newImport string) string {
	single := regexp.MustCompile(`import ` + regexp.QuoteMeta(oldImport))
	if single.MatchString(content) {
		return single.ReplaceAllLiteralString(content, "import "+newImport)
	}

	return strings.Replace(content, "\t"+oldImport, "\t"+newImport, 1)
}
