// Package discovery walks a project root and turns SQL, template, and
// native source files into typed function/entity records plus diagnostics,
// per SPEC_FULL.md §4.3.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/model"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,63}$`)

// magicMarker is peeked from the first bytes of a candidate file to decide
// whether it declares a Brimley function at all; files without it are
// silently skipped (they may be ordinary project files that merely share
// an extension Brimley scans).
var magicMarkerPattern = regexp.MustCompile(`type:\s*\w+_function`)

const magicPeekBytes = 500

// extensionKind maps a scanned file extension to the parser flavor.
var extensionKind = map[string]string{
	".sql":  "sql",
	".md":   "template",
	".tmpl": "template",
	".go":   "native",
}

// ScanResult accumulates every function and entity record discovered under
// a root, plus diagnostics for files that failed validation or parsing.
type ScanResult struct {
	Functions   []model.Function
	Entities    []model.Entity
	Diagnostics []diag.Diagnostic
}

// Scan walks root, selects files by extension, peeks for the magic marker,
// delegates to the flavor-specific parser, and validates names. Per
// SPEC_FULL.md §4.3 this never returns an error for a single bad file —
// only for a root that cannot be walked at all.
func Scan(root string) (ScanResult, error) {
	var result ScanResult
	seenCanonical := make(map[string]string) // canonical name -> source path (first wins)
	seenFolded := make(map[string]string)    // folded name -> original name (proximity warnings)

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		kind, ok := extensionKind[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			result.Diagnostics = append(result.Diagnostics, diag.New(
				relPath, diag.ErrParseFailure, diag.SeverityError,
				fmt.Sprintf("could not read file: %v", readErr),
			))
			return nil
		}

		peek := content
		if len(peek) > magicPeekBytes {
			peek = peek[:magicPeekBytes]
		}
		if !magicMarkerPattern.Match(peek) {
			return nil // not a Brimley function file; silent skip
		}

		scanOneFile(&result, kind, relPath, string(content), seenCanonical, seenFolded)
		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("scan %s: %w", root, walkErr)
	}

	sort.Slice(result.Diagnostics, func(i, j int) bool {
		return result.Diagnostics[i].FilePath < result.Diagnostics[j].FilePath
	})
	return result, nil
}

func scanOneFile(result *ScanResult, kind, relPath, content string, seenCanonical, seenFolded map[string]string) {
	meta, body, ok, err := parseFrontmatter(content)
	if !ok || err != nil {
		msg := "no recognizable frontmatter block"
		if err != nil {
			msg = err.Error()
		}
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.ErrParseFailure, diag.SeverityError, msg,
		).WithSuggestion("add a `---`-delimited or `/* --- ... --- */` frontmatter block"))
		return
	}

	var fn model.Function
	var extraWarnings []diag.Diagnostic
	var parseErr error

	switch kind {
	case "sql":
		var f model.SQLFunction
		f, parseErr = parseSQLFunction(meta, body, relPath)
		fn = model.NewSQL(f)
	case "template":
		var f model.TemplateFunction
		f, parseErr = parseTemplateFunction(meta, body, relPath)
		fn = model.NewTemplate(f)
	case "native":
		var f model.NativeFunction
		f, extraWarnings, parseErr = parseNativeFunction(meta, body, relPath)
		fn = model.NewNative(f)
	default:
		return
	}

	if parseErr != nil {
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.ErrParseFailure, diag.SeverityError, parseErr.Error(),
		).WithSuggestion("check the frontmatter against the function record grammar"))
		return
	}

	common := fn.CommonFields()
	if !namePattern.MatchString(common.Name) {
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.ErrInvalidName, diag.SeverityError,
			fmt.Sprintf("name %q does not match ^[A-Za-z][A-Za-z0-9_-]{0,63}$", common.Name),
		))
		return
	}
	if model.IsReservedFunctionName(common.Name) {
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.ErrReservedName, diag.SeverityError,
			fmt.Sprintf("name %q is reserved", common.Name),
		))
		return
	}
	if firstPath, dup := seenCanonical[common.Name]; dup {
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.ErrDuplicateName, diag.SeverityError,
			fmt.Sprintf("name %q was already declared in %s (first wins)", common.Name, firstPath),
		))
		return
	}
	seenCanonical[common.Name] = relPath

	folded := foldName(common.Name)
	if original, collision := seenFolded[folded]; collision && original != common.Name {
		result.Diagnostics = append(result.Diagnostics, diag.New(
			relPath, diag.WarnNameProximity, diag.SeverityWarning,
			fmt.Sprintf("name %q is a near-collision with %q (case/separator folding)", common.Name, original),
		))
	} else if !collision {
		seenFolded[folded] = common.Name
	}

	result.Functions = append(result.Functions, fn)
	result.Diagnostics = append(result.Diagnostics, extraWarnings...)
}

// foldName normalizes a name for proximity comparison: lowercase with
// separators ('-', '_') stripped.
func foldName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.ReplaceAll(lower, "-", "")
	lower = strings.ReplaceAll(lower, "_", "")
	return lower
}
