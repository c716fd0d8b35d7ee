package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestScanDiscoversSQLFunction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "greet.sql", `/*
---
type: sql_function
name: greet_user
return_shape: string
arguments:
  user_id: string
---
*/
select name from users where id = :user_id
`)

	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 1 {
		t.Fatalf("got %d functions, want 1 (diagnostics: %v)", len(result.Functions), result.Diagnostics)
	}
	fn := result.Functions[0]
	if fn.Type != "sql_function" {
		t.Fatalf("got type %q, want sql_function", fn.Type)
	}
	if fn.SQL.Name != "greet_user" {
		t.Fatalf("got name %q, want greet_user", fn.SQL.Name)
	}
}

func TestScanDiscoversTemplateFunction(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "welcome.md", `---
type: template_function
name: welcome_message
return_shape: string
arguments:
  user_name: string
---
Hello, {{ args.user_name }}!
`)

	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 1 {
		t.Fatalf("got %d functions, want 1 (diagnostics: %v)", len(result.Functions), result.Diagnostics)
	}
	if result.Functions[0].Template.Name != "welcome_message" {
		t.Fatalf("got name %q, want welcome_message", result.Functions[0].Template.Name)
	}
}

func TestScanSkipsFilesWithoutMagicMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.md", "# Just a readme, not a function\n")

	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 0 {
		t.Fatalf("expected no functions discovered, got %d", len(result.Functions))
	}
}

func TestScanFlagsInvalidName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.sql", `/*
---
type: sql_function
name: "123-bad"
return_shape: string
---
*/
select 1
`)
	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 0 {
		t.Fatalf("expected the invalid name to be rejected, got %d functions", len(result.Functions))
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.ErrorCode == "ERR_INVALID_NAME" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERR_INVALID_NAME diagnostic, got %v", result.Diagnostics)
	}
}

func TestScanFlagsReservedName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reload.sql", `/*
---
type: sql_function
name: reload
return_shape: string
---
*/
select 1
`)
	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 0 {
		t.Fatalf("expected the reserved name to be rejected")
	}
}

func TestScanFlagsDuplicateNameFirstWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", `/*
---
type: sql_function
name: dup_name
return_shape: string
---
*/
select 1
`)
	writeFile(t, dir, "b.sql", `/*
---
type: sql_function
name: dup_name
return_shape: string
---
*/
select 2
`)
	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 1 {
		t.Fatalf("got %d functions, want exactly one to win the duplicate", len(result.Functions))
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.ErrorCode == "ERR_DUPLICATE_NAME" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERR_DUPLICATE_NAME diagnostic")
	}
}

func TestScanWarnsOnNameProximity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sql", `/*
---
type: sql_function
name: fetch_user
return_shape: string
---
*/
select 1
`)
	writeFile(t, dir, "b.sql", `/*
---
type: sql_function
name: fetch-user
return_shape: string
---
*/
select 2
`)
	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 2 {
		t.Fatalf("got %d functions, want 2 (proximity is only a warning)", len(result.Functions))
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.ErrorCode == "WARN_NAME_PROXIMITY" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a WARN_NAME_PROXIMITY diagnostic")
	}
}

func TestScanMissingReturnShapeProducesParseFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.sql", `/*
---
type: sql_function
name: broken_fn
---
*/
select 1
`)
	result, err := Scan(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Functions) != 0 {
		t.Fatalf("expected no functions for missing return_shape")
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.ErrorCode == "ERR_PARSE_FAILURE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an ERR_PARSE_FAILURE diagnostic")
	}
}
