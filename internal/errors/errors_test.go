package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/isr"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{name: "config", code: "V101", wantMsg: "Configuration file not found", wantCat: CategoryConfig},
		{name: "route", code: "V121", wantMsg: "Duplicate route", wantCat: CategoryRoute},
		{name: "cache", code: "V140", wantMsg: "Page generation timed out", wantCat: CategoryCache},
		{name: "cli", code: "V160", wantMsg: "Unknown export target", wantCat: CategoryCLI},
		{name: "unknown", code: "V999", wantMsg: "Unknown error", wantCat: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	if got := New("V103").Error(); got != "V103: Invalid port" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&Error{Message: "plain"}).Error(); got != "plain" {
		t.Errorf("Error() = %q", got)
	}
	wrapped := New("V100").Wrap(os.ErrPermission)
	if !strings.HasSuffix(wrapped.Error(), os.ErrPermission.Error()) {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !stderrors.Is(wrapped, os.ErrPermission) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown flag %q", "--x")
	if err.Message != `unknown flag "--x"` || err.Category != CategoryCLI {
		t.Errorf("Newf = %+v", err)
	}
}

func TestWithLocationFromYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "verdant.yaml")
	content := "port: 8080\nproduction: true\n  bad: indent\napiBase: /api\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var v map[string]any
	yamlErr := yaml.Unmarshal([]byte(content), &v)
	if yamlErr == nil {
		t.Fatal("expected yaml error")
	}

	err := New("V102").WithLocationFromYAML(file, yamlErr)
	if err.Location == nil {
		t.Fatalf("no location extracted from %q", yamlErr)
	}
	if err.Location.File != file || err.Location.Line < 1 {
		t.Errorf("Location = %+v", err.Location)
	}
	if len(err.Context) == 0 {
		t.Error("Context should not be empty")
	}

	untouched := New("V102").WithLocationFromYAML(file, stderrors.New("no position here"))
	if untouched.Location != nil {
		t.Errorf("Location = %+v, want nil", untouched.Location)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "V100") != nil {
		t.Error("nil should stay nil")
	}
	orig := New("V103")
	if FromError(orig, "V100") != orig {
		t.Error("*Error should pass through")
	}
	wrapped := FromError(stderrors.New("boom"), "V162")
	if wrapped.Code != "V162" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("page /a: %w", router.ErrDuplicatePattern), "V121"},
		{fmt.Errorf("page /a: %w", router.ErrCatchAllNotLast), "V120"},
		{fmt.Errorf("api: %w", api.ErrAmbiguousParams), "V122"},
		{fmt.Errorf("api: %w", api.ErrDuplicateMethod), "V124"},
		{fmt.Errorf("page: %w", page.ErrInvalidWindow), "V123"},
		{fmt.Errorf("page: %w", page.ErrNoRenderer), "V125"},
		{fmt.Errorf("export: %w", isr.ErrTimeout), "V140"},
		{stderrors.New("something else"), "V141"},
		{New("V105"), "V105"},
	}
	for _, tt := range tests {
		if got := Classify(tt.err, "V141"); got.Code != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.err, got.Code, tt.want)
		}
	}
	if Classify(nil, "V141") != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestLocationString(t *testing.T) {
	var nilLoc *Location
	if nilLoc.String() != "" {
		t.Error("nil location should be empty")
	}
	if got := (&Location{File: "verdant.yaml", Line: 3}).String(); got != "verdant.yaml:3" {
		t.Errorf("String() = %q", got)
	}
	if got := (&Location{File: "a.go", Line: 3, Column: 7}).String(); got != "a.go:3:7" {
		t.Errorf("String() = %q", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("V105").WithSuggestion("Set VERDANT_REVALIDATE_SECRET").Wrap(stderrors.New("secret empty"))
	out := err.Format()
	for _, want := range []string{
		"ERROR V105: Revalidation secret not set",
		"Hint: Set VERDANT_REVALIDATE_SECRET",
		"Cause: secret empty",
		"Learn more: https://verdant.dev/docs/errors/V105",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("V102").WithDetail("bad indent")
	err.Location = &Location{File: "verdant.yaml", Line: 3}

	var got map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &got); e != nil {
		t.Fatalf("invalid JSON: %v", e)
	}
	if got["code"] != "V102" || got["category"] != "config" || got["detail"] != "bad indent" {
		t.Errorf("FormatJSON = %v", got)
	}
	loc, ok := got["location"].(map[string]any)
	if !ok || loc["file"] != "verdant.yaml" {
		t.Errorf("location = %v", got["location"])
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 || codes[0] != "V100" {
		t.Errorf("GetAllCodes() = %v", codes)
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Category == "" || tmpl.Message == "" || !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("incomplete template %s: %+v", code, tmpl)
		}
	}

	Register("V999", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	defer delete(registry, "V999")
	if New("V999").Message != "Custom" {
		t.Error("registered template not used")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 {
		t.Errorf("short: %v", got)
	}
	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("long: %v", got)
	}
	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("empty: %v", got)
	}
}
