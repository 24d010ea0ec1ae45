package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"bookshelf/pkg/domain"
)

type openAPIDoc struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type                 string            `yaml:"type"`
	Ref                  string            `yaml:"$ref"`
	Properties           map[string]schema `yaml:"properties"`
	Required             []string          `yaml:"required"`
	Items                *schema           `yaml:"items"`
	Enum                 []string          `yaml:"enum"`
	AdditionalProperties *bool             `yaml:"additionalProperties"`
}

// operations served by the book router.
var operations = map[string][]string{
	"/":           {"get"},
	"/healthz":    {"get"},
	"/books":      {"get", "post"},
	"/books/{id}": {"get", "put", "delete"},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	doc, err := loadDoc(os.Args[1])
	if err != nil {
		exitErr(err)
	}
	if err := check(doc); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func check(doc openAPIDoc) error {
	if err := validatePaths(doc); err != nil {
		return err
	}
	book, err := getSchema(doc, "Book")
	if err != nil {
		return err
	}
	if err := validateBook(book); err != nil {
		return err
	}
	for name, required := range map[string][]string{
		"BookCreate": {"author", "title"},
		"BookUpdate": nil,
	} {
		s, err := getSchema(doc, name)
		if err != nil {
			return err
		}
		if err := validatePayload(name, s, book, required); err != nil {
			return err
		}
	}
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	return validateErrorResponse(errResp)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validatePaths(doc openAPIDoc) error {
	for path, methods := range operations {
		item, ok := doc.Paths[path]
		if !ok {
			return fmt.Errorf("path %q missing", path)
		}
		for _, method := range methods {
			if _, ok := item[method]; !ok {
				return fmt.Errorf("operation %s %s missing", strings.ToUpper(method), path)
			}
		}
	}
	return nil
}

// wireFields returns the JSON names of domain.WireBook and which of them are
// always present.
func wireFields() (names []string, required []string) {
	t := reflect.TypeOf(domain.WireBook{})
	for i := 0; i < t.NumField(); i++ {
		name, opts, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
		if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}
	sort.Strings(names)
	sort.Strings(required)
	return names, required
}

func validateBook(s schema) error {
	if s.Type != "object" {
		return errors.New("Book must be object")
	}
	names, required := wireFields()
	if got := sortedKeys(s.Properties); !equal(got, names) {
		return fmt.Errorf("Book properties %v do not match wire fields %v", got, names)
	}
	if got := sorted(s.Required); !equal(got, required) {
		return fmt.Errorf("Book.required %v does not match wire fields %v", got, required)
	}
	for name, prop := range s.Properties {
		if prop.Type != "string" {
			return fmt.Errorf("Book.%s must be string", name)
		}
	}
	return validateStatusEnum("Book", s)
}

func validatePayload(name string, s, book schema, required []string) error {
	if s.Type != "object" {
		return fmt.Errorf("%s must be object", name)
	}
	if s.AdditionalProperties == nil || *s.AdditionalProperties {
		return fmt.Errorf("%s must set additionalProperties: false", name)
	}
	want := make([]string, 0, len(book.Properties))
	for key := range book.Properties {
		if key != "id" {
			want = append(want, key)
		}
	}
	sort.Strings(want)
	if got := sortedKeys(s.Properties); !equal(got, want) {
		return fmt.Errorf("%s properties %v, want %v", name, got, want)
	}
	if got := sorted(s.Required); !equal(got, sorted(required)) {
		return fmt.Errorf("%s.required %v, want %v", name, got, required)
	}
	return validateStatusEnum(name, s)
}

func validateStatusEnum(scope string, s schema) error {
	want := make([]string, 0, len(domain.ReadStatuses))
	for _, status := range domain.ReadStatuses {
		want = append(want, string(status))
	}
	if got := s.Properties["read_status"].Enum; !equal(sorted(got), sorted(want)) {
		return fmt.Errorf("%s.read_status enum %v, want %v", scope, got, want)
	}
	return nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"error", "code"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
	}
	for _, field := range []string{"error", "code", "requestId"} {
		prop, ok := s.Properties[field]
		if !ok || prop.Type != "string" {
			return fmt.Errorf("ErrorResponse.%s must be string", field)
		}
	}
	return nil
}

func sortedKeys(m map[string]schema) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sorted(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func equal(a, b []string) bool {
	return strings.Join(a, ",") == strings.Join(b, ",")
}

func makeSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "OpenAPI consistency check failed: %v\n", err)
	os.Exit(1)
}
