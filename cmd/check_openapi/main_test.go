package main

import (
	"strings"
	"testing"
)

func TestRepositoryOpenAPIDocPasses(t *testing.T) {
	doc, err := loadDoc("../../api/openapi.yaml")
	if err != nil {
		t.Fatalf("load doc: %v", err)
	}
	if err := check(doc); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheckDetectsDrift(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*openAPIDoc)
		wantErr string
	}{
		{
			name:    "missing operation",
			mutate:  func(d *openAPIDoc) { delete(d.Paths["/books/{id}"], "put") },
			wantErr: "PUT /books/{id}",
		},
		{
			name: "extra book property",
			mutate: func(d *openAPIDoc) {
				d.Components.Schemas["Book"].Properties["rating"] = schema{Type: "string"}
			},
			wantErr: "Book properties",
		},
		{
			name: "status enum drift",
			mutate: func(d *openAPIDoc) {
				s := d.Components.Schemas["BookCreate"]
				p := s.Properties["read_status"]
				p.Enum = []string{"read"}
				s.Properties["read_status"] = p
			},
			wantErr: "BookCreate.read_status",
		},
		{
			name: "open payload",
			mutate: func(d *openAPIDoc) {
				s := d.Components.Schemas["BookUpdate"]
				s.AdditionalProperties = nil
				d.Components.Schemas["BookUpdate"] = s
			},
			wantErr: "additionalProperties",
		},
		{
			name: "error code optional",
			mutate: func(d *openAPIDoc) {
				s := d.Components.Schemas["ErrorResponse"]
				s.Required = []string{"error"}
				d.Components.Schemas["ErrorResponse"] = s
			},
			wantErr: `"code"`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := loadDoc("../../api/openapi.yaml")
			if err != nil {
				t.Fatalf("load doc: %v", err)
			}
			tc.mutate(&doc)
			err = check(doc)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("check error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}
