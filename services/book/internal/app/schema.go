package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"gopkg.in/yaml.v3"

	"bookshelf/api"
	"bookshelf/pkg/domain"
)

const schemaBaseURL = "https://bookshelf.local/schemas/"

type bookPayload struct {
	Author     *string `json:"author"`
	Title      *string `json:"title"`
	ReadStatus *string `json:"read_status"`
	ISBN       *string `json:"isbn"`
}

// Schema checks inbound book payloads against the BookCreate and BookUpdate
// schemas of the OpenAPI document.
type Schema struct {
	create *jsonschema.Schema
	update *jsonschema.Schema
}

// NewSchema compiles the payload schemas from api/openapi.yaml.
func NewSchema() (*Schema, error) {
	var doc struct {
		Components struct {
			Schemas map[string]any `yaml:"schemas"`
		} `yaml:"components"`
	}
	if err := yaml.Unmarshal(api.OpenAPI, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	c := jsonschema.NewCompiler()
	compile := func(name string) (*jsonschema.Schema, error) {
		raw, ok := doc.Components.Schemas[name]
		if !ok {
			return nil, fmt.Errorf("schema %q missing from openapi document", name)
		}
		url := schemaBaseURL + name + ".json"
		if err := c.AddResource(url, raw); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		return sch, nil
	}
	create, err := compile("BookCreate")
	if err != nil {
		return nil, err
	}
	update, err := compile("BookUpdate")
	if err != nil {
		return nil, err
	}
	return &Schema{create: create, update: update}, nil
}

// ValidateCreate checks a create payload: a JSON object holding only known
// string properties, author and title present, read_status in the enum.
func (s *Schema) ValidateCreate(raw []byte) (domain.NewBook, error) {
	p, err := decode(s.create, raw)
	if err != nil {
		return domain.NewBook{}, err
	}
	return domain.NewBook{
		Author:     *p.Author,
		Title:      *p.Title,
		ReadStatus: toStatus(p.ReadStatus),
		ISBN:       p.ISBN,
	}, nil
}

// ValidateUpdate applies the create constraints without required fields.
// An empty object is a valid no-op patch.
func (s *Schema) ValidateUpdate(raw []byte) (domain.BookPatch, error) {
	p, err := decode(s.update, raw)
	if err != nil {
		return domain.BookPatch{}, err
	}
	return domain.BookPatch{
		Author:     p.Author,
		Title:      p.Title,
		ReadStatus: toStatus(p.ReadStatus),
		ISBN:       p.ISBN,
	}, nil
}

func decode(sch *jsonschema.Schema, raw []byte) (bookPayload, error) {
	var p bookPayload
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return p, newValidationError("", "payload must be a JSON object")
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return p, newValidationError("", err.Error())
		}
		return p, firstViolation(verr)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, newValidationError("", "payload must be a JSON object")
	}
	return p, nil
}

// Violations rank in the order they are reported: shape of the payload,
// unknown keys, value types, missing keys, enum values.
const (
	rankObject = iota
	rankAdditional
	rankType
	rankRequired
	rankEnum
	rankOther
)

type violation struct {
	rank  int
	field string
	msg   string
}

func firstViolation(verr *jsonschema.ValidationError) *ValidationError {
	found := collectViolations(verr, nil)
	if len(found) == 0 {
		return newValidationError("", verr.Error())
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].rank != found[j].rank {
			return found[i].rank < found[j].rank
		}
		return found[i].field < found[j].field
	})
	return newValidationError(found[0].field, found[0].msg)
}

func collectViolations(e *jsonschema.ValidationError, out []violation) []violation {
	if len(e.Causes) > 0 {
		for _, c := range e.Causes {
			out = collectViolations(c, out)
		}
		return out
	}
	field := ""
	if len(e.InstanceLocation) > 0 {
		field = e.InstanceLocation[0]
	}
	switch k := e.ErrorKind.(type) {
	case *kind.Type:
		if field == "" {
			return append(out, violation{rank: rankObject, msg: "payload must be a JSON object"})
		}
		return append(out, violation{
			rank:  rankType,
			field: field,
			msg:   fmt.Sprintf("%q must be a %s", field, strings.Join(k.Want, " or ")),
		})
	case *kind.AdditionalProperties:
		for _, p := range k.Properties {
			out = append(out, violation{rank: rankAdditional, field: p, msg: fmt.Sprintf("additional property %q is not allowed", p)})
		}
		return out
	case *kind.Required:
		for _, m := range k.Missing {
			out = append(out, violation{rank: rankRequired, field: m, msg: fmt.Sprintf("%q is required", m)})
		}
		return out
	case *kind.Enum:
		want := make([]string, 0, len(k.Want))
		for _, w := range k.Want {
			want = append(want, fmt.Sprint(w))
		}
		return append(out, violation{
			rank:  rankEnum,
			field: field,
			msg:   fmt.Sprintf("%q must be one of [%s]", field, strings.Join(want, " ")),
		})
	default:
		return append(out, violation{rank: rankOther, field: field, msg: e.Error()})
	}
}

func toStatus(s *string) *domain.ReadStatus {
	if s == nil {
		return nil
	}
	rs := domain.ReadStatus(*s)
	return &rs
}
