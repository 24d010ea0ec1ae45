// Package api holds the published OpenAPI document for the books service.
package api

import _ "embed"

// OpenAPI is the raw api/openapi.yaml document.
//
//go:embed openapi.yaml
var OpenAPI []byte
