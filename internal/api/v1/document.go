// Package apiv1 loads and checks the OpenAPI description of the public API.
package apiv1

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// DocumentPath is the served OpenAPI document, relative to the project root.
const DocumentPath = "public/docs/v1/openapi.yml"

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

// LoadDocument parses and validates the OpenAPI document at path.
func LoadDocument(ctx context.Context, path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return doc, nil
}

// Operations lists the documented operations as "METHOD /path", with path
// parameters written the way fiber routes declare them (":id").
func Operations(doc *openapi3.T) []string {
	var ops []string
	if doc == nil || doc.Paths == nil {
		return ops
	}
	for path, item := range doc.Paths.Map() {
		route := pathParam.ReplaceAllString(path, ":$1")
		for method := range item.Operations() {
			ops = append(ops, method+" "+route)
		}
	}
	sort.Strings(ops)
	return ops
}
