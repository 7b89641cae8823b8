package apidoc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

// BearerScheme is the security scheme name used by authenticated operations.
const BearerScheme = "bearerAuth"

// Document builds an OpenAPI 3 description of the HTTP API.
type Document struct {
	mu      sync.RWMutex
	spec    *openapi3.T
	schemas *schemaRegistry
	errRef  *openapi3.SchemaRef
}

func New(title, version string) *Document {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   title,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas:         make(openapi3.Schemas),
			SecuritySchemes: make(openapi3.SecuritySchemes),
		},
	}

	return &Document{
		spec:    spec,
		schemas: newSchemaRegistry(spec.Components.Schemas),
	}
}

func (d *Document) Description(desc string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Info.Description = desc
	return d
}

func (d *Document) Server(url, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Servers = append(d.spec.Servers, &openapi3.Server{URL: url, Description: description})
	return d
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return d
}

// BearerAuth registers the JWT bearer scheme referenced by Operation.Secured.
func (d *Document) BearerAuth(description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Components.SecuritySchemes[BearerScheme] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  description,
		},
	}
	return d
}

// ErrorBody sets the schema used for every operation's default response.
func (d *Document) ErrorBody(example any) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errRef = d.schemas.ref(example)
	return d
}

func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

func (d *Document) Validate(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if err := d.spec.Validate(ctx); err != nil {
		return fmt.Errorf("invalid API document: %w", err)
	}
	return nil
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare API document: %w", err)
	}
	return yaml.Marshal(intermediate)
}

func (d *Document) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.JSON()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render API document").SetInternal(err)
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (d *Document) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.YAML()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render API document").SetInternal(err)
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

// Route starts describing the operation served at an echo style path.
func (d *Document) Route(method, path string) *Operation {
	op := &Operation{
		doc:    d,
		method: strings.ToUpper(method),
		path:   toOpenAPIPath(path),
		op:     &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
	op.pathParams(path)
	return op
}

func (d *Document) add(method, path string, op *openapi3.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.errRef != nil {
		desc := "Error"
		op.Responses.Set("default", &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(d.errRef),
		}})
	}

	item := d.spec.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		d.spec.Paths.Set(path, item)
	}
	item.SetOperation(method, op)
}

func toOpenAPIPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}
