package apidoc

import (
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type Operation struct {
	doc    *Document
	method string
	path   string
	op     *openapi3.Operation
}

// pathParams declares every :name segment as a required integer parameter.
func (o *Operation) pathParams(echoPath string) {
	for _, part := range strings.Split(echoPath, "/") {
		name, ok := strings.CutPrefix(part, ":")
		if !ok {
			continue
		}
		o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewIntegerSchema().WithMin(1)),
		})
	}
}

func (o *Operation) Summary(summary string) *Operation {
	o.op.Summary = summary
	return o
}

func (o *Operation) Description(description string) *Operation {
	o.op.Description = description
	return o
}

func (o *Operation) ID(id string) *Operation {
	o.op.OperationID = id
	return o
}

func (o *Operation) Tags(tags ...string) *Operation {
	o.op.Tags = append(o.op.Tags, tags...)
	return o
}

func (o *Operation) Query(name, description string, enum ...string) *Operation {
	schema := openapi3.NewStringSchema()
	if len(enum) > 0 {
		values := make([]any, len(enum))
		for i, v := range enum {
			values[i] = v
		}
		schema.WithEnum(values...)
	}
	o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(schema),
	})
	return o
}

func (o *Operation) QueryInt(name, description string) *Operation {
	o.op.Parameters = append(o.op.Parameters, &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(openapi3.NewIntegerSchema().WithMin(1)),
	})
	return o
}

// JSONBody documents a required JSON request body shaped like example.
func (o *Operation) JSONBody(example any, description string) *Operation {
	o.doc.mu.Lock()
	ref := o.doc.schemas.ref(example)
	o.doc.mu.Unlock()

	o.op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithDescription(description).
		WithRequired(true).
		WithJSONSchemaRef(ref)}
	return o
}

// FormField describes one part of a multipart body.
type FormField struct {
	Name        string
	Description string
	File        bool
	Required    bool
	Enum        []string
}

func (o *Operation) MultipartBody(description string, fields ...FormField) *Operation {
	schema := openapi3.NewObjectSchema()
	for _, f := range fields {
		prop := openapi3.NewStringSchema()
		if f.File {
			prop = openapi3.NewStringSchema().WithFormat("binary")
		}
		for _, v := range f.Enum {
			prop.Enum = append(prop.Enum, v)
		}
		prop.Description = f.Description
		schema.WithProperty(f.Name, prop)
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}

	o.op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithDescription(description).
		WithRequired(true).
		WithContent(openapi3.Content{
			"multipart/form-data": openapi3.NewMediaType().WithSchema(schema),
		})}
	return o
}

// Response documents a status. A nil example means the response has no body.
func (o *Operation) Response(status int, example any, description string) *Operation {
	resp := openapi3.NewResponse().WithDescription(description)
	if example != nil {
		o.doc.mu.Lock()
		ref := o.doc.schemas.ref(example)
		o.doc.mu.Unlock()
		resp.Content = openapi3.NewContentWithJSONSchemaRef(ref)
	}
	o.op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	return o
}

// Stream documents a text/event-stream response.
func (o *Operation) Stream(description string) *Operation {
	resp := openapi3.NewResponse().WithDescription(description)
	resp.Content = openapi3.Content{
		"text/event-stream": openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema()),
	}
	o.op.Responses.Set("200", &openapi3.ResponseRef{Value: resp})
	return o
}

func (o *Operation) Raw(status int, contentType, description string) *Operation {
	resp := openapi3.NewResponse().WithDescription(description)
	resp.Content = openapi3.Content{
		contentType: openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema()),
	}
	o.op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	return o
}

func (o *Operation) Secured() *Operation {
	o.op.Security = openapi3.NewSecurityRequirements().With(openapi3.NewSecurityRequirement().Authenticate(BearerScheme))
	return o
}

func (o *Operation) Add() {
	o.doc.add(o.method, o.path, o.op)
}
