package apidoc

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

var timeType = reflect.TypeOf(time.Time{})

// schemaRegistry turns Go values into schemas, storing named structs as
// components so each appears once.
type schemaRegistry struct {
	components openapi3.Schemas
	names      map[reflect.Type]string
	taken      map[string]reflect.Type
}

func newSchemaRegistry(components openapi3.Schemas) *schemaRegistry {
	return &schemaRegistry{
		components: components,
		names:      make(map[reflect.Type]string),
		taken:      make(map[string]reflect.Type),
	}
}

func (r *schemaRegistry) ref(example any) *openapi3.SchemaRef {
	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return r.typeRef(reflect.TypeOf(example))
}

func (r *schemaRegistry) typeRef(t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		return r.typeRef(t.Elem())
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().WithMin(0).NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = r.typeRef(t.Elem())
		return schema.NewRef()
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: r.typeRef(t.Elem())}
		return schema.NewRef()
	case reflect.Struct:
		return r.structRef(t)
	default:
		// interfaces carry any JSON value
		return (&openapi3.Schema{}).NewRef()
	}
}

func (r *schemaRegistry) structRef(t reflect.Type) *openapi3.SchemaRef {
	if t == timeType {
		return openapi3.NewDateTimeSchema().NewRef()
	}
	if t.Name() == "" {
		return r.structSchema(t).NewRef()
	}

	if name, ok := r.names[t]; ok {
		return openapi3.NewSchemaRef("#/components/schemas/"+name, r.components[name].Value)
	}

	name := t.Name()
	for i := 2; r.taken[name] != nil; i++ {
		name = t.Name() + strconv.Itoa(i)
	}
	r.names[t] = name
	r.taken[name] = t

	// registered before the fields so self references resolve
	placeholder := openapi3.NewObjectSchema()
	r.components[name] = placeholder.NewRef()
	*placeholder = *r.structSchema(t)

	return openapi3.NewSchemaRef("#/components/schemas/"+name, placeholder)
}

func (r *schemaRegistry) structSchema(t reflect.Type) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = make(openapi3.Schemas)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if field.Anonymous && name == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				inner := r.structSchema(embedded)
				for prop, ref := range inner.Properties {
					schema.Properties[prop] = ref
				}
				schema.Required = append(schema.Required, inner.Required...)
				continue
			}
		}

		if name == "" {
			name = field.Name
		}

		prop := r.typeRef(field.Type)
		if doc := field.Tag.Get("doc"); doc != "" && prop.Ref == "" {
			prop.Value.Description = doc
		}
		schema.Properties[name] = prop

		if !strings.Contains(opts, "omitempty") && field.Type.Kind() != reflect.Pointer {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}
