package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Generator derives a JSONSchema from a Go type using reflection.
type Generator struct {
	// visited tracks in-progress types to break recursion.
	visited map[reflect.Type]bool
}

// NewGenerator creates a new Generator instance.
func NewGenerator() *Generator {
	return &Generator{visited: make(map[reflect.Type]bool)}
}

// For is a convenience wrapper deriving the schema for type T.
func For[T any]() (*JSONSchema, error) {
	var zero T
	return NewGenerator().Generate(reflect.TypeOf(zero))
}

// Generate derives a JSON Schema from a Go type. It supports structs,
// slices, maps, pointers and primitive types. Struct fields may carry a
// "json" tag for the property name and a "jsonschema" tag for constraints:
//
//	required        mark the field required
//	enum=a|b|c      enumerated values
//	minimum=0       numeric minimum
//	maximum=100     numeric maximum
//	minLength=1     minimum string length
//	maxLength=64    maximum string length
//	pattern=^[a-z]+$   regex pattern
//	format=email    string format
//	description=... field description
func (g *Generator) Generate(t reflect.Type) (*JSONSchema, error) {
	g.visited = make(map[reflect.Type]bool)
	return g.generate(t)
}

func (g *Generator) generate(t reflect.Type) (*JSONSchema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot generate schema for nil type")
	}
	if t.Kind() == reflect.Ptr {
		return g.generate(t.Elem())
	}
	if g.visited[t] {
		// 递归类型退化为无约束 object
		return &JSONSchema{Type: TypeObject}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return &JSONSchema{Type: TypeString}, nil
	case reflect.Bool:
		return &JSONSchema{Type: TypeBoolean}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &JSONSchema{Type: TypeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &JSONSchema{Type: TypeNumber}, nil
	case reflect.Slice, reflect.Array:
		items, err := g.generate(t.Elem())
		if err != nil {
			return nil, err
		}
		return &JSONSchema{Type: TypeArray, Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s not supported, only string keys", t.Key())
		}
		return &JSONSchema{Type: TypeObject}, nil
	case reflect.Struct:
		return g.generateStruct(t)
	case reflect.Interface:
		// any 字段不加约束
		return &JSONSchema{}, nil
	default:
		return nil, fmt.Errorf("unsupported type kind %s", t.Kind())
	}
}

func (g *Generator) generateStruct(t reflect.Type) (*JSONSchema, error) {
	g.visited[t] = true
	defer delete(g.visited, t)

	s := NewObjectSchema()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous {
			embedded, err := g.generate(field.Type)
			if err != nil {
				return nil, err
			}
			for name, prop := range embedded.Properties {
				s.AddProperty(name, prop)
			}
			s.Required = append(s.Required, embedded.Required...)
			continue
		}

		name := field.Name
		optional := false
		if tag, ok := field.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				if p == "omitempty" {
					optional = true
				}
			}
		}

		prop, err := g.generate(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		required := !optional && field.Type.Kind() != reflect.Ptr
		if tag, ok := field.Tag.Lookup("jsonschema"); ok {
			var err error
			required, err = applyTag(prop, tag, required)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
		}

		s.AddProperty(name, prop)
		if required {
			s.AddRequired(name)
		}
	}
	return s, nil
}

// applyTag 解析 jsonschema 标签并应用到属性上，返回 required 状态。
func applyTag(prop *JSONSchema, tag string, required bool) (bool, error) {
	for _, opt := range strings.Split(tag, ",") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, hasValue := strings.Cut(opt, "=")
		switch key {
		case "required":
			required = true
		case "optional":
			required = false
		case "description":
			prop.Description = value
		case "format":
			prop.Format = value
		case "pattern":
			prop.Pattern = value
		case "enum":
			for _, v := range strings.Split(value, "|") {
				prop.Enum = append(prop.Enum, v)
			}
		case "minimum", "maximum":
			if !hasValue {
				return required, fmt.Errorf("%s requires a value", key)
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return required, fmt.Errorf("invalid %s: %w", key, err)
			}
			if key == "minimum" {
				prop.Minimum = &f
			} else {
				prop.Maximum = &f
			}
		case "minLength", "maxLength", "minItems", "maxItems":
			if !hasValue {
				return required, fmt.Errorf("%s requires a value", key)
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return required, fmt.Errorf("invalid %s: %w", key, err)
			}
			switch key {
			case "minLength":
				prop.MinLength = &n
			case "maxLength":
				prop.MaxLength = &n
			case "minItems":
				prop.MinItems = &n
			case "maxItems":
				prop.MaxItems = &n
			}
		default:
			// 未知选项忽略，保持与未来标签的前向兼容
		}
	}
	return required, nil
}
