package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty" jsonschema:"pattern=^[0-9]{5}$"`
}

type person struct {
	Name    string   `json:"name" jsonschema:"description=Full name,minLength=1"`
	Age     int      `json:"age" jsonschema:"minimum=0,maximum=150"`
	Email   string   `json:"email,omitempty" jsonschema:"format=email"`
	Tags    []string `json:"tags,omitempty"`
	Home    *address `json:"home,omitempty"`
	Role    string   `json:"role" jsonschema:"enum=admin|user|guest"`
	private string   //nolint:unused
}

func TestGenerateStructSchema(t *testing.T) {
	s, err := For[person]()
	require.NoError(t, err)
	require.Equal(t, TypeObject, s.Type)

	name := s.Properties["name"]
	require.NotNil(t, name)
	assert.Equal(t, TypeString, name.Type)
	assert.Equal(t, "Full name", name.Description)
	require.NotNil(t, name.MinLength)
	assert.Equal(t, 1, *name.MinLength)

	age := s.Properties["age"]
	require.NotNil(t, age)
	assert.Equal(t, TypeInteger, age.Type)
	require.NotNil(t, age.Minimum)
	assert.Equal(t, 0.0, *age.Minimum)
	require.NotNil(t, age.Maximum)
	assert.Equal(t, 150.0, *age.Maximum)

	email := s.Properties["email"]
	require.NotNil(t, email)
	assert.Equal(t, "email", email.Format)

	tags := s.Properties["tags"]
	require.NotNil(t, tags)
	assert.Equal(t, TypeArray, tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, TypeString, tags.Items.Type)

	home := s.Properties["home"]
	require.NotNil(t, home)
	assert.Equal(t, TypeObject, home.Type)
	require.NotNil(t, home.Properties["zip"])
	assert.Equal(t, "^[0-9]{5}$", home.Properties["zip"].Pattern)

	role := s.Properties["role"]
	require.NotNil(t, role)
	assert.Equal(t, []any{"admin", "user", "guest"}, role.Enum)

	assert.ElementsMatch(t, []string{"name", "age", "role"}, s.Required)
	assert.NotContains(t, s.Properties, "private")
}

func TestGeneratePrimitives(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want Type
	}{
		{"string", reflect.TypeOf(""), TypeString},
		{"bool", reflect.TypeOf(true), TypeBoolean},
		{"int", reflect.TypeOf(0), TypeInteger},
		{"float", reflect.TypeOf(0.0), TypeNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewGenerator().Generate(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Type)
		})
	}
}

func TestGenerateMapRequiresStringKeys(t *testing.T) {
	_, err := NewGenerator().Generate(reflect.TypeOf(map[int]string{}))
	assert.Error(t, err)

	s, err := NewGenerator().Generate(reflect.TypeOf(map[string]int{}))
	require.NoError(t, err)
	assert.Equal(t, TypeObject, s.Type)
}

type node struct {
	Value    string  `json:"value"`
	Children []*node `json:"children,omitempty"`
}

func TestGenerateRecursiveType(t *testing.T) {
	s, err := For[node]()
	require.NoError(t, err)
	require.NotNil(t, s.Properties["children"])
	// 递归处退化为无约束 object，而不是无限展开
	assert.Equal(t, TypeObject, s.Properties["children"].Items.Type)
}

func TestMarshalRaw(t *testing.T) {
	s, err := For[address]()
	require.NoError(t, err)
	raw, err := s.MarshalRaw()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"city"`)
}
