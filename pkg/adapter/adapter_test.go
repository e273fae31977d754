package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"attributes", Attributes, false},
		{"json", JSON, false},
		{"json_api", JSONAPI, false},
		{"JsonApi", JSONAPI, false},
		{"json-api", JSONAPI, false},
		{"jsonapi", JSONAPI, false},
		{" Attributes ", Attributes, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAdapter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		a, err := New(name, DefaultConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, name, a.Name())
		assert.Equal(t, name, a.CacheKey())
	}

	_, err := New("yaml", DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrUnknownAdapter)

	cfg := DefaultConfig()
	cfg.KeyTransform = "kebab"
	_, err = New(JSON, cfg, nil)
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"attributes", "json", "json_api"}, Names())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())

	cfg := DefaultConfig()
	cfg.MaxDepth = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.JSONAPI.ResourceType = "dual"
	assert.Error(t, cfg.Validate())
}

func TestParseResourceTypeInflection(t *testing.T) {
	got, err := ParseResourceTypeInflection(" Singular ")
	require.NoError(t, err)
	assert.Equal(t, SingularTypes, got)

	got, err = ParseResourceTypeInflection("plural")
	require.NoError(t, err)
	assert.Equal(t, PluralTypes, got)

	_, err = ParseResourceTypeInflection("both")
	assert.Error(t, err)
}

func TestKeyTransform(t *testing.T) {
	tests := []struct {
		transform KeyTransform
		input     string
		want      string
	}{
		{Unaltered, "first_name", "first_name"},
		{Camel, "first_name", "FirstName"},
		{CamelLower, "first_name", "firstName"},
		{Dash, "first_name", "first-name"},
		{Dash, "firstName", "first-name"},
		{Underscore, "firstName", "first_name"},
		{Underscore, "first-name", "first_name"},
	}

	for _, tt := range tests {
		t.Run(string(tt.transform)+"/"+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.transform.Apply(tt.input))
		})
	}
}

func TestParseKeyTransform(t *testing.T) {
	got, err := ParseKeyTransform("Camel_Lower")
	require.NoError(t, err)
	assert.Equal(t, CamelLower, got)

	_, err = ParseKeyTransform("kebab")
	assert.Error(t, err)
}

func TestTransformValue_Deep(t *testing.T) {
	in := map[string]any{
		"user_name": "ann",
		"tag_list":  []any{map[string]any{"tag_name": "go"}, "plain_string"},
	}
	want := map[string]any{
		"user-name": "ann",
		"tag-list":  []any{map[string]any{"tag-name": "go"}, "plain_string"},
	}
	assert.Equal(t, want, transformValue(in, Dash))
	assert.Equal(t, in, transformValue(in, Unaltered))
}
