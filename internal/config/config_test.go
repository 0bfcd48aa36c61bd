package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "com.example.api", cfg.BasePackage)
	assert.Equal(t, 0, cfg.ResourceDepthInClassNames)
	assert.Equal(t, MethodsNamingResources, cfg.MethodsNamingLogic)
	assert.Equal(t, "com.example.api.model", cfg.ModelPackage())
	assert.True(t, cfg.IncludeConstraintAnnotations)
}

func TestNew_Options(t *testing.T) {
	t.Parallel()
	cfg, err := New(
		WithBasePackage(" org.acme.pets. "),
		WithResourceDepth(2),
		WithReverseOrder(true),
		WithMethodsNamingLogic("OBJECTS"),
		WithDontGenerateFor(" skip "),
		WithDateTimeType("java.util.Date"),
	)
	require.NoError(t, err)
	assert.Equal(t, "org.acme.pets", cfg.BasePackage)
	assert.Equal(t, 2, cfg.ResourceDepthInClassNames)
	assert.True(t, cfg.ReverseOrderInClassNames)
	assert.Equal(t, MethodsNamingObjects, cfg.MethodsNamingLogic)
	assert.Equal(t, "skip", cfg.DontGenerateForAnnotation)
	assert.Equal(t, "java.util.Date", cfg.DateTimeType)
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "negative depth", opts: []Option{WithResourceDepth(-1)}},
		{name: "bad package", opts: []Option{WithBasePackage("com..x")}},
		{name: "unknown naming logic", opts: []Option{WithMethodsNamingLogic("magic")}},
		{name: "empty date type", opts: []Option{WithDateType(" ")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opts...)
			assert.Error(t, err)
		})
	}
}

func TestConfigIsCopiedByValue(t *testing.T) {
	t.Parallel()
	cfg := MustNew(WithBasePackage("a.b"))
	other := cfg
	other.BasePackage = "c.d"
	assert.Equal(t, "a.b", cfg.BasePackage)
}
