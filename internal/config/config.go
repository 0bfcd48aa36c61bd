// Package config holds the immutable configuration of a generation run.
//
// A GenerationConfig is built once with New and handed to every component by
// value; nothing mutates it while a run is in progress.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// MethodsNamingLogic selects a built-in method naming strategy.
type MethodsNamingLogic string

const (
	// MethodsNamingResources derives method names from the verb and the
	// resource path, e.g. GET /pets/{id} -> getPetsById.
	MethodsNamingResources MethodsNamingLogic = "resources"
	// MethodsNamingObjects derives method names from the verb and the request
	// or response object name, falling back to the resource path.
	MethodsNamingObjects MethodsNamingLogic = "objects"
)

// NamingStrategy replaces the default resource identifier algorithm. It
// receives the full, ordered path segments of a resource (root first) and
// must be deterministic.
type NamingStrategy func(segments []string) string

// GenerationConfig is read by every stage of a run and mutated by none.
type GenerationConfig struct {
	// BasePackage is the namespace of generated controllers; data classes
	// live in BasePackage + ".model".
	BasePackage string
	// ResourceDepthInClassNames bounds how many path segments (counted from
	// the leaf) make up a resource identifier. 0 means the full path.
	ResourceDepthInClassNames int
	// ResourceTopLevelInClassNames always prepends the root segment.
	ResourceTopLevelInClassNames bool
	// ReverseOrderInClassNames orders segments leaf first.
	ReverseOrderInClassNames bool
	// NamingStrategy, when set, replaces the default identifier algorithm.
	NamingStrategy NamingStrategy

	IncludeConstraintAnnotations bool

	DateTimeType string
	DateType     string
	TimeType     string

	// InitializeCollections gives array fields an empty collection initializer.
	InitializeCollections bool

	// DontGenerateForAnnotation names the marker annotation that excludes a
	// resource or action from generation. Empty disables the check.
	DontGenerateForAnnotation string

	InjectHTTPHeadersParameter bool
	InjectHTTPRequestParameter bool

	MethodsNamingLogic MethodsNamingLogic

	// GenerateImplementation adds a controller implementation class next to
	// every controller interface.
	GenerateImplementation bool
	// CollectFailures gathers rule processing failures across all resources
	// and reports them together instead of stopping at the first.
	CollectFailures bool
	// GeneratorName is recorded in the generated marker annotation.
	GeneratorName string
}

// Option mutates a GenerationConfig under construction.
type Option func(*GenerationConfig)

// Default returns the configuration used when no option overrides a field.
func Default() GenerationConfig {
	return GenerationConfig{
		BasePackage:                  "com.example.api",
		IncludeConstraintAnnotations: true,
		DateTimeType:                 "java.time.OffsetDateTime",
		DateType:                     "java.time.LocalDate",
		TimeType:                     "java.time.LocalTime",
		MethodsNamingLogic:           MethodsNamingResources,
		GeneratorName:                "endpointgen",
	}
}

func WithBasePackage(p string) Option { return func(c *GenerationConfig) { c.BasePackage = p } }
func WithResourceDepth(n int) Option {
	return func(c *GenerationConfig) { c.ResourceDepthInClassNames = n }
}
func WithTopLevelInNames(on bool) Option {
	return func(c *GenerationConfig) { c.ResourceTopLevelInClassNames = on }
}
func WithReverseOrder(on bool) Option {
	return func(c *GenerationConfig) { c.ReverseOrderInClassNames = on }
}
func WithNamingStrategy(s NamingStrategy) Option {
	return func(c *GenerationConfig) { c.NamingStrategy = s }
}
func WithConstraintAnnotations(on bool) Option {
	return func(c *GenerationConfig) { c.IncludeConstraintAnnotations = on }
}
func WithDateTimeType(t string) Option { return func(c *GenerationConfig) { c.DateTimeType = t } }
func WithDateType(t string) Option     { return func(c *GenerationConfig) { c.DateType = t } }
func WithTimeType(t string) Option     { return func(c *GenerationConfig) { c.TimeType = t } }
func WithInitializeCollections(on bool) Option {
	return func(c *GenerationConfig) { c.InitializeCollections = on }
}
func WithDontGenerateFor(marker string) Option {
	return func(c *GenerationConfig) { c.DontGenerateForAnnotation = marker }
}
func WithInjectHTTPHeaders(on bool) Option {
	return func(c *GenerationConfig) { c.InjectHTTPHeadersParameter = on }
}
func WithInjectHTTPRequest(on bool) Option {
	return func(c *GenerationConfig) { c.InjectHTTPRequestParameter = on }
}
func WithMethodsNamingLogic(l MethodsNamingLogic) Option {
	return func(c *GenerationConfig) { c.MethodsNamingLogic = l }
}
func WithImplementation(on bool) Option {
	return func(c *GenerationConfig) { c.GenerateImplementation = on }
}
func WithCollectFailures(on bool) Option { return func(c *GenerationConfig) { c.CollectFailures = on } }
func WithGeneratorName(name string) Option {
	return func(c *GenerationConfig) { c.GeneratorName = name }
}

// New builds a validated configuration from Default plus opts.
func New(opts ...Option) (GenerationConfig, error) {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return GenerationConfig{}, err
	}
	return cfg, nil
}

// MustNew is New for tests and static setups; it panics on invalid options.
func MustNew(opts ...Option) GenerationConfig {
	cfg, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *GenerationConfig) normalize() {
	c.BasePackage = strings.Trim(strings.TrimSpace(c.BasePackage), ".")
	c.DateTimeType = strings.TrimSpace(c.DateTimeType)
	c.DateType = strings.TrimSpace(c.DateType)
	c.TimeType = strings.TrimSpace(c.TimeType)
	c.DontGenerateForAnnotation = strings.TrimSpace(c.DontGenerateForAnnotation)
	c.MethodsNamingLogic = MethodsNamingLogic(strings.ToLower(strings.TrimSpace(string(c.MethodsNamingLogic))))
	if c.MethodsNamingLogic == "" {
		c.MethodsNamingLogic = MethodsNamingResources
	}
	if strings.TrimSpace(c.GeneratorName) == "" {
		c.GeneratorName = "endpointgen"
	}
}

var packageRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate reports the first invalid field.
func (c GenerationConfig) Validate() error {
	if !packageRe.MatchString(c.BasePackage) {
		return fmt.Errorf("config: invalid basePackage %q", c.BasePackage)
	}
	if c.ResourceDepthInClassNames < 0 {
		return fmt.Errorf("config: resourceDepthInClassNames must be >= 0, got %d", c.ResourceDepthInClassNames)
	}
	switch c.MethodsNamingLogic {
	case MethodsNamingResources, MethodsNamingObjects:
	default:
		return fmt.Errorf("config: unknown methodsNamingLogic %q (allowed: resources, objects)", c.MethodsNamingLogic)
	}
	for _, kv := range [][2]string{{"dateTimeType", c.DateTimeType}, {"dateType", c.DateType}, {"timeType", c.TimeType}} {
		if kv[1] == "" {
			return fmt.Errorf("config: %s must not be empty", kv[0])
		}
	}
	return nil
}

// ControllerPackage is the namespace of controller classes.
func (c GenerationConfig) ControllerPackage() string { return c.BasePackage }

// ModelPackage is the namespace of data classes.
func (c GenerationConfig) ModelPackage() string { return c.BasePackage + ".model" }
