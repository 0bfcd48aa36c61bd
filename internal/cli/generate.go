package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/emitter/modelemitter"
	"github.com/mark3labs/endpointgen/internal/engine"
	"github.com/mark3labs/endpointgen/internal/logger"
	genspec "github.com/mark3labs/endpointgen/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	Paths       []string

	BasePackage           string
	ResourceDepth         int
	TopLevelInNames       bool
	ReverseOrder          bool
	ConstraintAnnotations bool
	DateTimeType          string
	DateType              string
	TimeType              string
	InitializeCollections bool
	DontGenerateFor       string
	InjectHeaders         bool
	InjectRequest         bool
	MethodsNaming         string
	Implementation        bool
	CollectFailures       bool

	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool
	JSONLogs   bool
}

func defaultGenerateConfig() GenerateConfig {
	d := config.Default()
	return GenerateConfig{
		BasePackage:           d.BasePackage,
		ConstraintAnnotations: d.IncludeConstraintAnnotations,
		DateTimeType:          d.DateTimeType,
		DateType:              d.DateType,
		TimeType:              d.TimeType,
		MethodsNaming:         string(d.MethodsNamingLogic),
	}
}

// GenerationConfig builds the immutable engine configuration.
func (c *GenerateConfig) GenerationConfig() (config.GenerationConfig, error) {
	gc, err := config.New(
		config.WithBasePackage(c.BasePackage),
		config.WithResourceDepth(c.ResourceDepth),
		config.WithTopLevelInNames(c.TopLevelInNames),
		config.WithReverseOrder(c.ReverseOrder),
		config.WithConstraintAnnotations(c.ConstraintAnnotations),
		config.WithDateTimeType(c.DateTimeType),
		config.WithDateType(c.DateType),
		config.WithTimeType(c.TimeType),
		config.WithInitializeCollections(c.InitializeCollections),
		config.WithDontGenerateFor(c.DontGenerateFor),
		config.WithInjectHTTPHeaders(c.InjectHeaders),
		config.WithInjectHTTPRequest(c.InjectRequest),
		config.WithMethodsNamingLogic(config.MethodsNamingLogic(c.MethodsNaming)),
		config.WithImplementation(c.Implementation),
		config.WithCollectFailures(c.CollectFailures),
	)
	if err != nil {
		return config.GenerationConfig{}, newUsageError(fmt.Sprintf("generate: %v", err))
	}
	return gc, nil
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	d := defaultGenerateConfig()
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a code model from an OpenAPI/Swagger document",
		Long: "Generate controller interfaces and data classes from an OpenAPI/Swagger document " +
			"and write them as a JSON code model. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  endpointgen generate --input spec.yaml --base-package com.acme.api --out ./out
  endpointgen --config endpointgen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory (derived from spec title when omitted)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations with these HTTP methods")
	flags.StringSlice("paths", nil, "Only include paths matching these regular expressions")

	flags.String("base-package", d.BasePackage, "Namespace of generated controllers; data classes go to <base>.model")
	flags.Int("resource-depth", 0, "Path segments (from the leaf) used in class names; 0 uses the full path")
	flags.Bool("top-level-in-names", false, "Always prepend the top-level segment to class names")
	flags.Bool("reverse-order", false, "Order segments leaf first in class names")
	flags.Bool("constraint-annotations", d.ConstraintAnnotations, "Emit validation constraint annotations")
	flags.String("date-time-type", d.DateTimeType, "Target type for date-time values")
	flags.String("date-type", d.DateType, "Target type for date values")
	flags.String("time-type", d.TimeType, "Target type for time values")
	flags.Bool("initialize-collections", false, "Initialize collection fields with an empty list")
	flags.String("dont-generate-for", "", "Skip resources and operations carrying this marker annotation")
	flags.Bool("inject-headers", false, "Add an HttpHeaders parameter to every controller method")
	flags.Bool("inject-request", false, "Add an HttpServletRequest parameter to every controller method")
	flags.String("methods-naming", d.MethodsNaming, "Method naming strategy (resources|objects)")
	flags.Bool("implementation", false, "Also generate controller implementation classes")
	flags.Bool("collect-failures", false, "Report all rule failures together instead of stopping at the first")

	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":             &cfg.Input,
		"out":               &cfg.Out,
		"base-package":      &cfg.BasePackage,
		"date-time-type":    &cfg.DateTimeType,
		"date-type":         &cfg.DateType,
		"time-type":         &cfg.TimeType,
		"dont-generate-for": &cfg.DontGenerateFor,
		"methods-naming":    &cfg.MethodsNaming,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	slices := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
		"paths":        &cfg.Paths,
	}
	for name, dst := range slices {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}

	bools := map[string]*bool{
		"top-level-in-names":     &cfg.TopLevelInNames,
		"reverse-order":          &cfg.ReverseOrder,
		"constraint-annotations": &cfg.ConstraintAnnotations,
		"initialize-collections": &cfg.InitializeCollections,
		"inject-headers":         &cfg.InjectHeaders,
		"inject-request":         &cfg.InjectRequest,
		"implementation":         &cfg.Implementation,
		"collect-failures":       &cfg.CollectFailures,
		"dry-run":                &cfg.DryRun,
		"force":                  &cfg.Force,
		"verbose":                &cfg.Verbose,
		"json-logs":              &cfg.JSONLogs,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("resource-depth") {
		value, err := flags.GetInt("resource-depth")
		if err != nil {
			return err
		}
		cfg.ResourceDepth = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.BasePackage = strings.TrimSpace(c.BasePackage)
	c.MethodsNaming = strings.ToLower(strings.TrimSpace(c.MethodsNaming))
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Paths = sanitizeTags(c.Paths)
	methods := sanitizeTags(c.Methods)
	for i, m := range methods {
		methods[i] = strings.ToLower(m)
	}
	c.Methods = methods
}

var knownMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true,
	"patch": true, "head": true, "options": true, "trace": true,
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	for _, m := range c.Methods {
		if !knownMethods[m] {
			return newUsageError(fmt.Sprintf("generate: unknown HTTP method %q in --methods", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid --paths pattern %q: %v", p, err))
		}
	}
	if c.ResourceDepth < 0 {
		return newUsageError(fmt.Sprintf("generate: --resource-depth must be >= 0, got %d", c.ResourceDepth))
	}

	return nil
}

func (c *GenerateConfig) buildOptions() []genspec.BuildOption {
	methods := make([]genspec.HttpMethod, 0, len(c.Methods))
	for _, m := range c.Methods {
		methods = append(methods, genspec.HttpMethod(m))
	}
	return []genspec.BuildOption{
		genspec.WithIncludeTags(c.IncludeTags),
		genspec.WithExcludeTags(c.ExcludeTags),
		genspec.WithMethods(methods),
		genspec.WithPathPatterns(c.Paths),
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	if cfg.Verbose || cfg.JSONLogs {
		if err := logger.Initialize(cfg.Verbose, cfg.JSONLogs); err != nil {
			return err
		}
	}
	log := logger.Named("cli")

	gc, err := cfg.GenerationConfig()
	if err != nil {
		return err
	}

	// 1) Load the spec (file or http/https URL) with validation and conversion
	doc, err := genspec.Load(ctx, cfg.Input)
	if err != nil {
		return friendlyError(err)
	}

	// 2) Build the resource tree and type declarations with filters
	parsed, err := genspec.BuildParsedSpec(ctx, doc, cfg.buildOptions()...)
	if err != nil {
		return fmt.Errorf("build parsed spec: %w", err)
	}

	// 3) Metadata, rules, finalized code model
	model, err := engine.Generate(parsed, gc)
	if err != nil {
		return friendlyError(err)
	}
	log.Debugw("code model ready", "classes", model.Len())

	outDir := cfg.Out
	if outDir == "" {
		outDir = deriveOutDir(parsed.Title)
	}
	absOut := outDir
	if ap, err := filepath.Abs(outDir); err == nil {
		absOut = ap
	}

	// 4) Emit
	res, err := modelemitter.Emit(ctx, model, modelemitter.Options{
		OutDir:    outDir,
		Title:     parsed.Title,
		Generator: gc.GeneratorName,
		Force:     cfg.Force,
		DryRun:    cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}
	if cfg.DryRun {
		printPlan(absOut, len(res.Planned), res.Paths())
		return nil
	}
	fmt.Fprintf(os.Stdout, "Wrote %d classes to %s\n", model.Len(), absOut)
	return nil
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "output directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

// deriveOutDir turns the API title into a directory name, e.g.
// "Pet Store API" -> "pet-store-api-model".
func deriveOutDir(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	repl := strings.NewReplacer("/", " ", "_", " ", ".", " ", ",", " ", ":", " ")
	parts := strings.Fields(repl.Replace(t))
	var b strings.Builder
	for _, p := range parts {
		for _, r := range p {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
				b.WriteRune(r)
			}
		}
		b.WriteByte('-')
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "endpointgen-model"
	}
	return name + "-model"
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

// fileSetters maps normalized config keys to the field they populate.
var fileSetters = map[string]func(*GenerateConfig, any) error{
	"input":                 stringSetter(func(c *GenerateConfig) *string { return &c.Input }),
	"out":                   stringSetter(func(c *GenerateConfig) *string { return &c.Out }),
	"includetags":           sliceSetter(func(c *GenerateConfig) *[]string { return &c.IncludeTags }),
	"excludetags":           sliceSetter(func(c *GenerateConfig) *[]string { return &c.ExcludeTags }),
	"methods":               sliceSetter(func(c *GenerateConfig) *[]string { return &c.Methods }),
	"paths":                 sliceSetter(func(c *GenerateConfig) *[]string { return &c.Paths }),
	"basepackage":           stringSetter(func(c *GenerateConfig) *string { return &c.BasePackage }),
	"resourcedepth":         intSetter(func(c *GenerateConfig) *int { return &c.ResourceDepth }),
	"toplevelinnames":       boolSetter(func(c *GenerateConfig) *bool { return &c.TopLevelInNames }),
	"reverseorder":          boolSetter(func(c *GenerateConfig) *bool { return &c.ReverseOrder }),
	"constraintannotations": boolSetter(func(c *GenerateConfig) *bool { return &c.ConstraintAnnotations }),
	"datetimetype":          stringSetter(func(c *GenerateConfig) *string { return &c.DateTimeType }),
	"datetype":              stringSetter(func(c *GenerateConfig) *string { return &c.DateType }),
	"timetype":              stringSetter(func(c *GenerateConfig) *string { return &c.TimeType }),
	"initializecollections": boolSetter(func(c *GenerateConfig) *bool { return &c.InitializeCollections }),
	"dontgeneratefor":       stringSetter(func(c *GenerateConfig) *string { return &c.DontGenerateFor }),
	"injectheaders":         boolSetter(func(c *GenerateConfig) *bool { return &c.InjectHeaders }),
	"injectrequest":         boolSetter(func(c *GenerateConfig) *bool { return &c.InjectRequest }),
	"methodsnaming":         stringSetter(func(c *GenerateConfig) *string { return &c.MethodsNaming }),
	"implementation":        boolSetter(func(c *GenerateConfig) *bool { return &c.Implementation }),
	"collectfailures":       boolSetter(func(c *GenerateConfig) *bool { return &c.CollectFailures }),
	"dryrun":                boolSetter(func(c *GenerateConfig) *bool { return &c.DryRun }),
	"force":                 boolSetter(func(c *GenerateConfig) *bool { return &c.Force }),
	"verbose":               boolSetter(func(c *GenerateConfig) *bool { return &c.Verbose }),
	"jsonlogs":              boolSetter(func(c *GenerateConfig) *bool { return &c.JSONLogs }),
}

func stringSetter(field func(*GenerateConfig) *string) func(*GenerateConfig, any) error {
	return func(c *GenerateConfig, v any) error {
		s, err := valueAsString(v)
		if err != nil {
			return err
		}
		*field(c) = s
		return nil
	}
}

func sliceSetter(field func(*GenerateConfig) *[]string) func(*GenerateConfig, any) error {
	return func(c *GenerateConfig, v any) error {
		list, err := valueAsStringSlice(v)
		if err != nil {
			return err
		}
		*field(c) = sanitizeTags(list)
		return nil
	}
}

func boolSetter(field func(*GenerateConfig) *bool) func(*GenerateConfig, any) error {
	return func(c *GenerateConfig, v any) error {
		b, err := valueAsBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func intSetter(field func(*GenerateConfig) *int) func(*GenerateConfig, any) error {
	return func(c *GenerateConfig, v any) error {
		n, err := valueAsInt(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	keys := v.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		set, ok := fileSetters[normalizeKey(key)]
		if !ok {
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err := set(cfg, v.Get(key)); err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []string:
		return val, nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", val)
		}
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
