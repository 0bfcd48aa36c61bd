package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mark3labs/endpointgen/internal/codemodel"
	"github.com/mark3labs/endpointgen/internal/config"
	"github.com/mark3labs/endpointgen/internal/types"
)

const (
	listType    = "List"
	objectType  = "Object"
	voidType    = "Void"
	generatedAn = "Generated"
)

// TypeRef maps a descriptor to the target type that represents it.
func TypeRef(d *types.Descriptor, cfg config.GenerationConfig) codemodel.TypeRef {
	if d == nil {
		return codemodel.Ref(objectType)
	}
	switch d.Kind {
	case types.KindPrimitive:
		return codemodel.Ref(primitiveType(d.Primitive, d.Format, cfg))
	case types.KindArray:
		return codemodel.Ref(listType, TypeRef(d.Elem, cfg))
	case types.KindReference:
		if d.Target != nil && !d.Target.IsNamed() {
			return TypeRef(d.Target, cfg)
		}
		return codemodel.Ref(d.Name)
	case types.KindEnum:
		if d.Name == "" {
			return codemodel.Ref(primitiveType(d.Primitive, d.Format, cfg))
		}
		return codemodel.Ref(d.Name)
	case types.KindObject, types.KindUnion:
		if d.Name == "" {
			return codemodel.Ref(objectType)
		}
		return codemodel.Ref(d.Name)
	}
	return codemodel.Ref(objectType)
}

func primitiveType(kind types.PrimitiveKind, format string, cfg config.GenerationConfig) string {
	switch kind {
	case types.String:
		return "String"
	case types.Integer:
		if format == "int64" {
			return "Long"
		}
		return "Integer"
	case types.Number:
		switch format {
		case "float":
			return "Float"
		case "double":
			return "Double"
		}
		return "java.math.BigDecimal"
	case types.Boolean:
		return "Boolean"
	case types.Date:
		return cfg.DateType
	case types.Time:
		return cfg.TimeType
	case types.DateTime:
		return cfg.DateTimeType
	case types.Binary:
		return "byte[]"
	}
	return objectType
}

func isCollection(d *types.Descriptor) bool {
	return d != nil && d.Resolved().Kind == types.KindArray
}

// literal renders a value as a source literal for annotation parameters.
func literal(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int, int64, uint64:
		return fmt.Sprint(x)
	}
	return strconv.Quote(fmt.Sprint(v))
}

func numberLiteral(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// enumConstant turns an enum literal into a constant name.
func enumConstant(v any) string {
	s := strcase.ToScreamingSnake(strings.TrimSpace(fmt.Sprint(v)))
	if s == "" {
		return "EMPTY"
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "VALUE_" + s
	}
	return s
}
