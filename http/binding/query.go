package binding

import (
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// QueryUnmarshaler 自定义类型可以实现此接口来自定义 query 参数解析
type QueryUnmarshaler interface {
	UnmarshalQuery(string) error
}

var queryUnmarshalerType = reflect.TypeOf((*QueryUnmarshaler)(nil)).Elem()

// ArrayStrategy 数组解析策略
type ArrayStrategy int

const (
	// ArrayStrategyMultiple 多次传参：?presets=small&presets=large
	ArrayStrategyMultiple ArrayStrategy = iota
	// ArrayStrategyComma 逗号分隔：?presets=small,large
	ArrayStrategyComma
	// ArrayStrategyBoth 两种都支持，优先多次传参
	ArrayStrategyBoth
)

// QueryParser 查询参数解析器
type QueryParser struct {
	tagName       string
	defaultTag    string
	arrayStrategy ArrayStrategy
}

// NewQueryParser 创建新的查询参数解析器
func NewQueryParser() *QueryParser {
	return &QueryParser{
		tagName:       "query",
		defaultTag:    "default",
		arrayStrategy: ArrayStrategyBoth,
	}
}

// SetArrayStrategy 设置数组解析策略
func (qp *QueryParser) SetArrayStrategy(strategy ArrayStrategy) {
	qp.arrayStrategy = strategy
}

// QueryWithParser 使用自定义解析器解析查询参数
func QueryWithParser(r *http.Request, v any, parser *QueryParser) error {
	if err := parser.Parse(r.URL.Query(), v); err != nil {
		return err
	}
	return validate(v)
}

// Parse fills the fields of the struct v points to. Absent parameters take
// the field's `default` tag value.
func (qp *QueryParser) Parse(values url.Values, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &BindError{Type: "bind_error", Message: "v must be a non-nil pointer"}
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &BindError{Type: "bind_error", Message: "v must be a pointer to struct"}
	}

	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)
		if !field.CanSet() {
			continue
		}

		queryName := qp.getQueryName(fieldType)
		if queryName == "-" {
			continue
		}

		raw, exists := values[queryName]
		if !exists || len(raw) == 0 {
			def := fieldType.Tag.Get(qp.defaultTag)
			if def == "" {
				continue
			}
			raw = []string{def}
		}

		if err := qp.setFieldValue(field, raw, queryName); err != nil {
			return err
		}
	}
	return nil
}

// getQueryName 获取字段对应的查询参数名
func (qp *QueryParser) getQueryName(fieldType reflect.StructField) string {
	for _, tag := range []string{qp.tagName, "json"} {
		if tagName := fieldType.Tag.Get(tag); tagName != "" {
			return strings.Split(tagName, ",")[0]
		}
	}
	return strings.ToLower(fieldType.Name)
}

func (qp *QueryParser) setFieldValue(field reflect.Value, values []string, name string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return qp.setFieldValue(field.Elem(), values, name)
	}

	if field.CanAddr() && field.Addr().Type().Implements(queryUnmarshalerType) {
		unmarshaler := field.Addr().Interface().(QueryUnmarshaler)
		if err := unmarshaler.UnmarshalQuery(strings.Join(values, ",")); err != nil {
			return &BindError{
				Type:    "bind_error",
				Field:   name,
				Message: "failed to unmarshal query: " + err.Error(),
			}
		}
		return nil
	}

	if field.Kind() == reflect.Slice {
		return qp.setSliceField(field, values, name)
	}
	return setScalar(field, values[0], name)
}

// setScalar 根据字段类型设置值
func setScalar(field reflect.Value, value string, name string) error {
	value = strings.TrimSpace(value)
	invalid := func(what string, err error) error {
		return &BindError{Type: "bind_error", Field: name, Message: "invalid " + what + " value: " + err.Error()}
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return invalid("integer", err)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return invalid("unsigned integer", err)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return invalid("float", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("boolean", err)
		}
		field.SetBool(b)
	default:
		return &BindError{
			Type:    "bind_error",
			Field:   name,
			Message: "unsupported field type: " + field.Kind().String(),
		}
	}
	return nil
}

// setSliceField 设置切片类型字段
func (qp *QueryParser) setSliceField(field reflect.Value, values []string, name string) error {
	var items []string
	switch qp.arrayStrategy {
	case ArrayStrategyMultiple:
		items = values
	case ArrayStrategyComma:
		items = strings.Split(values[0], ",")
	case ArrayStrategyBoth:
		if len(values) == 1 && strings.Contains(values[0], ",") {
			items = strings.Split(values[0], ",")
		} else {
			items = values
		}
	}

	slice := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, item := range items {
		if err := setScalar(slice.Index(i), item, name); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}
