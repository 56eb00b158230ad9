package binding

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func createRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/v1/thumbnails?"+query, nil)
}

type thumbQuery struct {
	Target   string   `query:"target" default:"image/png"`
	Presets  []string `query:"presets" validate:"max=4"`
	Quality  int      `query:"quality" default:"85" validate:"gte=0,lte=100"`
	OmitData bool     `query:"omit_data"`
	Scale    float64  `query:"scale"`
	MaxBytes uint     `json:"max_bytes"`
	Internal string   `query:"-"`
}

// TestBasicTypes 测试基础类型
func TestBasicTypes(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		want      thumbQuery
		wantError bool
	}{
		{
			name:  "all fields set",
			query: "target=image/jpeg&presets=small&quality=70&omit_data=true&scale=0.5&max_bytes=1024",
			want: thumbQuery{
				Target:   "image/jpeg",
				Presets:  []string{"small"},
				Quality:  70,
				OmitData: true,
				Scale:    0.5,
				MaxBytes: 1024,
			},
		},
		{
			name:  "defaults",
			query: "",
			want:  thumbQuery{Target: "image/png", Quality: 85},
		},
		{name: "invalid integer", query: "quality=high", wantError: true},
		{name: "invalid boolean", query: "omit_data=maybe", wantError: true},
		{name: "negative unsigned", query: "max_bytes=-1", wantError: true},
		{name: "ignored field", query: "Internal=x&internal=y", want: thumbQuery{Target: "image/png", Quality: 85}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params thumbQuery
			err := Query(createRequest(tt.query), &params)
			if (err != nil) != tt.wantError {
				t.Fatalf("Query() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && !reflect.DeepEqual(params, tt.want) {
				t.Errorf("Query() got = %+v, want %+v", params, tt.want)
			}
		})
	}
}

func TestArrayStrategy(t *testing.T) {
	type params struct {
		Presets []string `query:"presets"`
	}

	tests := []struct {
		strategy ArrayStrategy
		query    string
		want     []string
	}{
		{ArrayStrategyBoth, "presets=small,medium", []string{"small", "medium"}},
		{ArrayStrategyBoth, "presets=small&presets=large", []string{"small", "large"}},
		{ArrayStrategyMultiple, "presets=small,medium", []string{"small,medium"}},
		{ArrayStrategyComma, "presets=icon,larger&presets=ignored", []string{"icon", "larger"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.strategy, tt.query), func(t *testing.T) {
			parser := NewQueryParser()
			parser.SetArrayStrategy(tt.strategy)

			var p params
			if err := QueryWithParser(createRequest(tt.query), &p, parser); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(p.Presets, tt.want) {
				t.Errorf("got %v, want %v", p.Presets, tt.want)
			}
		})
	}
}

func TestPointerTypes(t *testing.T) {
	type params struct {
		Quality *int    `query:"quality"`
		Target  *string `query:"target"`
	}

	var p params
	if err := Query(createRequest("quality=50"), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Quality == nil || *p.Quality != 50 {
		t.Fatalf("expected quality 50, got %v", p.Quality)
	}
	if p.Target != nil {
		t.Fatalf("absent parameter should leave pointer nil")
	}
}

type presetNames []string

func (p *presetNames) UnmarshalQuery(s string) error {
	for _, name := range strings.Split(s, ",") {
		if name == "" {
			return errors.New("empty preset name")
		}
		*p = append(*p, strings.ToUpper(name))
	}
	return nil
}

func TestCustomUnmarshaler(t *testing.T) {
	type params struct {
		Presets presetNames `query:"presets"`
	}

	var p params
	if err := Query(createRequest("presets=small&presets=large"), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(p.Presets, presetNames{"SMALL", "LARGE"}) {
		t.Fatalf("unexpected presets %v", p.Presets)
	}

	var bad params
	err := Query(createRequest("presets=small,,large"), &bad)
	var bindErr *BindError
	if !errors.As(err, &bindErr) || bindErr.Field != "presets" {
		t.Fatalf("expected bind error on presets, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	var p thumbQuery
	err := Query(createRequest("quality=101&presets=a,b,c,d,e"), &p)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T %v", err, err)
	}
	fields := map[string]string{}
	for _, e := range verrs {
		fields[e.Field] = e.Message
	}
	if fields["quality"] != "must be less than or equal to 100" {
		t.Errorf("unexpected quality message: %q", fields["quality"])
	}
	if fields["presets"] != "must contain at most 4 items" {
		t.Errorf("unexpected presets message: %q", fields["presets"])
	}
}

func TestInvalidInput(t *testing.T) {
	var notStruct int
	if err := Query(createRequest(""), &notStruct); err == nil {
		t.Fatal("expected error for non-struct target")
	}
	var p thumbQuery
	if err := Query(createRequest(""), p); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
	type unsupported struct {
		M map[string]string `query:"m"`
	}
	if err := Query(createRequest("m=x"), &unsupported{}); err == nil {
		t.Fatal("expected error for unsupported field type")
	}
}
