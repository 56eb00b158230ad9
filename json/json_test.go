package json

import (
	"bytes"
	stdjson "encoding/json"
	"strings"
	"testing"
)

type thumbnailOptions struct {
	Target   string `json:"target" default:"image/png"`
	Quality  int    `json:"quality" default:"85"`
	Presets  string `json:"presets" default:"small"`
	OmitData bool   `json:"omit_data" default:"true"`
}

func TestMarshalAppliesDefaults(t *testing.T) {
	opts := &thumbnailOptions{Target: "image/jpeg"}

	data, err := Marshal(opts)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	if opts.Quality != 85 || opts.Presets != "small" || !opts.OmitData {
		t.Fatalf("expected defaults on the original struct, got %+v", opts)
	}

	var decoded thumbnailOptions
	if err := stdjson.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("encoded JSON should be valid, got error: %v", err)
	}
	if decoded != *opts {
		t.Fatalf("expected %+v, got %+v", *opts, decoded)
	}
}

func TestMarshalLeavesNonStructsAlone(t *testing.T) {
	data, err := Marshal(map[string]int{"small": 64})
	if err != nil {
		t.Fatalf("Marshal map: %v", err)
	}
	if string(data) != `{"small":64}` {
		t.Fatalf("unexpected output %s", data)
	}

	if _, err := Marshal([]string{"a"}); err != nil {
		t.Fatalf("Marshal slice: %v", err)
	}
	if _, err := Marshal(thumbnailOptions{}); err != nil {
		t.Fatalf("Marshal value: %v", err)
	}
	var nilOpts *thumbnailOptions
	if _, err := Marshal(nilOpts); err != nil {
		t.Fatalf("Marshal nil pointer: %v", err)
	}
}

func TestUnmarshalAppliesDefaultsForMissingFields(t *testing.T) {
	var opts thumbnailOptions
	if err := Unmarshal([]byte(`{"target":"image/bmp"}`), &opts); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if opts.Target != "image/bmp" {
		t.Fatalf("expected target from JSON, got %s", opts.Target)
	}
	if opts.Quality != 85 {
		t.Fatalf("expected default quality, got %d", opts.Quality)
	}
}

func TestUnmarshalPreservesExplicitZeroValues(t *testing.T) {
	var opts thumbnailOptions
	if err := Unmarshal([]byte(`{"quality":0,"omit_data":false,"presets":""}`), &opts); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if opts.Quality != 0 {
		t.Fatalf("expected explicit quality 0, got %d", opts.Quality)
	}
	if opts.OmitData {
		t.Fatal("expected explicit omit_data=false to be preserved")
	}
	if opts.Presets != "" {
		t.Fatalf("expected explicit empty presets, got %q", opts.Presets)
	}
}

func TestDecoderDisallowUnknownFields(t *testing.T) {
	decoder := NewDecoder(strings.NewReader(`{"target":"image/png","upscale":true}`))
	decoder.DisallowUnknownFields()

	var opts thumbnailOptions
	if err := decoder.Decode(&opts); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestEncoderSetEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(&thumbnailOptions{Target: "<image/png>"}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "<image/png>") {
		t.Fatalf("expected unescaped output, got %s", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatal("Encode should terminate with a newline")
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"a":1}`)) {
		t.Fatal("expected valid JSON")
	}
	if Valid([]byte(`{"a":`)) {
		t.Fatal("expected invalid JSON")
	}
}
