package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func echoTool() *Tool {
	return &Tool{
		Name:        "echo",
		Description: "Echo the text argument.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":  map[string]any{"type": "string"},
				"times": map[string]any{"type": "integer", "minimum": 1},
				"loud":  map[string]any{"type": "boolean"},
			},
			"required": []string{"text"},
		},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			out := strings.Repeat(stringArg(args, "text"), intArg(args, "times", 1))
			if boolArg(args, "loud", false) {
				out = strings.ToUpper(out)
			}
			return out, nil
		},
	}
}

func TestRegistry_OrderAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{Name: "b"})
	r.Register(&Tool{Name: "a"})
	r.Register(&Tool{Name: "b", Description: "replaced"})

	all := r.All()
	if len(all) != 2 || all[0].Name != "b" || all[1].Name != "a" {
		t.Fatalf("All() order wrong: %v", all)
	}
	if r.Get("b").Description != "replaced" {
		t.Error("re-registering should replace the tool")
	}
	if r.Get("missing") != nil {
		t.Error("Get of unknown tool should be nil")
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	got, err := r.Execute(context.Background(), "echo", `{"text":"hi","times":2,"loud":true}`)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if got != "HIHI" {
		t.Errorf("Execute = %q, want HIHI", got)
	}
}

func TestRegistry_ExecuteErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(echoTool())

	tests := []struct {
		name string
		tool string
		args string
		want Kind
	}{
		{"unknown tool", "nope", `{}`, KindValidation},
		{"bad json", "echo", `{`, KindValidation},
		{"missing required", "echo", `{}`, KindValidation},
		{"null required", "echo", `{"text":null}`, KindValidation},
		{"wrong type", "echo", `{"text":5}`, KindValidation},
		{"fractional integer", "echo", `{"text":"a","times":1.5}`, KindValidation},
		{"below minimum", "echo", `{"text":"a","times":0}`, KindValidation},
		{"bool as string", "echo", `{"text":"a","loud":"yes"}`, KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.tool, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", err, got, tt.want)
			}
		})
	}
}

func TestRegistry_HandlerErrorPassesThrough(t *testing.T) {
	boom := &ParseError{Tool: "fail", Message: "nope"}
	r := NewRegistry()
	r.Register(&Tool{
		Name:       "fail",
		Parameters: map[string]any{"type": "object"},
		Handler: func(context.Context, map[string]any) (string, error) {
			return "", boom
		},
	})

	_, err := r.Call(context.Background(), "fail", nil)
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want handler error", err)
	}
}

func TestValidateArgs_IntegerForms(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	}
	for _, v := range []any{3, int64(3), float64(3)} {
		if err := ValidateArgs(schema, map[string]any{"n": v}); err != nil {
			t.Errorf("ValidateArgs(%T) error: %v", v, err)
		}
	}
}

func TestTool_Schema(t *testing.T) {
	raw, err := echoTool().Schema()
	if err != nil {
		t.Fatalf("Schema error: %v", err)
	}
	if !strings.Contains(string(raw), `"required":["text"]`) {
		t.Errorf("schema = %s", raw)
	}
}
