package modules

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type fakeModule struct {
	name  string
	calls int
	fail  bool
}

func (m *fakeModule) Name() string        { return m.name }
func (m *fakeModule) Description() string { return "test module" }
func (m *fakeModule) APIVersion() string  { return "v1" }

func (m *fakeModule) Tools() []Tool {
	return []Tool{{
		ID:          m.name + ":echo",
		Name:        m.name + "_echo",
		Description: "echoes its input",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"text": {Type: "string", Description: "text to echo"},
			},
			Required: []string{"text"},
		},
		Annotations: AnnotateReadOnly,
	}}
}

func (m *fakeModule) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	m.calls++
	if m.fail {
		return "", fmt.Errorf("upstream exploded")
	}
	return params["text"].(string), nil
}

func (m *fakeModule) Resources() []Resource { return nil }
func (m *fakeModule) ReadResource(ctx context.Context, uri string) (string, error) {
	return "", fmt.Errorf("unknown resource: %s", uri)
}

func TestRegistry(t *testing.T) {
	mod := &fakeModule{name: "reg_test"}
	RegisterModule(mod)

	got, ok := GetModule("reg_test")
	if !ok || got.Name() != "reg_test" {
		t.Fatal("registered module not found")
	}

	found := false
	for _, m := range ListModules() {
		if m.Name() == "reg_test" {
			found = true
		}
	}
	if !found {
		t.Error("ListModules does not include registered module")
	}
}

func TestFindToolOwner(t *testing.T) {
	RegisterModule(&fakeModule{name: "owner_test"})

	mod, tool, ok := FindToolOwner("owner_test_echo")
	if !ok {
		t.Fatal("tool owner not found")
	}
	if mod.Name() != "owner_test" || tool.Name != "owner_test_echo" {
		t.Errorf("wrong owner %q / tool %q", mod.Name(), tool.Name)
	}

	if _, _, ok := FindToolOwner("no_such_tool"); ok {
		t.Error("expected lookup miss")
	}
}

func TestRunExecutesTool(t *testing.T) {
	mod := &fakeModule{name: "run_test"}
	RegisterModule(mod)

	out, err := Run(context.Background(), "run_test_echo", map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "hello" {
		t.Errorf("got %q, want %q", out, "hello")
	}
	if mod.calls != 1 {
		t.Errorf("expected 1 execution, got %d", mod.calls)
	}
}

func TestRunValidatesBeforeExecuting(t *testing.T) {
	mod := &fakeModule{name: "validate_run_test"}
	RegisterModule(mod)

	_, err := Run(context.Background(), "validate_run_test_echo", map[string]any{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "text") {
		t.Errorf("error should name the missing field: %v", err)
	}
	if mod.calls != 0 {
		t.Errorf("tool must not execute on validation failure, got %d calls", mod.calls)
	}
}

func TestRunUnknownTool(t *testing.T) {
	_, err := Run(context.Background(), "definitely_not_registered", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(err.Error(), "unknown tool") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunPropagatesToolError(t *testing.T) {
	RegisterModule(&fakeModule{name: "fail_test", fail: true})

	_, err := Run(context.Background(), "fail_test_echo", map[string]any{"text": "x"})
	if err == nil {
		t.Fatal("expected tool error to propagate")
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("unexpected error: %v", err)
	}
}
