package toolcall

import (
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantOK   bool
		wantName string
		wantArgs string
	}{
		{"plain text", "Bus 42 arrives at 9:15.", false, "", ""},
		{"get_time", "[CALL:get_time]", true, "get_time", ""},
		{"leading whitespace", "  [CALL:get_time]", true, "get_time", ""},
		{"calculate with args", `[CALL:calculate] {"operation": "add", "numbers": [1, 2]}`, true, "calculate", `{"operation": "add", "numbers": [1, 2]}`},
		{"marker mid-text", `Sure! [CALL:get_time]`, false, "", ""},
		{"unterminated marker", "[CALL:get_time", false, "", ""},
		{"empty name", "[CALL:]", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := Parse(tt.reply)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.reply, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if inv.Name != tt.wantName {
				t.Errorf("name = %q, want %q", inv.Name, tt.wantName)
			}
			if string(inv.Args) != tt.wantArgs {
				t.Errorf("args = %q, want %q", inv.Args, tt.wantArgs)
			}
		})
	}
}

func TestExecuteGetTime(t *testing.T) {
	r := NewRegistryWithClock(fixedClock{now: time.Date(2025, 4, 4, 9, 30, 0, 0, time.UTC)})
	got := r.Execute(Invocation{Name: "get_time"})
	if got != "2025-04-04 09:30:00" {
		t.Errorf("get_time = %q", got)
	}
}

func TestExecuteCalculate(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		args string
		want string
	}{
		{"add", `{"operation": "add", "numbers": [1, 2, 3]}`, "6"},
		{"subtract", `{"operation": "subtract", "numbers": [10, 3, 2]}`, "5"},
		{"multiply", `{"operation": "multiply", "numbers": [4, 2.5]}`, "10"},
		{"divide", `{"operation": "divide", "numbers": [10, 4]}`, "2.5"},
		{"divide by zero", `{"operation": "divide", "numbers": [10, 0]}`, "Error: Division by zero is not allowed."},
		{"too few numbers", `{"operation": "add", "numbers": [1]}`, "Error: Provide at least two numbers."},
		{"unknown operation", `{"operation": "modulo", "numbers": [5, 2]}`, "Error: Unsupported operation. Use 'add', 'subtract', 'multiply', or 'divide'."},
		{"bad json", `{not json`, "Error processing calculation request: invalid character 'n' looking for beginning of object key string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Execute(Invocation{Name: "calculate", Args: []byte(tt.args)})
			if got != tt.want {
				t.Errorf("calculate(%s) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	got := r.Execute(Invocation{Name: "launch_rocket"})
	if got != `Error: unknown tool "launch_rocket".` {
		t.Errorf("unexpected result %q", got)
	}
}
