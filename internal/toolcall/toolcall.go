// Package toolcall parses and executes the [CALL:name] markers a model
// reply may lead with, splicing the local result into the displayed
// message.
package toolcall

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const callPrefix = "[CALL:"

// Invocation is a parsed tool request: a known tool name plus raw JSON
// arguments (empty for argument-less tools).
type Invocation struct {
	Name string
	Args json.RawMessage
}

// Parse splits a model reply into either plain text or a tool invocation.
// The marker must lead the reply; markers elsewhere are treated as text.
func Parse(reply string) (Invocation, bool) {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, callPrefix) {
		return Invocation{}, false
	}

	end := strings.Index(trimmed, "]")
	if end < 0 {
		return Invocation{}, false
	}

	name := trimmed[len(callPrefix):end]
	if name == "" {
		return Invocation{}, false
	}

	rest := strings.TrimSpace(trimmed[end+1:])
	inv := Invocation{Name: name}
	if rest != "" {
		inv.Args = json.RawMessage(rest)
	}
	return inv, true
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Registry executes known tool invocations.
type Registry struct {
	clock Clock
}

// NewRegistry creates a Registry backed by the system clock.
func NewRegistry() *Registry {
	return &Registry{clock: realClock{}}
}

// NewRegistryWithClock creates a Registry with a custom clock (for testing).
func NewRegistryWithClock(clock Clock) *Registry {
	return &Registry{clock: clock}
}

// Execute runs the invocation and returns the text to splice into the
// reply. Tool failures produce user-facing error text, never a Go error:
// a broken tool call is a content problem, not a fault.
func (r *Registry) Execute(inv Invocation) string {
	switch inv.Name {
	case "get_time":
		return r.clock.Now().Format("2006-01-02 15:04:05")
	case "calculate":
		return calculate(inv.Args)
	default:
		return fmt.Sprintf("Error: unknown tool %q.", inv.Name)
	}
}

type calculateParams struct {
	Operation string    `json:"operation"`
	Numbers   []float64 `json:"numbers"`
}

func calculate(args json.RawMessage) string {
	var params calculateParams
	if err := json.Unmarshal(args, &params); err != nil {
		return fmt.Sprintf("Error processing calculation request: %v", err)
	}
	if len(params.Numbers) < 2 {
		return "Error: Provide at least two numbers."
	}

	result := params.Numbers[0]
	for _, n := range params.Numbers[1:] {
		switch params.Operation {
		case "add":
			result += n
		case "subtract":
			result -= n
		case "multiply":
			result *= n
		case "divide":
			if n == 0 {
				return "Error: Division by zero is not allowed."
			}
			result /= n
		default:
			return "Error: Unsupported operation. Use 'add', 'subtract', 'multiply', or 'divide'."
		}
	}
	return strconv.FormatFloat(result, 'f', -1, 64)
}
