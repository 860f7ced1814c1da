// Package tools implements the relay's MCP tool handlers.
//
// Each tool is a struct that receives its dependencies via constructor and
// exposes Definition() for registration and Handle() for calls. Domain
// failures are returned as error results, never as Go errors, so the calling
// agent always gets text it can act on.
package tools

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/HendryAvila/agent-relay/internal/messages"
	"github.com/mark3labs/mcp-go/mcp"
)

// stringArg extracts a trimmed string argument, or "" when absent.
func stringArg(req mcp.CallToolRequest, key string) string {
	return strings.TrimSpace(req.GetString(key, ""))
}

// boolArg extracts a boolean argument. Strings "true"/"false" are accepted
// since some hosts stringify scalars.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return defaultVal, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, argError(key, "%q is not a boolean: must be true or false", v)
		}
		return b, nil
	}
	return false, argError(key, "must be true or false")
}

// nonNegativeIntArg extracts a non-negative integer argument (JSON numbers
// arrive as float64).
func nonNegativeIntArg(req mcp.CallToolRequest, key string, defaultVal int) (int, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return defaultVal, nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, argError(key, "%q is not an integer: must be a non-negative integer", v)
		}
		f = float64(n)
	default:
		return 0, argError(key, "must be a non-negative integer")
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, argError(key, "%v is not an integer: must be a non-negative integer", f)
	}
	if f < 0 {
		return 0, argError(key, "%v is negative: must be a non-negative integer", f)
	}
	if f > math.MaxInt32 {
		return 0, argError(key, "%v is too large", f)
	}
	return int(f), nil
}

// stringSliceArg extracts an optional list of strings.
func stringSliceArg(req mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, argError(key, "item %d is not a string: must be a list of file paths", i)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	}
	return nil, argError(key, "must be a list of file paths")
}

func argError(field, format string, args ...any) error {
	return &messages.ArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func requiredName(field string) error {
	return argError(field, "is required: a non-empty agent name (see list_agents)")
}

// errorResult maps a store or argument error onto the text the caller sees.
func errorResult(err error) *mcp.CallToolResult {
	var argErr *messages.ArgumentError
	switch {
	case errors.As(err, &argErr):
		return mcp.NewToolResultError("Invalid argument: " + argErr.Error())
	case errors.Is(err, messages.ErrDuplicateID):
		return mcp.NewToolResultError(fmt.Sprintf("Message not sent: %s. Nothing was written; sending again generates a new id.", err))
	case errors.Is(err, messages.ErrStorage):
		return mcp.NewToolResultError(fmt.Sprintf("Storage failure: %s. The inbox was not modified; it is safe to retry.",
			strings.TrimPrefix(err.Error(), messages.ErrStorage.Error()+": ")))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Operation failed: %v", err))
	}
}
