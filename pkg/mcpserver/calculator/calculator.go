// Package calculator provides an MCP server with a calculator tool.
package calculator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with calculator tools.
func NewServer() *server.MCPServer {
	s := server.NewMCPServer(
		"calculator",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Define the sum tool that accepts an array of numbers
	sumTool := mcp.NewTool("sum",
		mcp.WithDescription("Calculates the sum of an array of numbers"),
		mcp.WithArray("numbers",
			mcp.Required(),
			mcp.Description("Array of numbers to sum"),
			mcp.Items(map[string]any{
				"type": "number",
			}),
		),
	)

	averageTool := mcp.NewTool("average",
		mcp.WithDescription("Calculates the arithmetic mean of an array of numbers"),
		mcp.WithArray("numbers",
			mcp.Required(),
			mcp.Description("Array of numbers to average"),
			mcp.Items(map[string]any{
				"type": "number",
			}),
		),
	)

	s.AddTool(sumTool, reduceHandler(func(acc, n float64) float64 { return acc + n }, 0))
	s.AddTool(averageTool, averageHandler)

	return s
}

// reduceHandler builds a tool handler that folds the "numbers" argument
// through fn starting from seed, returning the formatted result.
func reduceHandler(fn func(acc, n float64) float64, seed float64) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		numbers, errResult := extractNumbers(request)
		if errResult != nil {
			return errResult, nil
		}

		acc := seed
		for _, n := range numbers {
			acc = fn(acc, n)
		}

		return mcp.NewToolResultText(formatFloat(acc)), nil
	}
}

// averageHandler handles the average tool call.
func averageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	numbers, errResult := extractNumbers(request)
	if errResult != nil {
		return errResult, nil
	}
	if len(numbers) == 0 {
		return mcp.NewToolResultError("numbers must not be empty"), nil
	}

	var sum float64
	for _, n := range numbers {
		sum += n
	}

	return mcp.NewToolResultText(formatFloat(sum / float64(len(numbers)))), nil
}

// extractNumbers pulls and validates the "numbers" argument shared by every
// tool in this server. Returns a non-nil *mcp.CallToolResult on error.
func extractNumbers(request mcp.CallToolRequest) ([]float64, *mcp.CallToolResult) {
	args := request.GetArguments()
	numbersArg, ok := args["numbers"]
	if !ok {
		return nil, mcp.NewToolResultError("numbers argument is required")
	}

	numbers, err := toFloat64Slice(numbersArg)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid numbers: %v", err))
	}

	return numbers, nil
}

// toFloat64Slice converts an interface{} to []float64.
func toFloat64Slice(v any) ([]float64, error) {
	switch arr := v.(type) {
	case []any:
		result := make([]float64, len(arr))
		for i, elem := range arr {
			switch n := elem.(type) {
			case float64:
				result[i] = n
			case int:
				result[i] = float64(n)
			case int64:
				result[i] = float64(n)
			default:
				return nil, fmt.Errorf("element %d is not a number: %T", i, elem)
			}
		}
		return result, nil
	case []float64:
		return arr, nil
	case []int:
		result := make([]float64, len(arr))
		for i, n := range arr {
			result[i] = float64(n)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("expected array, got %T", v)
	}
}

// formatFloat formats a float64 as a string, removing trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
