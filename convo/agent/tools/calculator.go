package tools

import (
	"context"
	"fmt"
	"math"
)

func calculatorTools() []Tool {
	return []Tool{
		binaryOp("add", "Add two numbers. Params: {\"a\": number, \"b\": number}.",
			func(a, b float64) (float64, error) { return a + b, nil }),
		binaryOp("subtract", "Subtract b from a. Params: {\"a\": number, \"b\": number}.",
			func(a, b float64) (float64, error) { return a - b, nil }),
		binaryOp("multiply", "Multiply two numbers. Params: {\"a\": number, \"b\": number}.",
			func(a, b float64) (float64, error) { return a * b, nil }),
		binaryOp("divide", "Divide a by b. Params: {\"a\": number, \"b\": number}.",
			func(a, b float64) (float64, error) {
				if b == 0 {
					return 0, fmt.Errorf("division by zero")
				}
				return a / b, nil
			}),
		binaryOp("mod", "Modulus of a and b. Params: {\"a\": number, \"b\": number}.",
			func(a, b float64) (float64, error) {
				if b == 0 {
					return 0, fmt.Errorf("mod by zero")
				}
				return math.Mod(a, b), nil
			}),
	}
}

func binaryOp(name, desc string, op func(a, b float64) (float64, error)) Tool {
	return Tool{
		Name:        name,
		Description: desc,
		Run: func(_ context.Context, params map[string]interface{}) (interface{}, error) {
			a, err := numParam(params, "a")
			if err != nil {
				return nil, err
			}
			b, err := numParam(params, "b")
			if err != nil {
				return nil, err
			}
			return op(a, b)
		},
	}
}

func numParam(params map[string]interface{}, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing param %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("param %q is not a number", key)
	}
}
