package render

import (
	"fmt"
	"strings"
)

// Engine names accepted by NewEvaluator.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// Evaluator runs placeholder expressions against an environment map.
type Evaluator interface {
	Evaluate(env map[string]any, expression string) (any, error)
	Compile(expression string) (Program, error)
}

// Program is a compiled expression that can run against many environments.
type Program interface {
	Run(env map[string]any) (any, error)
}

// NewEvaluator constructs the evaluator registered under name. An empty name
// selects expr.
func NewEvaluator(name string, cache ProgramCache, functions *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(functions)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(functions)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEvaluatorUnavailable, name)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(functions)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
}

// Engines lists the evaluator names available in this build.
func Engines() []string {
	names := []string{EngineCEL, EngineExpr}
	if jsEvaluatorAvailable() {
		names = append(names, EngineJS)
	}
	return names
}
