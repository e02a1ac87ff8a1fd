//go:build js_eval

package render

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs each placeholder in a fresh goja runtime.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	o := collectJSOptions(opts)
	return &jsEvaluator{
		cache:    o.cache,
		registry: o.functions,
	}
}

func (e *jsEvaluator) Evaluate(env map[string]any, expression string) (any, error) {
	program, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return program.Run(env)
}

func (e *jsEvaluator) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, wrapEvaluatorError(EngineJS, err)
	}
	return &jsProgram{evaluator: e, program: program}, nil
}

func (e *jsEvaluator) loadOrCompile(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(EngineJS + ":" + expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(EngineJS+":"+expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) injectEnv(vm *goja.Runtime, env map[string]any) error {
	for key, value := range env {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	if e.registry != nil {
		if err := vm.Set("call", func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}); err != nil {
			return err
		}
		for _, name := range e.registry.Names() {
			fn := name
			if err := vm.Set(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsProgram struct {
	evaluator *jsEvaluator
	program   *goja.Program
}

func (p *jsProgram) Run(env map[string]any) (any, error) {
	vm := goja.New()
	if err := p.evaluator.injectEnv(vm, env); err != nil {
		return nil, wrapEvaluatorError(EngineJS, err)
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, wrapEvaluatorError(EngineJS, err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
