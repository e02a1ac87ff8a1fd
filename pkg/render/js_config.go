package render

// jsOptions is shared by the goja-backed evaluator and the stub compiled
// without the js_eval tag, so callers can pass options either way.
type jsOptions struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// JSEvaluatorOption configures the placeholder evaluator backed by goja.
type JSEvaluatorOption func(*jsOptions)

// JSWithProgramCache stores compiled placeholder scripts in cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(o *jsOptions) {
		o.cache = cache
	}
}

// JSWithFunctionRegistry exposes a copy of functions to placeholder scripts,
// both as globals and through call(name, ...args).
func JSWithFunctionRegistry(functions *FunctionRegistry) JSEvaluatorOption {
	return func(o *jsOptions) {
		if functions != nil {
			o.functions = functions.Clone()
		}
	}
}

func collectJSOptions(opts []JSEvaluatorOption) jsOptions {
	var o jsOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
