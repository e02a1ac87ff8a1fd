//go:build !js_eval

package render

// NewJSEvaluator returns nil in builds without the js_eval tag; placeholders
// cannot select the js engine there and NewEvaluator reports
// ErrEvaluatorUnavailable instead.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = collectJSOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool { return false }
