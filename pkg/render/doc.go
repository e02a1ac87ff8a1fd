// Package render is the default rendering engine for registered units. It
// interpolates `{{ expression }}` placeholders in unit markup, evaluating each
// expression against the flattened overlay context of an instance. Expressions
// run on expr by default; CEL and (with the js_eval build tag) JavaScript
// evaluators are available through the same Evaluator interface.
package render
