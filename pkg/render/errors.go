package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEngine indicates an evaluator name NewEvaluator does not know.
	ErrUnknownEngine = errors.New("render: unknown evaluator engine")
	// ErrEvaluatorUnavailable indicates an evaluator excluded from this build.
	ErrEvaluatorUnavailable = errors.New("render: evaluator not available in this build")
	// ErrEmptyExpression indicates a placeholder with nothing between the braces.
	ErrEmptyExpression = errors.New("render: expression must not be empty")
	// ErrUnclosedPlaceholder indicates markup with an opening `{{` and no `}}`.
	ErrUnclosedPlaceholder = errors.New("render: unclosed placeholder")
	// ErrUnitNotRegistered indicates Render was asked for an unknown unit.
	ErrUnitNotRegistered = errors.New("render: unit not registered")
	// ErrUnitRequired indicates a definition without an identifier.
	ErrUnitRequired = errors.New("render: unit identifier is required")
)

// RenderError captures the unit and expression that failed alongside the
// originating error.
type RenderError struct {
	Unit   string
	Engine string
	Expr   string
	Offset int
	Err    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("render: unit %q %s evaluator %s at offset %d: %v",
		e.Unit, e.Engine, describeExpression(e.Expr), e.Offset, e.Err)
}

func (e *RenderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "render:") {
		return err
	}
	return fmt.Errorf("render: %s evaluator: %w", engine, err)
}

func wrapRenderError(unit, engine, expr string, offset int, err error) error {
	if err == nil {
		return nil
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		if renderErr.Unit == "" {
			renderErr.Unit = unit
		}
		if renderErr.Engine == "" {
			renderErr.Engine = engine
		}
		if renderErr.Expr == "" {
			renderErr.Expr = expr
		}
		return renderErr
	}

	return &RenderError{
		Unit:   unit,
		Engine: engine,
		Expr:   expr,
		Offset: offset,
		Err:    err,
	}
}
