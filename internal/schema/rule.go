package schema

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// CompileRule compiles a field validation expression. The expression sees
// the coerced value as `value` and must evaluate to a boolean; true means
// the value is accepted. No environment is declared: value types vary per
// field, so type checking happens at run time.
func CompileRule(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile rule: %w", err)
	}
	return prog, nil
}

// ruleCache holds compiled programs keyed by expression text. Rules are
// immutable strings, so a stale entry can only be an identical program.
var ruleCache sync.Map

func compiledRule(expression string) (*vm.Program, error) {
	if cached, ok := ruleCache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	prog, err := CompileRule(expression)
	if err != nil {
		return nil, err
	}
	ruleCache.Store(expression, prog)
	return prog, nil
}

// CheckRule evaluates the field's validation rule against a coerced value.
// Fields without a rule always pass. Rules are validated at definition time,
// so a compile failure here means the stored expression was edited out of
// band; it is reported like any other violation.
func (f *Field) CheckRule(value any) error {
	if f.Rule == "" {
		return nil
	}
	prog, err := compiledRule(f.Rule)
	if err != nil {
		return err
	}
	result, err := expr.Run(prog, map[string]any{"value": value})
	if err != nil {
		return fmt.Errorf("evaluate rule: %w", err)
	}
	ok, _ := result.(bool)
	if !ok {
		return fmt.Errorf("value rejected by rule %q", f.Rule)
	}
	return nil
}
