package celengine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"golang.org/x/sync/singleflight"
)

var envCache = sync.Map{}

// GetOrBuildEnv returns an environment declaring every key of attrs. Envs are
// cached by the attribute signature (names and types).
func GetOrBuildEnv(attrs map[string]any) (*cel.Env, error) {
	key := signature(attrs)
	if v, ok := envCache.Load(key); ok {
		return v.(*cel.Env), nil
	}

	env, err := BuildCelEnvFromAttributes(attrs)
	if err == nil {
		envCache.Store(key, env)
	}

	return env, err
}

func signature(attrs map[string]any) string {
	parts := make([]string, 0, len(attrs))
	for k, v := range attrs {
		parts = append(parts, fmt.Sprintf("%s:%T", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func BuildCelEnvFromAttributes(attrs map[string]any) (*cel.Env, error) {
	variables := make([]cel.EnvOption, 0, len(attrs))

	for key, val := range attrs {
		switch v := val.(type) {
		case string:
			variables = append(variables, cel.Variable(key, cel.StringType))
		case int, int32, int64:
			variables = append(variables, cel.Variable(key, cel.IntType))
		case float32, float64:
			variables = append(variables, cel.Variable(key, cel.DoubleType))
		case bool:
			variables = append(variables, cel.Variable(key, cel.BoolType))
		case []string:
			variables = append(variables, cel.Variable(key, cel.ListType(cel.StringType)))
		case []any:
			if len(v) > 0 {
				if _, ok := v[0].(map[string]any); ok {
					variables = append(variables, cel.Variable(key, cel.ListType(cel.MapType(cel.StringType, cel.DynType))))
					continue
				}
			}
			variables = append(variables, cel.Variable(key, cel.ListType(cel.DynType)))
		case map[string]any:
			variables = append(variables, cel.Variable(key, cel.MapType(cel.StringType, cel.DynType)))
		default:
			variables = append(variables, cel.Variable(key, cel.DynType))
		}
	}

	return cel.NewEnv(variables...)
}

func ValidateExpression(env *cel.Env, expr string) error {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}
	return nil
}

// ProgramCache holds compiled programs keyed by expression. Concurrent
// compiles of the same expression are collapsed.
type ProgramCache struct {
	mu       sync.RWMutex
	items    map[string]cel.Program
	group    singleflight.Group
	OnLookup func(hit bool)
}

func NewProgramCache() *ProgramCache {
	return &ProgramCache{items: make(map[string]cel.Program)}
}

func (c *ProgramCache) lookup(hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
}

func (c *ProgramCache) Program(env *cel.Env, expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, ok := c.items[expr]
	c.mu.RUnlock()
	if ok {
		c.lookup(true)
		return prg, nil
	}
	c.lookup(false)

	v, err, _ := c.group.Do(expr, func() (any, error) {
		if err := ValidateExpression(env, expr); err != nil {
			return nil, err
		}
		ast, _ := env.Compile(expr)
		prg, err := env.Program(ast)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[expr] = prg
		c.mu.Unlock()
		return prg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(cel.Program), nil
}

func (c *ProgramCache) Invalidate(expr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, expr)
}

func EvalBool(prg cel.Program, attrs map[string]any) (bool, error) {
	out, _, err := prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", out.Value(), out.Value())
	}

	return b, nil
}

func Evaluate(env *cel.Env, expr string, attrs map[string]any) (bool, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, issues.Err()
	}

	prg, err := env.Program(ast)
	if err != nil {
		return false, err
	}

	return EvalBool(prg, attrs)
}
