package task

import (
	"fmt"
	"strconv"
	"strings"
)

// Override values use the form ">>name<<" and resolve through the project
// override store instead of being used literally.
const (
	overridePrefix = ">>"
	overrideSuffix = "<<"
)

// Params is a typed view over a Config record. Required keys are enforced,
// optional keys fall back to documented defaults, and string values of the
// form ">>name<<" resolve through the override store carried by the Context.
type Params struct {
	cfg    Config
	lookup func(string) (string, bool)
}

// NewParams builds a Params view resolving overrides against ctx.
func NewParams(cfg Config, ctx *Context) Params {
	lookup := func(string) (string, bool) { return "", false }
	if ctx != nil {
		lookup = ctx.Env
	}
	return Params{cfg: cfg, lookup: lookup}
}

// Has reports whether the record carries the key at all.
func (p Params) Has(key string) bool {
	_, ok := p.cfg[key]
	return ok
}

// Require returns the named option, resolved through the override store,
// or a ConfigError when the record omits it.
func (p Params) Require(key string) (string, error) {
	raw, ok := p.cfg[key]
	if !ok {
		return "", NewConfigError(key, "required option is missing")
	}
	return p.resolve(key, asString(raw), true)
}

// String returns the named option or def when absent. Override values
// resolve strictly.
func (p Params) String(key, def string) (string, error) {
	raw, ok := p.cfg[key]
	if !ok {
		return def, nil
	}
	return p.resolve(key, asString(raw), true)
}

// StringOrEnv returns the named option when present; otherwise it consults
// the override store under envKey, yielding empty when that is absent too.
func (p Params) StringOrEnv(key, envKey string) (string, error) {
	if raw, ok := p.cfg[key]; ok {
		return p.resolve(key, asString(raw), true)
	}
	value, _ := p.lookup(envKey)
	return value, nil
}

// Bool returns the named option coerced to bool, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	raw, ok := p.cfg[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, NewConfigError(key, "expected bool, got %q", v)
		}
		return parsed, nil
	default:
		return false, NewConfigError(key, "expected bool, got %T", raw)
	}
}

// Int returns the named option coerced to int, or def when absent. Override
// values resolve before parsing.
func (p Params) Int(key string, def int) (int, error) {
	raw, ok := p.cfg[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		resolved, err := p.resolve(key, v, true)
		if err != nil {
			return 0, err
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(resolved))
		if err != nil {
			return 0, NewConfigError(key, "expected integer, got %q", resolved)
		}
		return parsed, nil
	default:
		return 0, NewConfigError(key, "expected integer, got %T", raw)
	}
}

// Float returns the named option coerced to float64, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p.cfg[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		resolved, err := p.resolve(key, v, true)
		if err != nil {
			return 0, err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(resolved), 64)
		if err != nil {
			return 0, NewConfigError(key, "expected number, got %q", resolved)
		}
		return parsed, nil
	default:
		return 0, NewConfigError(key, "expected number, got %T", raw)
	}
}

func (p Params) resolve(key, value string, strict bool) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, overridePrefix) || !strings.HasSuffix(trimmed, overrideSuffix) {
		return value, nil
	}
	name := strings.TrimSuffix(strings.TrimPrefix(trimmed, overridePrefix), overrideSuffix)
	resolved, ok := p.lookup(name)
	if !ok {
		if strict {
			return "", NewConfigError(key, "override %s is not set in the project environment", name)
		}
		return "", nil
	}
	return resolved, nil
}

func asString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", raw)
	}
}
