package container

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Token identifies a service in the container.
//
// Any comparable value can be used. Strings compare by value; *Symbol values
// compare by identity, so two symbols with the same description never
// collide.
type Token = any

// Symbol is a unique token. Create one with NewSymbol.
type Symbol struct {
	desc string
}

// NewSymbol returns a new unique token with the given description.
//
//	var LoggerToken = container.NewSymbol("logger")
func NewSymbol(description string) *Symbol {
	return &Symbol{desc: description}
}

// Description returns the description the symbol was created with.
func (s *Symbol) Description() string { return s.desc }

func (s *Symbol) String() string { return "Symbol(" + s.desc + ")" }

// validToken reports whether t can be used as a map key.
func validToken(t Token) bool {
	if t == nil {
		return false
	}
	return reflect.TypeOf(t).Comparable()
}

// Stringify renders tokens, classes and arbitrary values for error messages.
//
//	Stringify("db")                 // db
//	Stringify(nil)                  // null
//	Stringify(NewSymbol("db"))      // Symbol(db)
//	Stringify(NewEngine)            // NewEngine
//	Stringify(reflect.TypeOf(e))    // Engine
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case reflect.Type:
		return typeName(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if rv.IsNil() {
			return "null"
		}
		return funcName(rv)
	case reflect.Pointer:
		if rv.IsNil() {
			return typeName(rv.Type())
		}
	}
	if s, ok := v.(fmt.Stringer); ok {
		return firstLine(s.String())
	}
	return firstLine(fmt.Sprint(v))
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// funcName strips the package path and closure suffixes from a function's
// runtime name.
func funcName(rv reflect.Value) string {
	fn := runtime.FuncForPC(rv.Pointer())
	if fn == nil {
		return rv.Type().String()
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
