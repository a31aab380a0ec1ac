package container

import (
	"reflect"

	jsoniter "github.com/json-iterator/go"
)

// Factory builds a service. It receives the container so it can resolve its
// own dependencies with Get.
//
//	container.FactoryProvider{Token: "car", Factory: func(c *container.Container) (any, error) {
//	    engine, err := container.Resolve[*Engine](c, "engine")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &Car{Engine: engine}, nil
//	}}
type Factory func(c *Container) (any, error)

// Provider is a declarative recipe for a token's value. It is implemented by
// ValueProvider, ClassProvider, FactoryProvider and AliasProvider only.
type Provider interface {
	ProvideToken() Token
	kind() Kind
}

// Kind names a provider variant.
type Kind string

const (
	KindValue   Kind = "value"
	KindClass   Kind = "class"
	KindFactory Kind = "factory"
	KindAlias   Kind = "alias"
)

// ValueProvider binds a pre-built value. Value may be nil.
type ValueProvider struct {
	Token Token
	Value any
}

// ClassProvider binds a type built with its zero-argument constructor.
//
// Class may be a function with no required parameters returning T or
// (T, error), a reflect.Type, or a typed nil pointer such as (*Engine)(nil).
// The latter two build a pointer to a new zero value.
type ClassProvider struct {
	Token Token
	Class any
}

// FactoryProvider binds a factory function.
type FactoryProvider struct {
	Token   Token
	Factory Factory
}

// AliasProvider makes Token resolve to whatever Target resolves to.
type AliasProvider struct {
	Token  Token
	Target Token
}

func (p ValueProvider) ProvideToken() Token   { return p.Token }
func (p ClassProvider) ProvideToken() Token   { return p.Token }
func (p FactoryProvider) ProvideToken() Token { return p.Token }
func (p AliasProvider) ProvideToken() Token   { return p.Token }

func (ValueProvider) kind() Kind   { return KindValue }
func (ClassProvider) kind() Kind   { return KindClass }
func (FactoryProvider) kind() Kind { return KindFactory }
func (AliasProvider) kind() Kind   { return KindAlias }

// Value is shorthand for ValueProvider{Token: token, Value: v}.
func Value(token Token, v any) ValueProvider {
	return ValueProvider{Token: token, Value: v}
}

// Class builds a ClassProvider for T, whose zero value is always constructable.
//
//	container.Class[Engine]("engine") // resolves to *Engine
func Class[T any](token Token) ClassProvider {
	return ClassProvider{Token: token, Class: reflect.TypeOf((*T)(nil)).Elem()}
}

// Alias is shorthand for AliasProvider{Token: alias, Target: target}.
func Alias(alias, target Token) AliasProvider {
	return AliasProvider{Token: alias, Target: target}
}

// definition is a classified provider, ready to be stored.
type definition struct {
	kind    Kind
	token   Token
	value   any
	factory Factory
	target  Token
}

// classify checks that p has exactly the shape of its variant and converts
// class providers into factories.
func classify(p Provider) (definition, error) {
	if p == nil || !validToken(p.ProvideToken()) {
		return definition{}, errInvalidProvider(p)
	}

	switch v := p.(type) {
	case ValueProvider:
		return definition{kind: KindValue, token: v.Token, value: v.Value}, nil
	case ClassProvider:
		if v.Class == nil {
			return definition{}, errInvalidProvider(p)
		}
		f, err := classToFactory(v.Class)
		if err != nil {
			return definition{}, err
		}
		return definition{kind: KindClass, token: v.Token, factory: f}, nil
	case FactoryProvider:
		if v.Factory == nil {
			return definition{}, errInvalidProvider(p)
		}
		return definition{kind: KindFactory, token: v.Token, factory: v.Factory}, nil
	case AliasProvider:
		if !validToken(v.Target) {
			return definition{}, errInvalidProvider(p)
		}
		return definition{kind: KindAlias, token: v.Token, target: v.Target}, nil
	}
	return definition{}, errInvalidProvider(p)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// classToFactory converts a class reference into a zero-argument factory.
func classToFactory(class any) (Factory, error) {
	if t, ok := class.(reflect.Type); ok {
		return typeFactory(class, t)
	}

	rv := reflect.ValueOf(class)
	switch rv.Kind() {
	case reflect.Func:
		return funcFactory(class, rv)
	case reflect.Pointer:
		if rv.IsNil() {
			return typeFactory(class, rv.Type())
		}
	}
	return nil, errInvalidClass(class)
}

func typeFactory(class any, t reflect.Type) (Factory, error) {
	if t == nil {
		return nil, errInvalidClass(class)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Pointer, reflect.Invalid:
		return nil, errInvalidClass(class)
	}
	return func(*Container) (any, error) {
		return reflect.New(t).Interface(), nil
	}, nil
}

func funcFactory(class any, fn reflect.Value) (Factory, error) {
	if fn.IsNil() {
		return nil, errInvalidClass(class)
	}
	ft := fn.Type()

	required := ft.NumIn()
	if ft.IsVariadic() {
		required--
	}
	if required > 0 {
		return nil, errInvalidConstructor(class)
	}

	switch {
	case ft.NumOut() == 1 && ft.Out(0) != errorType:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, errInvalidClass(class)
	}

	return func(*Container) (any, error) {
		out := fn.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, nil
}

var describeJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// describeProvider renders a rejected provider: its fields as JSON when it is
// one of the known variants, its string form otherwise.
func describeProvider(p any) string {
	var fields map[string]string
	switch v := p.(type) {
	case ValueProvider:
		fields = map[string]string{"token": Stringify(v.Token), "value": Stringify(v.Value)}
	case ClassProvider:
		fields = map[string]string{"token": Stringify(v.Token), "class": Stringify(v.Class)}
	case FactoryProvider:
		fields = map[string]string{"token": Stringify(v.Token), "factory": Stringify(v.Factory)}
	case AliasProvider:
		fields = map[string]string{"token": Stringify(v.Token), "alias": Stringify(v.Target)}
	default:
		return Stringify(p)
	}
	out, err := describeJSON.Marshal(fields)
	if err != nil {
		return Stringify(p)
	}
	return string(out)
}
