package internal

import (
	"fmt"
	"reflect"
)

// Identifier names a middleware or route handler without necessarily
// constructing it. It is a closed set of three variants:
//
//   - Instance: an already constructed Middleware or Handler
//   - Named: a deferred reference resolved through a Lookup at call time
//   - Func: a plain function with a middleware or handler signature
//
// The Resolver turns an Identifier into something invocable only when the
// chain actually reaches it.
type Identifier interface {
	fmt.Stringer
	isIdentifier()
}

// InstanceID carries a constructed Middleware or Handler.
type InstanceID struct {
	Value any
}

// NamedID carries a name the Lookup knows how to instantiate.
type NamedID struct {
	Name string
}

// FuncID carries a plain function.
// Accepted shapes are func(*Request, Handler) (*Response, error) and
// func(*Request) (*Response, error); anything else fails resolution.
type FuncID struct {
	Fn any
}

func (InstanceID) isIdentifier() {}
func (NamedID) isIdentifier()    {}
func (FuncID) isIdentifier()     {}

func (id InstanceID) String() string {
	return fmt.Sprintf("instance(%T)", id.Value)
}

func (id NamedID) String() string {
	return "named(" + id.Name + ")"
}

func (id FuncID) String() string {
	if id.Fn == nil {
		return "func(<nil>)"
	}
	return "func(" + reflect.TypeOf(id.Fn).String() + ")"
}

// Instance identifies an already constructed Middleware or Handler.
func Instance(v any) Identifier {
	return InstanceID{Value: v}
}

// Named identifies a middleware or handler by the name it was registered
// under in the Lookup. Nothing is constructed until the chain reaches it.
func Named(name string) Identifier {
	return NamedID{Name: name}
}

// Func identifies a plain function.
//
// Example:
//
//	conveyor.Func(func(req *conveyor.Request, next conveyor.Handler) (*conveyor.Response, error) {
//	    return next.Handle(req.WithHeader("X-Seen", "1"))
//	})
func Func(fn any) Identifier {
	return FuncID{Fn: fn}
}
