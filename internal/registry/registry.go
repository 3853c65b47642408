// Copyright (c) 2019 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package registry is a reflect-based wireup.TypeResolver suitable for
// wiring plain Go functions straight into a spec without writing one
// Constructor closure per type by hand. It is test/example plumbing, not
// part of the public wireup API: a host is free to implement TypeResolver
// however it likes.
package registry

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sywhang/wireup"
)

// Registry adapts ordinary Go functions and struct types into a
// wireup.TypeResolver via reflect.
type Registry struct {
	ctors     map[string]reflect.Value
	skeletons map[string]reflect.Type
	populate  map[string]func(instance any, pos []any, kw map[string]any) error
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		ctors:     make(map[string]reflect.Value),
		skeletons: make(map[string]reflect.Type),
		populate:  make(map[string]func(instance any, pos []any, kw map[string]any) error),
	}
}

func key(module, typ string) string { return module + "." + typ }

// Register installs fn as the constructor for module.typ. fn must be a
// function of the shape func(args...) (T, error) or func(args...) T;
// wireup's resolved positional arguments are passed to it in order.
func (r *Registry) Register(module, typ string, fn any) {
	r.ctors[key(module, typ)] = reflect.ValueOf(fn)
}

// RegisterSkeleton makes module.typ support wireup's cycle-recovery
// protocol. zero is a pointer to the zero value to allocate fresh copies
// of via reflect.New; populate receives the freshly allocated instance
// once the entry's own arguments are ready.
func (r *Registry) RegisterSkeleton(module, typ string, zero any, populate func(instance any, pos []any, kw map[string]any) error) {
	r.skeletons[key(module, typ)] = reflect.TypeOf(zero)
	r.populate[key(module, typ)] = populate
}

// Resolve implements wireup.TypeResolver.
func (r *Registry) Resolve(module, typ, factory string) (wireup.Constructor, error) {
	fv, ok := r.ctors[key(module, typ)]
	if !ok {
		return nil, fmt.Errorf("registry: no constructor registered for %s.%s", module, typ)
	}
	return func(ctx context.Context, pos []any, kw map[string]any) (any, error) {
		return call(fv, pos)
	}, nil
}

// ResolveSkeleton implements wireup.TypeResolver.
func (r *Registry) ResolveSkeleton(module, typ string) (any, wireup.SkeletonPopulator, error) {
	t, ok := r.skeletons[key(module, typ)]
	if !ok {
		return nil, nil, wireup.ErrSkeletonUnsupported
	}
	instance := reflect.New(t.Elem()).Interface()
	populate := r.populate[key(module, typ)]
	return instance, func(ctx context.Context, inst any, pos []any, kw map[string]any) error {
		return populate(inst, pos, kw)
	}, nil
}

// call invokes fv with pos supplied positionally, and normalizes its
// (T, error), (T), or (error) return shapes into wireup's Constructor
// contract.
func call(fv reflect.Value, pos []any) (any, error) {
	ft := fv.Type()
	if ft.NumIn() != len(pos) {
		return nil, fmt.Errorf("registry: constructor expects %d args, got %d", ft.NumIn(), len(pos))
	}
	args := make([]reflect.Value, len(pos))
	for i, p := range pos {
		if p == nil {
			args[i] = reflect.Zero(ft.In(i))
			continue
		}
		args[i] = reflect.ValueOf(p)
	}
	out := fv.Call(args)
	switch len(out) {
	case 1:
		if err, ok := out[0].Interface().(error); ok {
			return nil, err
		}
		return out[0].Interface(), nil
	case 2:
		var err error
		if e, ok := out[1].Interface().(error); ok {
			err = e
		}
		return out[0].Interface(), err
	default:
		return nil, fmt.Errorf("registry: constructor must return (T) or (T, error)")
	}
}
