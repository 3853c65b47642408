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

package wireup

import (
	"context"
	"errors"
)

// skeletonState tracks a single in-progress cycle recovery: an instance
// published before it is fully populated, the populator that finishes it,
// and a one-shot "ready" event any other waiter can use to know the
// instance is safe to use in full.
type skeletonState struct {
	instance any
	populate SkeletonPopulator
	ready    chan struct{}
	err      error
}

// recoverCycle implements the cycle recovery protocol. It is invoked from
// build when the buildContext stack shows name is already under
// construction by the same top-level Build call.
//
// The first caller to hit the cycle allocates and publishes a skeleton;
// anyone who hits the same in-progress entry afterwards (including the
// original builder, once its own recursive dependency chain loops back)
// simply receives the same published reference. The original builder is
// the one responsible for populating it once its own constructor
// arguments are ready — see finalizeSkeleton.
func (c *Container) recoverCycle(ctx context.Context, bc *buildContext, ce *cacheEntry) (any, error) {
	if ce.skel != nil {
		return ce.skel.instance, nil
	}

	if !c.allowPartial {
		path := make([]string, len(bc.stack), len(bc.stack)+1)
		copy(path, bc.stack)
		path = append(path, ce.name)
		return nil, &CircularWiringError{Path: path}
	}

	instance, populate, err := c.resolver.ResolveSkeleton(ce.entry.Module, ce.entry.Type)
	if err != nil {
		reason := "skeleton allocation failed"
		if errors.Is(err, ErrSkeletonUnsupported) {
			reason = "type does not support skeleton allocation"
		}
		return nil, &PartialConstructionError{Name: ce.name, Reason: reason, Cause: err}
	}

	ce.skel = &skeletonState{instance: instance, populate: populate, ready: make(chan struct{})}
	return instance, nil
}

// finalizeSkeleton runs once the entry that originally published a
// skeleton has all of its own constructor arguments resolved. It populates
// the already-visible instance in place rather than allocating a second
// one, then signals every waiter on the one-shot ready event.
func (c *Container) finalizeSkeleton(ctx context.Context, ce *cacheEntry, pos []any, kw map[string]any) (any, error) {
	skel := ce.skel

	if err := skel.populate(ctx, skel.instance, pos, kw); err != nil {
		skel.err = err
		close(skel.ready)
		ce.err = &PartialConstructionError{Name: ce.name, Reason: "populate failed", Cause: err}
		ce.built = true
		return nil, ce.err
	}

	ce.value = skel.instance
	ce.built = true
	close(skel.ready)
	return ce.value, nil
}
