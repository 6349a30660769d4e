// Copyright 2024 The Contig Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

// Ops declares the lifecycle capabilities of a Vector's element type.
// The declaration decides, at instantiation time, whether buffer
// relocation transfers elements by move or by copy.
//
// The zero value describes a trivial type: zero-value construction,
// duplication and relocation by plain assignment, no cleanup. For such
// types the vector relocates whole byte blocks at once.
//
// A type owning a resource sets Drop, and usually Move. Move transfers
// the value out of src, leaving *src empty but still droppable; a value
// that has been moved out of is never passed to Drop again by the
// vector. When Move is nil, relocation transfers values by plain
// assignment, which cannot fail; the vacated slot turns back into raw
// storage and is not dropped.
//
// Relocation picks the move path when MoveSafe is set, when Move is
// nil, or when the type is not copyable. Otherwise - Move present, not
// declared safe, and a Copy available - relocation copies, so that a
// failed copy leaves the source buffer byte-for-byte intact. Declaring
// MoveSafe on a Move that does fail is a contract violation, not a
// recoverable condition: the vector panics.
type Ops[T any] struct {
	// New value-constructs an element for sized construction and for
	// Resize growth. Nil means the zero value, which cannot fail.
	New func() (T, error)

	// Copy duplicates an element. Nil together with a non-nil Move or
	// Drop marks the type as not copyable.
	Copy func(src *T) (T, error)

	// Move transfers an element out of src. Nil means plain assignment.
	Move func(src *T) (T, error)

	// MoveSafe declares that Move never returns an error.
	MoveSafe bool

	// Drop destroys a live element. Nil means no cleanup.
	Drop func(*T)
}

// TrivialOps spells out the zero value for readability at call sites.
func TrivialOps[T any]() Ops[T] {
	return Ops[T]{}
}

// copyable reports whether the vector may duplicate elements. Types
// that hold resources (Move or Drop set) without a Copy hook are not
// duplicable: assignment would alias the resource.
func (ops *Ops[T]) copyable() bool {
	if ops.Copy != nil {
		return true
	}
	return ops.Move == nil && ops.Drop == nil
}

// relocateByMove is the central policy branch: move when the move
// cannot fail or when there is no usable copy, otherwise copy and keep
// the strong guarantee.
func (ops *Ops[T]) relocateByMove() bool {
	return ops.MoveSafe || ops.Move == nil || !ops.copyable()
}
