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

// Package vector implements a growable contiguous sequence container
// over pool-owned raw storage. A Vector keeps the slots [0, length)
// live and everything up to capacity uninitialized, and maintains that
// split across every failure path of every mutating operation.
package vector

import (
	"fmt"

	"github.com/contig-io/contig/pkg/common/cerr"
	"github.com/contig-io/contig/pkg/common/debug"
	"github.com/contig-io/contig/pkg/common/mpool"
	"github.com/contig-io/contig/pkg/container/rawmem"
)

// Vector is a dynamic array of T over one rawmem block. It is owned by
// a single goroutine; the pool behind it may be shared.
type Vector[T any] struct {
	data   rawmem.RawMemory[T]
	length int
	ops    Ops[T]
	mp     *mpool.MPool
}

// New returns an empty vector with capacity 0.
func New[T any](mp *mpool.MPool, ops Ops[T]) *Vector[T] {
	return &Vector[T]{ops: ops, mp: mp}
}

// NewSized returns a vector of n value-constructed elements with
// capacity exactly n. A construction failure frees everything and
// propagates.
func NewSized[T any](mp *mpool.MPool, ops Ops[T], n int) (*Vector[T], error) {
	v := New[T](mp, ops)
	if err := v.Resize(n); err != nil {
		v.Free()
		return nil, err
	}
	return v, nil
}

// Take move-constructs a new vector from w. w is left empty with
// capacity 0 and stays usable.
func Take[T any](w *Vector[T]) *Vector[T] {
	v := New[T](w.mp, w.ops)
	v.Swap(w)
	return v
}

// Length returns the live element count.
func (v *Vector[T]) Length() int {
	return v.length
}

// Capacity returns the element count the current buffer can hold.
func (v *Vector[T]) Capacity() int {
	return v.data.Capacity()
}

// At returns the address of element i. Bounds are asserted under the
// debug tag only; out of range is undefined by contract.
func (v *Vector[T]) At(i int) *T {
	assert(i >= 0 && i < v.length, "vector index out of range")
	return v.data.At(i)
}

// Get reads element i.
func (v *Vector[T]) Get(i int) T {
	return *v.At(i)
}

// Set overwrites element i by plain assignment. For resource-owning
// element types the caller is responsible for the previous value.
func (v *Vector[T]) Set(i int, val T) {
	*v.At(i) = val
}

// Values returns the live prefix as a slice sharing the vector's
// storage. Any capacity-changing mutation invalidates it; a fresh call
// always reflects current state.
func (v *Vector[T]) Values() []T {
	if v.length == 0 {
		return nil
	}
	return v.data.Slice()[:v.length]
}

// Swap exchanges the entire state of two vectors in constant time.
func (v *Vector[T]) Swap(w *Vector[T]) {
	v.data.Swap(&w.data)
	v.length, w.length = w.length, v.length
	v.ops, w.ops = w.ops, v.ops
	v.mp, w.mp = w.mp, v.mp
}

// Reserve grows the buffer to hold exactly n elements. It is a no-op
// when n does not exceed the current capacity. On any failure the
// vector is untouched.
func (v *Vector[T]) Reserve(n int) error {
	if n <= v.data.Capacity() {
		return nil
	}
	nd, err := rawmem.Alloc[T](v.mp, n)
	if err != nil {
		return err
	}
	if err := v.relocateInto(&nd, -1); err != nil {
		nd.Free()
		return err
	}
	v.data.Swap(&nd)
	nd.Free()
	return nil
}

// Append pushes val onto the tail, growing by doubling when full.
func (v *Vector[T]) Append(val T) error {
	_, err := v.EmplaceBack(func(p *T) error {
		*p = val
		return nil
	})
	return err
}

// EmplaceBack constructs a new tail element in place via ctor and
// returns its address. When growth is needed the element is constructed
// into the new buffer before anything is relocated, so a ctor failure
// leaves the vector untouched. The length grows only after the
// construction provably succeeded.
func (v *Vector[T]) EmplaceBack(ctor func(*T) error) (*T, error) {
	if v.length == v.data.Capacity() {
		nd, err := rawmem.Alloc[T](v.mp, v.grownCapacity())
		if err != nil {
			return nil, err
		}
		slot := nd.At(v.length)
		if err := v.constructInto(slot, ctor); err != nil {
			nd.Free()
			return nil, err
		}
		if err := v.relocateInto(&nd, -1); err != nil {
			v.dropSlot(slot)
			nd.Free()
			return nil, err
		}
		v.data.Swap(&nd)
		nd.Free()
	} else {
		if err := v.constructInto(v.data.At(v.length), ctor); err != nil {
			return nil, err
		}
	}
	v.length++
	return v.data.At(v.length - 1), nil
}

// PopBack destroys the last element. Calling it on an empty vector is a
// contract violation.
func (v *Vector[T]) PopBack() {
	assert(v.length > 0, "pop back on empty vector")
	v.dropSlot(v.data.At(v.length - 1))
	v.length--
}

// Resize shrinks by destroying the tail or grows by reserving and then
// value-constructing the new slots. On a construction failure the
// already constructed suffix is torn down and the length is unchanged.
func (v *Vector[T]) Resize(n int) error {
	switch {
	case n < 0:
		return cerr.NewInvalidArg("vector size", n)
	case n == v.length:
		return nil
	case n < v.length:
		for i := n; i < v.length; i++ {
			v.dropSlot(v.data.At(i))
		}
		v.length = n
		return nil
	}
	if err := v.Reserve(n); err != nil {
		return err
	}
	for i := v.length; i < n; i++ {
		if err := v.constructValue(v.data.At(i)); err != nil {
			for j := v.length; j < i; j++ {
				v.dropSlot(v.data.At(j))
			}
			return err
		}
	}
	v.length = n
	return nil
}

// Insert places val before position pos, shifting the suffix right.
func (v *Vector[T]) Insert(pos int, val T) (int, error) {
	return v.Emplace(pos, func(p *T) error {
		*p = val
		return nil
	})
}

// Emplace constructs a new element before position pos. pos == Length()
// is the tail path with no shifting. With spare capacity the value is
// built in a temporary first, so a ctor failure touches nothing; when
// the buffer is full the element is constructed into the new buffer at
// its final offset before the prefix and suffix are relocated around
// it. Returns the position of the new element.
func (v *Vector[T]) Emplace(pos int, ctor func(*T) error) (int, error) {
	assert(pos >= 0 && pos <= v.length, "vector emplace position out of range")
	if pos == v.length {
		_, err := v.EmplaceBack(ctor)
		return pos, err
	}
	if v.length == v.data.Capacity() {
		nd, err := rawmem.Alloc[T](v.mp, v.grownCapacity())
		if err != nil {
			return 0, err
		}
		slot := nd.At(pos)
		if err := v.constructInto(slot, ctor); err != nil {
			nd.Free()
			return 0, err
		}
		if err := v.relocateInto(&nd, pos); err != nil {
			v.dropSlot(slot)
			nd.Free()
			return 0, err
		}
		v.data.Swap(&nd)
		nd.Free()
	} else {
		var tmp T
		if err := v.constructInto(&tmp, ctor); err != nil {
			return 0, err
		}
		v.shiftRight(pos)
		*v.data.At(pos) = tmp
	}
	v.length++
	return pos, nil
}

// Erase removes the element at pos, shifting the suffix left by one
// non-failing ownership transfer, and returns pos, which now holds the
// following element. pos out of [0, Length()) is a contract violation.
func (v *Vector[T]) Erase(pos int) int {
	assert(pos >= 0 && pos < v.length, "vector erase position out of range")
	v.dropSlot(v.data.At(pos))
	if v.ops.Move != nil {
		for j := pos; j < v.length-1; j++ {
			*v.data.At(j) = v.moveOut(v.data.At(j + 1))
		}
	} else if pos < v.length-1 {
		s := v.data.Slice()
		copy(s[pos:v.length-1], s[pos+1:v.length])
	}
	v.length--
	return pos
}

// Dup deep-copies the vector into an independent buffer sized exactly
// Length(). A copy failure frees the partial duplicate and leaves the
// source untouched.
func (v *Vector[T]) Dup() (*Vector[T], error) {
	w := New[T](v.mp, v.ops)
	if v.length == 0 {
		return w, nil
	}
	nd, err := rawmem.Alloc[T](v.mp, v.length)
	if err != nil {
		return nil, err
	}
	for i := 0; i < v.length; i++ {
		val, err := v.copySlot(v.data.At(i))
		if err != nil {
			for j := 0; j < i; j++ {
				v.dropSlot(nd.At(j))
			}
			nd.Free()
			return nil, err
		}
		*nd.At(i) = val
	}
	w.data.Swap(&nd)
	w.length = v.length
	return w, nil
}

// CopyFrom copy-assigns w into v. When the current buffer can hold
// w's elements it is reused in place: the overlapping prefix is
// copy-assigned, then either the excess tail is destroyed or the
// missing suffix is copy-constructed. Otherwise the elements are
// copied into a fresh buffer first and adopted only when every copy
// succeeded. Capacity never shrinks, and v keeps its own pool and
// hooks on both paths.
func (v *Vector[T]) CopyFrom(w *Vector[T]) error {
	if v == w {
		return nil
	}
	if w.length > v.data.Capacity() {
		nd, err := rawmem.Alloc[T](v.mp, w.length)
		if err != nil {
			return err
		}
		for i := 0; i < w.length; i++ {
			val, err := v.copySlot(w.data.At(i))
			if err != nil {
				for j := 0; j < i; j++ {
					v.dropSlot(nd.At(j))
				}
				nd.Free()
				return err
			}
			*nd.At(i) = val
		}
		for i := 0; i < v.length; i++ {
			v.dropSlot(v.data.At(i))
		}
		v.data.Swap(&nd)
		nd.Free()
		v.length = w.length
		return nil
	}
	overlap := min(v.length, w.length)
	for i := 0; i < overlap; i++ {
		val, err := v.copySlot(w.data.At(i))
		if err != nil {
			return err
		}
		v.dropSlot(v.data.At(i))
		*v.data.At(i) = val
	}
	if w.length < v.length {
		for i := w.length; i < v.length; i++ {
			v.dropSlot(v.data.At(i))
		}
	} else {
		for i := v.length; i < w.length; i++ {
			val, err := v.copySlot(w.data.At(i))
			if err != nil {
				for j := v.length; j < i; j++ {
					v.dropSlot(v.data.At(j))
				}
				return err
			}
			*v.data.At(i) = val
		}
	}
	v.length = w.length
	return nil
}

// MoveFrom move-assigns w into v by swapping: v adopts w's buffer and
// w is left holding v's previous state, valid and freeable.
func (v *Vector[T]) MoveFrom(w *Vector[T]) {
	if v != w {
		v.Swap(w)
	}
}

// Free destroys every live element in index order and releases the
// buffer to the pool. The vector stays usable and empty.
func (v *Vector[T]) Free() {
	if v == nil {
		return
	}
	for i := 0; i < v.length; i++ {
		v.dropSlot(v.data.At(i))
	}
	v.length = 0
	v.data.Free()
}

func (v *Vector[T]) String() string {
	return fmt.Sprintf("%v", v.Values())
}

// grownCapacity is the doubling policy: capacity only grows when length
// would exceed it, from 1.
func (v *Vector[T]) grownCapacity() int {
	if c := v.data.Capacity(); c > 0 {
		return 2 * c
	}
	return 1
}

// relocateInto transfers every live element into nd. insertAt >= 0
// leaves the slot at that offset untouched for a pre-constructed
// element, mapping source index i to i+1 from insertAt onward.
//
// On the move path the transfer cannot fail. On the copy path a failure
// destroys the copies made so far and returns with the source buffer
// byte-for-byte intact; only after every copy succeeded are the
// originals destroyed, in index order.
func (v *Vector[T]) relocateInto(nd *rawmem.RawMemory[T], insertAt int) error {
	shift := func(i int) int {
		if insertAt >= 0 && i >= insertAt {
			return i + 1
		}
		return i
	}
	if v.ops.relocateByMove() {
		if v.ops.Move == nil {
			// bitwise ownership transfer, whole blocks at once
			if v.length > 0 {
				s, d := v.data.Slice(), nd.Slice()
				if insertAt < 0 {
					copy(d[:v.length], s[:v.length])
				} else {
					copy(d[:insertAt], s[:insertAt])
					copy(d[insertAt+1:v.length+1], s[insertAt:v.length])
				}
			}
		} else {
			for i := 0; i < v.length; i++ {
				*nd.At(shift(i)) = v.moveOut(v.data.At(i))
			}
		}
		return nil
	}
	for i := 0; i < v.length; i++ {
		val, err := v.ops.Copy(v.data.At(i))
		if err != nil {
			for j := 0; j < i; j++ {
				v.dropSlot(nd.At(shift(j)))
			}
			return err
		}
		*nd.At(shift(i)) = val
	}
	for i := 0; i < v.length; i++ {
		v.dropSlot(v.data.At(i))
	}
	return nil
}

// shiftRight opens a hole at pos by transferring [pos, length) one slot
// to the right, back to front. The transfer never fails; pos becomes
// raw storage afterwards.
func (v *Vector[T]) shiftRight(pos int) {
	if v.ops.Move != nil {
		for j := v.length; j > pos; j-- {
			*v.data.At(j) = v.moveOut(v.data.At(j - 1))
		}
		return
	}
	s := v.data.Slice()
	copy(s[pos+1:v.length+1], s[pos:v.length])
}

// moveOut transfers a value out of src. An error from a Move hook on
// this path breaks the declared non-failing precondition and is not
// recoverable.
func (v *Vector[T]) moveOut(src *T) T {
	if v.ops.Move != nil {
		val, err := v.ops.Move(src)
		if err != nil {
			panic(cerr.NewInternalError("element move failed on the non-failing move path: %v", err))
		}
		return val
	}
	return *src
}

// copySlot duplicates a value for Dup and CopyFrom.
func (v *Vector[T]) copySlot(src *T) (T, error) {
	if v.ops.Copy != nil {
		return v.ops.Copy(src)
	}
	if v.ops.Move != nil || v.ops.Drop != nil {
		var zero T
		return zero, cerr.NewInvalidState("element type is not copyable")
	}
	return *src, nil
}

// constructInto builds a value in the raw slot p. A ctor failure leaves
// the slot raw again.
func (v *Vector[T]) constructInto(p *T, ctor func(*T) error) error {
	var zero T
	*p = zero
	if ctor == nil {
		return nil
	}
	if err := ctor(p); err != nil {
		*p = zero
		return err
	}
	return nil
}

// constructValue builds a value-constructed element in the raw slot p.
func (v *Vector[T]) constructValue(p *T) error {
	var zero T
	if v.ops.New == nil {
		*p = zero
		return nil
	}
	val, err := v.ops.New()
	if err != nil {
		return err
	}
	*p = val
	return nil
}

func (v *Vector[T]) dropSlot(p *T) {
	if v.ops.Drop != nil {
		v.ops.Drop(p)
	}
}

func assert(cond bool, msg string) {
	if debug.Enabled && !cond {
		panic(cerr.NewInternalError("%s", msg))
	}
}
