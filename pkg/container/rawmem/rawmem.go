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

// Package rawmem provides RawMemory, an owned block of pool storage
// sized for a fixed number of elements of some type T. The block holds
// no live values as far as rawmem is concerned; tracking which slots
// are constructed is entirely the owner's job.
package rawmem

import (
	"unsafe"

	"github.com/contig-io/contig/pkg/common/cerr"
	"github.com/contig-io/contig/pkg/common/debug"
	"github.com/contig-io/contig/pkg/common/mpool"
)

// zerobase backs every slot of a zero-sized element type, the way the
// runtime backs zero-size allocations.
var zerobase byte

// RawMemory owns storage for exactly Capacity() elements of T, taken
// from one mpool allocation. Ownership moves with Swap and is never
// duplicated: two handles over one block would free it twice.
type RawMemory[T any] struct {
	mp       *mpool.MPool
	bytes    []byte
	capacity int
}

// Alloc requests storage for n elements of T from mp. n == 0 yields an
// empty handle without touching the pool. Pool failure propagates with
// no partial state.
func Alloc[T any](mp *mpool.MPool, n int) (RawMemory[T], error) {
	if n < 0 {
		return RawMemory[T]{}, cerr.NewInvalidArg("rawmem capacity", n)
	}
	if n == 0 {
		return RawMemory[T]{mp: mp}, nil
	}
	var zero T
	sz := int64(unsafe.Sizeof(zero))
	if sz == 0 {
		return RawMemory[T]{mp: mp, capacity: n}, nil
	}
	total := int64(n) * sz
	if total/sz != int64(n) || total > int64(maxInt) {
		return RawMemory[T]{}, cerr.NewOutOfRange("int", "rawmem block size %d * %d", n, sz)
	}
	bytes, err := mp.Alloc(int(total))
	if err != nil {
		return RawMemory[T]{}, err
	}
	return RawMemory[T]{mp: mp, bytes: bytes, capacity: n}, nil
}

const maxInt = int(^uint(0) >> 1)

// Capacity returns the element count the block can hold.
func (r *RawMemory[T]) Capacity() int {
	return r.capacity
}

func (r *RawMemory[T]) base() unsafe.Pointer {
	if r.bytes == nil {
		return unsafe.Pointer(&zerobase)
	}
	return unsafe.Pointer(unsafe.SliceData(r.bytes))
}

// Ptr returns the address of slot offset. offset == Capacity() is the
// one-past-end address; anything beyond is a contract violation.
func (r *RawMemory[T]) Ptr(offset int) *T {
	assert(offset >= 0 && offset <= r.capacity, "rawmem offset out of range")
	var zero T
	return (*T)(unsafe.Add(r.base(), uintptr(offset)*unsafe.Sizeof(zero)))
}

// At returns the slot at index. The slot may or may not hold a live
// value; rawmem does not know.
func (r *RawMemory[T]) At(index int) *T {
	assert(index >= 0 && index < r.capacity, "rawmem index out of range")
	var zero T
	return (*T)(unsafe.Add(r.base(), uintptr(index)*unsafe.Sizeof(zero)))
}

// Slice returns the full-capacity typed view of the block. Slots beyond
// the owner's live prefix are uninitialized.
func (r *RawMemory[T]) Slice() []T {
	if r.capacity == 0 {
		return nil
	}
	return unsafe.Slice((*T)(r.base()), r.capacity)
}

// Bytes returns the raw byte view of the block.
func (r *RawMemory[T]) Bytes() []byte {
	return r.bytes
}

// Swap exchanges the owned block and capacity with other in constant
// time. It never allocates and cannot fail.
func (r *RawMemory[T]) Swap(other *RawMemory[T]) {
	r.mp, other.mp = other.mp, r.mp
	r.bytes, other.bytes = other.bytes, r.bytes
	r.capacity, other.capacity = other.capacity, r.capacity
}

// Free returns the block to its pool. The owner must have destroyed any
// live values beforehand; rawmem releases bytes only. Freeing an empty
// handle is a no-op, and a freed handle is empty.
func (r *RawMemory[T]) Free() {
	if r.bytes != nil {
		r.mp.Free(r.bytes)
	}
	r.bytes = nil
	r.capacity = 0
}

func assert(cond bool, msg string) {
	if debug.Enabled && !cond {
		panic(cerr.NewInternalError("%s", msg))
	}
}
