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

package rawmem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contig-io/contig/pkg/common/cerr"
	"github.com/contig-io/contig/pkg/common/mpool"
)

func TestAllocFree(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[int64](mp, 8)
	require.NoError(t, err)
	require.Equal(t, 8, r.Capacity())
	require.Equal(t, int64(64), mp.CurrNB())

	s := r.Slice()
	require.Equal(t, 8, len(s))
	for i := range s {
		s[i] = int64(i * 3)
	}
	for i := 0; i < 8; i++ {
		require.Equal(t, int64(i*3), *r.At(i))
	}

	r.Free()
	require.Equal(t, 0, r.Capacity())
	require.Equal(t, int64(0), mp.CurrNB())
	// freeing an empty handle is a no-op
	r.Free()
}

func TestAllocZero(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[int32](mp, 0)
	require.NoError(t, err)
	require.Equal(t, 0, r.Capacity())
	require.Nil(t, r.Bytes())
	require.Nil(t, r.Slice())
	require.Equal(t, int64(0), mp.CurrNB())
	r.Free()

	_, err = Alloc[int32](mp, -1)
	require.True(t, cerr.IsErrCode(err, cerr.ErrInvalidArg))
}

func TestAllocZeroSizedElem(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[struct{}](mp, 5)
	require.NoError(t, err)
	require.Equal(t, 5, r.Capacity())
	require.Equal(t, int64(0), mp.CurrNB())
	require.Equal(t, 5, len(r.Slice()))
	require.NotNil(t, r.At(4))
	r.Free()
}

func TestPtrOffsets(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[uint16](mp, 4)
	require.NoError(t, err)
	defer r.Free()

	for i := 0; i < 4; i++ {
		*r.Ptr(i) = uint16(i + 10)
	}
	s := r.Slice()
	require.Equal(t, []uint16{10, 11, 12, 13}, s)
	// one-past-end address exists but must not be dereferenced
	require.NotNil(t, r.Ptr(4))
}

func TestSwap(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	a, err := Alloc[int64](mp, 2)
	require.NoError(t, err)
	b, err := Alloc[int64](mp, 6)
	require.NoError(t, err)

	*a.At(0) = 100
	*b.At(0) = 200

	a.Swap(&b)
	require.Equal(t, 6, a.Capacity())
	require.Equal(t, 2, b.Capacity())
	require.Equal(t, int64(200), *a.At(0))
	require.Equal(t, int64(100), *b.At(0))

	// swap against the empty handle is the move idiom
	var empty RawMemory[int64]
	a.Swap(&empty)
	require.Equal(t, 0, a.Capacity())
	require.Equal(t, 6, empty.Capacity())

	empty.Free()
	a.Free()
	b.Free()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAllocOOMPropagates(t *testing.T) {
	mp := mpool.MustNewWithCap(32)
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[int64](mp, 16)
	require.True(t, cerr.IsErrCode(err, cerr.ErrOOM))
	require.Equal(t, 0, r.Capacity())
	require.Equal(t, int64(0), mp.CurrNB())

	r, err = Alloc[int64](mp, 4)
	require.NoError(t, err)
	r.Free()
}
