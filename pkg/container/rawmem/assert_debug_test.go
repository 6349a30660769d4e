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

//go:build debug

package rawmem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contig-io/contig/pkg/common/mpool"
)

func TestDebugAsserts(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	r, err := Alloc[int64](mp, 4)
	require.NoError(t, err)
	defer r.Free()

	require.Panics(t, func() { r.At(4) })
	require.Panics(t, func() { r.At(-1) })
	require.Panics(t, func() { r.Ptr(5) })
	require.NotPanics(t, func() { r.Ptr(4) })
}
