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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/contig-io/contig/pkg/common/mpool"
)

func TestDebugAssertions(t *testing.T) {
	mp := mpool.MustNewZero()
	defer mpool.DeleteMPool(mp)

	v := New[int](mp, TrivialOps[int]())
	defer v.Free()

	require.Panics(t, func() { v.PopBack() })
	require.Panics(t, func() { v.At(0) })
	require.Panics(t, func() { v.Erase(0) })

	require.NoError(t, v.Append(1))
	require.Panics(t, func() { v.At(1) })
	require.Panics(t, func() { v.At(-1) })
	require.Panics(t, func() {
		_, _ = v.Emplace(2, nil)
	})
}
