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

package cerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := NewInternalError("%s test", "foo")
	require.Equal(t, "internal error: foo test", err.Error())
	require.Equal(t, ErrInternal, err.ErrorCode())

	err = NewOOM()
	require.Equal(t, "error: out of memory", err.Error())
	require.True(t, IsErrCode(err, ErrOOM))
	require.False(t, IsErrCode(err, ErrInternal))
}

func TestIsErrCode(t *testing.T) {
	require.True(t, IsErrCode(nil, Ok))
	require.False(t, IsErrCode(nil, ErrOOM))
	require.False(t, IsErrCode(errors.New("plain"), ErrInternal))

	err := NewInvalidArg("capacity", -1)
	require.Equal(t, "invalid argument capacity, bad value -1", err.Error())
	require.True(t, IsErrCode(err, ErrInvalidArg))
}

func TestUnknownCodePanics(t *testing.T) {
	require.Panics(t, func() {
		newError(uint16(12345))
	})
}
