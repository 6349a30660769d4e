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

package mpool

import (
	"golang.org/x/sys/unix"

	"github.com/contig-io/contig/pkg/common/cerr"
)

// Large blocks bypass the Go heap so freeing them returns the pages to
// the OS immediately instead of waiting for a GC cycle.

func mmapAlloc(sz int) ([]byte, error) {
	bs, err := unix.Mmap(
		-1, 0, sz,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, cerr.NewOOM()
	}
	return bs, nil
}

func mmapFree(bs []byte) {
	if err := unix.Munmap(bs); err != nil {
		panic(cerr.NewInternalError("munmap: %v", err))
	}
}
