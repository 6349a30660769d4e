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

//go:build !linux

package mpool

// Fallback for platforms without the anonymous mmap path: large blocks
// come from the Go heap like everything else.

func mmapAlloc(sz int) ([]byte, error) {
	return heapAlloc(sz), nil
}

func mmapFree(bs []byte) {
	// heap backed, reclaimed by GC
}
