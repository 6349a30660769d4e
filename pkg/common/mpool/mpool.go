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
	"encoding/json"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/contig-io/contig/pkg/common/cerr"
	"github.com/contig-io/contig/pkg/logutil"
)

const (
	MB = 1 << 20
	GB = 1 << 30
	PB = 1 << 50

	// kMemHdrSz is the size of the header written immediately before
	// every block handed out by Alloc. 16 bytes keeps the data part
	// aligned for any Go type.
	kMemHdrSz = 16

	// Blocks of at least this many bytes are mapped directly instead of
	// going through the Go heap.
	kMmapThreshold = 1 * MB

	kMemLiveMagic  uint16 = 0xCE11
	kMemFreedMagic uint16 = 0xDEAD

	// allocSz is recorded in an int32 field of the header.
	maxAllocSz = 1<<31 - 1
)

// memHdr sits in front of the user bytes of every allocation, so Free
// needs neither a size argument nor a pool argument.
type memHdr struct {
	poolID  int64
	allocSz int32
	magic   uint16
	offHeap bool
	_       [1]byte
}

func init() {
	if unsafe.Sizeof(memHdr{}) != kMemHdrSz {
		panic("memHdr size mismatch")
	}
}

// Stats collects allocation counters of one pool. All fields are atomics,
// a pool may be shared between goroutines.
type Stats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumCurrBytes  atomic.Int64
	HighWaterMark atomic.Int64
}

// RecordAlloc reserves sz bytes against capacity and updates the
// counters. The reservation is atomic, concurrent allocations cannot
// jointly overshoot the cap. Returns false with no state change when
// the budget would be exceeded.
func (s *Stats) RecordAlloc(sz int64, capacity int64) bool {
	curr := s.NumCurrBytes.Add(sz)
	if curr > capacity {
		s.NumCurrBytes.Add(-sz)
		return false
	}
	s.NumAlloc.Add(1)
	for {
		hwm := s.HighWaterMark.Load()
		if curr <= hwm || s.HighWaterMark.CompareAndSwap(hwm, curr) {
			break
		}
	}
	return true
}

// RollbackAlloc undoes a RecordAlloc whose backing allocation failed.
func (s *Stats) RollbackAlloc(sz int64) {
	s.NumAlloc.Add(-1)
	s.NumCurrBytes.Add(-sz)
}

func (s *Stats) RecordFree(sz int64) {
	s.NumFree.Add(1)
	s.NumCurrBytes.Add(-sz)
}

func (s *Stats) report() map[string]int64 {
	return map[string]int64{
		"numAlloc":      s.NumAlloc.Load(),
		"numFree":       s.NumFree.Load(),
		"numCurrBytes":  s.NumCurrBytes.Load(),
		"highWaterMark": s.HighWaterMark.Load(),
	}
}

// MPool tracks a named budget of raw bytes. It hands out zeroed blocks
// and accounts every byte until the block comes back through Free.
type MPool struct {
	id    int64
	name  string
	cap   int64
	stats Stats
}

var (
	nextPoolID  atomic.Int64
	globalPools sync.Map // id -> *MPool
)

// heapAlloc is the on-heap allocation seam; tests stub it to inject
// allocation failure.
var heapAlloc = func(sz int) []byte {
	return make([]byte, sz)
}

func NewMPool(name string, capacity int64) (*MPool, error) {
	if capacity < 0 {
		return nil, cerr.NewInvalidArg("mpool capacity", capacity)
	}
	if capacity == 0 {
		capacity = PB
	}
	m := &MPool{
		id:   nextPoolID.Add(1),
		name: name,
		cap:  capacity,
	}
	globalPools.Store(m.id, m)
	logutil.Debug("mpool created",
		zap.String("name", name),
		zap.Int64("id", m.id),
		zap.Int64("cap", capacity),
	)
	return m, nil
}

// MustNewZero returns an unbounded pool, for tests and tools.
func MustNewZero() *MPool {
	m, err := NewMPool("", 0)
	if err != nil {
		panic(err)
	}
	return m
}

// MustNewWithCap returns a pool that fails allocations once capacity
// bytes are live.
func MustNewWithCap(capacity int64) *MPool {
	m, err := NewMPool("", capacity)
	if err != nil {
		panic(err)
	}
	return m
}

// DeleteMPool unregisters the pool. Outstanding bytes indicate a leak
// in the caller and are logged, not reclaimed.
func DeleteMPool(m *MPool) {
	if m == nil {
		return
	}
	if nb := m.CurrNB(); nb != 0 {
		logutil.Warn("mpool deleted with live bytes",
			zap.String("name", m.name),
			zap.Int64("id", m.id),
			zap.Int64("currNB", nb),
		)
	}
	globalPools.Delete(m.id)
}

func (m *MPool) Name() string {
	return m.name
}

func (m *MPool) Cap() int64 {
	return m.cap
}

func (m *MPool) Stats() *Stats {
	return &m.stats
}

// CurrNB returns the number of live bytes held out of this pool.
func (m *MPool) CurrNB() int64 {
	return m.stats.NumCurrBytes.Load()
}

// Alloc returns a zeroed block of sz bytes. A zero sz returns nil and
// accounts nothing. Exceeding the pool budget returns an OOM error with
// no state change.
func (m *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, cerr.NewInvalidArg("mpool alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	if int64(sz) > maxAllocSz {
		return nil, cerr.NewInvalidArg("mpool alloc size", sz)
	}
	if !m.stats.RecordAlloc(int64(sz), m.cap) {
		return nil, cerr.NewOOM()
	}

	total := kMemHdrSz + sz
	var (
		block   []byte
		offHeap bool
	)
	if total >= kMmapThreshold {
		mapped, err := mmapAlloc(total)
		if err != nil {
			m.stats.RollbackAlloc(int64(sz))
			return nil, err
		}
		block, offHeap = mapped, true
	} else {
		block = heapAlloc(total)
		if block == nil {
			m.stats.RollbackAlloc(int64(sz))
			return nil, cerr.NewOOM()
		}
	}

	hdr := (*memHdr)(unsafe.Pointer(&block[0]))
	hdr.poolID = m.id
	hdr.allocSz = int32(sz)
	hdr.magic = kMemLiveMagic
	hdr.offHeap = offHeap

	return block[kMemHdrSz : kMemHdrSz+sz : total], nil
}

// Free releases a block obtained from Alloc. nil and zero-length slices
// are no-ops. Double free and foreign pointers are contract violations
// and panic.
func (m *MPool) Free(bs []byte) {
	if len(bs) == 0 {
		return
	}
	hdr := hdrOf(bs)
	if hdr.magic == kMemFreedMagic {
		panic(cerr.NewInternalError("mpool double free"))
	}
	if hdr.magic != kMemLiveMagic {
		panic(cerr.NewInternalError("mpool free of foreign pointer"))
	}
	if hdr.poolID != m.id {
		panic(cerr.NewInternalError("mpool free: block belongs to pool %d, not %d", hdr.poolID, m.id))
	}

	sz := int64(hdr.allocSz)
	hdr.magic = kMemFreedMagic
	m.stats.RecordFree(sz)

	if hdr.offHeap {
		total := kMemHdrSz + int(sz)
		block := unsafe.Slice((*byte)(unsafe.Pointer(hdr)), total)
		mmapFree(block)
	}
}

// Realloc grows a block, copying its content. The old block is freed on
// success only.
func (m *MPool) Realloc(old []byte, sz int) ([]byte, error) {
	if sz <= len(old) {
		return old, nil
	}
	bs, err := m.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(bs, old)
	m.Free(old)
	return bs, nil
}

func hdrOf(bs []byte) *memHdr {
	ptr := unsafe.Pointer(unsafe.SliceData(bs))
	return (*memHdr)(unsafe.Add(ptr, -kMemHdrSz))
}

// ReportMemUsage renders the stats of the named pool, or of every
// registered pool when name is empty, as json.
func ReportMemUsage(name string) string {
	report := make(map[string]map[string]int64)
	globalPools.Range(func(_, v any) bool {
		m := v.(*MPool)
		if name == "" || m.name == name {
			report[m.name] = m.stats.report()
		}
		return true
	})
	data, err := json.Marshal(report)
	if err != nil {
		return "{}"
	}
	return string(data)
}
