// pool.go: Scratch buffer pooling for block tails, HMAC pads, KDF salts and
// random mixing.
//
// Buffers returned to a pool are always wiped first: they regularly carry
// key-dependent data.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"sync"
	"sync/atomic"
)

const (
	smallBufferSize  = 32       // keys, IVs, digests up to SHA-256
	mediumBufferSize = 512      // HMAC pads, SHA-512 output, short messages
	largeBufferSize  = 4 * 1024 // random mixing for bulk requests
	dynamicBufferCap = 256
)

type poolClass struct {
	pool   sync.Pool
	gets   atomic.Int64
	allocs atomic.Int64
}

func newPoolClass(size int) *poolClass {
	c := &poolClass{}
	c.pool.New = func() interface{} {
		c.allocs.Add(1)
		buf := make([]byte, size)
		return &buf
	}
	return c
}

func (c *poolClass) get(size int) *[]byte {
	c.gets.Add(1)
	buf := c.pool.Get().(*[]byte)
	*buf = (*buf)[:size]
	return buf
}

var (
	smallBufferPool  = newPoolClass(smallBufferSize)
	mediumBufferPool = newPoolClass(mediumBufferSize)
	largeBufferPool  = newPoolClass(largeBufferSize)

	// growable buffers for AEAD message accumulation; pointers avoid SA6002
	dynamicBufferPool = &poolClass{}
)

func init() {
	dynamicBufferPool.pool.New = func() interface{} {
		dynamicBufferPool.allocs.Add(1)
		buf := make([]byte, 0, dynamicBufferCap)
		return &buf
	}
	WarmupPools(4)
}

// getBuffer returns a buffer of exactly size bytes. Pooled buffers are
// sliced, not cleared: putBuffer wipes them on the way back.
func getBuffer(size int) *[]byte {
	switch {
	case size <= smallBufferSize:
		return smallBufferPool.get(size)
	case size <= mediumBufferSize:
		return mediumBufferPool.get(size)
	case size <= largeBufferSize:
		return largeBufferPool.get(size)
	default:
		buf := make([]byte, size)
		return &buf
	}
}

// clearBuffer zeroes buf with an 8-way unrolled loop for large buffers.
func clearBuffer(buf []byte) {
	if len(buf) <= 64 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	i := 0
	for ; i < len(buf)-7; i += 8 {
		buf[i] = 0
		buf[i+1] = 0
		buf[i+2] = 0
		buf[i+3] = 0
		buf[i+4] = 0
		buf[i+5] = 0
		buf[i+6] = 0
		buf[i+7] = 0
	}
	for ; i < len(buf); i++ {
		buf[i] = 0
	}
}

// putBuffer wipes buf and returns it to its size class. Oversized buffers
// are dropped.
func putBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	if len(*buf) > 0 {
		clearBuffer(*buf)
	}
	switch cap(*buf) {
	case smallBufferSize:
		smallBufferPool.pool.Put(buf)
	case mediumBufferSize:
		mediumBufferPool.pool.Put(buf)
	case largeBufferSize:
		largeBufferPool.pool.Put(buf)
	}
}

// getDynamicBuffer returns an empty growable buffer.
func getDynamicBuffer() []byte {
	dynamicBufferPool.gets.Add(1)
	buf := dynamicBufferPool.pool.Get().(*[]byte)
	return (*buf)[:0]
}

// putDynamicBuffer wipes buf's full capacity and pools it when its capacity
// is in the reusable range.
func putDynamicBuffer(buf []byte) {
	bufCap := cap(buf)
	if bufCap == 0 {
		return
	}
	clearBuffer(buf[:bufCap])
	if bufCap >= 128 && bufCap <= largeBufferSize {
		buf = buf[:0]
		dynamicBufferPool.pool.Put(&buf)
	}
}

// PoolStats reports how often each buffer class was requested and how many
// buffers had to be allocated because the pool was empty.
type PoolStats struct {
	SmallGets     int64 `json:"small_gets"`
	SmallAllocs   int64 `json:"small_allocs"`
	MediumGets    int64 `json:"medium_gets"`
	MediumAllocs  int64 `json:"medium_allocs"`
	LargeGets     int64 `json:"large_gets"`
	LargeAllocs   int64 `json:"large_allocs"`
	DynamicGets   int64 `json:"dynamic_gets"`
	DynamicAllocs int64 `json:"dynamic_allocs"`
}

// GetPoolStats returns the current pool counters.
func GetPoolStats() PoolStats {
	return PoolStats{
		SmallGets:     smallBufferPool.gets.Load(),
		SmallAllocs:   smallBufferPool.allocs.Load(),
		MediumGets:    mediumBufferPool.gets.Load(),
		MediumAllocs:  mediumBufferPool.allocs.Load(),
		LargeGets:     largeBufferPool.gets.Load(),
		LargeAllocs:   largeBufferPool.allocs.Load(),
		DynamicGets:   dynamicBufferPool.gets.Load(),
		DynamicAllocs: dynamicBufferPool.allocs.Load(),
	}
}

// WarmupPools pre-allocates count buffers in every class.
func WarmupPools(count int) {
	if count <= 0 {
		return
	}
	small := make([]*[]byte, count)
	medium := make([]*[]byte, count)
	large := make([]*[]byte, count)
	dynamic := make([][]byte, count)
	for i := 0; i < count; i++ {
		small[i] = getBuffer(smallBufferSize)
		medium[i] = getBuffer(mediumBufferSize)
		large[i] = getBuffer(largeBufferSize)
		dynamic[i] = getDynamicBuffer()
	}
	for i := 0; i < count; i++ {
		putBuffer(small[i])
		putBuffer(medium[i])
		putBuffer(large[i])
		putDynamicBuffer(dynamic[i])
	}
}
