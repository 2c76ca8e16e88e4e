package client

import "sync"

// BytePool: пул переиспользуемых []byte буферов.
// Используется для сборки потока пакетов перед сжатием кадра.
type BytePool struct {
	pool   sync.Pool
	maxCap int
}

// NewBytePool создаёт пул с начальной ёмкостью defaultCap для новых слайсов.
// Буферы, выросшие больше maxCap, в пул не возвращаются.
func NewBytePool(defaultCap, maxCap int) *BytePool {
	p := &BytePool{maxCap: maxCap}
	p.pool.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return p
}

// Get возвращает пустой слайс (len 0), по возможности из пула.
func (p *BytePool) Get() []byte {
	return p.pool.Get().([]byte)[:0]
}

// Put возвращает слайс в пул для повторного использования.
func (p *BytePool) Put(b []byte) {
	if b == nil || cap(b) > p.maxCap {
		return
	}
	p.pool.Put(b[:0])
}
