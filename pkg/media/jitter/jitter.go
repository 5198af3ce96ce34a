// Package jitter реализует адаптивный de-jitter буфер для входящего RTP
// потока: упорядочивает пакеты по timestamp, сглаживает сетевой джиттер
// целевой задержкой и считает потерянные/поздние пакеты.
//
// Grounded на _examples/arzzra-soft_phone/pkg/media/jitter_buffer.go —
// тот же min-heap по RTP timestamp через container/heap и github.com/pion/rtp,
// вынесенный в отдельный пакет (как того требует карта модулей) и
// упрощенный до чистой буферизации без встроенных каналов вывода — вызывающая
// сторона (pkg/session) сама решает, как читать готовые пакеты.
package jitter

import (
	"container/heap"
	"sync"
	"time"

	"github.com/pion/rtp"
)

// Config настраивает буфер.
type Config struct {
	MaxPackets   int           // максимальный размер буфера
	TargetDelay  time.Duration // целевая задержка воспроизведения
	ClockRate    uint32        // RTP clock rate (8000 для G.711/G.722/G.729)
}

// DefaultConfig — буфер на 50 пакетов (1 секунда при ptime=20ms) и 60мс
// целевой задержки, как типичное значение для VoIP jitter buffer.
func DefaultConfig() Config {
	return Config{MaxPackets: 50, TargetDelay: 60 * time.Millisecond, ClockRate: 8000}
}

type entry struct {
	packet  *rtp.Packet
	arrival time.Time
	index   int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool   { return h[i].packet.Timestamp < h[j].packet.Timestamp }
func (h entryHeap) Swap(i, j int)        { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{})  { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Buffer — один de-jitter буфер по одному SSRC.
type Buffer struct {
	cfg Config

	mu         sync.Mutex
	heap       entryHeap
	lastSeq    uint16
	haveLast   bool

	PacketsReceived uint64
	PacketsDropped  uint64
	PacketsLate     uint64
}

// New создает буфер с конфигурацией cfg.
func New(cfg Config) *Buffer {
	if cfg.MaxPackets <= 0 {
		cfg.MaxPackets = DefaultConfig().MaxPackets
	}
	b := &Buffer{cfg: cfg}
	heap.Init(&b.heap)
	return b
}

// Push добавляет принятый пакет p и всегда возвращает true. При переполнении
// буфера отбрасывается самый старый пакет; поздние пакеты только учитываются
// в статистике и тоже помещаются в буфер.
func (b *Buffer) Push(p *rtp.Packet) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.PacketsReceived++

	if b.haveLast {
		delta := int16(p.SequenceNumber - b.lastSeq)
		if delta < 0 {
			b.PacketsLate++
		}
	}

	if len(b.heap) >= b.cfg.MaxPackets {
		// Буфер полон: отбрасываем самый старый пакет, освобождая место
		// для нового — предпочтение свежим данным при устойчивой перегрузке.
		heap.Pop(&b.heap)
		b.PacketsDropped++
	}

	heap.Push(&b.heap, &entry{packet: p, arrival: time.Now()})
	return true
}

// Pop возвращает следующий пакет в порядке timestamp, готовый к
// воспроизведению (его целевая задержка уже истекла), либо nil если таких
// пакетов пока нет.
func (b *Buffer) Pop() *rtp.Packet {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.heap) == 0 {
		return nil
	}
	head := b.heap[0]
	if time.Since(head.arrival) < b.cfg.TargetDelay {
		return nil
	}
	heap.Pop(&b.heap)
	b.lastSeq = head.packet.SequenceNumber
	b.haveLast = true
	return head.packet
}

// Len возвращает текущее число буферизованных пакетов.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.heap)
}
