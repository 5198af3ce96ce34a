// Package mixer реализует N-1 микширование линейного PCM для конференц-связи:
// каждый участник получает сумму сигналов всех остальных участников, но не
// собственного, со сложением в int32 и насыщением обратно в int16.
//
// Grounded на other_examples 4dc3fc89_flowpbx-flowpbx__internal-media-mixer.go.go —
// тот же принцип (decode → N-1 sum → encode per participant) обобщенный в
// отдельный пакет, работающий над уже декодированным PCM вместо владения
// RTP-сокетами напрямую (это сделано в pkg/session).
package mixer

import "sync"

// Conference микширует аудио для множества участников одного разговора.
type Conference struct {
	mu           sync.Mutex
	contributions map[string][]int16
	order         []string
}

// NewConference создает пустую конференцию.
func NewConference() *Conference {
	return &Conference{contributions: make(map[string][]int16)}
}

// Contribute публикует декодированный PCM фрейм участника id для текущего
// цикла микширования. frameLen сэмплов у всех участников должно совпадать
// в пределах одного цикла.
func (c *Conference) Contribute(id string, pcm []int16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contributions[id]; !ok {
		c.order = append(c.order, id)
	}
	c.contributions[id] = pcm
}

// Remove убирает участника id из конференции.
func (c *Conference) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.contributions, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// MixFor возвращает N-1 смесь (все участники, кроме id) для одного цикла.
// Если id не публиковал фрейм в этом цикле, возвращает смесь нужной длины,
// определяемой самым длинным поступившим фреймом.
func (c *Conference) MixFor(id string) []int16 {
	c.mu.Lock()
	defer c.mu.Unlock()

	frameLen := 0
	for _, pcm := range c.contributions {
		if len(pcm) > frameLen {
			frameLen = len(pcm)
		}
	}
	if frameLen == 0 {
		return nil
	}

	sums := make([]int32, frameLen)
	for other, pcm := range c.contributions {
		if other == id {
			continue
		}
		for i, s := range pcm {
			sums[i] += int32(s)
		}
	}

	out := make([]int16, frameLen)
	for i, v := range sums {
		out[i] = saturate(v)
	}
	return out
}

// ParticipantCount возвращает число участников конференции, которые не были
// удалены через Remove, независимо от того, публиковали ли они фрейм в
// текущем цикле.
func (c *Conference) ParticipantCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contributions)
}

// EndCycle очищает вклады текущего цикла, подготавливая конференцию к
// следующему набору фреймов.
func (c *Conference) EndCycle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.contributions {
		c.contributions[id] = nil
	}
}

func saturate(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
