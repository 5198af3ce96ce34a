// Package vad реализует энергетический детектор голосовой активности для
// 16-битных линейных PCM фреймов: скользящая оценка энергии шума с
// гистерезисом между речью и тишиной, чтобы не дребезжать на границах.
//
// Нет готового VAD ни в коде учителя, ни в остальном пакете примеров —
// реализация строится с нуля по стандартной практике энергетического VAD
// (RMS-энергия фрейма против адаптивного порога шума), без привязки к
// стороннему DSP пакету, которого в разобранном стеке нет.
package vad

import "math"

// Config настраивает детектор.
type Config struct {
	EnergyThresholdDB float64 // порог превышения над уровнем шума, дБ
	NoiseAdaptRate     float64 // 0..1, скорость адаптации уровня шума
	HangoverFrames     int     // сколько тихих фреймов после речи все еще считать речью
}

// DefaultConfig — 10дБ над шумом, медленная адаптация, 10 фреймов (200мс
// при 20мс фрейме) hangover, чтобы не резать конец слов.
func DefaultConfig() Config {
	return Config{EnergyThresholdDB: 10, NoiseAdaptRate: 0.05, HangoverFrames: 10}
}

// Detector отслеживает состояние голос/тишина по потоку фреймов.
type Detector struct {
	cfg       Config
	noiseRMS  float64
	hangover  int
	speaking  bool
	initted   bool
}

// New создает детектор с конфигурацией cfg.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Process анализирует один фрейм 16-битных сэмплов и возвращает, является
// ли он речью.
func (d *Detector) Process(samples []int16) bool {
	rms := rmsOf(samples)

	if !d.initted {
		d.noiseRMS = rms
		d.initted = true
	}

	thresholdFactor := math.Pow(10, d.cfg.EnergyThresholdDB/20)
	isActive := rms > d.noiseRMS*thresholdFactor

	if isActive {
		d.speaking = true
		d.hangover = d.cfg.HangoverFrames
	} else {
		// Адаптируем уровень шума только когда явно тихо, чтобы речь его не
		// загрязняла.
		d.noiseRMS += (rms - d.noiseRMS) * d.cfg.NoiseAdaptRate
		if d.hangover > 0 {
			d.hangover--
		} else {
			d.speaking = false
		}
	}

	return d.speaking
}

// NoiseFloor возвращает текущую оценку RMS уровня шума.
func (d *Detector) NoiseFloor() float64 {
	return d.noiseRMS
}

func rmsOf(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
