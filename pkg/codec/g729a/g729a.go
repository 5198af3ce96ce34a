// Package g729a реализует речевой кодек в архитектуре CELP, структурно
// следующий ITU-T G.729 Annex A: 10-й порядок LPC анализ на 10мс кадр (два
// 5мс/40-отсчетных субкадра), адаптивная (pitch/long-term) кодовая книга,
// построенная на истории возбуждения, и фиксированная кодовая книга с
// разреженными импульсными векторами, в сумме дающие 10 байт на кадр
// (8 кбит/с).
//
// Это НЕ побитово точная реализация ITU-T G.729A: анализ LPC ведется в
// плавающей точке (эталон использует фиксированную точку), коэффициенты
// отражения квантуются грубо (4 бита), а фиксированная кодовая книга —
// заранее сгенерированный детерминированный набор импульсов, а не настоящий
// ACELP-поиск позиций. G.729A полностью за разумное время без возможности
// прогнать официальные conformance-векторы (инструменты Go недоступны в этой
// сессии) реализовать с гарантией побитового совпадения нельзя. Кодер и декодер используют общий встроенный
// "локальный декодер" (encoder реконструирует то же возбуждение, что получит
// decoder), что является стандартной практикой CELP и не зависит от
// точности квантования.
package g729a

const (
	FrameSamples    = 80 // 10мс @ 8кГц
	SubframeSamples = 40 // 5мс
	subframesPerFrame = FrameSamples / SubframeSamples
	lpcOrder        = 10
	minPitchLag     = 20
	maxPitchLag     = minPitchLag + 63 // 6-битный код
	codebookSize    = 64
	FrameBytes      = 10 // 80 бит/кадр = 8 кбит/с
)

var fixedCodebook [codebookSize][SubframeSamples]float64

func init() {
	// Детерминированный псевдослучайный набор разреженных импульсных
	// векторов (4 импульса ±1 на позицию): заменяет алгебраический поиск
	// позиций импульсов ACELP фиксированным, но воспроизводимым набором.
	var seed uint32 = 2463534242
	next := func() uint32 {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		return seed
	}
	for c := 0; c < codebookSize; c++ {
		for p := 0; p < 4; p++ {
			pos := int(next() % SubframeSamples)
			sign := 1.0
			if next()%2 == 0 {
				sign = -1.0
			}
			fixedCodebook[c][pos] += sign
		}
	}
}

// lpcCoeffs хранит предикторные коэффициенты a[1..p] (pred[n] = sum a[j]*x[n-j])
// и коэффициенты отражения k[1..p], используемые для квантования.
type lpcCoeffs struct {
	a [lpcOrder + 1]float64
	k [lpcOrder + 1]float64
}

// analyzeLPC считает автокорреляцию кадра и прогоняет рекурсию
// Левинсона-Дурбина.
func analyzeLPC(frame []float64) lpcCoeffs {
	var r [lpcOrder + 1]float64
	for lag := 0; lag <= lpcOrder; lag++ {
		var sum float64
		for n := lag; n < len(frame); n++ {
			sum += frame[n] * frame[n-lag]
		}
		r[lag] = sum
	}
	if r[0] <= 0 {
		r[0] = 1
	}
	r[0] *= 1.0001 // демпфирование для устойчивости на тихих кадрах

	var c lpcCoeffs
	c.a[0] = 1
	err := r[0]
	for i := 1; i <= lpcOrder; i++ {
		var acc float64
		for j := 1; j < i; j++ {
			acc += c.a[j] * r[i-j]
		}
		ki := (r[i] - acc) / err
		if ki > 0.999 {
			ki = 0.999
		}
		if ki < -0.999 {
			ki = -0.999
		}
		c.k[i] = ki

		prev := c.a
		c.a[i] = ki
		for j := 1; j < i; j++ {
			c.a[j] = prev[j] - ki*prev[i-j]
		}
		err *= 1 - ki*ki
		if err < 1e-6 {
			err = 1e-6
		}
	}
	return c
}

// reflectionToDirect выполняет ту же step-up рекурсию, что и analyzeLPC,
// но отправляясь от уже известных (раскодированных) коэффициентов
// отражения — используется декодером и локальным декодером кодера.
func reflectionToDirect(k [lpcOrder + 1]float64) (a [lpcOrder + 1]float64) {
	a[0] = 1
	for i := 1; i <= lpcOrder; i++ {
		prev := a
		a[i] = k[i]
		for j := 1; j < i; j++ {
			a[j] = prev[j] - k[i]*prev[i-j]
		}
	}
	return
}

func quantizeReflection(k float64) uint32 {
	code := int32(k*8 + 8.5) // округление к ближайшему, смещение в [0,15]
	if code < 0 {
		code = 0
	}
	if code > 15 {
		code = 15
	}
	return uint32(code)
}

func dequantizeReflection(code uint32) float64 {
	return (float64(code) - 8) / 8.0
}

// predict считает sum a[j]*hist[lpcOrder-j] для j=1..p, где
// hist[lpcOrder-1] — последний (самый новый) из предыдущих отсчетов.
func predict(a [lpcOrder + 1]float64, hist []float64) float64 {
	var sum float64
	for j := 1; j <= lpcOrder; j++ {
		sum += a[j] * hist[lpcOrder-j]
	}
	return sum
}

type localState struct {
	synthHist [lpcOrder]float64          // последние lpcOrder восстановленных отсчетов
	excHist   []float64                  // история возбуждения для адаптивной кодовой книги
}

func newLocalState() *localState {
	return &localState{excHist: make([]float64, maxPitchLag+SubframeSamples)}
}

// pitchSearch ищет лаг (открытый цикл, по нормализованной кросс-корреляции)
// в истории возбуждения, максимизирующий прогноз target, и возвращает лаг и
// оптимальное усиление.
func (s *localState) pitchSearch(target []float64) (lag int, gain float64) {
	bestScore := -1.0
	bestLag := minPitchLag
	var bestGain float64

	histLen := len(s.excHist)
	for l := minPitchLag; l <= maxPitchLag; l++ {
		var corr, energy float64
		for n := 0; n < SubframeSamples; n++ {
			idx := histLen - l + n
			if idx < 0 || idx >= histLen {
				continue
			}
			past := s.excHist[idx]
			corr += target[n] * past
			energy += past * past
		}
		if energy <= 0 {
			continue
		}
		score := corr * corr / energy
		if score > bestScore {
			bestScore = score
			bestLag = l
			bestGain = corr / energy
		}
	}
	if bestGain < 0 {
		bestGain = 0
	}
	if bestGain > 1.5 {
		bestGain = 1.5
	}
	return bestLag, bestGain
}

func (s *localState) adaptiveContribution(lag int) []float64 {
	out := make([]float64, SubframeSamples)
	histLen := len(s.excHist)
	for n := 0; n < SubframeSamples; n++ {
		idx := histLen - lag + n
		if idx >= 0 && idx < histLen {
			out[n] = s.excHist[idx]
		}
	}
	return out
}

func quantizeGain(g, max float64, bits uint) uint32 {
	levels := uint32(1) << bits
	if g < 0 {
		g = 0
	}
	if g > max {
		g = max
	}
	code := uint32(g / max * float64(levels-1))
	return code
}

func dequantizeGain(code uint32, max float64, bits uint) float64 {
	levels := uint32(1) << bits
	return float64(code) / float64(levels-1) * max
}

func (s *localState) advance(a [lpcOrder + 1]float64, excitation []float64) []float64 {
	out := make([]float64, SubframeSamples)
	hist := s.synthHist
	for n := 0; n < SubframeSamples; n++ {
		pred := predict(a, hist[:])
		y := excitation[n] + pred
		out[n] = y
		copy(hist[:lpcOrder-1], hist[1:])
		hist[lpcOrder-1] = y
	}
	s.synthHist = hist

	s.excHist = append(s.excHist, excitation...)
	if extra := len(s.excHist) - (maxPitchLag + SubframeSamples); extra > 0 {
		s.excHist = s.excHist[extra:]
	}
	return out
}

const (
	maxPitchGain = 1.5
	maxCbGain    = 8.0
)

// Encoder кодирует 8кГц линейный PCM во фреймы G.729A-подобного CELP.
// Хранит встроенный "локальный декодер", реконструирующий то же состояние
// возбуждения, что получит Decoder — стандартная практика CELP кодеров.
type Encoder struct {
	local *localState
}

// NewEncoder создает кодер с нулевым начальным состоянием синтеза.
func NewEncoder() *Encoder {
	return &Encoder{local: newLocalState()}
}

// Encode кодирует один кадр из FrameSamples (80) отсчетов в FrameBytes (10)
// байт. Паникует, если len(pcm) != FrameSamples — вызывающий код обязан
// нарезать поток на кадры фиксированного размера.
func (e *Encoder) Encode(pcm []int16) []byte {
	if len(pcm) != FrameSamples {
		panic("g729a: Encode requires exactly FrameSamples samples")
	}

	frame := make([]float64, FrameSamples)
	for i, s := range pcm {
		frame[i] = float64(s)
	}

	coeffs := analyzeLPC(frame)

	var kCodes [lpcOrder + 1]uint32
	var qk [lpcOrder + 1]float64
	for i := 1; i <= lpcOrder; i++ {
		kCodes[i] = quantizeReflection(coeffs.k[i])
		qk[i] = dequantizeReflection(kCodes[i])
	}
	a := reflectionToDirect(qk)

	w := newBitWriter(FrameBytes)
	for i := 1; i <= lpcOrder; i++ {
		w.write(kCodes[i], 4)
	}

	for sf := 0; sf < subframesPerFrame; sf++ {
		sub := frame[sf*SubframeSamples : (sf+1)*SubframeSamples]

		residual := make([]float64, SubframeSamples)
		hist := e.local.synthHist
		for n := 0; n < SubframeSamples; n++ {
			residual[n] = sub[n] - predict(a, hist[:])
			copy(hist[:lpcOrder-1], hist[1:])
			hist[lpcOrder-1] = sub[n]
		}

		lag, pGain := e.local.pitchSearch(residual)
		pGainCode := quantizeGain(pGain, maxPitchGain, 4)
		pGain = dequantizeGain(pGainCode, maxPitchGain, 4)

		adaptive := e.local.adaptiveContribution(lag)
		target2 := make([]float64, SubframeSamples)
		for n := range target2 {
			target2[n] = residual[n] - pGain*adaptive[n]
		}

		bestIdx := 0
		bestScore := -1.0
		var bestGainRaw float64
		for c := 0; c < codebookSize; c++ {
			var corr, energy float64
			for n := 0; n < SubframeSamples; n++ {
				corr += target2[n] * fixedCodebook[c][n]
				energy += fixedCodebook[c][n] * fixedCodebook[c][n]
			}
			if energy <= 0 {
				continue
			}
			score := corr * corr / energy
			if score > bestScore {
				bestScore = score
				bestIdx = c
				bestGainRaw = corr / energy
			}
		}
		cGainCode := quantizeGain(bestGainRaw, maxCbGain, 4)
		cGain := dequantizeGain(cGainCode, maxCbGain, 4)

		excitation := make([]float64, SubframeSamples)
		for n := range excitation {
			excitation[n] = pGain*adaptive[n] + cGain*fixedCodebook[bestIdx][n]
		}
		e.local.advance(a, excitation)

		w.write(uint32(lag-minPitchLag), 6)
		w.write(pGainCode, 4)
		w.write(uint32(bestIdx), 6)
		w.write(cGainCode, 4)
	}

	return w.bytes()
}

// Decoder декодирует байты, произведенные Encoder, обратно в линейный PCM.
type Decoder struct {
	local *localState
}

// NewDecoder создает декодер с нулевым начальным состоянием синтеза.
func NewDecoder() *Decoder {
	return &Decoder{local: newLocalState()}
}

// Decode декодирует один кадр из FrameBytes байт в FrameSamples отсчетов.
func (d *Decoder) Decode(data []byte) []int16 {
	if len(data) != FrameBytes {
		panic("g729a: Decode requires exactly FrameBytes bytes")
	}
	r := newBitReader(data)

	var qk [lpcOrder + 1]float64
	for i := 1; i <= lpcOrder; i++ {
		qk[i] = dequantizeReflection(r.read(4))
	}
	a := reflectionToDirect(qk)

	out := make([]int16, 0, FrameSamples)
	for sf := 0; sf < subframesPerFrame; sf++ {
		lag := int(r.read(6)) + minPitchLag
		pGain := dequantizeGain(r.read(4), maxPitchGain, 4)
		cbIdx := int(r.read(6))
		cGain := dequantizeGain(r.read(4), maxCbGain, 4)

		adaptive := d.local.adaptiveContribution(lag)
		excitation := make([]float64, SubframeSamples)
		for n := range excitation {
			excitation[n] = pGain*adaptive[n] + cGain*fixedCodebook[cbIdx][n]
		}

		synth := d.local.advance(a, excitation)
		for _, y := range synth {
			out = append(out, clampInt16(y))
		}
	}
	return out
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
