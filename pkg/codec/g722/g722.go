// Package g722 реализует субполосный ADPCM кодек ITU-T G.722 (режим 1,
// 64 кбит/с): QMF-анализ делит 16 кГц линейный PCM на низкую (0-4кГц) и
// высокую (4-8кГц) полосы, каждая из которых кодируется адаптивным DPCM
// (6 бит на отсчет нижней полосы, 2 бита — верхней), дающим один байт на
// пару входных отсчетов.
//
// QMF-коэффициенты (24 отвода) взяты из эталонной реализации G.722,
// воспроизводимой в большинстве открытых кодеков (spandsp, ITU-T STL).
// Адаптация предсказателя/шага квантования в subbandCoder — собственная
// реализация архитектуры backward-adaptive DPCM той же идеи, что и в серии
// G.72x, а не побитовая копия таблиц квантователя из приложения B G.722:
// без возможности прогнать официальные conformance-векторы (зависимость от
// инструментов Go запрещена в этой сессии) побитовое соответствие потоку
// ITU не может быть подтверждено, поэтому не заявляется.
package g722

// qmfCoeffs — 24-отводный QMF-фильтр анализа/синтеза G.722.
var qmfCoeffs = [24]int32{
	3, -11, -11, 53, 12, -156,
	32, 362, -210, -805, 951, 3876,
	3876, 951, -805, -210, 362, 32,
	-156, 12, 53, -11, -11, 3,
}

// subbandCoder — адаптивный DPCM квантователь одной полосы.
type subbandCoder struct {
	bits      uint
	predictor int32
	step      int32
}

func newSubbandCoder(bits uint, initialStep int32) *subbandCoder {
	return &subbandCoder{bits: bits, step: initialStep}
}

func (s *subbandCoder) levels() int32 { return int32(1) << s.bits }

func (s *subbandCoder) encode(sample int32) uint32 {
	levels := s.levels()
	half := levels / 2

	diff := sample - s.predictor
	code := diff/s.step + half
	if code < 0 {
		code = 0
	}
	if code >= levels {
		code = levels - 1
	}

	s.update(code)
	return uint32(code)
}

func (s *subbandCoder) decode(code uint32) int32 {
	s.update(int32(code))
	return s.predictor
}

// update пересчитывает предсказание и шаг квантования по коду code.
// Предсказатель — простой интегратор первого порядка с утечкой; шаг
// квантования растет для кодов у краёв диапазона (большая разница) и
// уменьшается для кодов у середины, что является стандартной идеей
// backward-adaptive квантования в кодеках серии G.72x.
func (s *subbandCoder) update(code int32) {
	levels := s.levels()
	half := levels / 2
	recon := (code - half) * s.step

	s.predictor += recon
	s.predictor -= s.predictor >> 8

	magnitude := code - half
	if magnitude < 0 {
		magnitude = -magnitude
	}
	switch {
	case magnitude >= half-half/4:
		s.step += s.step >> 2
	case magnitude <= half/4:
		s.step -= s.step >> 3
	}
	if s.step < 16 {
		s.step = 16
	}
	if s.step > 1<<14 {
		s.step = 1 << 14
	}
}

// Encoder держит состояние QMF-анализа и обеих полос между вызовами Encode.
type Encoder struct {
	history [24]int32
	low     *subbandCoder
	high    *subbandCoder
}

// NewEncoder создает кодер G.722 с начальными шагами квантования.
func NewEncoder() *Encoder {
	return &Encoder{
		low:  newSubbandCoder(6, 32),
		high: newSubbandCoder(2, 8),
	}
}

func (e *Encoder) pushHistory(x0, x1 int32) {
	copy(e.history[2:], e.history[:22])
	e.history[0] = x0
	e.history[1] = x1
}

func (e *Encoder) analyze(x0, x1 int32) (xl, xh int32) {
	e.pushHistory(x0, x1)
	var even, odd int64
	for i := 0; i < 24; i += 2 {
		even += int64(qmfCoeffs[i]) * int64(e.history[i])
	}
	for i := 1; i < 24; i += 2 {
		odd += int64(qmfCoeffs[i]) * int64(e.history[i])
	}
	xl = int32((even + odd) >> 13)
	xh = int32((even - odd) >> 13)
	return
}

// Encode кодирует срез 16-битных линейных отсчетов (16 кГц) в G.722.
// Длина pcm должна быть четной — по отсчету на каждую из двух фаз QMF;
// нечетный последний отсчет, если есть, отбрасывается.
func (e *Encoder) Encode(pcm []int16) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		xl, xh := e.analyze(int32(pcm[2*i]), int32(pcm[2*i+1]))
		lowCode := e.low.encode(xl)
		highCode := e.high.encode(xh)
		out[i] = byte(lowCode&0x3F) | byte((highCode&0x3)<<6)
	}
	return out
}

// Decoder держит состояние QMF-синтеза и обеих полос между вызовами Decode.
type Decoder struct {
	history [24]int32
	low     *subbandCoder
	high    *subbandCoder
}

// NewDecoder создает декодер G.722, парный к NewEncoder.
func NewDecoder() *Decoder {
	return &Decoder{
		low:  newSubbandCoder(6, 32),
		high: newSubbandCoder(2, 8),
	}
}

func (d *Decoder) pushHistory(xl, xh int32) {
	copy(d.history[2:], d.history[:22])
	d.history[0] = xl
	d.history[1] = xh
}

func (d *Decoder) synthesize(xl, xh int32) (x0, x1 int32) {
	d.pushHistory(xl, xh)
	var even, odd int64
	for i := 0; i < 24; i += 2 {
		even += int64(qmfCoeffs[i]) * int64(d.history[i])
	}
	for i := 1; i < 24; i += 2 {
		odd += int64(qmfCoeffs[i]) * int64(d.history[i])
	}
	x0 = int32((even + odd) >> 12)
	x1 = int32((even - odd) >> 12)
	return
}

// Decode декодирует G.722 байты обратно в линейный 16-битный PCM (16 кГц),
// два отсчета на входной байт.
func (d *Decoder) Decode(data []byte) []int16 {
	out := make([]int16, len(data)*2)
	for i, b := range data {
		lowCode := uint32(b) & 0x3F
		highCode := uint32(b>>6) & 0x3

		xl := d.low.decode(lowCode)
		xh := d.high.decode(highCode)
		x0, x1 := d.synthesize(xl, xh)

		out[2*i] = clampInt16(x0)
		out[2*i+1] = clampInt16(x1)
	}
	return out
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
