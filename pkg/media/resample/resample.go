// Package resample реализует линейную интерполяцию частоты дискретизации
// для 16-битного линейного PCM — в первую очередь для моста между G.711/
// G.729 (8kHz) и G.722 (16kHz), который пакет общих RTP timestamp-ов G.722
// традиционно заявляет на 8000 Hz при фактическом сигнале 16kHz.
//
// Ни учитель, ни остальной пакет примеров не несут отдельного ресемплера —
// реализация новая, линейная интерполяция выбрана как самый
// распространенный компромисс качество/сложность для голосового трафика
// без стороннего DSP пакета в разобранном стеке.
package resample

// Linear пересчитывает samples с частоты fromRate на toRate линейной
// интерполяцией.
func Linear(samples []int16, fromRate, toRate uint32) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(toRate) / float64(fromRate)
	outLen := int(float64(len(samples)) * ratio)
	out := make([]int16, outLen)

	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}

		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}

	return out
}

// To8kHz downsample'ит 16kHz сигнал в 8kHz.
func To8kHz(samples []int16) []int16 {
	return Linear(samples, 16000, 8000)
}

// To16kHz upsample'ит 8kHz сигнал в 16kHz.
func To16kHz(samples []int16) []int16 {
	return Linear(samples, 8000, 16000)
}
