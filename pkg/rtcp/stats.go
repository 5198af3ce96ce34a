package rtcp

// ReceiverStats накапливает приемную статистику одного источника (SSRC) для
// построения Reception Report — jitter по RFC 3550 Appendix A.8, потери по
// Appendix A.3, расширенный highest sequence по Appendix A.1.
//
// Grounded на _examples/arzzra-soft_phone/pkg/rtp/rtcp_session.go
// (CalculateJitter/CalculateFractionLost) и rtcp.go (RFC-узкие формулы),
// обобщенный в отдельный тип вместо встроенности в RTP-сессию.
type ReceiverStats struct {
	ssrc uint32

	baseSeq      uint16
	maxSeq       uint16
	cycles       uint32
	received     uint32
	expectedPrev uint32
	receivedPrev uint32
	started      bool

	transit     int64
	jitter      float64
	lastSRMid32 uint32
	lastSRRecv  int64 // unix nano подсчитано вызывающей стороной
}

// NewReceiverStats создает трекер для источника ssrc.
func NewReceiverStats(ssrc uint32) *ReceiverStats {
	return &ReceiverStats{ssrc: ssrc}
}

// OnPacket обновляет статистику по одному принятому RTP пакету: порядковому
// номеру seq, временной метке rtpTimestamp и моменту приема arrivalClock
// (в тех же единицах, что и RTP clock rate, т.е. уже умноженному на sample rate).
func (s *ReceiverStats) OnPacket(seq uint16, rtpTimestamp uint32, arrivalClock int64) {
	if !s.started {
		s.started = true
		s.baseSeq = seq
		s.maxSeq = seq
		s.received = 1
		s.transit = arrivalClock - int64(rtpTimestamp)
		return
	}

	if delta := seq - s.maxSeq; delta != 0 && delta < 0x8000 {
		if seq < s.maxSeq {
			s.cycles += 1 << 16
		}
		s.maxSeq = seq
	}
	s.received++

	transit := arrivalClock - int64(rtpTimestamp)
	d := transit - s.transit
	if d < 0 {
		d = -d
	}
	s.jitter += (float64(d) - s.jitter) / 16.0
	s.transit = transit
}

// OnSenderReport записывает NTP-метку (полные 64 бита) из принятого SR для
// вычисления LSR/DLSR (RFC 3550 §6.4.1: LSR хранит средние 32 бита NTP).
func (s *ReceiverStats) OnSenderReport(ntpTimestamp uint64, receivedAtClock int64) {
	s.lastSRMid32 = uint32(ntpTimestamp >> 16)
	s.lastSRRecv = receivedAtClock
}

// ExtendedHighestSeq возвращает расширенный (32-битный) старший полученный
// порядковый номер (RFC 3550 Appendix A.1).
func (s *ReceiverStats) ExtendedHighestSeq() uint32 {
	return s.cycles | uint32(s.maxSeq)
}

// BuildReceptionReport строит один блок Reception Report по текущему
// накопленному состоянию. delaySinceLastSR записывается в блок как есть:
// вызывающая сторона передает задержку уже в единицах 1/65536 секунды
// (RFC 3550).
func (s *ReceiverStats) BuildReceptionReport(delaySinceLastSR uint32) ReceptionReport {
	expected := s.ExtendedHighestSeq() - uint32(s.baseSeq) + 1
	lost := uint32(0)
	if expected > s.received {
		lost = expected - s.received
	}

	expectedInterval := expected - s.expectedPrev
	receivedInterval := s.received - s.receivedPrev
	s.expectedPrev = expected
	s.receivedPrev = s.received

	var fraction uint8
	lostInterval := int64(expectedInterval) - int64(receivedInterval)
	if expectedInterval != 0 && lostInterval > 0 {
		fraction = uint8((lostInterval * 256) / int64(expectedInterval))
	}

	return ReceptionReport{
		SSRC:             s.ssrc,
		FractionLost:     fraction,
		CumulativeLost:   lost & 0x00FFFFFF,
		HighestSeqNum:    s.ExtendedHighestSeq(),
		Jitter:           uint32(s.jitter),
		LastSR:           s.lastSRMid32,
		DelaySinceLastSR: delaySinceLastSR,
	}
}
