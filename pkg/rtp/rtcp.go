package rtp

import (
	"fmt"
	"time"

	"github.com/arzzra/govoip/pkg/rtcp"
)

// RTCP Packet Type согласно RFC 3550 Section 6.1. Переиспользуют значения,
// объявленные в pkg/rtcp, чтобы не держать два набора констант для одного и
// того же wire-формата.
const (
	RTCPTypeSR   = rtcp.TypeSR
	RTCPTypeRR   = rtcp.TypeRR
	RTCPTypeSDES = rtcp.TypeSDES
	RTCPTypeBYE  = rtcp.TypeBYE
	RTCPTypeAPP  uint8 = 204 // APP-пакеты вне кодека pkg/rtcp
)

// SDES Types согласно RFC 3550 Section 6.5
const (
	SDESTypeCNAME = rtcp.SDESCNAME
	SDESTypeName  = rtcp.SDESName
	SDESTypeEmail = rtcp.SDESEmail
	SDESTypePhone = rtcp.SDESPhone
	SDESTypeLoc   = rtcp.SDESLoc
	SDESTypeTool  = rtcp.SDESTool
	SDESTypeNote  = rtcp.SDESNote
	SDESTypePriv  = rtcp.SDESPriv
)

// RTCPHeader представляет заголовок RTCP пакета согласно RFC 3550 Section 6.1
type RTCPHeader struct {
	Version    uint8  // Version (V): 2 bits
	Padding    bool   // Padding (P): 1 bit
	Count      uint8  // Reception report count (RC) or Source count (SC): 5 bits
	PacketType uint8  // Packet type (PT): 8 bits
	Length     uint16 // Length: 16 bits (в 32-битных словах минус 1)
}

// ReceptionReport согласно RFC 3550 Section 6.4.1
type ReceptionReport struct {
	SSRC             uint32 // SSRC of source
	FractionLost     uint8  // Fraction lost (8 bits)
	CumulativeLost   uint32 // Cumulative number of packets lost (24 bits)
	HighestSeqNum    uint32 // Extended highest sequence number received (32 bits)
	Jitter           uint32 // Interarrival jitter (32 bits)
	LastSR           uint32 // Last SR timestamp (32 bits)
	DelaySinceLastSR uint32 // Delay since last SR (32 bits)
}

func (r ReceptionReport) toCodec() rtcp.ReceptionReport {
	return rtcp.ReceptionReport{
		SSRC:             r.SSRC,
		FractionLost:     r.FractionLost,
		CumulativeLost:   r.CumulativeLost,
		HighestSeqNum:    r.HighestSeqNum,
		Jitter:           r.Jitter,
		LastSR:           r.LastSR,
		DelaySinceLastSR: r.DelaySinceLastSR,
	}
}

func receptionReportFromCodec(r rtcp.ReceptionReport) ReceptionReport {
	return ReceptionReport{
		SSRC:             r.SSRC,
		FractionLost:     r.FractionLost,
		CumulativeLost:   r.CumulativeLost,
		HighestSeqNum:    r.HighestSeqNum,
		Jitter:           r.Jitter,
		LastSR:           r.LastSR,
		DelaySinceLastSR: r.DelaySinceLastSR,
	}
}

// SenderReport согласно RFC 3550 Section 6.4.1
type SenderReport struct {
	Hdr              RTCPHeader
	SSRC             uint32 // SSRC of sender
	NTPTimestamp     uint64 // NTP timestamp
	RTPTimestamp     uint32 // RTP timestamp
	SenderPackets    uint32 // Sender's packet count
	SenderOctets     uint32 // Sender's octet count
	ReceptionReports []ReceptionReport
}

// ReceiverReport согласно RFC 3550 Section 6.4.2
type ReceiverReport struct {
	Hdr              RTCPHeader
	SSRC             uint32 // SSRC of packet sender
	ReceptionReports []ReceptionReport
}

// SourceDescription согласно RFC 3550 Section 6.5
type SourceDescriptionPacket struct {
	Hdr    RTCPHeader
	Chunks []SDESChunk
}

// SDESChunk представляет один chunk в SDES пакете
type SDESChunk struct {
	Source uint32 // SSRC/CSRC
	Items  []SDESItem
}

// SDESItem представляет элемент описания источника
type SDESItem struct {
	Type   uint8  // SDES type
	Length uint8  // Length of text
	Text   []byte // Text data
}

// ByePacket согласно RFC 3550 Section 6.6
type ByePacket struct {
	Hdr     RTCPHeader
	Sources []uint32 // List of SSRC/CSRC identifiers
	Reason  string   // Optional reason for leaving
}

// RTCPCompoundPacket представляет составной RTCP пакет
type RTCPCompoundPacket struct {
	Packets []RTCPPacket
}

// RTCPPacket интерфейс для всех типов RTCP пакетов
type RTCPPacket interface {
	Header() RTCPHeader
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

// RTCPStatistics содержит статистику для RTCP отчетов
type RTCPStatistics struct {
	PacketsSent     uint32
	OctetsSent      uint32
	PacketsReceived uint32
	OctetsReceived  uint32
	PacketsLost     uint32
	FractionLost    uint8
	Jitter          uint32
	LastSRTimestamp uint32
	LastSRReceived  time.Time
	TransitTime     int64
	LastSeqNum      uint16
	SeqNumCycles    uint16
	BaseSeqNum      uint16
	BadSeqNum       uint16
	ProbationCount  uint16
}

// NewSenderReport создает новый Sender Report
func NewSenderReport(ssrc uint32, ntpTime uint64, rtpTime uint32, packets, octets uint32) *SenderReport {
	return &SenderReport{
		Hdr: RTCPHeader{
			Version:    2,
			Padding:    false,
			Count:      0,
			PacketType: RTCPTypeSR,
			Length:     6, // Фиксированная длина для SR без RR
		},
		SSRC:             ssrc,
		NTPTimestamp:     ntpTime,
		RTPTimestamp:     rtpTime,
		SenderPackets:    packets,
		SenderOctets:     octets,
		ReceptionReports: make([]ReceptionReport, 0),
	}
}

// AddReceptionReport добавляет Reception Report к Sender Report
func (sr *SenderReport) AddReceptionReport(rr ReceptionReport) {
	sr.ReceptionReports = append(sr.ReceptionReports, rr)
	sr.Hdr.Count = uint8(len(sr.ReceptionReports))
	sr.Hdr.Length = 6 + uint16(len(sr.ReceptionReports)*6) // SR + RR blocks
}

// Header возвращает заголовок RTCP пакета
func (sr *SenderReport) Header() RTCPHeader {
	return sr.Hdr
}

// Marshal кодирует Sender Report в байты, используя ту же побитовую упаковку,
// что и pkg/rtcp.SenderReport.Marshal.
func (sr *SenderReport) Marshal() ([]byte, error) {
	reports := make([]rtcp.ReceptionReport, len(sr.ReceptionReports))
	for i, r := range sr.ReceptionReports {
		reports[i] = r.toCodec()
	}
	codec := &rtcp.SenderReport{
		SSRC:             sr.SSRC,
		NTPTimestamp:     sr.NTPTimestamp,
		RTPTimestamp:     sr.RTPTimestamp,
		PacketCount:      sr.SenderPackets,
		OctetCount:       sr.SenderOctets,
		ReceptionReports: reports,
	}
	return codec.Marshal()
}

// Unmarshal декодирует байты в Sender Report
func (sr *SenderReport) Unmarshal(data []byte) error {
	codec, err := rtcp.UnmarshalSenderReport(data)
	if err != nil {
		return err
	}

	sr.Hdr = RTCPHeader{
		Version:    2,
		Count:      uint8(len(codec.ReceptionReports)),
		PacketType: RTCPTypeSR,
		Length:     uint16(len(data)/4 - 1),
	}
	sr.SSRC = codec.SSRC
	sr.NTPTimestamp = codec.NTPTimestamp
	sr.RTPTimestamp = codec.RTPTimestamp
	sr.SenderPackets = codec.PacketCount
	sr.SenderOctets = codec.OctetCount

	sr.ReceptionReports = make([]ReceptionReport, len(codec.ReceptionReports))
	for i, r := range codec.ReceptionReports {
		sr.ReceptionReports[i] = receptionReportFromCodec(r)
	}
	return nil
}

// NewReceiverReport создает новый Receiver Report
func NewReceiverReport(ssrc uint32) *ReceiverReport {
	return &ReceiverReport{
		Hdr: RTCPHeader{
			Version:    2,
			Padding:    false,
			Count:      0,
			PacketType: RTCPTypeRR,
			Length:     1, // Фиксированная длина для RR без RR блоков
		},
		SSRC:             ssrc,
		ReceptionReports: make([]ReceptionReport, 0),
	}
}

// AddReceptionReport добавляет Reception Report к Receiver Report
func (rr *ReceiverReport) AddReceptionReport(report ReceptionReport) {
	rr.ReceptionReports = append(rr.ReceptionReports, report)
	rr.Hdr.Count = uint8(len(rr.ReceptionReports))
	rr.Hdr.Length = 1 + uint16(len(rr.ReceptionReports)*6) // RR header + RR blocks
}

// Header возвращает заголовок RTCP пакета
func (rr *ReceiverReport) Header() RTCPHeader {
	return rr.Hdr
}

// Marshal кодирует Receiver Report в байты, используя ту же побитовую упаковку,
// что и pkg/rtcp.ReceiverReport.Marshal.
func (rr *ReceiverReport) Marshal() ([]byte, error) {
	reports := make([]rtcp.ReceptionReport, len(rr.ReceptionReports))
	for i, r := range rr.ReceptionReports {
		reports[i] = r.toCodec()
	}
	codec := &rtcp.ReceiverReport{
		SSRC:             rr.SSRC,
		ReceptionReports: reports,
	}
	return codec.Marshal()
}

// Unmarshal декодирует байты в Receiver Report
func (rr *ReceiverReport) Unmarshal(data []byte) error {
	codec, err := rtcp.UnmarshalReceiverReport(data)
	if err != nil {
		return err
	}

	rr.Hdr = RTCPHeader{
		Version:    2,
		Count:      uint8(len(codec.ReceptionReports)),
		PacketType: RTCPTypeRR,
		Length:     uint16(len(data)/4 - 1),
	}
	rr.SSRC = codec.SSRC

	rr.ReceptionReports = make([]ReceptionReport, len(codec.ReceptionReports))
	for i, r := range codec.ReceptionReports {
		rr.ReceptionReports[i] = receptionReportFromCodec(r)
	}
	return nil
}

// NewSourceDescription создает новый SDES пакет
func NewSourceDescription() *SourceDescriptionPacket {
	return &SourceDescriptionPacket{
		Hdr: RTCPHeader{
			Version:    2,
			Padding:    false,
			Count:      0,
			PacketType: RTCPTypeSDES,
			Length:     1,
		},
		Chunks: make([]SDESChunk, 0),
	}
}

// AddChunk добавляет новый chunk к SDES пакету
func (sdes *SourceDescriptionPacket) AddChunk(ssrc uint32, items []SDESItem) {
	chunk := SDESChunk{
		Source: ssrc,
		Items:  items,
	}
	sdes.Chunks = append(sdes.Chunks, chunk)
	sdes.Hdr.Count = uint8(len(sdes.Chunks))
}

// Header возвращает заголовок RTCP пакета
func (sdes *SourceDescriptionPacket) Header() RTCPHeader {
	return sdes.Hdr
}

// firstCNAME возвращает CNAME первого chunk, если он есть — pkg/rtcp.SourceDescription
// кодирует только один chunk с одним CNAME item (этого достаточно для
// однопоточного RTP сеанса govoip, см. pkg/rtcp.SourceDescription.Marshal).
func (sdes *SourceDescriptionPacket) firstCNAME() (uint32, string) {
	if len(sdes.Chunks) == 0 {
		return 0, ""
	}
	chunk := sdes.Chunks[0]
	for _, item := range chunk.Items {
		if item.Type == SDESTypeCNAME {
			return chunk.Source, string(item.Text)
		}
	}
	return chunk.Source, ""
}

// Marshal кодирует SDES пакет в байты. Делегирует кодирование CNAME chunk
// pkg/rtcp.SourceDescription; прочие SDES item-типы (NAME/EMAIL/TOOL/...) вне
// поддержки однoчанкового кодека и сохраняются только в памяти через Chunks.
func (sdes *SourceDescriptionPacket) Marshal() ([]byte, error) {
	ssrc, cname := sdes.firstCNAME()
	codec := &rtcp.SourceDescription{SSRC: ssrc, CNAME: cname}
	return codec.Marshal()
}

// Unmarshal декодирует байты в SDES пакет (только CNAME chunk, см. Marshal).
func (sdes *SourceDescriptionPacket) Unmarshal(data []byte) error {
	codec, err := rtcp.UnmarshalSourceDescription(data)
	if err != nil {
		return err
	}

	sdes.Hdr = RTCPHeader{
		Version:    2,
		Count:      1,
		PacketType: RTCPTypeSDES,
		Length:     uint16(len(data)/4 - 1),
	}
	sdes.Chunks = []SDESChunk{{
		Source: codec.SSRC,
		Items: []SDESItem{{
			Type:   SDESTypeCNAME,
			Length: uint8(len(codec.CNAME)),
			Text:   []byte(codec.CNAME),
		}},
	}}
	return nil
}

// NewByePacket создает новый BYE пакет.
func NewByePacket(sources []uint32, reason string) *ByePacket {
	return &ByePacket{
		Hdr: RTCPHeader{
			Version:    2,
			PacketType: RTCPTypeBYE,
			Count:      uint8(len(sources)),
		},
		Sources: sources,
		Reason:  reason,
	}
}

// Header возвращает заголовок RTCP пакета
func (b *ByePacket) Header() RTCPHeader {
	return b.Hdr
}

// Marshal кодирует BYE пакет, делегируя упаковку pkg/rtcp.Bye.
func (b *ByePacket) Marshal() ([]byte, error) {
	codec := &rtcp.Bye{Sources: b.Sources, Reason: b.Reason}
	return codec.Marshal()
}

// Unmarshal декодирует байты в BYE пакет.
func (b *ByePacket) Unmarshal(data []byte) error {
	codec, err := rtcp.UnmarshalBye(data)
	if err != nil {
		return err
	}
	b.Hdr = RTCPHeader{
		Version:    2,
		Count:      uint8(len(codec.Sources)),
		PacketType: RTCPTypeBYE,
		Length:     uint16(len(data)/4 - 1),
	}
	b.Sources = codec.Sources
	b.Reason = codec.Reason
	return nil
}

// CalculateJitter вычисляет jitter согласно RFC 3550 Appendix A.8. Формула
// совпадает с той, что использует pkg/rtcp.ReceiverStats.OnPacket внутренне —
// дублируется как свободная функция, потому что вызывающий код здесь
// (RTCPSession, SourceManager) ведет собственную карту RTCPStatistics, а не
// pkg/rtcp.ReceiverStats.
func CalculateJitter(transit int64, lastTransit int64, jitter float64) float64 {
	d := float64(transit - lastTransit)
	if d < 0 {
		d = -d
	}
	return jitter + (d-jitter)/16.0
}

// CalculateFractionLost вычисляет fraction lost согласно RFC 3550 Appendix A.3
func CalculateFractionLost(expected, received uint32) uint8 {
	if expected == 0 {
		return 0
	}
	lost := expected - received
	fraction := (lost * 256) / expected
	if fraction > 255 {
		return 255
	}
	return uint8(fraction)
}

// NTPTimestamp конвертирует время в NTP timestamp согласно RFC 3550
func NTPTimestamp(t time.Time) uint64 {
	// NTP epoch начинается 1 января 1900
	ntpEpoch := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	duration := t.Sub(ntpEpoch)

	seconds := uint64(duration.Seconds())
	fraction := uint64((duration.Nanoseconds() % 1e9) * (1 << 32) / 1e9)

	return (seconds << 32) | fraction
}

// NTPTimestampToTime конвертирует NTP timestamp в time.Time
func NTPTimestampToTime(ntp uint64) time.Time {
	ntpEpoch := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	seconds := int64(ntp >> 32)
	fraction := int64(ntp & 0xFFFFFFFF)
	nanoseconds := (fraction * 1e9) >> 32

	return ntpEpoch.Add(time.Duration(seconds)*time.Second + time.Duration(nanoseconds)*time.Nanosecond)
}

// RTCPIntervalCalculation вычисляет интервал отправки RTCP согласно RFC 3550 Appendix A.7
func RTCPIntervalCalculation(members int, senders int, rtcpBW float64, weSent bool, avgRTCPSize int, initial bool) time.Duration {
	const (
		minTime      = 5.0     // минимальный интервал (секунды)
		rtcpSize     = 200     // типичный размер RTCP пакета
		compensation = 2.71828 // e для компенсации
	)

	if rtcpBW <= 0 {
		rtcpBW = 5.0 // 5% по умолчанию
	}

	if avgRTCPSize == 0 {
		avgRTCPSize = rtcpSize
	}

	n := float64(members)
	if senders > 0 && senders < members/4 {
		if weSent {
			n = float64(senders)
		} else {
			n = float64(members - senders)
		}
	}

	t := float64(avgRTCPSize) * n / rtcpBW
	if t < minTime {
		t = minTime
	}

	if initial {
		t /= compensation
	}

	// Добавляем случайность [0.5, 1.5] * t
	randomFactor := 0.5 + (0.5 * 2.0) // Упрощенно без рандома для детерминизма
	t *= randomFactor

	return time.Duration(t * float64(time.Second))
}

// IsRTCPPacket проверяет, является ли пакет RTCP пакетом
func IsRTCPPacket(data []byte) bool {
	if len(data) < 4 {
		return false
	}

	version := (data[0] >> 6) & 0x03
	packetType := data[1]

	return version == 2 &&
		(packetType >= RTCPTypeSR && packetType <= RTCPTypeAPP)
}

// ParseRTCPPacket парсит RTCP пакет и возвращает соответствующий тип
func ParseRTCPPacket(data []byte) (RTCPPacket, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("пакет слишком короткий для RTCP")
	}

	packetType := data[1]

	switch packetType {
	case RTCPTypeSR:
		sr := &SenderReport{}
		err := sr.Unmarshal(data)
		return sr, err

	case RTCPTypeRR:
		rr := &ReceiverReport{}
		err := rr.Unmarshal(data)
		return rr, err

	case RTCPTypeSDES:
		sdes := &SourceDescriptionPacket{}
		err := sdes.Unmarshal(data)
		return sdes, err

	case RTCPTypeBYE:
		bye := &ByePacket{}
		err := bye.Unmarshal(data)
		return bye, err

	default:
		return nil, fmt.Errorf("неподдерживаемый тип RTCP пакета: %d", packetType)
	}
}
