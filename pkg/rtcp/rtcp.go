// Package rtcp реализует кодирование/декодирование RTCP пакетов (RFC 3550
// §6): Sender Report, Receiver Report, Source Description и Goodbye, плюс
// накопление статистики приема для построения Receiver Report.
//
// Grounded на _examples/arzzra-soft_phone/pkg/rtp/rtcp.go и
// pkg/rtp/rtcp_session.go — та же структура заголовков и та же ручная
// побитовая упаковка (V/P/RC в первом байте, 24-битный cumulative lost),
// вынесенная в отдельный пакет, как того требует карта модулей, вместо
// проживания внутри pkg/rtp.
package rtcp

import (
	"encoding/binary"
	"fmt"
)

// Типы пакетов RTCP (RFC 3550 §6.1).
const (
	TypeSR   uint8 = 200
	TypeRR   uint8 = 201
	TypeSDES uint8 = 202
	TypeBYE  uint8 = 203
	TypeAPP  uint8 = 204
)

// Типы SDES-элементов (RFC 3550 §6.5).
const (
	SDESCNAME uint8 = 1
	SDESName  uint8 = 2
	SDESEmail uint8 = 3
	SDESPhone uint8 = 4
	SDESLoc   uint8 = 5
	SDESTool  uint8 = 6
	SDESNote  uint8 = 7
	SDESPriv  uint8 = 8
)

// Header — общий заголовок RTCP пакета.
type Header struct {
	Version    uint8
	Padding    bool
	Count      uint8
	PacketType uint8
	Length     uint16
}

// ReceptionReport — один блок приема внутри SR/RR (RFC 3550 §6.4.1).
type ReceptionReport struct {
	SSRC             uint32
	FractionLost     uint8
	CumulativeLost   uint32 // хранится как 24-битное значение
	HighestSeqNum    uint32
	Jitter           uint32
	LastSR           uint32
	DelaySinceLastSR uint32
}

func marshalReceptionReport(data []byte, rr ReceptionReport) {
	binary.BigEndian.PutUint32(data[0:4], rr.SSRC)
	data[4] = rr.FractionLost
	var lost [4]byte
	binary.BigEndian.PutUint32(lost[:], rr.CumulativeLost)
	copy(data[5:8], lost[1:4])
	binary.BigEndian.PutUint32(data[8:12], rr.HighestSeqNum)
	binary.BigEndian.PutUint32(data[12:16], rr.Jitter)
	binary.BigEndian.PutUint32(data[16:20], rr.LastSR)
	binary.BigEndian.PutUint32(data[20:24], rr.DelaySinceLastSR)
}

func unmarshalReceptionReport(data []byte) ReceptionReport {
	var lost [4]byte
	copy(lost[1:4], data[5:8])
	return ReceptionReport{
		SSRC:             binary.BigEndian.Uint32(data[0:4]),
		FractionLost:     data[4],
		CumulativeLost:   binary.BigEndian.Uint32(lost[:]) & 0x00FFFFFF,
		HighestSeqNum:    binary.BigEndian.Uint32(data[8:12]),
		Jitter:           binary.BigEndian.Uint32(data[12:16]),
		LastSR:           binary.BigEndian.Uint32(data[16:20]),
		DelaySinceLastSR: binary.BigEndian.Uint32(data[20:24]),
	}
}

// SenderReport — RFC 3550 §6.4.1.
type SenderReport struct {
	SSRC             uint32
	NTPTimestamp     uint64
	RTPTimestamp     uint32
	PacketCount      uint32
	OctetCount       uint32
	ReceptionReports []ReceptionReport
}

// Marshal кодирует SR в сетевой порядок байт.
func (sr *SenderReport) Marshal() ([]byte, error) {
	length := 28 + len(sr.ReceptionReports)*24
	data := make([]byte, length)

	data[0] = (2 << 6) | (uint8(len(sr.ReceptionReports)) & 0x1F)
	data[1] = TypeSR
	binary.BigEndian.PutUint16(data[2:4], uint16(length/4-1))
	binary.BigEndian.PutUint32(data[4:8], sr.SSRC)
	binary.BigEndian.PutUint64(data[8:16], sr.NTPTimestamp)
	binary.BigEndian.PutUint32(data[16:20], sr.RTPTimestamp)
	binary.BigEndian.PutUint32(data[20:24], sr.PacketCount)
	binary.BigEndian.PutUint32(data[24:28], sr.OctetCount)

	offset := 28
	for _, rr := range sr.ReceptionReports {
		marshalReceptionReport(data[offset:offset+24], rr)
		offset += 24
	}
	return data, nil
}

// UnmarshalSenderReport декодирует байты в SenderReport.
func UnmarshalSenderReport(data []byte) (*SenderReport, error) {
	if len(data) < 28 {
		return nil, fmt.Errorf("rtcp: SR слишком короткий: %d байт", len(data))
	}
	if version := data[0] >> 6; version != 2 {
		return nil, fmt.Errorf("rtcp: неподдерживаемая версия: %d", version)
	}
	if data[1] != TypeSR {
		return nil, fmt.Errorf("rtcp: неверный тип пакета для SR: %d", data[1])
	}
	count := data[0] & 0x1F

	sr := &SenderReport{
		SSRC:         binary.BigEndian.Uint32(data[4:8]),
		NTPTimestamp: binary.BigEndian.Uint64(data[8:16]),
		RTPTimestamp: binary.BigEndian.Uint32(data[16:20]),
		PacketCount:  binary.BigEndian.Uint32(data[20:24]),
		OctetCount:   binary.BigEndian.Uint32(data[24:28]),
	}

	offset := 28
	for i := 0; i < int(count); i++ {
		if offset+24 > len(data) {
			return nil, fmt.Errorf("rtcp: недостаточно данных для RR блока %d", i)
		}
		sr.ReceptionReports = append(sr.ReceptionReports, unmarshalReceptionReport(data[offset:offset+24]))
		offset += 24
	}
	return sr, nil
}

// ReceiverReport — RFC 3550 §6.4.2.
type ReceiverReport struct {
	SSRC             uint32
	ReceptionReports []ReceptionReport
}

// Marshal кодирует RR в сетевой порядок байт.
func (rr *ReceiverReport) Marshal() ([]byte, error) {
	length := 8 + len(rr.ReceptionReports)*24
	data := make([]byte, length)

	data[0] = (2 << 6) | (uint8(len(rr.ReceptionReports)) & 0x1F)
	data[1] = TypeRR
	binary.BigEndian.PutUint16(data[2:4], uint16(length/4-1))
	binary.BigEndian.PutUint32(data[4:8], rr.SSRC)

	offset := 8
	for _, report := range rr.ReceptionReports {
		marshalReceptionReport(data[offset:offset+24], report)
		offset += 24
	}
	return data, nil
}

// UnmarshalReceiverReport декодирует байты в ReceiverReport.
func UnmarshalReceiverReport(data []byte) (*ReceiverReport, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("rtcp: RR слишком короткий: %d байт", len(data))
	}
	if version := data[0] >> 6; version != 2 {
		return nil, fmt.Errorf("rtcp: неподдерживаемая версия: %d", version)
	}
	if data[1] != TypeRR {
		return nil, fmt.Errorf("rtcp: неверный тип пакета для RR: %d", data[1])
	}
	count := data[0] & 0x1F

	rr := &ReceiverReport{SSRC: binary.BigEndian.Uint32(data[4:8])}
	offset := 8
	for i := 0; i < int(count); i++ {
		if offset+24 > len(data) {
			return nil, fmt.Errorf("rtcp: недостаточно данных для RR блока %d", i)
		}
		rr.ReceptionReports = append(rr.ReceptionReports, unmarshalReceptionReport(data[offset:offset+24]))
		offset += 24
	}
	return rr, nil
}

// SourceDescription — RFC 3550 §6.5, один SDES chunk с CNAME.
type SourceDescription struct {
	SSRC  uint32
	CNAME string
}

// Marshal кодирует SDES пакет с единственным chunk (достаточно для
// однопоточного RTP сеанса govoip).
func (sd *SourceDescription) Marshal() ([]byte, error) {
	cnameLen := len(sd.CNAME)
	itemLen := 2 + cnameLen // type + length + text
	chunkLen := 4 + itemLen + 1 // SSRC + item + END(0)
	padded := (chunkLen + 3) / 4 * 4

	data := make([]byte, 4+padded)
	data[0] = (2 << 6) | 1 // SC=1
	data[1] = TypeSDES
	binary.BigEndian.PutUint16(data[2:4], uint16(len(data)/4-1))
	binary.BigEndian.PutUint32(data[4:8], sd.SSRC)
	data[8] = SDESCNAME
	data[9] = uint8(cnameLen)
	copy(data[10:10+cnameLen], sd.CNAME)
	return data, nil
}

// UnmarshalSourceDescription декодирует первый chunk/CNAME item.
func UnmarshalSourceDescription(data []byte) (*SourceDescription, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("rtcp: SDES слишком короткий: %d байт", len(data))
	}
	if data[1] != TypeSDES {
		return nil, fmt.Errorf("rtcp: неверный тип пакета для SDES: %d", data[1])
	}
	sd := &SourceDescription{SSRC: binary.BigEndian.Uint32(data[4:8])}
	if data[8] == SDESCNAME {
		l := int(data[9])
		if 10+l > len(data) {
			return nil, fmt.Errorf("rtcp: SDES CNAME выходит за границы пакета")
		}
		sd.CNAME = string(data[10 : 10+l])
	}
	return sd, nil
}

// Bye — RFC 3550 §6.6.
type Bye struct {
	Sources []uint32
	Reason  string
}

// Marshal кодирует BYE пакет.
func (b *Bye) Marshal() ([]byte, error) {
	length := 4 + len(b.Sources)*4
	reasonLen := 0
	if b.Reason != "" {
		reasonLen = 1 + len(b.Reason)
		length += (reasonLen + 3) / 4 * 4
	}
	data := make([]byte, length)
	data[0] = (2 << 6) | (uint8(len(b.Sources)) & 0x1F)
	data[1] = TypeBYE
	binary.BigEndian.PutUint16(data[2:4], uint16(length/4-1))
	offset := 4
	for _, ssrc := range b.Sources {
		binary.BigEndian.PutUint32(data[offset:offset+4], ssrc)
		offset += 4
	}
	if reasonLen > 0 {
		data[offset] = uint8(len(b.Reason))
		copy(data[offset+1:], b.Reason)
	}
	return data, nil
}

// UnmarshalBye декодирует BYE пакет.
func UnmarshalBye(data []byte) (*Bye, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("rtcp: BYE слишком короткий: %d байт", len(data))
	}
	if data[1] != TypeBYE {
		return nil, fmt.Errorf("rtcp: неверный тип пакета для BYE: %d", data[1])
	}
	count := int(data[0] & 0x1F)
	b := &Bye{}
	offset := 4
	for i := 0; i < count; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("rtcp: недостаточно данных для SSRC %d", i)
		}
		b.Sources = append(b.Sources, binary.BigEndian.Uint32(data[offset:offset+4]))
		offset += 4
	}
	if offset < len(data) {
		l := int(data[offset])
		if offset+1+l <= len(data) {
			b.Reason = string(data[offset+1 : offset+1+l])
		}
	}
	return b, nil
}

// PacketType определяет тип RTCP пакета по первым двум байтам data без
// полного разбора — используется для диспетчеризации входящих пакетов.
func PacketType(data []byte) (uint8, error) {
	if len(data) < 2 {
		return 0, fmt.Errorf("rtcp: пакет слишком короткий для заголовка")
	}
	return data[1], nil
}
