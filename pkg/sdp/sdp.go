// Package sdp строит и разбирает SDP offer/answer (RFC 4566) для одной
// аудио m-line, опционально неся SDES crypto-атрибут для SRTP (RFC 4568).
//
// Грounded на builder из _examples/arzzra-soft_phone/pkg/media_with_sdp —
// тот же github.com/pion/sdp/v3 API (NewJSEPSessionDescription, WithMedia,
// WithCodec, With{Property,Value}Attribute), обобщенный под произвольный
// список кодеков вместо фиксированного PCMU/PCMA/G722 и дополненный
// crypto-атрибутом для pkg/keyexchange.
package sdp

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pion/sdp/v3"
)

// Codec описывает один поддерживаемый аудио кодек для m=audio строки.
type Codec struct {
	PayloadType uint8
	Name        string
	ClockRate   uint32
	Channels    uint16
	FormatParam string
}

// DefaultCodecs перечисляет кодеки, которые умеет кодировать/декодировать
// pkg/codec: G.711 μ-law/A-law, G.722, G.729.
var DefaultCodecs = []Codec{
	{PayloadType: 0, Name: "PCMU", ClockRate: 8000, Channels: 1},
	{PayloadType: 8, Name: "PCMA", ClockRate: 8000, Channels: 1},
	{PayloadType: 9, Name: "G722", ClockRate: 8000, Channels: 1},
	{PayloadType: 18, Name: "G729", ClockRate: 8000, Channels: 1, FormatParam: "annexb=no"},
}

// Params описывает параметры одной аудио сессии для построения SDP.
type Params struct {
	LocalIP      string
	SessionName  string
	RTPPort      int
	RTCPPort     int // 0 означает RTPPort+1 (rtcp-mux не используется)
	Codecs       []Codec
	Direction    string // sendrecv/sendonly/recvonly/inactive, пусто = sendrecv
	CryptoSuites []string // значения a=crypto (SDES), пусто = без SRTP
}

// Builder инкрементирует версию сессии между offer/answer одной диалоговой
// сессии (o= line, RFC 4566 §5.2).
type Builder struct {
	sessionID uint64
	version   uint64
}

// NewBuilder создает builder с session-id на основе текущего времени.
func NewBuilder() *Builder {
	now := uint64(time.Now().Unix())
	return &Builder{sessionID: now, version: now}
}

// Build строит SessionDescription по параметрам p.
func (b *Builder) Build(p Params) (*sdp.SessionDescription, error) {
	if p.LocalIP == "" {
		return nil, fmt.Errorf("sdp: LocalIP обязателен")
	}
	if p.RTPPort <= 0 {
		return nil, fmt.Errorf("sdp: RTPPort должен быть положительным")
	}
	if len(p.Codecs) == 0 {
		p.Codecs = DefaultCodecs
	}
	if p.Direction == "" {
		p.Direction = "sendrecv"
	}

	b.version++

	desc, err := sdp.NewJSEPSessionDescription(false)
	if err != nil {
		return nil, fmt.Errorf("sdp: базовое описание: %w", err)
	}

	desc.Origin = sdp.Origin{
		Username:       "-",
		SessionID:      b.sessionID,
		SessionVersion: b.version,
		NetworkType:    "IN",
		AddressType:    "IP4",
		UnicastAddress: p.LocalIP,
	}
	name := p.SessionName
	if name == "" {
		name = "govoip"
	}
	desc.SessionName = sdp.SessionName(name)
	desc.ConnectionInformation = &sdp.ConnectionInformation{
		NetworkType: "IN",
		AddressType: "IP4",
		Address:     &sdp.Address{Address: p.LocalIP},
	}
	desc.TimeDescriptions = []sdp.TimeDescription{{Timing: sdp.Timing{StartTime: 0, StopTime: 0}}}

	formats := make([]string, 0, len(p.Codecs))
	for _, c := range p.Codecs {
		formats = append(formats, strconv.Itoa(int(c.PayloadType)))
	}

	audio := sdp.NewJSEPMediaDescription("audio", nil)
	audio.MediaName = sdp.MediaName{
		Media:   "audio",
		Port:    sdp.RangedPort{Value: p.RTPPort},
		Protos:  protosFor(p.CryptoSuites),
		Formats: formats,
	}
	audio.ConnectionInformation = &sdp.ConnectionInformation{
		NetworkType: "IN",
		AddressType: "IP4",
		Address:     &sdp.Address{Address: p.LocalIP},
	}

	for _, c := range p.Codecs {
		audio = audio.WithCodec(c.PayloadType, c.Name, c.ClockRate, int(c.Channels), c.FormatParam)
	}
	audio = audio.WithPropertyAttribute(p.Direction)

	rtcpPort := p.RTCPPort
	if rtcpPort == 0 {
		rtcpPort = p.RTPPort + 1
	}
	if rtcpPort != p.RTPPort+1 {
		audio = audio.WithValueAttribute("rtcp", strconv.Itoa(rtcpPort))
	}

	for _, crypto := range p.CryptoSuites {
		audio = audio.WithValueAttribute("crypto", crypto)
	}

	desc = desc.WithMedia(audio)
	return desc, nil
}

// protosFor возвращает RTP/SAVP при наличии SDES-crypto атрибутов (RFC
// 3711/4568) и обычный RTP/AVP иначе.
func protosFor(cryptoSuites []string) []string {
	if len(cryptoSuites) > 0 {
		return []string{"RTP", "SAVP"}
	}
	return []string{"RTP", "AVP"}
}

// AudioMedia описывает разобранные из SDP параметры одной аудио m-line.
type AudioMedia struct {
	IP           string
	RTPPort      int
	RTCPPort     int
	Codecs       []Codec
	Direction    string
	CryptoSuites []string
}

// ParseAudio ищет первую аудио m-line в desc и извлекает ее параметры.
func ParseAudio(desc *sdp.SessionDescription) (*AudioMedia, error) {
	if desc == nil {
		return nil, fmt.Errorf("sdp: описание не может быть nil")
	}

	for _, media := range desc.MediaDescriptions {
		if media.MediaName.Media != "audio" {
			continue
		}

		am := &AudioMedia{
			RTPPort:   media.MediaName.Port.Value,
			Direction: "sendrecv",
		}
		if media.ConnectionInformation != nil && media.ConnectionInformation.Address != nil {
			am.IP = media.ConnectionInformation.Address.Address
		}

		for _, attr := range media.Attributes {
			switch attr.Key {
			case "sendrecv", "sendonly", "recvonly", "inactive":
				am.Direction = attr.Key
			case "rtcp":
				if port, err := strconv.Atoi(attr.Value); err == nil {
					am.RTCPPort = port
				}
			case "crypto":
				am.CryptoSuites = append(am.CryptoSuites, attr.Value)
			}
		}
		if am.RTCPPort == 0 {
			am.RTCPPort = am.RTPPort + 1
		}

		for _, format := range media.MediaName.Formats {
			pt, err := strconv.ParseUint(format, 10, 8)
			if err != nil {
				continue
			}
			am.Codecs = append(am.Codecs, codecForPayloadType(uint8(pt)))
		}

		return am, nil
	}

	return nil, fmt.Errorf("sdp: аудио медиа не найдено")
}

func codecForPayloadType(pt uint8) Codec {
	for _, c := range DefaultCodecs {
		if c.PayloadType == pt {
			return c
		}
	}
	return Codec{PayloadType: pt, Name: "unknown"}
}

// Validate проверяет обязательные поля SDP (RFC 4566 §5): версию, origin,
// имя сессии, временные описания и наличие хотя бы одного медиа.
func Validate(desc *sdp.SessionDescription) error {
	if desc == nil {
		return fmt.Errorf("sdp: описание не может быть nil")
	}
	if desc.Version != 0 {
		return fmt.Errorf("sdp: неподдерживаемая версия: %d", desc.Version)
	}
	if desc.Origin.Username == "" {
		return fmt.Errorf("sdp: отсутствует username в origin")
	}
	if desc.SessionName == "" {
		return fmt.Errorf("sdp: отсутствует имя сессии")
	}
	if len(desc.TimeDescriptions) == 0 {
		return fmt.Errorf("sdp: отсутствуют временные описания")
	}
	if len(desc.MediaDescriptions) == 0 {
		return fmt.Errorf("sdp: отсутствуют медиа описания")
	}
	return nil
}
