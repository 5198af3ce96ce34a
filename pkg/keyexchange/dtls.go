// Package keyexchange выводит ключевой материал SRTP тремя способами:
// DTLS-SRTP (RFC 5764), SDES (RFC 4568, ключи прямо в SDP) и MIKEY
// (RFC 3830, упрощенные PSK и PKE профили).
//
// Grounded на _examples/arzzra-soft_phone/pkg/rtp/transport_dtls.go —
// ExportKeyingMaterial там уже прокинут до ConnectionState.ExportKeyingMaterial
// из github.com/pion/dtls/v2, здесь этот вызов оборачивается в разбор
// результата на master key/salt пары согласно RFC 5764 §4.2.
package keyexchange

import (
	"fmt"

	"github.com/pion/dtls/v2"
)

// SRTPProfile описывает один из SRTP profile, согласуемых use_srtp
// extension в DTLS handshake (RFC 5764 §4.1.2).
type SRTPProfile struct {
	Name     string
	KeyLen   int // байт
	SaltLen  int // байт
}

var (
	// ProfileAES128CM80 — SRTP_AES128_CM_HMAC_SHA1_80, профиль по умолчанию.
	ProfileAES128CM80 = SRTPProfile{Name: "SRTP_AES128_CM_HMAC_SHA1_80", KeyLen: 16, SaltLen: 14}
)

// KeyingMaterialExporter абстрагирует dtls.Conn.ConnectionState().ExportKeyingMaterial
// (см. transport_dtls.go), позволяя подменять источник в тестах.
type KeyingMaterialExporter interface {
	ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error)
}

// dtlsConnExporter адаптирует *dtls.Conn к KeyingMaterialExporter, вызывая
// ConnectionState() заново при каждом экспорте — рукопожатие должно быть
// завершено к моменту вызова, как в transport_dtls.go.
type dtlsConnExporter struct {
	conn *dtls.Conn
}

// NewDTLSExporter оборачивает установленное DTLS соединение conn в
// KeyingMaterialExporter, пригодный для DeriveDTLSSRTPKeys.
func NewDTLSExporter(conn *dtls.Conn) KeyingMaterialExporter {
	return &dtlsConnExporter{conn: conn}
}

func (e *dtlsConnExporter) ExportKeyingMaterial(label string, context []byte, length int) ([]byte, error) {
	state := e.conn.ConnectionState()
	return state.ExportKeyingMaterial(label, context, length)
}

// SRTPKeys — материал, готовый для инициализации SRTP контекста на обеих
// сторонах DTLS-SRTP рукопожатия.
type SRTPKeys struct {
	ClientKey  []byte
	ClientSalt []byte
	ServerKey  []byte
	ServerSalt []byte
}

// dtlsSRTPLabel — "EXTRACTOR-dtls_srtp" (RFC 5764 §4.2).
const dtlsSRTPLabel = "EXTRACTOR-dtls_srtp"

// DeriveDTLSSRTPKeys экспортирует ключевой материал из завершенного DTLS
// соединения и раскладывает его на клиентский/серверный ключ и соль по
// профилю profile, как описано в RFC 5764 §4.2 (порядок: client_write_key,
// server_write_key, client_write_salt, server_write_salt).
func DeriveDTLSSRTPKeys(exporter KeyingMaterialExporter, profile SRTPProfile) (*SRTPKeys, error) {
	total := 2*profile.KeyLen + 2*profile.SaltLen
	material, err := exporter.ExportKeyingMaterial(dtlsSRTPLabel, nil, total)
	if err != nil {
		return nil, fmt.Errorf("keyexchange: экспорт ключевого материала: %w", err)
	}
	if len(material) != total {
		return nil, fmt.Errorf("keyexchange: неверная длина ключевого материала: %d, ожидалось %d", len(material), total)
	}

	offset := 0
	clientKey := material[offset : offset+profile.KeyLen]
	offset += profile.KeyLen
	serverKey := material[offset : offset+profile.KeyLen]
	offset += profile.KeyLen
	clientSalt := material[offset : offset+profile.SaltLen]
	offset += profile.SaltLen
	serverSalt := material[offset : offset+profile.SaltLen]

	return &SRTPKeys{
		ClientKey:  clientKey,
		ClientSalt: clientSalt,
		ServerKey:  serverKey,
		ServerSalt: serverSalt,
	}, nil
}
