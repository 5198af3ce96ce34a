// MIKEY (RFC 3830) key transport. Both profiles below are deliberately
// reduced relative to the RFC: no full ASN.1/CMS envelope, no certificate
// chain validation, no timestamp/replay-cache payloads — only the key
// derivation core, which is what govoip actually needs to seed an SRTP
// context. Grounded in spirit on transport_dtls.go's
// ExportKeyingMaterial-style "derive bytes, split into key/salt" shape;
// the derivation primitives themselves come from golang.org/x/crypto,
// since the example pack carries no MIKEY implementation to crib from.
package keyexchange

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// DeriveMIKEYPSKKeys реализует упрощенный MIKEY-PSK key transport
// (RFC 3830 §5.2): инициатор генерирует случайный RAND, а TGK (TEK
// Generation Key) выводится из общего psk и RAND через HKDF-SHA256 —
// вместо полного MIKEY envelope с HDR/T/RAND/IDi/IDr/SP/KEMAC payload'ами.
// Возвращает TGK длиной length байт, из которого вызывающая сторона
// выводит SRTP master key/salt так же, как из DTLS-SRTP экспортера.
func DeriveMIKEYPSKKeys(psk []byte, length int) (rnd []byte, tgk []byte, err error) {
	if len(psk) == 0 {
		return nil, nil, fmt.Errorf("keyexchange: MIKEY-PSK требует непустой psk")
	}

	rnd = make([]byte, 16)
	if _, err := rand.Read(rnd); err != nil {
		return nil, nil, fmt.Errorf("keyexchange: генерация RAND: %w", err)
	}

	kdf := hkdf.New(sha256.New, psk, rnd, []byte("govoip-mikey-psk-tgk"))
	tgk = make([]byte, length)
	if _, err := io.ReadFull(kdf, tgk); err != nil {
		return nil, nil, fmt.Errorf("keyexchange: вывод TGK: %w", err)
	}
	return rnd, tgk, nil
}

// MIKEYPSKKeys выводит финальные SRTP key/salt пары из TGK по профилю
// profile (RFC 3830 §4.1.4 определяет этот шаг как PRF-based key
// derivation; здесь используется HKDF вместо стандартного MIKEY PRF).
func MIKEYPSKKeys(tgk []byte, csID []byte, profile SRTPProfile) (*SRTPKeys, error) {
	total := 2*profile.KeyLen + 2*profile.SaltLen
	kdf := hkdf.New(sha256.New, tgk, csID, []byte("govoip-mikey-psk-srtp"))
	material := make([]byte, total)
	if _, err := io.ReadFull(kdf, material); err != nil {
		return nil, fmt.Errorf("keyexchange: вывод SRTP ключей из TGK: %w", err)
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
		ClientKey: clientKey, ClientSalt: clientSalt,
		ServerKey: serverKey, ServerSalt: serverSalt,
	}, nil
}

// MIKEYPKEKeyPair — один участник упрощенного MIKEY-PKE обмена. RFC 3830
// §5.3 шифрует TGK RSA-публичным ключом получателя внутри envelope'а;
// здесь вместо RSA envelope используется X25519 (ECDH) + HKDF — тот же
// результат (общий секрет, из которого выводится TGK), но без
// сертификатной цепочки и ASN.1 кодирования, которые не несут смысловой
// нагрузки для govoip без полноценного PKI.
type MIKEYPKEKeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateMIKEYPKEKeyPair генерирует X25519 пару для одной стороны обмена.
func GenerateMIKEYPKEKeyPair() (*MIKEYPKEKeyPair, error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("keyexchange: генерация приватного ключа: %w", err)
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("keyexchange: вычисление публичного ключа: %w", err)
	}
	var pubArr [32]byte
	copy(pubArr[:], pub)
	return &MIKEYPKEKeyPair{Private: priv, Public: pubArr}, nil
}

// DeriveMIKEYPKETGK вычисляет общий TGK между локальной парой local и
// публичным ключом удаленной стороны remotePublic.
func DeriveMIKEYPKETGK(local *MIKEYPKEKeyPair, remotePublic [32]byte, length int) ([]byte, error) {
	shared, err := curve25519.X25519(local.Private[:], remotePublic[:])
	if err != nil {
		return nil, fmt.Errorf("keyexchange: вычисление общего секрета: %w", err)
	}

	kdf := hkdf.New(sha256.New, shared, nil, []byte("govoip-mikey-pke-tgk"))
	tgk := make([]byte, length)
	if _, err := io.ReadFull(kdf, tgk); err != nil {
		return nil, fmt.Errorf("keyexchange: вывод TGK: %w", err)
	}
	return tgk, nil
}

// verifyMAC проверяет целостность сообщения MIKEY (упрощенный аналог MAC
// payload из RFC 3830 §6.1) через HMAC-SHA256.
func verifyMAC(key, message, mac []byte) bool {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	expected := h.Sum(nil)
	return hmac.Equal(expected, mac)
}
