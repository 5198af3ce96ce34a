// Package srtp реализует шифрование/аутентификацию RTP пакетов по профилю
// AES_CM_128_HMAC_SHA1_80 (RFC 3711): AES в режиме counter-mode для
// конфиденциальности и HMAC-SHA1 с усечением до 80 бит для целостности.
//
// Ключевой материал приходит из pkg/keyexchange (DTLS-SRTP, SDES или
// MIKEY) — этот пакет только применяет его к пакетам. Ни один пакет
// примеров не несет готовой реализации SRTP (pion/srtp не входит в
// зависимости разбираемого стека), поэтому примитивы шифрования взяты из
// стандартной библиотеки (crypto/aes, crypto/cipher, crypto/hmac,
// crypto/sha1) — решение задокументировано в ведомости обоснований.
package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

// AuthTagLen — длина усеченного HMAC-SHA1 тега (80 бит, RFC 3711 §4.2).
const AuthTagLen = 10

// Context шифрует/расшифровывает RTP поток для одного SSRC одним
// направлением (отдельный Context для отправки и приема, как того требует
// различие master key у каждой стороны DTLS-SRTP рукопожатия).
type Context struct {
	block   cipher.Block
	salt    []byte
	authKey []byte

	rollOverCounter uint32
	highestSeq      uint16
	seen            bool
}

// NewContext создает SRTP контекст с мастер-ключом key (16 байт, AES-128) и
// мастер-солью salt (14 байт). authKey выводится отдельно (в SRTP это тоже
// производится от master key через key derivation function, здесь ключ
// передается напрямую, чтобы pkg/keyexchange мог использовать единый KDF
// для всех профилей).
func NewContext(key, salt, authKey []byte) (*Context, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("srtp: ключ должен быть 16 байт (AES-128), получено %d", len(key))
	}
	if len(salt) != 14 {
		return nil, fmt.Errorf("srtp: соль должна быть 14 байт, получено %d", len(salt))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("srtp: инициализация AES: %w", err)
	}
	return &Context{block: block, salt: salt, authKey: authKey}, nil
}

// counterIV строит 16-байтный IV для AES-CM по SSRC, расширенному
// sequence number (ROC||SEQ) и соли (RFC 3711 §4.1.1).
func (c *Context) counterIV(ssrc uint32, roc uint32, seq uint16) []byte {
	// IV = (salt * 2^16) XOR (SSRC << 64) XOR ((ROC || SEQ) << 16), упрощенно
	// собирается побайтово поверх соли, дополненной двумя нулевыми байтами.
	iv := make([]byte, 16)
	copy(iv, c.salt)

	var ssrcBytes [4]byte
	binary.BigEndian.PutUint32(ssrcBytes[:], ssrc)
	for i := 0; i < 4; i++ {
		iv[4+i] ^= ssrcBytes[i]
	}

	var idxBytes [6]byte
	binary.BigEndian.PutUint32(idxBytes[0:4], roc)
	binary.BigEndian.PutUint16(idxBytes[4:6], seq)
	for i := 0; i < 6; i++ {
		iv[8+i] ^= idxBytes[i]
	}

	return iv
}

// updateRollover отслеживает переход sequence number через 0 для вычисления
// rollover counter (RFC 3711 §3.3.1) при строго возрастающем потоке пакетов.
func (c *Context) updateRollover(seq uint16) uint32 {
	if !c.seen {
		c.seen = true
		c.highestSeq = seq
		return c.rollOverCounter
	}
	if seq < c.highestSeq && c.highestSeq-seq > 0x8000 {
		c.rollOverCounter++
	}
	if seq > c.highestSeq {
		c.highestSeq = seq
	}
	return c.rollOverCounter
}

// Protect шифрует RTP payload и добавляет аутентификационный тег к полному
// пакету (заголовок остается в открытом виде — RFC 3711 §3.1).
// packet — полный RTP пакет (заголовок + payload), ssrc/seq извлекаются
// вызывающей стороной из уже распарсенного заголовка.
func (c *Context) Protect(packet []byte, ssrc uint32, seq uint16, headerLen int) ([]byte, error) {
	if headerLen > len(packet) {
		return nil, fmt.Errorf("srtp: headerLen больше размера пакета")
	}
	roc := c.updateRollover(seq)

	out := make([]byte, len(packet)+AuthTagLen)
	copy(out, packet[:headerLen])

	iv := c.counterIV(ssrc, roc, seq)
	stream := cipher.NewCTR(c.block, iv)
	stream.XORKeyStream(out[headerLen:len(packet)], packet[headerLen:])

	if c.authKey != nil {
		tag := c.authTag(out[:len(packet)], roc)
		copy(out[len(packet):], tag)
	}
	return out, nil
}

// Unprotect проверяет аутентификационный тег и расшифровывает payload.
func (c *Context) Unprotect(packet []byte, ssrc uint32, seq uint16, headerLen int) ([]byte, error) {
	if len(packet) < headerLen+AuthTagLen {
		return nil, fmt.Errorf("srtp: пакет короче заголовка и тега")
	}
	roc := c.updateRollover(seq)

	cipherLen := len(packet) - AuthTagLen
	if c.authKey != nil {
		expected := c.authTag(packet[:cipherLen], roc)
		if !hmac.Equal(expected, packet[cipherLen:]) {
			return nil, fmt.Errorf("srtp: неверный аутентификационный тег")
		}
	}

	out := make([]byte, cipherLen)
	copy(out, packet[:headerLen])

	iv := c.counterIV(ssrc, roc, seq)
	stream := cipher.NewCTR(c.block, iv)
	stream.XORKeyStream(out[headerLen:], packet[headerLen:cipherLen])

	return out, nil
}

// authTag вычисляет усеченный HMAC-SHA1(authKey, data || ROC) тег (RFC
// 3711 §4.2 — ROC включается в аутентифицируемые данные, хотя и не
// передается в пакете явно).
func (c *Context) authTag(data []byte, roc uint32) []byte {
	h := hmac.New(sha1.New, c.authKey)
	h.Write(data)
	var rocBytes [4]byte
	binary.BigEndian.PutUint32(rocBytes[:], roc)
	h.Write(rocBytes[:])
	full := h.Sum(nil)
	return full[:AuthTagLen]
}
