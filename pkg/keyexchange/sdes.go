package keyexchange

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// SDESKey — один offer/answer для a=crypto (RFC 4568 §9.1).
type SDESKey struct {
	Tag       int
	Suite     string // напр. "AES_CM_128_HMAC_SHA1_80"
	KeySalt   []byte // key||salt, как в бинарном base64 поле
}

// GenerateSDESKey создает новый крипто-материал для указанного набора suite.
// Длины key/salt соответствуют ProfileAES128CM80 по умолчанию для
// "AES_CM_128_HMAC_SHA1_80".
func GenerateSDESKey(tag int, suite string) (*SDESKey, error) {
	profile := ProfileAES128CM80
	buf := make([]byte, profile.KeyLen+profile.SaltLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("keyexchange: генерация SDES ключа: %w", err)
	}
	return &SDESKey{Tag: tag, Suite: suite, KeySalt: buf}, nil
}

// Encode строит значение a=crypto строки (без префикса "crypto:"):
// "<tag> <suite> inline:<base64(key||salt)>".
func (k *SDESKey) Encode() string {
	return fmt.Sprintf("%d %s inline:%s", k.Tag, k.Suite, base64.StdEncoding.EncodeToString(k.KeySalt))
}

// ParseSDESKey разбирает значение a=crypto строки в SDESKey.
func ParseSDESKey(value string) (*SDESKey, error) {
	fields := strings.Fields(value)
	if len(fields) < 3 {
		return nil, fmt.Errorf("keyexchange: некорректная a=crypto строка: %q", value)
	}

	tag, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("keyexchange: некорректный tag в a=crypto: %w", err)
	}

	keyParam := fields[2]
	const prefix = "inline:"
	if !strings.HasPrefix(keyParam, prefix) {
		return nil, fmt.Errorf("keyexchange: ожидался inline: key-method, получено %q", keyParam)
	}
	encoded := strings.SplitN(strings.TrimPrefix(keyParam, prefix), "|", 2)[0]
	keySalt, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keyexchange: декодирование key-salt: %w", err)
	}

	return &SDESKey{Tag: tag, Suite: fields[1], KeySalt: keySalt}, nil
}

// Key возвращает master key (первые KeyLen байт KeySalt) для профиля profile.
func (k *SDESKey) Key(profile SRTPProfile) []byte {
	if len(k.KeySalt) < profile.KeyLen {
		return nil
	}
	return k.KeySalt[:profile.KeyLen]
}

// Salt возвращает master salt (оставшиеся байты KeySalt после Key) для
// профиля profile.
func (k *SDESKey) Salt(profile SRTPProfile) []byte {
	if len(k.KeySalt) < profile.KeyLen+profile.SaltLen {
		return nil
	}
	return k.KeySalt[profile.KeyLen : profile.KeyLen+profile.SaltLen]
}
