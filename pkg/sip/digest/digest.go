// Package digest реализует UAC-сторону SIP Digest Access Authentication
// (RFC 3261 §22, RFC 2617/7616): разбор WWW-Authenticate/Proxy-Authenticate
// из 401/407 ответов и построение Authorization/Proxy-Authorization для
// повторной отправки запроса.
//
// Разбор challenge и вычисление digest-response переиспользуют
// github.com/icholy/digest — тот же формат заголовка, что в HTTP Digest
// Auth (RFC 7616), на котором и построен SIP Digest Auth.
package digest

import (
	"fmt"

	"github.com/icholy/digest"

	"github.com/arzzra/govoip/pkg/sip/types"
)

// Credentials — учетные данные, которыми UAC отвечает на challenge.
type Credentials struct {
	Username string
	Password string
}

// nonceCounter отслеживает nc (RFC 2617 §3.2.2) для одного realm/nonce —
// каждый повторный запрос с тем же nonce обязан увеличивать счетчик.
type nonceCounter struct {
	counts map[string]int
}

// Authenticator хранит учетные данные и состояние nonce-счетчика для одного
// диалога/регистрации, переживающее несколько запросов подряд (re-REGISTER,
// повторные INVITE в рамках одного диалога используют общий nc).
type Authenticator struct {
	creds   Credentials
	nc      nonceCounter
}

// NewAuthenticator создает аутентификатор с указанными учетными данными.
func NewAuthenticator(username, password string) *Authenticator {
	return &Authenticator{
		creds: Credentials{Username: username, Password: password},
		nc:    nonceCounter{counts: make(map[string]int)},
	}
}

// Authorize разбирает заголовок challenge (значение WWW-Authenticate или
// Proxy-Authenticate без имени заголовка) и строит значение для
// Authorization/Proxy-Authorization, которое нужно отправить методом method
// на request-URI uri.
func (a *Authenticator) Authorize(method, uri, challengeHeader string) (string, error) {
	ch, err := digest.ParseChallenge(challengeHeader)
	if err != nil {
		return "", fmt.Errorf("digest: invalid challenge: %w", err)
	}

	a.nc.counts[ch.Nonce]++
	count := a.nc.counts[ch.Nonce]

	cred, err := ch.Answer(a.creds.Username, a.creds.Password, digest.Options{
		Method: method,
		URI:    uri,
		Count:  count,
	})
	if err != nil {
		return "", fmt.Errorf("digest: failed to answer challenge: %w", err)
	}

	return cred.String(), nil
}

// ApplyChallenge ищет в ответе resp WWW-Authenticate/Proxy-Authenticate и,
// если найден, устанавливает на request req соответствующий
// Authorization/Proxy-Authorization для повторной отправки method/uri.
// Возвращает false, если ответ не содержит challenge (не 401/407 или
// заголовок отсутствует) — в этом случае req не модифицируется.
func (a *Authenticator) ApplyChallenge(resp types.Message, req types.Message, method, uri string) (bool, error) {
	switch resp.StatusCode() {
	case 401:
		if ch := resp.GetHeader(types.HeaderWWWAuthenticate); ch != "" {
			value, err := a.Authorize(method, uri, ch)
			if err != nil {
				return false, err
			}
			req.SetHeader(types.HeaderAuthorization, value)
			return true, nil
		}
	case 407:
		if ch := resp.GetHeader(types.HeaderProxyAuthenticate); ch != "" {
			value, err := a.Authorize(method, uri, ch)
			if err != nil {
				return false, err
			}
			req.SetHeader(types.HeaderProxyAuthorization, value)
			return true, nil
		}
	}
	return false, nil
}
