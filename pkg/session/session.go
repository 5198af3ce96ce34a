// Package session координирует один вызов: SIP диалог (pkg/dialog), SDP
// offer/answer (pkg/sdp), медиа сессию (pkg/media) поверх RTP (pkg/rtp),
// опциональный SRTP (pkg/srtp + pkg/keyexchange) и метрики (pkg/metrics).
// Это связующий слой, которого не хватало между остальными пакетами — без
// него ни один сквозной сценарий (обычный вызов, гонка CANCEL, digest-auth)
// нельзя провести через стек целиком одним вызовом.
//
// Grounded на то, как _examples/arzzra-soft_phone/pkg/media_with_sdp связывает
// SDPBuilder с MediaSessionWithSDPInterface — тот же порядок действий
// (построить локальное SDP, создать медиа сессию, обменяться offer/answer
// через диалог), но выраженный через производственные интерфейсы dialog.IDialog
// и media.MediaSessionInterface вместо специализированного under-package.
package session

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/arzzra/govoip/pkg/dialog"
	"github.com/arzzra/govoip/pkg/keyexchange"
	"github.com/arzzra/govoip/pkg/media"
	"github.com/arzzra/govoip/pkg/metrics"
	rtppkg "github.com/arzzra/govoip/pkg/rtp"
	"github.com/arzzra/govoip/pkg/sdp"
	sipdigest "github.com/arzzra/govoip/pkg/sip/digest"
	"github.com/arzzra/govoip/pkg/srtp"
)

// Config описывает параметры, общие для исходящего и входящего вызова.
type Config struct {
	LocalIP  string
	RTPPort  int
	Metrics  *metrics.Registry // nil отключает сбор метрик для этого вызова
	UseSDES  bool              // предложить SDES crypto в SDP (RFC 4568)
	Username string            // для digest-аутентификации исходящих INVITE
	Password string
}

// Call — один согласованный медиа+сигнальный вызов.
type Call struct {
	dialog dialog.IDialog
	media  media.MediaSessionInterface
	cfg    Config

	sdpBuilder *sdp.Builder
	localSDES  *keyexchange.SDESKey
	localSRTP  *srtp.Context
	remoteSRTP *srtp.Context

	auth *sipdigest.Authenticator

	mu          sync.Mutex
	metricsDone func()
}

// NewOutgoingCall инициирует исходящий вызов на target через stack:
// строит локальный SDP offer (с опциональным SDES crypto), создает медиа
// сессию и отправляет INVITE с этим offer в теле.
func NewOutgoingCall(ctx context.Context, stack dialog.IStack, target dialog.URI, cfg Config) (*Call, error) {
	if cfg.LocalIP == "" || cfg.RTPPort <= 0 {
		return nil, fmt.Errorf("session: LocalIP и RTPPort обязательны")
	}

	c := &Call{cfg: cfg, sdpBuilder: sdp.NewBuilder()}
	if cfg.Username != "" {
		c.auth = sipdigest.NewAuthenticator(cfg.Username, cfg.Password)
	}

	params := sdp.Params{LocalIP: cfg.LocalIP, RTPPort: cfg.RTPPort}
	if cfg.UseSDES {
		key, err := keyexchange.GenerateSDESKey(1, "AES_CM_128_HMAC_SHA1_80")
		if err != nil {
			return nil, fmt.Errorf("session: генерация SDES ключа: %w", err)
		}
		c.localSDES = key
		params.CryptoSuites = []string{key.Encode()}
	}

	offer, err := c.sdpBuilder.Build(params)
	if err != nil {
		return nil, fmt.Errorf("session: построение SDP offer: %w", err)
	}
	offerBytes, err := offer.Marshal()
	if err != nil {
		return nil, fmt.Errorf("session: сериализация SDP offer: %w", err)
	}

	d, err := stack.NewInvite(ctx, target, func(req *dialog.Request) {
		req.SetBody(offerBytes)
		req.SetHeader(headerContentType, "application/sdp")
	})
	if err != nil {
		return nil, fmt.Errorf("session: NewInvite: %w", err)
	}
	c.dialog = d

	mediaSession, err := newMediaSession(cfg, media.PayloadTypePCMU)
	if err != nil {
		return nil, err
	}
	c.media = mediaSession

	if cfg.Metrics != nil {
		c.metricsDone = cfg.Metrics.DialogCreated()
	}

	d.OnStateChange(func(state dialog.DialogState) {
		c.onDialogStateChange(state)
	})

	return c, nil
}

// NewIncomingCall оборачивает уже созданный входящий диалог d (обычно из
// dialog.IStack.OnIncomingDialog) в Call: разбирает offer из тела запроса и
// готовит медиа сессию для ответа. Вызывающая сторона должна вызвать
// Answer, чтобы принять вызов с построенным SDP answer.
func NewIncomingCall(d dialog.IDialog, cfg Config) (*Call, error) {
	if cfg.LocalIP == "" || cfg.RTPPort <= 0 {
		return nil, fmt.Errorf("session: LocalIP и RTPPort обязательны")
	}

	c := &Call{dialog: d, cfg: cfg, sdpBuilder: sdp.NewBuilder()}

	if cfg.Metrics != nil {
		c.metricsDone = cfg.Metrics.DialogCreated()
	}

	d.OnStateChange(func(state dialog.DialogState) {
		c.onDialogStateChange(state)
	})

	return c, nil
}

// Answer строит SDP answer на основе разобранного предложения remoteOffer и
// принимает диалог 200 OK с этим answer в теле.
func (c *Call) Answer(ctx context.Context, remoteOffer *sdp.AudioMedia) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payloadType := media.PayloadTypePCMU
	if len(remoteOffer.Codecs) > 0 {
		payloadType = media.PayloadType(remoteOffer.Codecs[0].PayloadType)
	}

	params := sdp.Params{LocalIP: c.cfg.LocalIP, RTPPort: c.cfg.RTPPort}
	if len(remoteOffer.CryptoSuites) > 0 && c.cfg.UseSDES {
		key, err := keyexchange.GenerateSDESKey(1, "AES_CM_128_HMAC_SHA1_80")
		if err != nil {
			return fmt.Errorf("session: генерация SDES ключа для answer: %w", err)
		}
		c.localSDES = key
		params.CryptoSuites = []string{key.Encode()}

		remoteKey, err := keyexchange.ParseSDESKey(remoteOffer.CryptoSuites[0])
		if err != nil {
			return fmt.Errorf("session: разбор удаленного SDES crypto: %w", err)
		}
		remoteCtx, err := c.remoteSRTPContext(remoteKey)
		if err != nil {
			return fmt.Errorf("session: построение SRTP контекста для приема: %w", err)
		}
		c.remoteSRTP = remoteCtx

		localCtx, err := srtp.NewContext(key.Key(keyexchange.ProfileAES128CM80), key.Salt(keyexchange.ProfileAES128CM80), nil)
		if err != nil {
			return fmt.Errorf("session: построение SRTP контекста для отправки: %w", err)
		}
		c.localSRTP = localCtx
	}

	answer, err := c.sdpBuilder.Build(params)
	if err != nil {
		return fmt.Errorf("session: построение SDP answer: %w", err)
	}
	answerBytes, err := answer.Marshal()
	if err != nil {
		return fmt.Errorf("session: сериализация SDP answer: %w", err)
	}

	mediaSession, err := newMediaSession(c.cfg, payloadType)
	if err != nil {
		return err
	}
	c.media = mediaSession

	return c.dialog.Accept(ctx, func(resp *dialog.Response) {
		resp.SetBody(answerBytes)
		resp.SetHeader(headerContentType, "application/sdp")
	})
}

// remoteSRTPContext строит SRTP контекст для расшифровки входящего потока
// из SDES crypto строки remote, используя локальный key, выставленный при
// построении offer/answer.
func (c *Call) remoteSRTPContext(remote *keyexchange.SDESKey) (*srtp.Context, error) {
	profile := keyexchange.ProfileAES128CM80
	return srtp.NewContext(remote.Key(profile), remote.Salt(profile), nil)
}

// onDialogStateChange запускает/останавливает медиа сессию синхронно с
// состоянием SIP диалога — установленный диалог запускает RTP поток,
// завершенный диалог его останавливает и освобождает метрики.
func (c *Call) onDialogStateChange(state dialog.DialogState) {
	c.mu.Lock()
	m := c.media
	c.mu.Unlock()

	switch state {
	case dialog.DialogStateEstablished:
		if m != nil {
			_ = m.Start()
		}
	case dialog.DialogStateTerminated:
		if m != nil {
			_ = m.Stop()
		}
		if c.metricsDone != nil {
			c.metricsDone()
			c.metricsDone = nil
		}
	}
}

// Hangup завершает вызов, отправляя BYE (если установлен) или освобождая
// ресурсы диалога напрямую.
func (c *Call) Hangup(ctx context.Context, reason string) error {
	if c.dialog.State() == dialog.DialogStateEstablished {
		return c.dialog.Bye(ctx, reason)
	}
	return c.dialog.Close()
}

// SendAudio отправляет аудио через текущую медиа сессию вызова.
func (c *Call) SendAudio(pcm []byte) error {
	c.mu.Lock()
	m := c.media
	c.mu.Unlock()
	if m == nil {
		return fmt.Errorf("session: медиа сессия еще не готова")
	}
	return m.SendAudio(pcm)
}

// Media возвращает медиа сессию вызова (может быть nil до ответа/приема
// SDP answer).
func (c *Call) Media() media.MediaSessionInterface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.media
}

// Dialog возвращает SIP диалог, связанный с этим вызовом.
func (c *Call) Dialog() dialog.IDialog {
	return c.dialog
}

// HandleChallenge применяет digest challenge из resp (401/407) к req,
// подготавливая его для повторной отправки тем же методом/URI. Возвращает
// false, если resp не содержал challenge — вызывающая сторона не должна
// предпринимать повторную отправку в этом случае.
func (c *Call) HandleChallenge(resp *dialog.Response, req *dialog.Request, method, uri string) (bool, error) {
	if c.auth == nil {
		return false, fmt.Errorf("session: аутентификатор не настроен (Config.Username пуст)")
	}
	return c.auth.ApplyChallenge(resp, req, method, uri)
}

// SRTPContexts возвращает согласованные SRTP контексты для приема и отправки,
// если SDES был согласован в Answer. Оба nil, если вызов идет в открытом RTP.
func (c *Call) SRTPContexts() (remote, local *srtp.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteSRTP, c.localSRTP
}

const headerContentType = "Content-Type"

// newMediaSession создает MediaSession, слушающую RTP на cfg.RTPPort.
func newMediaSession(cfg Config, payloadType media.PayloadType) (*media.MediaSession, error) {
	addr := net.JoinHostPort(cfg.LocalIP, strconv.Itoa(cfg.RTPPort))
	transport, err := rtppkg.NewUDPTransport(rtppkg.TransportConfig{LocalAddr: addr, BufferSize: 1500})
	if err != nil {
		return nil, fmt.Errorf("session: создание RTP транспорта: %w", err)
	}

	rtpSession, err := rtppkg.NewRTPSession(rtppkg.RTPSessionConfig{
		PayloadType: rtppkg.PayloadType(payloadType),
		ClockRate:   clockRateFor(payloadType),
		Transport:   transport,
	})
	if err != nil {
		return nil, fmt.Errorf("session: создание RTP сессии: %w", err)
	}

	mediaConfig := media.DefaultMediaSessionConfig()
	mediaConfig.SessionID = addr
	mediaConfig.PayloadType = payloadType

	mediaSession, err := media.NewMediaSession(mediaConfig)
	if err != nil {
		return nil, fmt.Errorf("session: создание медиа сессии: %w", err)
	}
	if err := mediaSession.AddRTPSession("primary", rtpSession); err != nil {
		return nil, fmt.Errorf("session: подключение RTP сессии: %w", err)
	}
	return mediaSession, nil
}

// clockRateFor возвращает RTP clock rate для payloadType. G.722 тоже
// тактируется на 8000 несмотря на 16kHz сигнал — это не баг, а
// зафиксированная в RFC 3551 §4.5.3 историческая аномалия.
func clockRateFor(payloadType media.PayloadType) uint32 {
	return 8000
}
