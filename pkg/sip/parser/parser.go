// Package parser реализует разбор SIP-сообщений по грамматике RFC 3261 §7,
// в двух режимах: Strict (полное соответствие) и Lenient (допускает
// конкретные искажения из торче-тестов RFC 4475, когда намерение
// отправителя однозначно).
package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/arzzra/govoip/pkg/sip/types"
)

// Mode задаёт режим разбора.
type Mode int

const (
	Strict Mode = iota
	Lenient
)

// Parser разбирает байтовый поток в types.Message.
type Parser struct {
	maxHeaderLength int
	maxHeaders      int
}

// New создаёт парсер с разумными пределами против памяти-исчерпывающих
// входов (RFC 3261 не определяет их, но ни один реальный стек не принимает
// неограниченные заголовки).
func New() *Parser {
	return &Parser{maxHeaderLength: 8192, maxHeaders: 256}
}

// Parse разбирает полное SIP-сообщение. Offset в возвращаемой ParseError
// указывает байтовую позицию в data, на которой разбор остановился.
func (p *Parser) Parse(data []byte, mode Mode) (types.Message, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	consumed := 0

	firstLine, err := readLine(reader)
	if err != nil {
		return nil, types.NewParseError(types.BadStartLine, 0, "missing start line")
	}
	consumed += len(firstLine) + 2

	var msg types.Message
	if strings.HasPrefix(firstLine, "SIP/") {
		msg, err = p.parseStatusLine(firstLine)
	} else {
		msg, err = p.parseRequestLine(firstLine, mode)
	}
	if err != nil {
		return nil, err
	}

	headers, headerBytes, err := p.parseHeaders(reader, consumed)
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		msg.AddHeader(h.name, h.value)
	}
	consumed += headerBytes

	body := data[min(consumed, len(data)):]

	contentLengthStr := msg.GetHeader(types.HeaderContentLength)
	if contentLengthStr != "" {
		cl, convErr := strconv.Atoi(strings.TrimSpace(contentLengthStr))
		if convErr != nil {
			return nil, types.NewBadHeaderError(consumed, types.HeaderContentLength, "not an integer")
		}
		if cl < 0 || cl > len(body)+1<<20 {
			// Отрицательная или заведомо избыточная длина отвергается
			// всегда, вне зависимости от режима.
			return nil, types.NewBadHeaderError(consumed, types.HeaderContentLength, "negative or oversize")
		}
		switch {
		case cl == len(body):
			msg.SetBody(body)
		case mode == Lenient && cl < len(body):
			// Несовпадение допускается только в lenient-режиме; побеждает
			// фактическая длина тела.
			msg.SetBody(body)
			msg.SetHeader(types.HeaderContentLength, strconv.Itoa(len(body)))
		case cl > len(body):
			return nil, types.NewParseError(types.TruncatedBody, consumed, "body shorter than declared Content-Length")
		default:
			return nil, types.NewParseError(types.BadBody, consumed, "Content-Length does not match body length")
		}
	} else if len(body) > 0 {
		// Без Content-Length тело принимается целиком — на UDP кадр
		// транспорта сам задаёт границу сообщения; на потоковом
		// транспорте такое сообщение невалидно, но это ответственность
		// вызывающего транспортного уровня, не этого парсера.
		msg.SetBody(body)
	}

	return msg, nil
}

type rawHeader struct{ name, value string }

func (p *Parser) parseRequestLine(line string, mode Mode) (types.Message, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, types.NewParseError(types.BadStartLine, 0, "expected METHOD Request-URI SIP-Version")
	}
	method, requestURIStr, version := parts[0], parts[1], parts[2]
	if mode == Strict && version != "SIP/2.0" {
		return nil, types.NewParseError(types.BadStartLine, 0, "unsupported SIP version: "+version)
	}
	uri, err := types.ParseURI(requestURIStr)
	if err != nil {
		return nil, types.NewParseError(types.BadStartLine, 0, "bad Request-URI: "+err.Error())
	}
	return types.NewRequest(method, uri), nil
}

func (p *Parser) parseStatusLine(line string) (types.Message, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, types.NewParseError(types.BadStartLine, 0, "expected SIP-Version Status-Code Reason-Phrase")
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 699 {
		return nil, types.NewParseError(types.BadStartLine, 0, "bad status code")
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return types.NewResponse(code, reason), nil
}

// parseHeaders разбирает заголовки до пустой строки. Учитывает folding
// (строка-продолжение начинается с SP/TAB — складывается в одну строку с
// единственным пробелом-разделителем) и compact-формы из RFC 3261 §7.3.3.
func (p *Parser) parseHeaders(reader *bufio.Reader, startOffset int) ([]rawHeader, int, error) {
	var headers []rawHeader
	consumed := 0
	count := 0

	for {
		line, err := readLine(reader)
		if err != nil {
			break
		}
		consumed += len(line) + 2
		if line == "" {
			break
		}

		if len(line) > p.maxHeaderLength {
			return nil, consumed, types.NewParseError(types.BadHeader, startOffset+consumed, "header line too long")
		}
		count++
		if count > p.maxHeaders {
			return nil, consumed, types.NewParseError(types.BadHeader, startOffset+consumed, "too many headers")
		}

		for {
			next, peekErr := reader.Peek(1)
			if peekErr != nil || (next[0] != ' ' && next[0] != '\t') {
				break
			}
			cont, contErr := readLine(reader)
			if contErr != nil {
				break
			}
			consumed += len(cont) + 2
			line += " " + strings.TrimLeft(cont, " \t")
		}

		colon := strings.Index(line, ":")
		if colon == -1 {
			return nil, consumed, types.NewParseError(types.BadHeader, startOffset+consumed, "missing colon in header: "+line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])

		if len(name) == 1 {
			if full, ok := types.GetCompactFormMapping(strings.ToLower(name)); ok {
				name = full
			}
		}

		headers = append(headers, rawHeader{name: name, value: value})
	}

	return headers, consumed, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if len(line) == 0 {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
