package testutil

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/graalreborn/graalclient/internal/compress"
	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/crypto"
	"github.com/graalreborn/graalclient/internal/protocol"
)

// DefaultTimeout ограничивает каждую операцию чтения/записи FakeServer.
const DefaultTimeout = 2 * time.Second

// FakeServer играет роль сервера на другой стороне соединения клиента.
// Шифрует и сжимает кадры так же, как настоящий сервер.
type FakeServer struct {
	t       testing.TB
	conn    net.Conn
	cipher  *crypto.Session
	in      *protocol.Codec
	out     *protocol.Codec
	buf     []byte
	pending []protocol.Message
	timeout time.Duration
}

// NewFakeServer оборачивает серверную сторону соединения.
func NewFakeServer(t testing.TB, conn net.Conn, transform crypto.Transform, key byte) *FakeServer {
	t.Helper()

	return &FakeServer{
		t:       t,
		conn:    conn,
		cipher:  crypto.NewSession(transform, key),
		in:      protocol.ClientCodec(),
		out:     protocol.ServerCodec(),
		timeout: DefaultTimeout,
	}
}

// Cipher возвращает шифр сервера (для проверки позиций в тестах).
func (s *FakeServer) Cipher() *crypto.Session {
	return s.cipher
}

// ReadFrame читает один кадр и возвращает пакеты из него.
func (s *FakeServer) ReadFrame() ([]protocol.Message, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
		return nil, err
	}

	frame, buf, err := protocol.ReadFrame(s.conn, s.buf)
	s.buf = buf
	if err != nil {
		return nil, err
	}

	if err := s.cipher.Decrypt(frame.Body); err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	plain, err := compress.Decompress(frame.Compression, frame.Body)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	msgs, err := s.in.Split(plain)
	if err != nil {
		return nil, err
	}

	// payload'ы ссылаются на plain, который не переиспользуется
	return msgs, nil
}

// Expect читает пакеты, пока не встретит пакет с указанным id.
// Пропущенные пакеты сохраняются и доступны через Pending.
func (s *FakeServer) Expect(id byte) protocol.Message {
	s.t.Helper()

	for i, msg := range s.pending {
		if msg.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return msg
		}
	}

	for {
		msgs, err := s.ReadFrame()
		if err != nil {
			s.t.Fatalf("waiting for packet %d: %v", id, err)
			return protocol.Message{}
		}
		for i, msg := range msgs {
			if msg.ID == id {
				s.pending = append(s.pending, msgs[i+1:]...)
				return msg
			}
			s.pending = append(s.pending, msg)
		}
	}
}

// Pending возвращает прочитанные, но не востребованные пакеты.
func (s *FakeServer) Pending() []protocol.Message {
	return s.pending
}

// Send отправляет пакеты одним кадром.
func (s *FakeServer) Send(msgs ...protocol.Message) error {
	var data []byte
	for _, m := range msgs {
		var err error
		data, err = s.out.AppendJoin(data, m.ID, m.Payload)
		if err != nil {
			return err
		}
	}
	return s.SendRaw(compress.Select(compress.ModeAuto, len(data)), data)
}

// SendRaw сжимает уже сериализованный поток пакетов кодеком sel и отправляет кадр.
func (s *FakeServer) SendRaw(sel byte, data []byte) error {
	body, err := compress.Compress(sel, data)
	if err != nil {
		return err
	}
	if err := s.cipher.Encrypt(body); err != nil {
		return err
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(s.conn, protocol.Frame{Compression: sel, Body: body})
}

// SendGarbage отправляет кадр, который не распаковывается.
func (s *FakeServer) SendGarbage() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(s.conn, protocol.Frame{
		Compression: constants.CompressZlib,
		Body:        []byte{0xDE, 0xAD, 0xBE, 0xEF},
	})
}

// AcceptLogin отправляет SIGNATURE и переключает шифр сервера на ключ логина.
func (s *FakeServer) AcceptLogin(key byte) error {
	if err := s.Send(protocol.Message{ID: constants.PLOSignature, Payload: []byte{73 + constants.ByteOffset}}); err != nil {
		return err
	}
	s.cipher.Reset(key)
	return nil
}
