package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/gmap"
	"github.com/graalreborn/graalclient/internal/props"
	"github.com/graalreborn/graalclient/internal/protocol"
)

func TestLogin_RoundTrip(t *testing.T) {
	in := Login{
		ClientType: constants.DefaultClientType,
		Key:        117,
		Version:    constants.DefaultProtocolVersion,
		Account:    "alice",
		Password:   "p4ss",
		Identity:   "pc-01",
	}

	msg, err := NewLogin(in)
	require.NoError(t, err)
	assert.Equal(t, byte(constants.DefaultClientType), msg.ID)

	out, err := ParseLogin(msg)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNewLogin_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		login Login
	}{
		{"short version", Login{Version: "G3D", ClientType: 5}},
		{"client type", Login{Version: constants.DefaultProtocolVersion, ClientType: 300}},
		{"key out of range", Login{Version: constants.DefaultProtocolVersion, ClientType: 5, Key: 250}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogin(tt.login)
			assert.Error(t, err)
		})
	}
}

func TestNewMove(t *testing.T) {
	seg := gmap.Segment{X: 2, Y: 1}
	msg, err := NewMove(30.5, 12, &seg)
	require.NoError(t, err)
	assert.Equal(t, byte(constants.PLIPlayerProps), msg.ID)

	list, err := props.Decode(msg.Payload)
	require.NoError(t, err)

	x, ok := props.Find(list, props.X2)
	require.True(t, ok)
	tx, _ := props.Tiles(props.X2, x)
	assert.InDelta(t, 30.5, tx, 1e-9)

	gx, ok := props.Find(list, props.GMapLevelX)
	require.True(t, ok)
	assert.Equal(t, int64(2), gx.Int)

	msg, err = NewMove(1, 1, nil)
	require.NoError(t, err)
	list, err = props.Decode(msg.Payload)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestParsePlayerWarp2(t *testing.T) {
	payload := append([]byte{32 + 61, 32 + 40, 32 + 50, 32 + 3, 32 + 4}, "world.gmap"...)

	w, err := ParsePlayerWarp2(payload)
	require.NoError(t, err)
	assert.Equal(t, Warp{X: 30.5, Y: 20, Z: 0, Segment: gmap.Segment{X: 3, Y: 4}, Level: "world.gmap"}, w)

	_, err = ParsePlayerWarp2([]byte{32, 32})
	assert.Error(t, err)
}

func TestParsePlayerWarped(t *testing.T) {
	payload := append([]byte{32 + 20, 32 + 21}, "house.nw"...)

	w, err := ParsePlayerWarped(payload)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.X)
	assert.Equal(t, 10.5, w.Y)
	assert.Equal(t, "house.nw", w.Level)
}

func TestParseChat(t *testing.T) {
	payload := append([]byte{32, 32 + 7}, "hey\nyou"...)

	c, err := ParseChat(payload)
	require.NoError(t, err)
	assert.Equal(t, ChatMessage{From: 7, Text: "hey\nyou"}, c)
}

func TestParseOtherPlayerProps(t *testing.T) {
	list, err := props.Encode([]props.Property{{ID: props.Nickname, Value: props.String("bob")}})
	require.NoError(t, err)

	p, err := ParseOtherPlayerProps(append([]byte{32, 32 + 12}, list...))
	require.NoError(t, err)
	assert.Equal(t, 12, p.ID)
	require.Len(t, p.Props, 1)
	assert.Equal(t, "bob", p.Props[0].Value.Str)
}

func TestFile_RoundTrip(t *testing.T) {
	in := File{ModTime: 1700000000, Name: "town.gmap", Data: []byte("GRMAP001\nWIDTH 1\n")}

	payload, err := NewFilePayload(in)
	require.NoError(t, err)

	out, err := ParseFile(payload)
	require.NoError(t, err)
	assert.Equal(t, in.ModTime, out.ModTime)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Data, out.Data)
}

func TestBuilders(t *testing.T) {
	tests := []struct {
		name  string
		build func() (protocol.Message, error)
		id    byte
	}{
		{"level warp", func() (protocol.Message, error) { return NewLevelWarp(30, 30, "a.nw") }, constants.PLILevelWarp},
		{"private message", func() (protocol.Message, error) { return NewPrivateMessage([]int{1, 2}, "hi") }, constants.PLIPrivateMessage},
		{"adjacent level", func() (protocol.Message, error) { return NewAdjacentLevel(0, "b.nw") }, constants.PLIAdjacentLevel},
		{"map info", func() (protocol.Message, error) { return NewMapInfo("world.gmap") }, constants.PLIMapInfo},
		{"language", func() (protocol.Message, error) { return NewLanguage("English") }, constants.PLILanguage},
		{"want file", func() (protocol.Message, error) { return NewWantFile("x.nw") }, constants.PLIWantFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.id, msg.ID)
			assert.NotEmpty(t, msg.Payload)
		})
	}
}
