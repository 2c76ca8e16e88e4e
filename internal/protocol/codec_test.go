package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graalreborn/graalclient/internal/constants"
	"github.com/graalreborn/graalclient/internal/props"
)

func TestSplitJoin_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		codec   *Codec
		id      byte
		payload []byte
	}{
		{"plain", ServerCodec(), constants.PLOLevelName, []byte("onlinestartlocal.nw")},
		{"empty payload", ServerCodec(), constants.PLOSignature, nil},
		{"embedded newline", ServerCodec(), constants.PLOToAll, []byte("line one\nline two\n")},
		{"client embedded newline", ClientCodec(), constants.PLIToAll, []byte("hi\nthere")},
		{"max id", ClientCodec(), constants.MaxPacketID, []byte("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.codec.Join(tt.id, tt.payload)
			require.NoError(t, err)

			msgs, err := tt.codec.Split(data)
			require.NoError(t, err)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.id, msgs[0].ID)
			assert.Equal(t, string(tt.payload), string(msgs[0].Payload))
		})
	}
}

func TestJoin_RawDataAnnouncement(t *testing.T) {
	data, err := ServerCodec().Join(constants.PLOToAll, []byte("a\nb"))
	require.NoError(t, err)

	want := []byte{
		constants.PLORawData + 32, 32, 32, 32 + 5, '\n',
		constants.PLOToAll + 32, 'a', '\n', 'b', '\n',
	}
	assert.Equal(t, want, data)
}

func TestJoin_InvalidID(t *testing.T) {
	_, err := ServerCodec().Join(constants.MaxPacketID+1, []byte("x"))
	assert.Error(t, err)
}

func TestSplit_Stream(t *testing.T) {
	c := ServerCodec()

	var data []byte
	var err error
	data, err = c.AppendJoin(data, constants.PLOLevelName, []byte("town.gmap"))
	require.NoError(t, err)
	data, err = c.AppendJoin(data, constants.PLOToAll, []byte("multi\nline"))
	require.NoError(t, err)
	data = append(data, '\n', '\n')
	data, err = c.AppendJoin(data, constants.PLODiscMessage, []byte("bye"))
	require.NoError(t, err)

	msgs, err := c.Split(data)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "town.gmap", string(msgs[0].Payload))
	assert.Equal(t, "multi\nline", string(msgs[1].Payload))
	assert.Equal(t, byte(constants.PLODiscMessage), msgs[2].ID)
}

func TestSplit_PropertyListWithNewlineInString(t *testing.T) {
	payload, err := props.Encode([]props.Property{
		{ID: props.CurChat, Value: props.String("hello\nworld")},
		{ID: props.CurPower, Value: props.UInt8(4)},
	})
	require.NoError(t, err)

	data := append([]byte{constants.PLOPlayerProps + 32}, payload...)
	data = append(data, '\n')
	data = append(data, constants.PLOLevelName+32, 'a', '\n')

	msgs, err := ServerCodec().Split(data)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, byte(constants.PLOPlayerProps), msgs[0].ID)
	assert.Equal(t, payload, msgs[0].Payload)

	list, err := props.Decode(msgs[0].Payload)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "hello\nworld", list[0].Value.Str)
}

func TestSplit_OtherPlayerPropsPrefix(t *testing.T) {
	payload, err := props.Encode([]props.Property{
		{ID: props.Nickname, Value: props.String("x\ny")},
	})
	require.NoError(t, err)

	// player id 10 as GShort
	data := []byte{constants.PLOOtherPlProps + 32, 32, 32 + 10}
	data = append(data, payload...)
	data = append(data, '\n')

	msgs, err := ServerCodec().Split(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, append([]byte{32, 42}, payload...), msgs[0].Payload)
}

func TestSplit_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		good int
	}{
		{
			name: "unterminated packet",
			data: []byte{constants.PLOLevelName + 32, 'a', '\n', constants.PLOLevelName + 32, 'b'},
			good: 1,
		},
		{
			name: "raw data longer than buffer",
			data: []byte{constants.PLORawData + 32, 32, 32, 32 + 20, '\n', constants.PLOToAll + 32, 'x'},
			good: 0,
		},
		{
			name: "unterminated raw data announcement",
			data: []byte{constants.PLORawData + 32, 32, 32, 32 + 20},
			good: 0,
		},
		{
			name: "property overrun",
			data: []byte{constants.PLOPlayerProps + 32, byte(props.Nickname) + 32, 32 + 5, 'a', '\n'},
			good: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := ServerCodec().Split(tt.data)
			require.ErrorIs(t, err, ErrMalformedFrame)
			assert.Len(t, msgs, tt.good)
		})
	}
}

func TestSplit_DirectionSpecificRawData(t *testing.T) {
	// id 50 is RAWDATA only in the client direction
	data := []byte{constants.PLIRawData + 32, 'x', '\n'}

	msgs, err := ServerCodec().Split(data)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, byte(constants.PLIRawData), msgs[0].ID)
}
