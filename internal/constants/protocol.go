package constants

import "time"

// Graal Reborn Protocol Constants
//
// Values shared by the wire codec, the session and the world resolver.
// They are fixed by the servers this client talks to and must not be tuned.

// Byte Encoding Constants
const (
	// ByteOffset is added to every encoded byte so that the wire value never
	// collides with the packet terminator or other control characters.
	ByteOffset = 32

	// MaxByteValue is the largest value a single encoded byte can carry (255-32).
	MaxByteValue = 223

	// Terminator ends every packet in the decompressed stream.
	Terminator = 0x0A

	// MaxPacketID is the largest logical packet id.
	MaxPacketID = 191
)

// Compression selectors carried in the outer frame header.
const (
	CompressNone byte = 0x02
	CompressZlib byte = 0x04
	CompressBz2  byte = 0x06
)

// Outer Frame Constants
//
// Frame format on the TCP stream:
//
//	[length 2 bytes BE] [compression selector 1 byte] [body length-1 bytes]
const (
	// FrameHeaderSize is the big-endian length prefix size.
	FrameHeaderSize = 2

	// MaxFrameSize is the largest value the length prefix can carry.
	MaxFrameSize = 0xFFFF

	// CompressThreshold: bodies up to this size are sent uncompressed.
	CompressThreshold = 55
)

// Server -> client packet ids (PLO).
const (
	PLOLevelName      = 6
	PLOOtherPlProps   = 8
	PLOPlayerProps    = 9
	PLOToAll          = 13
	PLOPlayerWarped   = 14
	PLOWarpFailed     = 15
	PLODiscMessage    = 16
	PLOSignature      = 25
	PLOPrivateMessage = 37
	PLOPlayerWarp2    = 49
	PLORawData        = 100
	PLOFile           = 102
)

// Client -> server packet ids (PLI).
const (
	PLILevelWarp      = 0
	PLIPlayerProps    = 2
	PLIToAll          = 6
	PLIWantFile       = 23
	PLIPrivateMessage = 28
	PLIAdjacentLevel  = 35
	PLILanguage       = 37
	PLIMapInfo        = 39
	PLIRawData        = 50
)

// World Geometry Constants
const (
	// SegmentSize is the edge length of one GMAP segment in tiles.
	SegmentSize = 64

	// PixelsPerTile converts pixel coordinates to tiles.
	PixelsPerTile = 16

	// MaxCoordinateJump is the largest accepted per-axis change (tiles)
	// between two consecutive server coordinate updates.
	MaxCoordinateJump = 32
)

// Session Timing Constants
const (
	// PredictionTimeout bounds how long a locally predicted move suppresses
	// server coordinate updates.
	PredictionTimeout = 100 * time.Millisecond

	// MinSendInterval is the minimum spacing between two outbound packets.
	MinSendInterval = 50 * time.Millisecond

	// DefaultSendQueueSize is the outbound queue capacity.
	DefaultSendQueueSize = 128

	// DefaultReadBufSize is the initial frame read buffer size.
	DefaultReadBufSize = 4096
)

// Login Packet Constants
const (
	// ProtocolVersionSize is the fixed width of the version string in the login packet.
	ProtocolVersionSize = 8

	// DefaultProtocolVersion is the client version announced at login.
	DefaultProtocolVersion = "G3D0311C"

	// DefaultClientType identifies a regular game client.
	DefaultClientType = 5
)
