package props

import (
	"fmt"
	"math"

	"github.com/graalreborn/graalclient/internal/constants"
)

// ID is a player property identifier.
type ID uint8

// Player property ids.
const (
	Nickname      ID = 0
	MaxPower      ID = 1
	CurPower      ID = 2
	RupeesCount   ID = 3
	ArrowsCount   ID = 4
	BombsCount    ID = 5
	GlovePower    ID = 6
	BombPower     ID = 7
	SwordPower    ID = 8
	ShieldPower   ID = 9
	Gani          ID = 10
	HeadImage     ID = 11
	CurChat       ID = 12
	Colors        ID = 13
	PlayerID      ID = 14
	X             ID = 15
	Y             ID = 16
	Sprite        ID = 17
	Status        ID = 18
	CarrySprite   ID = 19
	CurLevel      ID = 20
	HorseImage    ID = 21
	HorseBushes   ID = 22
	EffectColors  ID = 23
	CarryNPC      ID = 24
	APCounter     ID = 25
	MagicPoints   ID = 26
	KillsCount    ID = 27
	DeathsCount   ID = 28
	OnlineSecs    ID = 29
	IPAddr        ID = 30
	UDPPort       ID = 31
	Alignment     ID = 32
	AdditFlags    ID = 33
	AccountName   ID = 34
	BodyImage     ID = 35
	Rating        ID = 36
	GAttrib1      ID = 37
	GAttrib5      ID = 41
	AttachNPC     ID = 42
	GMapLevelX    ID = 43
	GMapLevelY    ID = 44
	Z             ID = 45
	GAttrib6      ID = 46
	GAttrib10     ID = 50
	JoinLeaveLvl  ID = 51
	Connected     ID = 52
	Language      ID = 53
	StatusMsg     ID = 54
	GAttrib11     ID = 55
	GAttrib30     ID = 74
	OSType        ID = 75
	TextCodePage  ID = 76
	OnlineSecs2   ID = 77
	X2            ID = 78
	Y2            ID = 79
	Z2            ID = 80
	ListCategory  ID = 81
	CommunityName ID = 82
)

// Encoding names the field codec recipe of a property.
type Encoding uint8

const (
	EncByte Encoding = iota
	EncShort
	EncGShort
	EncGInt3
	EncGInt5
	EncLengthString
	EncHeadImage
	EncPowerImage
	EncFixedBytes   // Size Byte-decoded bytes
	EncCountedBytes // Byte count, then that many Byte-decoded bytes
	EncAttachNPC    // Byte attach type (always 0), then GInt3 object id
	EncEmpty        // zero-width flag
)

// Scale is the semantic post-processing applied to a coordinate property.
type Scale uint8

const (
	ScaleNone     Scale = iota
	ScaleHalfTile       // value / 2 = tiles
	ScalePixel          // (abs<<1 | negative) pixels, /16 = tiles
)

// Spec is one entry of the dispatch table.
type Spec struct {
	Name     string
	Encoding Encoding
	Size     int // EncFixedBytes width, EncPowerImage plain threshold
	Scale    Scale
}

// Kind returns the Value tag produced by the property's encoding.
func (s Spec) Kind() Kind {
	switch s.Encoding {
	case EncByte, EncEmpty:
		return KindUInt8
	case EncShort:
		return KindUInt16
	case EncGShort:
		return KindShort14
	case EncGInt3:
		return KindInt21
	case EncGInt5:
		return KindInt35
	case EncLengthString, EncHeadImage:
		return KindString
	case EncPowerImage:
		return KindPowerImage
	case EncFixedBytes, EncCountedBytes:
		return KindBytes
	case EncAttachNPC:
		return KindUInt32
	default:
		return KindBytes
	}
}

var table = map[ID]Spec{
	Nickname:      {Name: "nickname", Encoding: EncLengthString},
	MaxPower:      {Name: "maxpower", Encoding: EncByte},
	CurPower:      {Name: "curpower", Encoding: EncByte},
	RupeesCount:   {Name: "rupees", Encoding: EncGInt3},
	ArrowsCount:   {Name: "arrows", Encoding: EncByte},
	BombsCount:    {Name: "bombs", Encoding: EncByte},
	GlovePower:    {Name: "glovepower", Encoding: EncByte},
	BombPower:     {Name: "bombpower", Encoding: EncByte},
	SwordPower:    {Name: "sword", Encoding: EncPowerImage, Size: 4},
	ShieldPower:   {Name: "shield", Encoding: EncPowerImage, Size: 3},
	Gani:          {Name: "gani", Encoding: EncLengthString},
	HeadImage:     {Name: "head", Encoding: EncHeadImage},
	CurChat:       {Name: "chat", Encoding: EncLengthString},
	Colors:        {Name: "colors", Encoding: EncFixedBytes, Size: 5},
	PlayerID:      {Name: "id", Encoding: EncGShort},
	X:             {Name: "x", Encoding: EncByte, Scale: ScaleHalfTile},
	Y:             {Name: "y", Encoding: EncByte, Scale: ScaleHalfTile},
	Sprite:        {Name: "sprite", Encoding: EncByte},
	Status:        {Name: "status", Encoding: EncByte},
	CarrySprite:   {Name: "carrysprite", Encoding: EncByte},
	CurLevel:      {Name: "level", Encoding: EncLengthString},
	HorseImage:    {Name: "horse", Encoding: EncLengthString},
	HorseBushes:   {Name: "horsebushes", Encoding: EncByte},
	EffectColors:  {Name: "effectcolors", Encoding: EncCountedBytes},
	CarryNPC:      {Name: "carrynpc", Encoding: EncGInt3},
	APCounter:     {Name: "apcounter", Encoding: EncGShort},
	MagicPoints:   {Name: "mp", Encoding: EncByte},
	KillsCount:    {Name: "kills", Encoding: EncGInt3},
	DeathsCount:   {Name: "deaths", Encoding: EncGInt3},
	OnlineSecs:    {Name: "onlinesecs", Encoding: EncGInt3},
	IPAddr:        {Name: "ip", Encoding: EncGInt5},
	UDPPort:       {Name: "udpport", Encoding: EncGInt3},
	Alignment:     {Name: "alignment", Encoding: EncByte},
	AdditFlags:    {Name: "additflags", Encoding: EncByte},
	AccountName:   {Name: "account", Encoding: EncLengthString},
	BodyImage:     {Name: "body", Encoding: EncLengthString},
	Rating:        {Name: "rating", Encoding: EncGInt3},
	AttachNPC:     {Name: "attachnpc", Encoding: EncAttachNPC},
	GMapLevelX:    {Name: "gmaplevelx", Encoding: EncByte},
	GMapLevelY:    {Name: "gmaplevely", Encoding: EncByte},
	Z:             {Name: "z", Encoding: EncByte, Scale: ScaleHalfTile},
	JoinLeaveLvl:  {Name: "joinleavelvl", Encoding: EncByte},
	Connected:     {Name: "connected", Encoding: EncEmpty},
	Language:      {Name: "language", Encoding: EncLengthString},
	StatusMsg:     {Name: "statusmsg", Encoding: EncByte},
	OSType:        {Name: "ostype", Encoding: EncLengthString},
	TextCodePage:  {Name: "codepage", Encoding: EncGInt3},
	OnlineSecs2:   {Name: "onlinesecs2", Encoding: EncGInt5},
	X2:            {Name: "x2", Encoding: EncGShort, Scale: ScalePixel},
	Y2:            {Name: "y2", Encoding: EncGShort, Scale: ScalePixel},
	Z2:            {Name: "z2", Encoding: EncGShort, Scale: ScalePixel},
	ListCategory:  {Name: "listcategory", Encoding: EncByte},
	CommunityName: {Name: "communityname", Encoding: EncLengthString},
}

func init() {
	for id := GAttrib1; id <= GAttrib5; id++ {
		table[id] = Spec{Name: fmt.Sprintf("gattrib%d", id-GAttrib1+1), Encoding: EncLengthString}
	}
	for id := GAttrib6; id <= GAttrib10; id++ {
		table[id] = Spec{Name: fmt.Sprintf("gattrib%d", id-GAttrib6+6), Encoding: EncLengthString}
	}
	for id := GAttrib11; id <= GAttrib30; id++ {
		table[id] = Spec{Name: fmt.Sprintf("gattrib%d", id-GAttrib11+11), Encoding: EncLengthString}
	}
}

// Lookup returns the dispatch entry for id.
func Lookup(id ID) (Spec, bool) {
	s, ok := table[id]
	return s, ok
}

func (id ID) String() string {
	if s, ok := table[id]; ok {
		return s.Name
	}
	return fmt.Sprintf("unknown(%d)", uint8(id))
}

// Tiles converts a decoded coordinate value to tiles.
// ok is false when id is not a coordinate property.
func Tiles(id ID, v Value) (float64, bool) {
	s, found := table[id]
	if !found {
		return 0, false
	}
	switch s.Scale {
	case ScaleHalfTile:
		return float64(v.Int) / 2, true
	case ScalePixel:
		raw := v.Int
		px := float64(raw >> 1)
		if raw&1 != 0 {
			px = -px
		}
		return px / constants.PixelsPerTile, true
	default:
		return 0, false
	}
}

// Coordinate builds the wire value of a coordinate property from tiles.
func Coordinate(id ID, tiles float64) (Value, error) {
	s, found := table[id]
	if !found {
		return Value{}, fmt.Errorf("property %s is not a coordinate", id)
	}
	switch s.Scale {
	case ScaleHalfTile:
		half := int(math.Floor(tiles * 2))
		if half < 0 || half > constants.MaxByteValue {
			return Value{}, fmt.Errorf("%s %.2f does not fit a half-tile byte", s.Name, tiles)
		}
		return UInt8(half), nil
	case ScalePixel:
		px := int(math.Floor(tiles * constants.PixelsPerTile))
		raw := px << 1
		if px < 0 {
			raw = (-px)<<1 | 1
		}
		if raw > 16383 {
			return Value{}, fmt.Errorf("%s %.2f does not fit a pixel short", s.Name, tiles)
		}
		return Short14(raw), nil
	default:
		return Value{}, fmt.Errorf("property %s is not a coordinate", id)
	}
}
