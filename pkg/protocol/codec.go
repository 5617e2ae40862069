package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeClient serializes a client message.
func EncodeClient(msg ClientMessage) []byte {
	switch m := msg.(type) {
	case Connect:
		buf := make([]byte, 0, ConnectSize)
		buf = append(buf, TagConnect)
		return binary.BigEndian.AppendUint16(buf, m.SelfPort)
	case Control:
		buf := make([]byte, 0, ControlSize)
		buf = append(buf, TagControl)
		buf = binary.BigEndian.AppendUint16(buf, m.SelfPort)
		buf = append(buf, m.Secret[:]...)
		buf = appendFloat(buf, m.TrackAccelTarget[0])
		buf = appendFloat(buf, m.TrackAccelTarget[1])
		buf = appendFloat(buf, m.TurretAccelTarget)
		if m.Shoot {
			return append(buf, 1)
		}
		return append(buf, 0)
	}
	panic(fmt.Sprintf("protocol: unexpected client message %T", msg))
}

// DecodeClient parses a client datagram. Bytes past the fixed layout are ignored.
func DecodeClient(data []byte) (ClientMessage, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmpty}
	}
	tag := data[0]
	switch tag {
	case TagConnect:
		if len(data) < ConnectSize {
			return nil, truncated(tag, ConnectSize, len(data))
		}
		return Connect{SelfPort: binary.BigEndian.Uint16(data[1:3])}, nil
	case TagControl:
		if len(data) < ControlSize {
			return nil, truncated(tag, ControlSize, len(data))
		}
		msg := Control{
			SelfPort: binary.BigEndian.Uint16(data[1:3]),
			TrackAccelTarget: [2]float32{
				readFloat(data[19:23]),
				readFloat(data[23:27]),
			},
			TurretAccelTarget: readFloat(data[27:31]),
			Shoot:             data[31] != 0,
		}
		copy(msg.Secret[:], data[3:19])
		return msg, nil
	default:
		return nil, &DecodeError{Tag: tag, Have: len(data), Err: ErrUnknownTag}
	}
}

// EncodeServer serializes a server message. It fails only when a list holds
// more entries than a single count byte can describe.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	switch m := msg.(type) {
	case MapChange:
		if len(m.Walls) > MaxListEntries {
			return nil, fmt.Errorf("map change with %d walls: %w", len(m.Walls), ErrTooManyEntries)
		}
		buf := make([]byte, 0, 1+SecretSize+1+len(m.Walls)*WallSize)
		buf = append(buf, TagMapChange)
		buf = append(buf, m.Secret[:]...)
		buf = append(buf, byte(len(m.Walls)))
		for _, w := range m.Walls {
			buf = appendPair(buf, w.Origin)
			buf = appendPair(buf, w.DirectionLength)
		}
		return buf, nil
	case State:
		if len(m.Tanks) > MaxListEntries {
			return nil, fmt.Errorf("state with %d tanks: %w", len(m.Tanks), ErrTooManyEntries)
		}
		if len(m.Bullets) > MaxListEntries {
			return nil, fmt.Errorf("state with %d bullets: %w", len(m.Bullets), ErrTooManyEntries)
		}
		buf := make([]byte, 0, StateSize(len(m.Tanks), len(m.Bullets)))
		buf = append(buf, TagState)
		buf = append(buf, m.Secret[:]...)
		buf = append(buf, byte(len(m.Tanks)))
		for _, t := range m.Tanks {
			buf = appendPair(buf, t.Position)
			buf = appendPair(buf, t.TankDirection)
			buf = appendPair(buf, t.TurretDirection)
		}
		buf = append(buf, byte(len(m.Bullets)))
		for _, b := range m.Bullets {
			buf = appendPair(buf, b.Position)
			buf = appendPair(buf, b.Direction)
		}
		return buf, nil
	case Disconnected:
		return []byte{TagDisconnected}, nil
	}
	return nil, fmt.Errorf("protocol: unexpected server message %T", msg)
}

// StateSize returns the encoded length of a State message.
func StateSize(tanks, bullets int) int {
	return 1 + SecretSize + 1 + tanks*TankSize + 1 + bullets*BulletSize
}

// DecodeServer parses a server datagram. Empty lists decode as nil slices.
func DecodeServer(data []byte) (ServerMessage, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: ErrEmpty}
	}
	tag := data[0]
	switch tag {
	case TagMapChange:
		return decodeMapChange(data)
	case TagState:
		return decodeState(data)
	case TagDisconnected:
		return Disconnected{}, nil
	default:
		return nil, &DecodeError{Tag: tag, Have: len(data), Err: ErrUnknownTag}
	}
}

func decodeMapChange(data []byte) (ServerMessage, error) {
	const header = 1 + SecretSize + 1
	if len(data) < header {
		return nil, truncated(TagMapChange, header, len(data))
	}
	msg := MapChange{}
	copy(msg.Secret[:], data[1:17])
	count := int(data[17])
	need := header + count*WallSize
	if len(data) < need {
		return nil, truncated(TagMapChange, need, len(data))
	}
	if count > 0 {
		msg.Walls = make([]Wall, count)
	}
	for i := range msg.Walls {
		at := header + i*WallSize
		msg.Walls[i] = Wall{
			Origin:          readPair(data[at:]),
			DirectionLength: readPair(data[at+8:]),
		}
	}
	return msg, nil
}

func decodeState(data []byte) (ServerMessage, error) {
	const header = 1 + SecretSize + 1
	if len(data) < header {
		return nil, truncated(TagState, header, len(data))
	}
	msg := State{}
	copy(msg.Secret[:], data[1:17])
	tankCount := int(data[17])
	bulletCountAt := header + tankCount*TankSize
	if len(data) < bulletCountAt+1 {
		return nil, truncated(TagState, bulletCountAt+1, len(data))
	}
	bulletCount := int(data[bulletCountAt])
	need := StateSize(tankCount, bulletCount)
	if len(data) < need {
		return nil, truncated(TagState, need, len(data))
	}

	if tankCount > 0 {
		msg.Tanks = make([]Tank, tankCount)
	}
	for i := range msg.Tanks {
		at := header + i*TankSize
		msg.Tanks[i] = Tank{
			Position:        readPair(data[at:]),
			TankDirection:   readPair(data[at+8:]),
			TurretDirection: readPair(data[at+16:]),
		}
	}
	if bulletCount > 0 {
		msg.Bullets = make([]Bullet, bulletCount)
	}
	for i := range msg.Bullets {
		at := bulletCountAt + 1 + i*BulletSize
		msg.Bullets[i] = Bullet{
			Position:  readPair(data[at:]),
			Direction: readPair(data[at+8:]),
		}
	}
	return msg, nil
}

func appendFloat(buf []byte, f float32) []byte {
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(f))
}

func appendPair(buf []byte, p [2]float32) []byte {
	return appendFloat(appendFloat(buf, p[0]), p[1])
}

func readFloat(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

func readPair(b []byte) [2]float32 {
	return [2]float32{readFloat(b[0:4]), readFloat(b[4:8])}
}
