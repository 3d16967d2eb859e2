package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/credlock/credlock/internal"
)

const sessionFormatVersionCurrent = 1

// Fixed-width fields come first so the Lua scripts in store.go can read
// generation, revocation, and expiry at constant offsets. The variable
// length user ID trails the record. Go offsets (Lua is 1-based):
//
//	0       version
//	1..16   family ID (raw 16 bytes)
//	17..32  session ID (raw 16 bytes)
//	33..40  generation, uint64 big-endian
//	41      revoked flag
//	42..49  created_at, unix seconds
//	50..57  expires_at, unix seconds
//	58      user ID length
//	59..    user ID bytes
const (
	offGeneration = 33
	offRevoked    = 41
	offExpiresAt  = 50
	offUserLen    = 58
	minBlobSize   = 59
)

func Encode(s *Session) ([]byte, error) {
	fid, err := internal.ParseID(s.FamilyID)
	if err != nil {
		return nil, errors.New("invalid family id")
	}
	sid, err := internal.ParseID(s.SessionID)
	if err != nil {
		return nil, errors.New("invalid session id")
	}
	if len(s.UserID) == 0 || len(s.UserID) > 255 {
		return nil, errors.New("invalid userID length")
	}

	var buf bytes.Buffer
	buf.Grow(minBlobSize + len(s.UserID))

	buf.WriteByte(sessionFormatVersionCurrent)
	buf.Write(fid.Bytes())
	buf.Write(sid.Bytes())

	if err := binary.Write(&buf, binary.BigEndian, s.Generation); err != nil {
		return nil, err
	}

	if s.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Session, error) {
	if len(data) < minBlobSize {
		return nil, errors.New("session blob too short")
	}

	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	var fid, sid internal.ID
	if _, err := io.ReadFull(reader, fid[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, sid[:]); err != nil {
		return nil, err
	}
	s.FamilyID = fid.String()
	s.SessionID = sid.String()

	if err := binary.Read(reader, binary.BigEndian, &s.Generation); err != nil {
		return nil, err
	}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Revoked = revoked == 1

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	userLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if userLen == 0 {
		return nil, errors.New("empty userID")
	}
	userID := make([]byte, userLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, err
	}
	s.UserID = string(userID)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session blob")
	}

	return s, nil
}
