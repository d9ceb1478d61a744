package redistore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	credcore "github.com/credware/credcore"
)

const (
	sessionFormatVersionCurrent = 1
	tokenFormatVersionCurrent   = 1

	maxFieldLen = 65535
)

var (
	// ErrCorruptRecord is returned when a stored blob cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt record")
)

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > maxFieldLen {
		return errors.New("field too long")
	}
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(len(s)))
	buf.Write(lenBytes[:])
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var lenBytes [2]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return "", ErrCorruptRecord
	}
	n := binary.BigEndian.Uint16(lenBytes[:])
	if n == 0 {
		return "", nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", ErrCorruptRecord
	}
	return string(out), nil
}

func writeTime(buf *bytes.Buffer, t time.Time) {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(t.Unix()))
	buf.Write(ts[:])
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var ts [8]byte
	if _, err := io.ReadFull(r, ts[:]); err != nil {
		return time.Time{}, ErrCorruptRecord
	}
	sec := int64(binary.BigEndian.Uint64(ts[:]))
	if sec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sec, 0).UTC(), nil
}

func encodeSession(s credcore.Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersionCurrent)

	for _, field := range []string{
		s.ID, s.OwnerID, s.RefreshHash, s.DeviceName, s.DeviceInfo, s.IPAddress,
	} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}
	writeTime(&buf, s.ExpiresAt)
	writeTime(&buf, s.CreatedAt)

	return buf.Bytes(), nil
}

func decodeSession(data []byte) (*credcore.Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorruptRecord
	}
	if version != sessionFormatVersionCurrent {
		return nil, ErrCorruptRecord
	}

	s := &credcore.Session{}
	fields := []*string{
		&s.ID, &s.OwnerID, &s.RefreshHash, &s.DeviceName, &s.DeviceInfo, &s.IPAddress,
	}
	for _, field := range fields {
		value, err := readString(r)
		if err != nil {
			return nil, err
		}
		*field = value
	}
	if s.ExpiresAt, err = readTime(r); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = readTime(r); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeToken(t credcore.PurposeToken) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tokenFormatVersionCurrent)
	buf.WriteByte(byte(t.Purpose))

	for _, field := range []string{t.Hash, t.OwnerID} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}
	writeTime(&buf, t.ExpiresAt)
	writeTime(&buf, t.CreatedAt)

	return buf.Bytes(), nil
}

func decodeToken(data []byte) (*credcore.PurposeToken, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorruptRecord
	}
	if version != tokenFormatVersionCurrent {
		return nil, ErrCorruptRecord
	}

	purpose, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorruptRecord
	}

	t := &credcore.PurposeToken{Purpose: credcore.Purpose(purpose)}
	if t.Hash, err = readString(r); err != nil {
		return nil, err
	}
	if t.OwnerID, err = readString(r); err != nil {
		return nil, err
	}
	if t.ExpiresAt, err = readTime(r); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = readTime(r); err != nil {
		return nil, err
	}
	return t, nil
}
