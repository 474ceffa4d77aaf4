package bson

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

// ObjectID is a 12-byte unique identifier: a 4-byte big-endian timestamp in
// seconds, 5 random bytes fixed for the lifetime of the process, and a
// 3-byte big-endian counter seeded randomly.
type ObjectID [12]byte

// NilObjectID is the all-zero id.
var NilObjectID ObjectID

var (
	oidProcess [5]byte
	oidCounter uint32
)

func init() {
	if _, err := rand.Read(oidProcess[:]); err != nil {
		panic("bson: cannot seed objectid generation: " + err.Error())
	}
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		panic("bson: cannot seed objectid counter: " + err.Error())
	}
	oidCounter = binary.BigEndian.Uint32(seed[:])
}

// NewObjectID generates an id from the current time.
func NewObjectID() ObjectID {
	return NewObjectIDFromTime(time.Now())
}

// NewObjectIDFromTime generates an id whose timestamp field is t's Unix
// seconds.
func NewObjectIDFromTime(t time.Time) ObjectID {
	var id ObjectID
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	copy(id[4:9], oidProcess[:])
	n := atomic.AddUint32(&oidCounter, 1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)
	return id
}

// ObjectIDFromHex parses a 24-character hexadecimal representation.
func ObjectIDFromHex(s string) (ObjectID, error) {
	var id ObjectID
	if len(s) != 24 {
		return id, fmt.Errorf("bson: objectid hex must be 24 characters, have %d", len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("bson: invalid objectid hex %q: %w", s, err)
	}
	return id, nil
}

// Hex returns the 24-character hexadecimal representation.
func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

// Timestamp returns the embedded creation time, truncated to seconds.
func (id ObjectID) Timestamp() time.Time {
	secs := binary.BigEndian.Uint32(id[0:4])
	return time.Unix(int64(secs), 0).UTC()
}

// IsZero reports whether the id is all zeros.
func (id ObjectID) IsZero() bool { return id == NilObjectID }

func (id ObjectID) String() string {
	return "ObjectID(" + id.Hex() + ")"
}
