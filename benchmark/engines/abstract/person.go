package engine

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Table is the name of the single table, bucket or key prefix every backend stores
// its records under.
const Table = "person"

// Person is the record benchmarked uniformly across backends.
type Person struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (p Person) String() string {
	return fmt.Sprintf("Person{id=%d name=%q age=%d}", p.ID, p.Name, p.Age)
}

// ErrClosed is returned by every contract method after Close.
var ErrClosed = errors.New("backend is closed")

// EncodeID returns the 8-byte key suffix for an id. The sign bit is flipped so that
// byte order matches numeric order, negative ids included.
func EncodeID(id int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id)^(1<<63))
	return buf[:]
}

// DecodeID is the inverse of EncodeID.
func DecodeID(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("decode id: want 8 bytes, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63)), nil
}

// Key returns prefix + EncodeID(id).
func Key(prefix []byte, id int64) []byte {
	key := make([]byte, 0, len(prefix)+8)
	key = append(key, prefix...)
	return append(key, EncodeID(id)...)
}

// PrefixEnd returns the smallest key greater than every key starting with prefix.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func EncodePerson(p Person) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePerson(data []byte) (Person, error) {
	var p Person
	if err := json.Unmarshal(data, &p); err != nil {
		return Person{}, fmt.Errorf("decode person: %w", err)
	}
	return p, nil
}
