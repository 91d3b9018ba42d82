package model

import (
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrEmptyText = goerr.New("memory text is empty")
)

// MemoryID is assigned by the repository on insert and never reused
type MemoryID int64

func (x MemoryID) String() string {
	return strconv.FormatInt(int64(x), 10)
}

// Memory is a single remembered note with the tags generated at creation time
type Memory struct {
	ID        MemoryID  `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Tags      []string  `json:"tags"`
}

// Hit is one ranked match from the full-text index. Lower Rank is better.
type Hit struct {
	ID   MemoryID
	Rank float64
}

// MemoryIDs returns IDs of memories in the same order
func MemoryIDs(memories []*Memory) []MemoryID {
	ids := make([]MemoryID, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}
	return ids
}
