package corpus

import (
	"encoding/json"
	"fmt"
	"os"
)

type fileFormat struct {
	Chats []Entry `json:"chats"`
}

// LoadFile reads a corpus stored as {"chats": [{"role": .., "content": ..}]}.
func LoadFile(path string) (Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Corpus{}, fmt.Errorf("read corpus %s: %w", path, err)
	}
	var parsed fileFormat
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Corpus{}, fmt.Errorf("invalid corpus json in %s: %w", path, err)
	}
	if len(parsed.Chats) == 0 {
		return Corpus{}, fmt.Errorf("%s: %w", path, ErrEmptyCorpus)
	}
	return Corpus{Name: path, Entries: parsed.Chats}, nil
}
