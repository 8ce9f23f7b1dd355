package symptoms

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadKeywords reads the health keyword list used by the relevance filter.
// A missing file is not an error: keyword matching is simply disabled.
func LoadKeywords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read health keywords: %w", err)
	}

	var doc struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse health keywords: %w", err)
	}

	keywords := make([]string, 0, len(doc.Keywords))
	for _, k := range doc.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords, nil
}
