package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractOpenDocument decodes .odt and .rtf content. The format is detected from
// the bytes, not the extension.
func extractOpenDocument(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
