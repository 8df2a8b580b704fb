package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

var loaderOnce sync.Once

// Tiktoken counts tokens with an OpenAI BPE encoding. Encodings are loaded
// from the embedded offline loader, so no network access is needed.
type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{name: encoding, enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Name returns the encoding name.
func (t *Tiktoken) Name() string { return t.name }
