package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"hrprag/internal/domain"
	"hrprag/internal/port"
)

// DefaultEncoding is the BPE used by OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

// BPE ranks ship inside the binary so ingestion works offline.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenTokenizer counts tokens the way OpenAI models do.
type TiktokenTokenizer struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktokenTokenizer accepts either an encoding name ("cl100k_base")
// or a model name ("gpt-3.5-turbo").
func NewTiktokenTokenizer(name string) (*TiktokenTokenizer, error) {
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		enc, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, fmt.Errorf("%w: tokenizer %q: %v", domain.ErrConfig, name, err)
		}
	}
	return &TiktokenTokenizer{enc: enc, name: name}, nil
}

func (t *TiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *TiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

func (t *TiktokenTokenizer) Name() string {
	return t.name
}

// New builds the tokenizer named in configuration. "word" selects the
// vocabulary-free WordTokenizer; anything else is handed to tiktoken.
func New(name string) (port.Tokenizer, error) {
	if name == "word" {
		return NewWordTokenizer(), nil
	}
	return NewTiktokenTokenizer(name)
}
