package embed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen caps the token sequence length, matching the model's training
// configuration.
const maxSeqLen = 128

// encoded holds tokenized inputs packed for ONNX inference. All slices are
// flat [batchSize * seqLen].
type encoded struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization against a vocab.txt
// vocabulary, where each line's 0-indexed line number is its token ID.
type tokenizer struct {
	tokenIDs map[string]int64
	padID    int64
	unkID    int64
	clsID    int64
	sepID    int64
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	defer f.Close()

	tokenIDs := make(map[string]int64, 32000)
	var count int64

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokenIDs[scanner.Text()] = count
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tokenizer: reading vocab: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("tokenizer: empty vocab file %s", vocabPath)
	}

	t := &tokenizer{tokenIDs: tokenIDs}
	for _, s := range []struct {
		name string
		dest *int64
	}{
		{"[PAD]", &t.padID},
		{"[UNK]", &t.unkID},
		{"[CLS]", &t.clsID},
		{"[SEP]", &t.sepID},
	} {
		id, ok := tokenIDs[s.name]
		if !ok {
			return nil, fmt.Errorf("tokenizer: vocab missing special token %s", s.name)
		}
		*s.dest = id
	}

	return t, nil
}

// encode converts one text into padded ID/mask slices of length maxSeqLen,
// wrapped in [CLS] and [SEP].
func (t *tokenizer) encode(text string) (ids, mask []int64) {
	tokens := t.wordpiece(basicTokenize(text))
	if len(tokens) > maxSeqLen-2 {
		tokens = tokens[:maxSeqLen-2]
	}

	ids = make([]int64, maxSeqLen)
	mask = make([]int64, maxSeqLen)

	ids[0] = t.clsID
	mask[0] = 1
	for i, tok := range tokens {
		id, ok := t.tokenIDs[tok]
		if !ok {
			id = t.unkID
		}
		ids[i+1] = id
		mask[i+1] = 1
	}
	ids[len(tokens)+1] = t.sepID
	mask[len(tokens)+1] = 1

	return ids, mask
}

// encodeBatch encodes multiple texts, padding each sequence to the longest
// real length in the batch rather than the full maxSeqLen.
func (t *tokenizer) encodeBatch(texts []string) encoded {
	n := len(texts)
	if n == 0 {
		return encoded{}
	}

	allIDs := make([][]int64, n)
	allMasks := make([][]int64, n)
	maxLen := int64(0)

	for i, text := range texts {
		ids, mask := t.encode(text)
		allIDs[i] = ids
		allMasks[i] = mask

		var realLen int64
		for _, m := range mask {
			realLen += m
		}
		if realLen > maxLen {
			maxLen = realLen
		}
	}

	batchSize := int64(n)
	seqLen := maxLen
	total := batchSize * seqLen

	out := encoded{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total),
		batchSize:     batchSize,
		seqLen:        seqLen,
	}
	for i := 0; i < n; i++ {
		offset := int64(i) * seqLen
		copy(out.inputIDs[offset:offset+seqLen], allIDs[i][:seqLen])
		copy(out.attentionMask[offset:offset+seqLen], allMasks[i][:seqLen])
	}
	return out
}

// wordpiece decomposes basic tokens into subword units with the greedy
// longest-match-first algorithm.
func (t *tokenizer) wordpiece(tokens []string) []string {
	var result []string
	for _, token := range tokens {
		if token == "" {
			continue
		}
		result = append(result, t.wordpieceToken(token)...)
	}
	return result
}

func (t *tokenizer) wordpieceToken(token string) []string {
	runes := []rune(token)
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}

	var subTokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := t.tokenIDs[sub]; ok {
				subTokens = append(subTokens, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{"[UNK]"}
		}
		start = end
	}
	return subTokens
}

// basicTokenize applies BERT's BasicTokenizer steps: clean, isolate CJK
// characters, lowercase, strip accents, then split on whitespace and
// punctuation.
func basicTokenize(text string) []string {
	text = cleanText(text)
	text = isolateCJK(text)
	text = strings.ToLower(text)
	text = stripAccents(text)

	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripAccents removes combining marks after NFD decomposition.
func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isolateCJK surrounds CJK ideographs with spaces so each becomes its own
// token.
func isolateCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if isCJKChar(r) {
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitOnPunctuation(word string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range word {
		if isPunctuation(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
		} else {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// Character classes below follow BERT's reference tokenizer.

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJKChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
