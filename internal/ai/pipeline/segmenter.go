package pipeline

import (
	"strings"
	"unicode"
)

const DefaultSegmentMaxRunes = 60

// SentenceSegmenter 把 LLM 增量文本切分为适合逐段合成的句子。
// 句末标点后切分，英文句点需后跟空白；超过 maxRunes 时强制切分。
type SentenceSegmenter struct {
	maxRunes int
	buf      []rune
}

func NewSentenceSegmenter(maxRunes int) *SentenceSegmenter {
	if maxRunes <= 0 {
		maxRunes = DefaultSegmentMaxRunes
	}
	return &SentenceSegmenter{maxRunes: maxRunes}
}

// Push 追加文本并返回已完成的段
func (s *SentenceSegmenter) Push(text string) []string {
	s.buf = append(s.buf, []rune(text)...)
	var out []string
	for {
		end := s.cut()
		if end == 0 {
			return out
		}
		seg := strings.TrimSpace(string(s.buf[:end]))
		s.buf = s.buf[end:]
		if seg != "" {
			out = append(out, seg)
		}
	}
}

// Flush 返回剩余文本
func (s *SentenceSegmenter) Flush() string {
	seg := strings.TrimSpace(string(s.buf))
	s.buf = s.buf[:0]
	return seg
}

func (s *SentenceSegmenter) cut() int {
	for i, r := range s.buf {
		if i >= s.maxRunes {
			return s.maxRunes
		}
		switch {
		case isTerminator(r):
			return s.absorbClosers(i + 1)
		case r == '.':
			// 末尾的句点可能是小数点，等待后续文本
			if i+1 < len(s.buf) && unicode.IsSpace(s.buf[i+1]) {
				return s.absorbClosers(i + 1)
			}
		}
	}
	if len(s.buf) >= s.maxRunes {
		return s.maxRunes
	}
	return 0
}

func (s *SentenceSegmenter) absorbClosers(end int) int {
	for end < len(s.buf) && isCloser(s.buf[end]) {
		end++
	}
	return end
}

func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '；', ';', '\n':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '”', '’', '"', '\'', ')', '）', '」', '』':
		return true
	}
	return false
}
