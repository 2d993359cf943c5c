package utils

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// StringToInt 将字符串转换为整数，出错时返回默认值0
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// Truncate 按字符截断，超出时追加省略号
func Truncate(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes]) + "..."
}
