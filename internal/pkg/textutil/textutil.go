// Package textutil 提供文本分块、向量相似度与模型输出解析的工具函数。
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashString 计算字符串的 MD5 哈希值，用于内容变更检测。
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitText 将文本分割成重叠的块。块大小按 Unicode 字符数计算，
// 优先在空白字符处断开，找不到空白时硬切。
// 空文本返回 nil。参数非法时返回错误。
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// 在块的后半段回退寻找空白字符，避免切断单词。
		// 回退下界不低于 start+overlap，保证相邻块精确重叠 overlap 个字符。
		floor := start + chunkSize/2
		if floor < start+overlap {
			floor = start + overlap
		}
		cut := end
		for j := end; j > floor; j-- {
			if unicode.IsSpace(runes[j-1]) {
				cut = j
				break
			}
		}

		chunks = append(chunks, string(runes[start:cut]))
		start = cut - overlap
	}

	return chunks, nil
}

// ExtractJSONArray 从模型输出中提取首个 JSON 数组的原始文本。
// 模型回复常带有解释性前后缀，这里取第一个 '[' 到最后一个 ']' 之间的内容。
func ExtractJSONArray(s string) (string, error) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON array found in text")
	}
	return s[start : end+1], nil
}

// ExtractJSONObject 从模型输出中提取首个 JSON 对象的原始文本。
func ExtractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found in text")
	}
	return s[start : end+1], nil
}
