package parking

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultWeightKg 重量解析失败时的兜底值。
const DefaultWeightKg = 1500

var nonWeightChars = regexp.MustCompile(`[^0-9-]`)

// ParseWeight 把重量字符串解析为整数 kg，永不失败：
// - "min-max" 区间取整数平均（向下取整）
// - 单值直接解析
// - 空串 / "Unknown" / 解析失败一律返回 DefaultWeightKg
func ParseWeight(spec string) int {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "unknown") {
		return DefaultWeightKg
	}

	cleaned := nonWeightChars.ReplaceAllString(spec, "")
	if cleaned == "" {
		return DefaultWeightKg
	}

	if strings.Contains(cleaned, "-") {
		parts := strings.SplitN(cleaned, "-", 2)
		minW, err1 := strconv.Atoi(parts[0])
		maxW, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return DefaultWeightKg
		}
		return (minW + maxW) / 2
	}

	w, err := strconv.Atoi(cleaned)
	if err != nil {
		return DefaultWeightKg
	}
	return w
}

// ClassifyFloor 按重量分层：
// <1000 -> 1 层；1000..2000（含边界）-> 2 层；>2000 -> 3 层。
func ClassifyFloor(weightKg int) int {
	switch {
	case weightKg < 1000:
		return 1
	case weightKg <= 2000:
		return 2
	default:
		return 3
	}
}
