package catalog

import "strings"

// DefaultMatchThreshold 模糊匹配接受阈值（0-100 分）。
const DefaultMatchThreshold = 50

// 常见车型关键词：OCR 与车型库完全失配时的兜底（子串包含，忽略大小写）。
var commonModelKeywords = []string{
	"LANCER", "COROLLA", "CAMRY", "CIVIC", "ACCORD", "OUTLANDER",
	"PAJERO", "CX-5", "CR-V", "RAV4", "RANGER", "EVEREST", "VF8", "VF9",
}

// 品牌默认整备质量（kg），车型库查不到时合成记录用。
var defaultBrandWeights = map[string]string{
	"MITSUBISHI": "1300",
	"TOYOTA":     "1350",
	"HONDA":      "1250",
	"MAZDA":      "1450",
	"FORD":       "1600",
	"VINFAST":    "1950",
	"HYUNDAI":    "1200",
	"KIA":        "1250",
}

const defaultWeightSpec = "1500"

// ModelMatch 单次车型匹配结果。
type ModelMatch struct {
	Model     string  // 车型库中的规范名称
	Score     float64 // 0-100
	Candidate string  // 命中的 OCR 候选文本
}

// Resolver 车型/记录解析器。对车型库和阈值是纯函数，无副作用。
type Resolver struct {
	store     *Store
	threshold float64
}

// NewResolver 创建解析器；threshold <= 0 时使用默认阈值。
func NewResolver(store *Store, threshold float64) *Resolver {
	if store == nil {
		store = NewEmptyStore()
	}
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return &Resolver{store: store, threshold: threshold}
}

// normalize 去掉空格和连字符，便于 "VF 9" / "VF9" / "CX-5" / "CX5" 互相命中。
func normalize(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}

// ResolveModel 对单个候选文本做车型模糊匹配。
// 候选先做归一化精确匹配（得 100 分并短路），否则取相似度最高的
// 车型，达到阈值才接受。
func (r *Resolver) ResolveModel(candidate string) (ModelMatch, bool) {
	models := r.store.Models()
	if len(models) == 0 {
		return ModelMatch{}, false
	}

	clean := strings.ToUpper(strings.TrimSpace(candidate))
	normalized := normalize(clean)
	if normalized == "" {
		return ModelMatch{}, false
	}

	for _, model := range models {
		if normalize(model) == normalized {
			return ModelMatch{Model: model, Score: 100, Candidate: clean}, true
		}
	}

	bestModel := ""
	bestRatio := 0.0
	for _, model := range models {
		ratio := lcsRatio(normalized, normalize(model))
		if ratio > bestRatio {
			bestRatio = ratio
			bestModel = model
		}
	}

	score := bestRatio * 100
	if bestModel == "" || score < r.threshold {
		return ModelMatch{}, false
	}
	return ModelMatch{Model: bestModel, Score: score, Candidate: clean}, true
}

// SelectModel 在全部 OCR 候选中选择最终车型：
// - 逐个候选做 ResolveModel，取全集中的最高分（同分先见者优先）
// - 没有任何候选被接受时，退回关键词包含匹配，
//   按“候选在外、关键词在内”的顺序取第一个命中
func (r *Resolver) SelectModel(candidates []string) (ModelMatch, bool) {
	var best ModelMatch
	found := false
	for _, c := range candidates {
		m, ok := r.ResolveModel(c)
		if !ok {
			continue
		}
		if !found || m.Score > best.Score {
			best = m
			found = true
		}
	}
	if found {
		return best, true
	}

	for _, c := range candidates {
		upper := strings.ToUpper(c)
		for _, kw := range commonModelKeywords {
			if strings.Contains(upper, kw) {
				return ModelMatch{Model: kw, Score: 85, Candidate: strings.TrimSpace(upper)}, true
			}
		}
	}
	return ModelMatch{}, false
}

// ResolveRecord 按品牌+车型解析车型库记录，永不失败。
// 回退链（取第一个非空结果）：
//  1. 品牌、车型都精确匹配
//  2. 品牌精确，库内车型包含输入车型（单向包含，保持既有行为）
//  3. 仅品牌匹配（取库内第一行）
//  4. 按品牌默认值合成记录
func (r *Resolver) ResolveRecord(brand, model string) Entry {
	brandClean := strings.ToUpper(strings.TrimSpace(brand))
	modelClean := strings.ToUpper(strings.TrimSpace(model))

	if r.store.Len() == 0 {
		return synthesizeEntry(brandClean, modelClean)
	}

	if modelClean != "" {
		for _, e := range r.store.Entries() {
			if e.Brand == brandClean && e.Model == modelClean {
				return e
			}
		}
		for _, e := range r.store.Entries() {
			if e.Brand == brandClean && strings.Contains(e.Model, modelClean) {
				return e
			}
		}
	}

	return r.resolveByBrandOnly(brandClean, modelClean)
}

// ResolveRecordByBrand 仅按品牌解析（外层兜底）：链中的第 3、4 步。
func (r *Resolver) ResolveRecordByBrand(brand string) Entry {
	return r.resolveByBrandOnly(strings.ToUpper(strings.TrimSpace(brand)), "")
}

func (r *Resolver) resolveByBrandOnly(brandClean, modelClean string) Entry {
	for _, e := range r.store.Entries() {
		if e.Brand == brandClean {
			return e
		}
	}
	return synthesizeEntry(brandClean, modelClean)
}

// synthesizeEntry 合成默认记录：按品牌查默认整备质量（未知品牌 1500kg），
// 尺寸用占位值，brand/model 原样回显（空则 "Unknown"）。
func synthesizeEntry(brand, model string) Entry {
	weight, ok := defaultBrandWeights[strings.ToUpper(brand)]
	if !ok {
		weight = defaultWeightSpec
	}
	if brand == "" || strings.EqualFold(brand, "unknown") {
		brand = "Unknown"
	}
	if model == "" {
		model = "Unknown"
	}
	return Entry{
		Brand:      brand,
		Model:      model,
		Year:       "2023",
		LengthMM:   "4500",
		WidthMM:    "1800",
		HeightMM:   "1500",
		KerbWeight: weight,
	}
}
