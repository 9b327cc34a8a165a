package catalog

import "testing"

func testStore() *Store {
	return NewStore([]Entry{
		{Brand: "Toyota", Model: "Corolla", KerbWeight: "1350"},
		{Brand: "Toyota", Model: "Camry", KerbWeight: "1550"},
		{Brand: "Vinfast", Model: "VF 9", KerbWeight: "2600-2866"},
		{Brand: "Mitsubishi", Model: "Outlander", KerbWeight: "1530"},
		{Brand: "Mitsubishi", Model: "Outlander Sport", KerbWeight: "1490"},
	})
}

func TestResolveModelExactForAllCatalogModels(t *testing.T) {
	store := testStore()
	r := NewResolver(store, 0)

	for _, model := range store.Models() {
		m, ok := r.ResolveModel(model)
		if !ok {
			t.Fatalf("expected match for catalog model %q", model)
		}
		if m.Model != model || m.Score != 100 {
			t.Fatalf("expected %q score 100, got %q score %.1f", model, m.Model, m.Score)
		}
	}
}

func TestResolveModelNormalizedExact(t *testing.T) {
	r := NewResolver(testStore(), 0)

	// "VF9" 与库中 "VF 9" 归一化后相同
	m, ok := r.ResolveModel("VF9")
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Model != "VF 9" || m.Score != 100 {
		t.Fatalf("expected VF 9 score 100, got %q score %.1f", m.Model, m.Score)
	}
}

func TestResolveModelFuzzyAndThreshold(t *testing.T) {
	r := NewResolver(testStore(), 0)

	m, ok := r.ResolveModel("COROLA") // 少一个 L
	if !ok {
		t.Fatalf("expected fuzzy match")
	}
	if m.Model != "COROLLA" {
		t.Fatalf("expected COROLLA, got %q", m.Model)
	}
	if m.Score >= 100 || m.Score < DefaultMatchThreshold {
		t.Fatalf("unexpected score %.1f", m.Score)
	}

	if _, ok := r.ResolveModel("ZZZZZZZZZZZZ"); ok {
		t.Fatalf("expected no match below threshold")
	}
}

func TestSelectModelPicksBestAcrossCandidates(t *testing.T) {
	r := NewResolver(testStore(), 0)

	m, ok := r.SelectModel([]string{"VIN EASTS", "VF9"})
	if !ok {
		t.Fatalf("expected match")
	}
	if m.Model != "VF 9" || m.Score != 100 {
		t.Fatalf("expected VF 9 score 100, got %q score %.1f", m.Model, m.Score)
	}
	if m.Candidate != "VF9" {
		t.Fatalf("expected winning candidate VF9, got %q", m.Candidate)
	}
}

func TestSelectModelKeywordFallback(t *testing.T) {
	// 空库：模糊匹配必然失败，走关键词兜底
	r := NewResolver(NewEmptyStore(), 0)

	m, ok := r.SelectModel([]string{"51A12345", "FORD RANGER XLT"})
	if !ok {
		t.Fatalf("expected keyword fallback match")
	}
	if m.Model != "RANGER" {
		t.Fatalf("expected RANGER, got %q", m.Model)
	}

	if _, ok := r.SelectModel([]string{"NOTHING HERE"}); ok {
		t.Fatalf("expected no match")
	}
}

func TestResolveRecordFallbackChain(t *testing.T) {
	r := NewResolver(testStore(), 0)

	// 1. 精确匹配
	e := r.ResolveRecord("Toyota", "Corolla")
	if e.Model != "COROLLA" || e.KerbWeight != "1350" {
		t.Fatalf("exact match failed: %#v", e)
	}

	// 2. 部分匹配：库内车型包含输入（单向）
	e = r.ResolveRecord("Mitsubishi", "OUTLANDER")
	if e.Model != "OUTLANDER" {
		t.Fatalf("expected first qualifying row, got %q", e.Model)
	}

	// 3. 仅品牌：取库内该品牌第一行
	e = r.ResolveRecord("Toyota", "NO SUCH MODEL AT ALL")
	if e.Brand != "TOYOTA" || e.Model != "COROLLA" {
		t.Fatalf("brand-only fallback failed: %#v", e)
	}

	// 4. 合成默认记录：品牌默认重量表
	e = r.ResolveRecord("Ford", "Transit")
	if e.KerbWeight != "1600" {
		t.Fatalf("expected Ford default weight 1600, got %q", e.KerbWeight)
	}
	if e.Brand != "FORD" || e.Model != "TRANSIT" {
		t.Fatalf("expected echoed brand/model, got %#v", e)
	}

	// 未知品牌默认 1500
	e = r.ResolveRecord("Nonexistent", "")
	if e.KerbWeight != "1500" || e.Model != "Unknown" {
		t.Fatalf("unknown brand default failed: %#v", e)
	}
}

func TestResolveRecordEmptyStore(t *testing.T) {
	r := NewResolver(NewEmptyStore(), 0)

	e := r.ResolveRecord("Vinfast", "VF 8")
	if e.KerbWeight != "1950" {
		t.Fatalf("expected Vinfast default weight, got %q", e.KerbWeight)
	}

	e = r.ResolveRecordByBrand("unknown")
	if e.Brand != "Unknown" || e.KerbWeight != "1500" {
		t.Fatalf("expected synthesized unknown entry, got %#v", e)
	}
}
