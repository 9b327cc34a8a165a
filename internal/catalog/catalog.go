package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Entry 车型库一条记录（加载后不可变）。
// Brand/Model 在加载时统一转为大写；KerbWeight 可能是单值、
// "min-max" 区间或空串，解析交给 parking.ParseWeight。
type Entry struct {
	Brand      string
	Model      string
	Year       string
	LengthMM   string
	WidthMM    string
	HeightMM   string
	KerbWeight string
}

// Store 只读车型库。进程启动时加载一次，之后各请求无锁共享。
// brand+model 不要求唯一（同车型多个配置），查找按库内顺序取第一条。
type Store struct {
	entries []Entry
	models  []string // 去重后的 model 列表，保持首次出现顺序
}

// NewStore 规范化并建立索引。
func NewStore(entries []Entry) *Store {
	s := &Store{entries: make([]Entry, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e.Brand = strings.ToUpper(strings.TrimSpace(e.Brand))
		e.Model = strings.ToUpper(strings.TrimSpace(e.Model))
		s.entries = append(s.entries, e)
		if e.Model == "" {
			continue
		}
		if _, ok := seen[e.Model]; !ok {
			seen[e.Model] = struct{}{}
			s.models = append(s.models, e.Model)
		}
	}
	return s
}

// NewEmptyStore 空车型库（加载失败时的降级，全部解析走默认值路径）。
func NewEmptyStore() *Store {
	return &Store{}
}

func (s *Store) Entries() []Entry { return s.entries }
func (s *Store) Models() []string { return s.models }
func (s *Store) Len() int         { return len(s.entries) }

// 车型库表头（与原始数据源一致）。
const (
	colBrand      = "Brand"
	colModel      = "Model"
	colYear       = "Year"
	colLength     = "Length (mm)"
	colWidth      = "Width (mm)"
	colHeight     = "Height (mm)"
	colKerbWeight = "Kerb Weight (kg)"
)

// LoadFile 按扩展名加载车型库（.csv 分号分隔，或 .xlsx）。
func LoadFile(path string) (*Store, error) {
	var (
		entries []Entry
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		entries, err = loadXLSX(path)
	default:
		entries, err = loadCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(entries), nil
}

func loadCSV(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog csv: %w", err)
	}
	return rowsToEntries(rows)
}

func loadXLSX(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("catalog xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog xlsx rows: %w", err)
	}
	return rowsToEntries(rows)
}

// rowsToEntries 按表头列名取值，列顺序无关。
func rowsToEntries(rows [][]string) ([]Entry, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(name)] = i
	}
	if _, ok := idx[colBrand]; !ok {
		return nil, fmt.Errorf("catalog missing column %q", colBrand)
	}
	if _, ok := idx[colModel]; !ok {
		return nil, fmt.Errorf("catalog missing column %q", colModel)
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entries := make([]Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		e := Entry{
			Brand:      cell(row, colBrand),
			Model:      cell(row, colModel),
			Year:       cell(row, colYear),
			LengthMM:   cell(row, colLength),
			WidthMM:    cell(row, colWidth),
			HeightMM:   cell(row, colHeight),
			KerbWeight: cell(row, colKerbWeight),
		}
		if e.Brand == "" && e.Model == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
