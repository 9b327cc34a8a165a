package parking

import "time"

// Status 车辆状态枚举（持久化为字符串）。
type Status string

const (
	StatusEntering Status = "entering" // 入场流程中（仅内存过渡态，提交后即为 parked）
	StatusParked   Status = "parked"   // 在场
	StatusExited   Status = "exited"   // 已离场（行保留作为历史）
	StatusDeleted  Status = "deleted"  // 管理删除（行被物理删除，终态仅用于状态机校验）
)

// Vehicle 车辆 GORM 模型。
// 一辆 parked 状态的车精确占用一个车位（1:1）；离场后车位引用
// 被清空，行保留作为历史记录。
type Vehicle struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	// 车牌可能重复：未识别出车牌时生成 UNK_ 前缀占位符
	LicensePlate string `gorm:"index;size:32;not null"`

	// 识别原始值 / 解析修正值
	BrandRaw       string `gorm:"size:64"`
	BrandCorrected string `gorm:"size:64"`
	ModelRaw       string `gorm:"size:64"`
	ModelCorrected string `gorm:"size:64"`

	Weight        int    `gorm:"not null"` // 解析后的整备质量（kg）
	DetectedFloor int    `gorm:"not null"` // 最终分配楼层（可能因跨层回退而非重量推导层）
	AssignedSlot  string `gorm:"size:8"`   // 车位编码，如 "I.A"
	ImagePath     string `gorm:"size:255"` // 入场图片
	Status        Status `gorm:"type:varchar(16);index;not null"`

	EntryTime time.Time  `gorm:"index;not null"`
	ExitTime  *time.Time // 离场时间
}

// ParkingSlot 车位 GORM 模型。车位总量在初始化时固定
// （3 层 × 每层 20 个），运行期不增减。
// 不变量：IsOccupied == (VehicleID != nil)。
type ParkingSlot struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	SlotCode   string `gorm:"uniqueIndex;size:8;not null"` // "<层罗马数字>.<区段字母>"
	Floor      int    `gorm:"index;not null"`              // 1..3
	IsOccupied bool   `gorm:"not null;default:false"`
	VehicleID  *uint  `gorm:"index"`
}

// 车位布局（当前设计不支持运行期调整）。
const (
	FloorCount    = 3
	SlotsPerFloor = 20
)

var floorRomans = [...]string{"I", "II", "III"}

// SlotCode 生成车位编码：层罗马数字 + '.' + 区段字母（A 起）。
func SlotCode(floor, index int) string {
	return floorRomans[floor-1] + "." + string(rune('A'+index))
}
