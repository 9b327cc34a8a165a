package parking

import (
	"context"
	"time"
)

// OccupiedSlot 楼层占用明细（含占用车辆摘要）。
type OccupiedSlot struct {
	SlotCode     string    `json:"slot_code"`
	LicensePlate string    `json:"license_plate"`
	Brand        string    `json:"brand_corrected"`
	Model        string    `json:"model_corrected"`
	Weight       int       `json:"weight"`
	EntryTime    time.Time `json:"entry_time"`
}

// FloorStatus 单层占用状态。
type FloorStatus struct {
	Total         int            `json:"total"`
	Occupied      int            `json:"occupied"`
	Available     int            `json:"available"`
	OccupiedSlots []OccupiedSlot `json:"occupied_slots"`
}

// SystemStats 系统统计。
type SystemStats struct {
	TotalProcessed int64 `json:"total_processed"`
	CurrentParked  int64 `json:"current_parked"`
	AvailableSlots int64 `json:"available_slots"`
	TodayEntries   int64 `json:"today_entries"`
}

// Snapshot 全量导出。
type Snapshot struct {
	ExportTime time.Time       `json:"export_time"`
	Summary    SnapshotSummary `json:"summary"`
	Vehicles   []Vehicle       `json:"vehicles"`
	Slots      []ParkingSlot   `json:"parking_slots"`
}

// SnapshotSummary 导出摘要。
type SnapshotSummary struct {
	TotalVehicles  int64 `json:"total_vehicles"`
	ParkedVehicles int64 `json:"parked_vehicles"`
	AvailableSlots int64 `json:"available_slots"`
	TotalSlots     int64 `json:"total_slots"`
}

// Store 车辆/车位持久化接口。车位表与车辆表是仅有的可变共享
// 资源，所有跨表原子性都收敛在这一层实现。
type Store interface {
	// InitSlots 初始化固定车位目录（幂等：数量匹配时保留现有占用状态）。
	InitSlots(ctx context.Context, floors, perFloor int) error

	// FindAvailableSlot 返回指定楼层一个空闲车位（最小 id 优先）；
	// 没有空位时返回 (nil, nil)。
	FindAvailableSlot(ctx context.Context, floor int) (*ParkingSlot, error)
	// FindAnySlot 返回任意楼层一个空闲车位；没有空位时返回 (nil, nil)。
	FindAnySlot(ctx context.Context) (*ParkingSlot, error)

	// CreateVehicleAndReserve 原子提交：插入车辆行并把车位从空闲置为
	// 占用。读后写竞争失败时返回 ErrSlotOccupied，且不留下任何部分状态。
	CreateVehicleAndReserve(ctx context.Context, v *Vehicle, slotID uint) error

	// ReleaseSlot 清空车位占用；编码不存在返回 ErrSlotNotFound，
	// 释放已空闲的车位是幂等无操作。
	ReleaseSlot(ctx context.Context, slotCode string) error

	// FindParkedByPlate 按车牌查找在场车辆（重复车牌取最近入场）；
	// 无匹配返回 ErrVehicleNotFound。
	FindParkedByPlate(ctx context.Context, plate string) (*Vehicle, error)
	// CompleteExit 原子提交离场：保存车辆行并释放其车位。
	CompleteExit(ctx context.Context, v *Vehicle) error

	GetVehicle(ctx context.Context, id uint) (*Vehicle, error)
	// DeleteVehicle 物理删除车辆行并释放其车位（任意状态）；
	// id 未知返回 ErrVehicleNotFound。
	DeleteVehicle(ctx context.Context, id uint) error

	ListRecent(ctx context.Context, n int) ([]Vehicle, error)
	ListAllParked(ctx context.Context) ([]Vehicle, error)
	AggregateStatus(ctx context.Context) (map[int]FloorStatus, error)
	Statistics(ctx context.Context) (*SystemStats, error)

	// ClearHistory 清除历史（已离场的车辆行）；在场车辆与其占用不受影响。
	ClearHistory(ctx context.Context) error
	// ResetSystem 清空全部车辆行并把所有车位置为空闲。
	ResetSystem(ctx context.Context) error

	ExportSnapshot(ctx context.Context) (*Snapshot, error)
}
