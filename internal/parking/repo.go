package parking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repo 基于 gorm 的 Store 实现。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// InitSlots 初始化车位目录。已存在且数量匹配时保留现有占用状态，
// 否则重建（仅发生在布局变更的部署时点）。
func (r *Repo) InitSlots(ctx context.Context, floors, perFloor int) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}

	var count int64
	if err := db.Model(&ParkingSlot{}).Count(&count).Error; err != nil {
		return err
	}
	if count == int64(floors*perFloor) {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ParkingSlot{}).Error; err != nil {
			return err
		}
		slots := make([]ParkingSlot, 0, floors*perFloor)
		for floor := 1; floor <= floors; floor++ {
			for i := 0; i < perFloor; i++ {
				slots = append(slots, ParkingSlot{
					SlotCode: SlotCode(floor, i),
					Floor:    floor,
				})
			}
		}
		return tx.Create(&slots).Error
	})
}

func (r *Repo) FindAvailableSlot(ctx context.Context, floor int) (*ParkingSlot, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var slot ParkingSlot
	err := db.Where("floor = ? AND is_occupied = ?", floor, false).Order("id").First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *Repo) FindAnySlot(ctx context.Context) (*ParkingSlot, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var slot ParkingSlot
	err := db.Where("is_occupied = ?", false).Order("id").First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// CreateVehicleAndReserve 在一个事务里插入车辆行并占用车位。
// 占用走条件更新（is_occupied = 0 守卫），并发竞争输掉时
// RowsAffected 为 0，整个事务回滚，返回 ErrSlotOccupied。
func (r *Repo) CreateVehicleAndReserve(ctx context.Context, v *Vehicle, slotID uint) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return err
		}
		res := tx.Model(&ParkingSlot{}).
			Where("id = ? AND is_occupied = ?", slotID, false).
			Updates(map[string]interface{}{"is_occupied": true, "vehicle_id": v.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSlotOccupied
		}
		return nil
	})
}

func (r *Repo) ReleaseSlot(ctx context.Context, slotCode string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}

	var slot ParkingSlot
	err := db.Where("slot_code = ?", slotCode).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSlotNotFound
	}
	if err != nil {
		return err
	}

	// 释放已空闲车位是无操作（幂等）
	return db.Model(&ParkingSlot{}).
		Where("slot_code = ?", slotCode).
		Updates(map[string]interface{}{"is_occupied": false, "vehicle_id": nil}).Error
}

// FindParkedByPlate 重复车牌（UNK_ 占位或重复入场）按最近入场优先。
func (r *Repo) FindParkedByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	err := db.Where("license_plate = ? AND status = ?", plate, StatusParked).
		Order("entry_time DESC, id DESC").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) CompleteExit(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(v).Error; err != nil {
			return err
		}
		if v.AssignedSlot == "" {
			return nil
		}
		return tx.Model(&ParkingSlot{}).
			Where("slot_code = ?", v.AssignedSlot).
			Updates(map[string]interface{}{"is_occupied": false, "vehicle_id": nil}).Error
	})
}

func (r *Repo) GetVehicle(ctx context.Context, id uint) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	err := db.Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVehicle 删除行的同时显式清掉其车位占用，避免车位引用悬空。
func (r *Repo) DeleteVehicle(ctx context.Context, id uint) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var v Vehicle
		err := tx.Where("id = ?", id).First(&v).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVehicleNotFound
		}
		if err != nil {
			return err
		}
		if v.AssignedSlot != "" {
			if err := tx.Model(&ParkingSlot{}).
				Where("slot_code = ?", v.AssignedSlot).
				Updates(map[string]interface{}{"is_occupied": false, "vehicle_id": nil}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Vehicle{}, v.ID).Error
	})
}

func (r *Repo) ListRecent(ctx context.Context, n int) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if n <= 0 {
		n = 10
	}
	var vehicles []Vehicle
	if err := db.Order("entry_time DESC, id DESC").Limit(n).Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) ListAllParked(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := db.Where("status = ?", StatusParked).
		Order("entry_time DESC, id DESC").Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) AggregateStatus(ctx context.Context) (map[int]FloorStatus, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	status := make(map[int]FloorStatus, FloorCount)
	for floor := 1; floor <= FloorCount; floor++ {
		var total, occupied int64
		if err := db.Model(&ParkingSlot{}).Where("floor = ?", floor).Count(&total).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&ParkingSlot{}).
			Where("floor = ? AND is_occupied = ?", floor, true).Count(&occupied).Error; err != nil {
			return nil, err
		}

		var details []OccupiedSlot
		err := db.Model(&ParkingSlot{}).
			Select("parking_slots.slot_code, vehicles.license_plate, vehicles.brand_corrected AS brand, vehicles.model_corrected AS model, vehicles.weight, vehicles.entry_time").
			Joins("LEFT JOIN vehicles ON parking_slots.vehicle_id = vehicles.id").
			Where("parking_slots.floor = ? AND parking_slots.is_occupied = ?", floor, true).
			Order("parking_slots.id").
			Scan(&details).Error
		if err != nil {
			return nil, err
		}

		status[floor] = FloorStatus{
			Total:         int(total),
			Occupied:      int(occupied),
			Available:     int(total - occupied),
			OccupiedSlots: details,
		}
	}
	return status, nil
}

func (r *Repo) Statistics(ctx context.Context) (*SystemStats, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	stats := &SystemStats{}
	if err := db.Model(&Vehicle{}).Count(&stats.TotalProcessed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Vehicle{}).Where("status = ?", StatusParked).Count(&stats.CurrentParked).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ParkingSlot{}).Where("is_occupied = ?", false).Count(&stats.AvailableSlots).Error; err != nil {
		return nil, err
	}

	today := startOfDay(time.Now())
	if err := db.Model(&Vehicle{}).Where("entry_time >= ?", today).Count(&stats.TodayEntries).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// startOfDay 当天零点（按 t 所在时区，“今日入场”统计的下界）。
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ClearHistory 只删除已离场的历史行；在场车辆与车位占用不动。
// 离场行不持有车位引用，所以不会留下悬空的占用位。
func (r *Repo) ClearHistory(ctx context.Context) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("status = ?", StatusExited).Delete(&Vehicle{}).Error
}

// ResetSystem 清空车辆表并把所有车位置为空闲，两步在同一事务内。
func (r *Repo) ResetSystem(ctx context.Context) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Vehicle{}).Error; err != nil {
			return err
		}
		return tx.Model(&ParkingSlot{}).Where("1 = 1").
			Updates(map[string]interface{}{"is_occupied": false, "vehicle_id": nil}).Error
	})
}

func (r *Repo) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}

	snap := &Snapshot{ExportTime: time.Now()}
	if err := db.Order("entry_time DESC, id DESC").Find(&snap.Vehicles).Error; err != nil {
		return nil, err
	}
	if err := db.Order("floor, slot_code").Find(&snap.Slots).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&Vehicle{}).Count(&snap.Summary.TotalVehicles).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Vehicle{}).Where("status = ?", StatusParked).Count(&snap.Summary.ParkedVehicles).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ParkingSlot{}).Where("is_occupied = ?", false).Count(&snap.Summary.AvailableSlots).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ParkingSlot{}).Count(&snap.Summary.TotalSlots).Error; err != nil {
		return nil, err
	}
	return snap, nil
}
