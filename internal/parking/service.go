package parking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SmartParkVision/SmartParkVision/internal/catalog"
	"github.com/SmartParkVision/SmartParkVision/internal/common/logger"
	"github.com/google/uuid"
)

// Service 封装车辆生命周期的核心用例（不依赖 HTTP），便于复用和测试。
type Service struct {
	store    Store
	resolver *catalog.Resolver
	log      logger.Logger
}

func NewService(store Store, resolver *catalog.Resolver, log logger.Logger) *Service {
	return &Service{store: store, resolver: resolver, log: log}
}

// OCRText 文本识别的一条候选。
type OCRText struct {
	Text       string
	Confidence float64
}

// IntakeInput 入场处理的入参（识别结果已由外部协作者产出）。
type IntakeInput struct {
	Brand           string // 品牌分类器输出，失败时为 "unknown"
	BrandConfidence float64
	Texts           []OCRText // 文本识别输出，失败时为空
	ImagePath       string
}

// IntakeResult 入场处理结果。
type IntakeResult struct {
	Vehicle      *Vehicle
	Slot         *ParkingSlot
	MatchedModel string  // 解析命中的车型（无命中时为空）
	MatchScore   float64 // 0-100
}

// 车牌模式：2 位数字 + 1-2 位字母 + 4-5 位数字（去除内部空格后匹配）。
var platePattern = regexp.MustCompile(`\d{2}[A-Z]{1,2}\d{4,5}`)

// Intake 入场主流程（Entering -> Parked）：
// 车型模糊匹配 -> 记录解析 -> 重量分层 -> 车位分配（含跨层回退）->
// 车辆行与车位占用一次性原子提交。满场返回 ErrParkingFull，
// 不留下任何部分状态。
func (s *Service) Intake(ctx context.Context, in IntakeInput) (*IntakeResult, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	candidates := make([]string, 0, len(in.Texts))
	for _, t := range in.Texts {
		text := strings.ToUpper(strings.TrimSpace(t.Text))
		if text != "" {
			candidates = append(candidates, text)
		}
	}

	match, matched := s.resolver.SelectModel(candidates)

	var record catalog.Entry
	if matched {
		record = s.resolver.ResolveRecord(in.Brand, match.Model)
	} else {
		record = s.resolver.ResolveRecordByBrand(in.Brand)
	}

	weight := ParseWeight(record.KerbWeight)
	floor := ClassifyFloor(weight)

	now := time.Now()
	v := &Vehicle{
		LicensePlate:   extractPlate(candidates),
		BrandRaw:       in.Brand,
		BrandCorrected: record.Brand,
		ModelRaw:       "Unknown",
		ModelCorrected: record.Model,
		Weight:         weight,
		ImagePath:      in.ImagePath,
		Status:         StatusEntering,
		EntryTime:      now,
	}
	if matched {
		v.ModelRaw = match.Candidate
	}
	if err := ApplyTransition(v, StatusParked, now); err != nil {
		return nil, err
	}

	// 读后写竞争输掉时整体重试一次（拿刷新后的车位表重新分配），
	// 再失败按满场处理。
	slot, err := s.allocateAndCommit(ctx, v, floor)
	if err == ErrSlotOccupied {
		if s.log != nil {
			s.log.Warnf("slot reservation race lost, retrying allocation: plate=%s", v.LicensePlate)
		}
		slot, err = s.allocateAndCommit(ctx, v, floor)
		if err == ErrSlotOccupied {
			err = ErrParkingFull
		}
	}
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.WithFields(map[string]interface{}{
			"plate": v.LicensePlate,
			"brand": v.BrandCorrected,
			"model": v.ModelCorrected,
			"floor": v.DetectedFloor,
			"slot":  v.AssignedSlot,
		}).Info("vehicle parked")
	}

	res := &IntakeResult{Vehicle: v, Slot: slot}
	if matched {
		res.MatchedModel = match.Model
		res.MatchScore = match.Score
	}
	return res, nil
}

// allocateAndCommit 选位并提交。目标楼层没有空位时跨层回退，
// 并把车辆楼层改写为实际拿到的车位所在层。
func (s *Service) allocateAndCommit(ctx context.Context, v *Vehicle, targetFloor int) (*ParkingSlot, error) {
	slot, err := s.store.FindAvailableSlot(ctx, targetFloor)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		slot, err = s.store.FindAnySlot(ctx)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, ErrParkingFull
		}
		if s.log != nil {
			s.log.Infof("floor %d full, fallback to floor %d slot %s", targetFloor, slot.Floor, slot.SlotCode)
		}
	}

	v.ID = 0
	v.DetectedFloor = slot.Floor
	v.AssignedSlot = slot.SlotCode

	if err := s.store.CreateVehicleAndReserve(ctx, v, slot.ID); err != nil {
		return nil, err
	}
	return slot, nil
}

// extractPlate 从候选文本里提取车牌（去内部空格后匹配，先见者优先）；
// 没有命中时生成高概率唯一的占位车牌。
func extractPlate(candidates []string) string {
	for _, c := range candidates {
		compact := strings.ReplaceAll(c, " ", "")
		if m := platePattern.FindString(compact); m != "" {
			return m
		}
	}
	return "UNK_" + uuid.NewString()[:6]
}

// Exit 离场（Parked -> Exited）：按车牌找在场车辆（重复车牌取最近
// 入场），写离场时间并释放车位。
func (s *Service) Exit(ctx context.Context, plate string) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, fmt.Errorf("license_plate required")
	}

	v, err := s.store.FindParkedByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if err := ApplyTransition(v, StatusExited, time.Now()); err != nil {
		return nil, err
	}
	if err := s.store.CompleteExit(ctx, v); err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("vehicle exited: plate=%s slot=%s", v.LicensePlate, v.AssignedSlot)
	}
	return v, nil
}

// Delete 管理删除：任意状态下移除车辆行并释放其车位。
func (s *Service) Delete(ctx context.Context, id uint) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	return s.store.DeleteVehicle(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uint) (*Vehicle, error) {
	return s.store.GetVehicle(ctx, id)
}

func (s *Service) Recent(ctx context.Context, n int) ([]Vehicle, error) {
	return s.store.ListRecent(ctx, n)
}

func (s *Service) AllParked(ctx context.Context) ([]Vehicle, error) {
	return s.store.ListAllParked(ctx)
}

func (s *Service) Status(ctx context.Context) (map[int]FloorStatus, error) {
	return s.store.AggregateStatus(ctx)
}

func (s *Service) Stats(ctx context.Context) (*SystemStats, error) {
	return s.store.Statistics(ctx)
}

// ClearHistory 清历史：只删已离场的行，在场车辆照常。
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.store.ClearHistory(ctx)
}

// Reset 整体复位：清空车辆表，所有车位回到空闲。
func (s *Service) Reset(ctx context.Context) error {
	return s.store.ResetSystem(ctx)
}

func (s *Service) Export(ctx context.Context) (*Snapshot, error) {
	return s.store.ExportSnapshot(ctx)
}
