package parking

import "errors"

// 引擎对外暴露的稳定错误类型。
var (
	ErrParkingFull     = errors.New("parking lot is full")
	ErrSlotOccupied    = errors.New("slot already occupied")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// ErrorKind 返回错误的稳定标识，供传输层映射状态码/错误码。
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrParkingFull):
		return "parking_full"
	case errors.Is(err, ErrSlotOccupied):
		return "slot_occupied"
	case errors.Is(err, ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, ErrVehicleNotFound):
		return "vehicle_not_found"
	default:
		return "internal"
	}
}
