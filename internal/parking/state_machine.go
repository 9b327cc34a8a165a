package parking

import (
	"fmt"
	"time"
)

// AllowTransition 定义车辆状态机的允许流转关系。
var AllowTransition = map[Status][]Status{
	StatusEntering: {StatusParked},
	StatusParked:   {StatusExited, StatusDeleted},
	StatusExited:   {StatusDeleted},
	// 终态：deleted 不再流转
	StatusDeleted: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对车辆应用状态变更，并维护关键时间字段。
func ApplyTransition(v *Vehicle, to Status, now time.Time) error {
	if v == nil {
		return fmt.Errorf("vehicle is nil")
	}
	from := v.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid vehicle status transition: %s -> %s", from, to)
	}

	v.Status = to

	switch to {
	case StatusParked:
		if v.EntryTime.IsZero() {
			v.EntryTime = now
		}
	case StatusExited:
		if v.ExitTime == nil {
			t := now
			v.ExitTime = &t
		}
	}
	return nil
}
