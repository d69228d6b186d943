package utils

import (
	"coinpilot/internal/consts"
	"database/sql/driver"
	"fmt"
	"time"
)

// JsonTime 包装time.Time，序列化为 "2006-01-02 15:04:05" 格式
type JsonTime time.Time

func (t JsonTime) MarshalJSON() ([]byte, error) {
	tm := time.Time(t)
	if tm.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(fmt.Sprintf("\"%s\"", tm.Format(consts.TimeLayout))), nil
}

func (t *JsonTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == `""` || s == "null" {
		*t = JsonTime(time.Time{})
		return nil
	}
	tm, err := time.ParseInLocation(`"`+consts.TimeLayout+`"`, s, time.Local)
	if err != nil {
		return err
	}
	*t = JsonTime(tm)
	return nil
}

// Value 实现gorm写入
func (t JsonTime) Value() (driver.Value, error) {
	tm := time.Time(t)
	if tm.IsZero() {
		return nil, nil
	}
	return tm, nil
}

// Scan 实现gorm读取
func (t *JsonTime) Scan(v interface{}) error {
	if value, ok := v.(time.Time); ok {
		*t = JsonTime(value)
		return nil
	}
	return fmt.Errorf("can not convert %v to timestamp", v)
}

func (t JsonTime) Time() time.Time {
	return time.Time(t)
}
