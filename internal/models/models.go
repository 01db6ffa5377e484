package models

import "errors"

// Status 是快取管理器的診斷快照
type Status struct {
	L1Size      int      `json:"l1Size"`
	L1MaxSize   int      `json:"l1MaxSize"`
	L2Available bool     `json:"l2Available"`
	L2State     string   `json:"l2State"`
	Metrics     Snapshot `json:"metrics"`
}

// 定義常見錯誤
var (
	ErrMiss        = errors.New("key not found in cache")
	ErrUnavailable = errors.New("remote cache unavailable")
)
