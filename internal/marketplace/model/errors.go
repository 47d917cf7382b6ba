package model

import "errors"

var (
	// ErrInit 连接、建库或建集合任一步失败
	ErrInit = errors.New("store initialization failed")

	// ErrFetch 请求 feed 失败或响应不是对象数组
	ErrFetch = errors.New("feed fetch failed")

	// ErrInsert 单条记录写入失败
	ErrInsert = errors.New("document insert failed")

	// ErrNotReady 在 Ready 之外的状态调用 Exists/Insert
	ErrNotReady = errors.New("store writer is not ready")

	ErrMissingIdentity = errors.New("record has no string identity field")

	ErrNotFound = errors.New("document not found")
)
