package model

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// IdentityKey 由 identity 派生去重用的文档 id：xxHash64 的十进制字符串。
// 不同 identity 仍可能碰撞（约 2^-64），接受该风险。
func IdentityKey(identity string) string {
	return strconv.FormatUint(xxhash.Sum64String(identity), 10)
}
