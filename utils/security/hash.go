package security

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// Md5 计算字符串的md5值
func Md5(str string) string {
	sum := md5.Sum([]byte(str))
	return hex.EncodeToString(sum[:])
}

// Sha256 计算字符串的sha256值
func Sha256(str string) string {
	sum := sha256.Sum256([]byte(str))
	return hex.EncodeToString(sum[:])
}
