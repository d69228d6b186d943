package security

import "golang.org/x/crypto/bcrypt"

// Encrypt 对明文密码做 bcrypt 哈希, 入库前调用
func Encrypt(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ValidatePassword 校验明文密码与库内哈希是否匹配
func ValidatePassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
