package utils

import (
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
)

// GenerateID создает простой уникальный ID (замена UUID для снижения зависимостей)
func GenerateID() string {
	b := make([]byte, 8) // 16 символов hex
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate random ID: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// PrefixedID создает ID с префиксом ("proj_", "drop_" и т.д.),
// чтобы в логах было видно, к какому типу относится сущность.
func PrefixedID(prefix string) string {
	return prefix + GenerateID()
}

// StringToSeed детерминированно превращает строку (например, ID инстанса)
// в int64-зерно для генератора.
func StringToSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
