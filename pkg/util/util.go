package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortUUID 生成一个不带中划线的短 UUID
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// GenerateID 生成带前缀的业务 ID，如 CL_xxx / DR_xxx
func GenerateID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, GenerateShortUUID())
}

// GenerateMessageID 生成消息 ID
func GenerateMessageID() string {
	return fmt.Sprintf("M%d%s", time.Now().UnixNano()/1e6, GenerateShortUUID()[:8])
}
