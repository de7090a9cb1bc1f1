package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ResumePrefix 返回某份简历所有导出文件的公共前缀。
func ResumePrefix(userID, resumeID uint) string {
	return fmt.Sprintf("exports/%d/%d/", userID, resumeID)
}

// PDFObjectKey 生成一次导出的对象 key，每次导出使用新的 uuid，不覆盖旧文件。
func PDFObjectKey(userID, resumeID uint) string {
	return ResumePrefix(userID, resumeID) + uuid.NewString() + ".pdf"
}

// DownloadFilename 把简历标题转换为安全的下载文件名。
func DownloadFilename(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "resume"
	}
	return name + ".pdf"
}
