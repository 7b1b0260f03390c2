package utils

import (
	"crypto/md5"
	"encoding/hex"
	"mime"
	"path/filepath"
)

// CalculateMD5 computes the MD5 hash of a byte slice.
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// AttachmentDisposition 生成下载文件用的 Content-Disposition 头，文件名只保留最后一段
func AttachmentDisposition(fileName string) string {
	name := filepath.Base(fileName)
	if name == "." || name == "/" || name == "" {
		name = "download"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
