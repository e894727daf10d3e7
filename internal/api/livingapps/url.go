package livingapps

import "regexp"

// 交叉引用 URL 末尾的 24 位十六进制记录 ID
var recordIDPattern = regexp.MustCompile(`(?i)([a-f0-9]{24})$`)

// ExtractRecordID 从交叉引用 URL 中取出记录 ID
func ExtractRecordID(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	m := recordIDPattern.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractRecordIDPtr 可选字段版本
func ExtractRecordIDPtr(ref *string) (string, bool) {
	if ref == nil {
		return "", false
	}
	return ExtractRecordID(*ref)
}

// CreateRecordURL 生成默认平台上的交叉引用 URL，只做格式化，不校验
func CreateRecordURL(appID, recordID string) string {
	return recordURL(DefaultBaseURL, appID, recordID)
}

func recordURL(baseURL, appID, recordID string) string {
	return baseURL + "/apps/" + appID + "/records/" + recordID
}
