package evaluator

import (
	"strconv"
	"strings"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
)

const (
	systolicHigh  = 140
	systolicLow   = 90
	heartRateHigh = 100
	heartRateLow  = 60
)

// assessVitals 返回生命体征评估短语；无法解析的值直接跳过
// 血压只看收缩压（"/" 前的部分）
func assessVitals(v models.ClinicalVitals) []string {
	var out []string

	if systolic, ok := leadingInt(strings.SplitN(v.BP, "/", 2)[0]); ok {
		switch {
		case systolic > systolicHigh:
			out = append(out, "elevated blood pressure")
		case systolic < systolicLow:
			out = append(out, "low blood pressure")
		}
	}

	if hr, ok := leadingInt(v.HR); ok {
		switch {
		case hr > heartRateHigh:
			out = append(out, "elevated heart rate")
		case hr < heartRateLow:
			out = append(out, "low heart rate")
		}
	}

	return out
}

// leadingInt 解析开头的整数部分（"150 mmHg" -> 150, "98.6" -> 98），没有数字则失败
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// normalizeVitals 空字段填充 "not recorded"
func normalizeVitals(v models.ClinicalVitals) models.ClinicalVitals {
	return models.ClinicalVitals{
		BP:     orNotRecorded(v.BP),
		HR:     orNotRecorded(v.HR),
		SpO2:   orNotRecorded(v.SpO2),
		Temp:   orNotRecorded(v.Temp),
		Weight: orNotRecorded(v.Weight),
	}
}

func orNotRecorded(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.NotRecorded
	}
	return s
}
