package models

// ClinicalVitals 生命体征快照，所有字段为原始字符串（前端录入），空串表示未记录
type ClinicalVitals struct {
	BP     string `json:"bp"`     // "systolic/diastolic"
	HR     string `json:"hr"`     // 心率
	SpO2   string `json:"spo2"`   // 血氧
	Temp   string `json:"temp"`   // 体温
	Weight string `json:"weight"` // 体重
}

// PatientProfile 可选的患者画像
type PatientProfile struct {
	Age        *int     `json:"age,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
}

// CheckInPayload 一次 check-in 的输入
// 由 check-in 采集流程构造，本层只读不改
type CheckInPayload struct {
	ID                  string          `json:"id"`
	Transcript          string          `json:"transcript"`
	Vitals              ClinicalVitals  `json:"vitals"`
	PriorDaySummary     string          `json:"prior_day_summary,omitempty"`
	PatientProfile      *PatientProfile `json:"patient_profile,omitempty"`
	RetrievedGuidelines []string        `json:"retrieved_guidelines,omitempty"`
}

// AnalyzeRequest POST /api/clinical/analyze 请求体
type AnalyzeRequest struct {
	SessionID       string            `json:"session_id"`
	Payload         CheckInPayload    `json:"payload"`
	FollowUpAnswers map[string]string `json:"followup_answers,omitempty"`
}
