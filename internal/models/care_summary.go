package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RiskLevel triage 风险等级
type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

// Valid 是否为合法的风险等级
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskGreen, RiskYellow, RiskRed:
		return true
	}
	return false
}

// MedAdherence 服药依从性
type MedAdherence string

const (
	AdherenceGood    MedAdherence = "good"
	AdherencePoor    MedAdherence = "poor"
	AdherenceUnknown MedAdherence = "unknown"
)

// ProviderSource 标记 summary 的来源
type ProviderSource string

const (
	SourceDemo          ProviderSource = "demo"
	SourceMedGemmaCloud ProviderSource = "medgemma-cloud"
	SourceDemoFallback  ProviderSource = "demo-fallback"
)

// NotRecorded 未记录的生命体征显示文本
const NotRecorded = "not recorded"

// RequiredSections 远端返回必须包含的顶层 key（值必须是非 null 的 JSON object）
var RequiredSections = []string{
	"patient_summary",
	"triage",
	"caregiver_message",
	"clinician_note_draft",
	"model_meta",
}

type PatientSummary struct {
	OneLiner       string         `json:"one_liner"`
	NotableChanges []string       `json:"notable_changes"`
	Symptoms       []string       `json:"symptoms"`
	MedAdherence   MedAdherence   `json:"med_adherence"`
	Vitals         ClinicalVitals `json:"vitals"`
}

type Triage struct {
	RiskLevel            RiskLevel `json:"risk_level"`
	RedFlags             []string  `json:"red_flags"`
	RecommendedNextSteps []string  `json:"recommended_next_steps"`
	WhenToSeekUrgentCare []string  `json:"when_to_seek_urgent_care"`
}

type CaregiverMessage struct {
	SMSText        string   `json:"sms_text"`
	QuestionsToAsk []string `json:"questions_to_ask"`
}

// ClinicianNoteDraft SOAP 格式草稿
type ClinicianNoteDraft struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

type ModelMeta struct {
	Model         string   `json:"model"`
	PromptVersion string   `json:"prompt_version"`
	Limitations   []string `json:"limitations"`
}

// CareSummaryOutput 分析结果，每个请求新建，返回后不再修改
//
// 从 JSON 解码得到的实例会保留原文：序列化时原样输出原文，只覆盖 provider_source，
// 结构体字段仅供本地读取（日志、指标、通知、导出）。
type CareSummaryOutput struct {
	PatientSummary     PatientSummary     `json:"patient_summary"`
	Triage             Triage             `json:"triage"`
	CaregiverMessage   CaregiverMessage   `json:"caregiver_message"`
	ClinicianNoteDraft ClinicianNoteDraft `json:"clinician_note_draft"`
	ModelMeta          ModelMeta          `json:"model_meta"`
	ProviderSource     ProviderSource     `json:"provider_source,omitempty"`

	raw map[string]json.RawMessage
}

// MarshalJSON 有原文时输出原文（provider_source 取当前值），否则按字段输出
func (s CareSummaryOutput) MarshalJSON() ([]byte, error) {
	type plain CareSummaryOutput
	if s.raw == nil {
		return json.Marshal(plain(s))
	}

	doc := make(map[string]json.RawMessage, len(s.raw)+1)
	for k, v := range s.raw {
		doc[k] = v
	}
	delete(doc, "provider_source")
	if s.ProviderSource != "" {
		src, err := json.Marshal(s.ProviderSource)
		if err != nil {
			return nil, err
		}
		doc["provider_source"] = src
	}
	return json.Marshal(doc)
}

// UnmarshalJSON 宽松解码：类型不符的字段跳过（保持零值），原文完整保留
func (s *CareSummaryOutput) UnmarshalJSON(b []byte) error {
	type plain CareSummaryOutput
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	p.raw = doc
	*s = CareSummaryOutput(p)
	return nil
}

// Normalize 把 nil 列表替换为空列表，保证序列化后不出现 null
func (s *CareSummaryOutput) Normalize() {
	s.PatientSummary.NotableChanges = nonNil(s.PatientSummary.NotableChanges)
	s.PatientSummary.Symptoms = nonNil(s.PatientSummary.Symptoms)
	s.Triage.RedFlags = nonNil(s.Triage.RedFlags)
	s.Triage.RecommendedNextSteps = nonNil(s.Triage.RecommendedNextSteps)
	s.Triage.WhenToSeekUrgentCare = nonNil(s.Triage.WhenToSeekUrgentCare)
	s.CaregiverMessage.QuestionsToAsk = nonNil(s.CaregiverMessage.QuestionsToAsk)
	s.ModelMeta.Limitations = nonNil(s.ModelMeta.Limitations)
}

// WithSource 返回打上来源标记的副本
func (s CareSummaryOutput) WithSource(src ProviderSource) CareSummaryOutput {
	s.ProviderSource = src
	return s
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// CoreSections 调用方（client）要求的四个内容 section，model_meta 可缺省
var CoreSections = RequiredSections[:4:4]

// ValidateSections 检查 raw 是一个 JSON object 且 RequiredSections 都是非 null 的 object
func ValidateSections(raw []byte) error {
	return validateObjectKeys(raw, RequiredSections)
}

// ValidateCoreSections 同 ValidateSections，只检查 CoreSections
func ValidateCoreSections(raw []byte) error {
	return validateObjectKeys(raw, CoreSections)
}

func validateObjectKeys(raw []byte, keys []string) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return fmt.Errorf("response is not a JSON object: %w", err)
	}
	if top == nil {
		return fmt.Errorf("response is null")
	}
	for _, key := range keys {
		v, ok := top[key]
		if !ok {
			return fmt.Errorf("missing section %q", key)
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || v[0] != '{' {
			return fmt.Errorf("section %q is not an object", key)
		}
	}
	return nil
}

// SummaryRecord 持久化的一条分析历史
type SummaryRecord struct {
	RecordID       string            `json:"record_id"`
	SessionID      string            `json:"session_id"`
	CheckInID      string            `json:"checkin_id"`
	RiskLevel      RiskLevel         `json:"risk_level"`
	ProviderSource ProviderSource    `json:"provider_source"`
	Summary        CareSummaryOutput `json:"summary"`
	CreatedAt      time.Time         `json:"created_at"`
}
