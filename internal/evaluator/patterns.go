package evaluator

// SymptomPattern transcript 子串 -> 规范化症状标签
type SymptomPattern struct {
	Match string
	Label string
}

// PatternTables 分类规则表，顺序即匹配优先级
type PatternTables struct {
	Symptoms   []SymptomPattern
	HighRisk   []string
	MediumRisk []string
}

// 多个子串可以映射到同一个标签（tired/fatigue/exhausted -> fatigue），
// 同时命中时输出中会出现重复标签，这是预期行为。
var defaultSymptomPatterns = []SymptomPattern{
	{Match: "tired", Label: "fatigue"},
	{Match: "fatigue", Label: "fatigue"},
	{Match: "exhausted", Label: "fatigue"},
	{Match: "headache", Label: "headache"},
	{Match: "dizzy", Label: "dizziness"},
	{Match: "nausea", Label: "nausea"},
	{Match: "vomit", Label: "vomiting"},
	{Match: "cough", Label: "cough"},
	{Match: "fever", Label: "fever"},
	{Match: "short of breath", Label: "shortness of breath"},
	{Match: "swelling", Label: "swelling"},
	{Match: "pain", Label: "pain"},
	{Match: "anxious", Label: "anxiety"},
	{Match: "can't sleep", Label: "insomnia"},
}

var defaultHighRiskTerms = []string{
	"chest pain",
	"difficulty breathing",
	"can't breathe",
	"unconscious",
	"fainted",
	"bleeding",
	"severe pain",
	"slurred speech",
	"suicidal",
}

var defaultMediumRiskTerms = []string{
	"dizzy",
	"nausea",
	"fever",
	"vomit",
	"pain",
	"swelling",
	"short of breath",
	"worse",
	"concerned",
}

// urgent care 触发条件，与风险等级无关，原样输出
var urgentCareTriggers = []string{
	"Chest pain or pressure",
	"Difficulty breathing or shortness of breath at rest",
	"Fainting or loss of consciousness",
	"Sudden confusion, slurred speech, or weakness on one side",
	"Bleeding that will not stop",
}

var caregiverQuestions = []string{
	"How are you feeling compared to yesterday?",
	"Did you take all of your medications today?",
	"Have you noticed any new or worsening symptoms?",
	"Do you need help getting to an appointment?",
}

var demoLimitations = []string{
	"Demo mode: rule-based keyword matching, not a clinical model",
	"Not a medical device and not a substitute for professional medical advice",
	"Only English transcripts are supported",
}

// DefaultTables 返回内置规则表的副本
func DefaultTables() PatternTables {
	return PatternTables{
		Symptoms:   append([]SymptomPattern(nil), defaultSymptomPatterns...),
		HighRisk:   append([]string(nil), defaultHighRiskTerms...),
		MediumRisk: append([]string(nil), defaultMediumRiskTerms...),
	}
}
