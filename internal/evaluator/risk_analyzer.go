// Package evaluator 基于关键词规则的 check-in 风险分析（demo provider）
package evaluator

import (
	"strings"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
)

const (
	DemoModelName     = "medgemma-demo"
	DemoPromptVersion = "demo-rules-v1"
)

// RiskAnalyzer 纯函数式分析器：无状态、无 I/O，相同输入得到相同输出
type RiskAnalyzer struct {
	tables PatternTables
}

// NewRiskAnalyzer 使用内置规则表
func NewRiskAnalyzer() *RiskAnalyzer {
	return NewRiskAnalyzerWithTables(DefaultTables())
}

// NewRiskAnalyzerWithTables 使用自定义规则表（用于测试或扩展）
func NewRiskAnalyzerWithTables(tables PatternTables) *RiskAnalyzer {
	return &RiskAnalyzer{tables: tables}
}

// Analyze 生成结构化 care summary，永不失败；空 transcript 得到 green 默认结果
func (a *RiskAnalyzer) Analyze(payload models.CheckInPayload) models.CareSummaryOutput {
	text := strings.ToLower(payload.Transcript)

	symptoms := matchSymptoms(text, a.tables.Symptoms)
	level, redFlags := classifyRisk(text, a.tables.HighRisk, a.tables.MediumRisk)
	adherence := inferAdherence(text)
	assessments := assessVitals(payload.Vitals)
	vitals := normalizeVitals(payload.Vitals)

	notable := append([]string{}, assessments...)
	if prior := strings.TrimSpace(payload.PriorDaySummary); prior != "" {
		notable = append(notable, "Prior check-in: "+prior)
	}

	tpl := tierTemplates[level]
	out := models.CareSummaryOutput{
		PatientSummary: models.PatientSummary{
			OneLiner:       tpl.OneLiner,
			NotableChanges: orNoneReported(notable),
			Symptoms:       orNoneReported(symptoms),
			MedAdherence:   adherence,
			Vitals:         vitals,
		},
		Triage: models.Triage{
			RiskLevel:            level,
			RedFlags:             redFlags,
			RecommendedNextSteps: copyList(tpl.NextSteps),
			WhenToSeekUrgentCare: copyList(urgentCareTriggers),
		},
		CaregiverMessage: models.CaregiverMessage{
			SMSText:        tpl.SMS,
			QuestionsToAsk: copyList(caregiverQuestions),
		},
		ClinicianNoteDraft: models.ClinicianNoteDraft{
			Subjective: subjectiveNote(payload.Transcript),
			Objective:  objectiveNote(vitals, assessments),
			Assessment: assessmentNote(level, payload.PatientProfile),
			Plan:       tpl.Plan,
		},
		ModelMeta: models.ModelMeta{
			Model:         DemoModelName,
			PromptVersion: DemoPromptVersion,
			Limitations:   copyList(demoLimitations),
		},
		ProviderSource: models.SourceDemo,
	}
	out.Normalize()
	return out
}

// matchSymptoms 按规则表顺序输出命中的标签，不去重
func matchSymptoms(text string, patterns []SymptomPattern) []string {
	var out []string
	for _, p := range patterns {
		if strings.Contains(text, p.Match) {
			out = append(out, p.Label)
		}
	}
	return out
}

// classifyRisk red > yellow > green，各层首个命中即停止；
// red 只记录第一个命中的词
func classifyRisk(text string, high, medium []string) (models.RiskLevel, []string) {
	for _, term := range high {
		if strings.Contains(text, term) {
			return models.RiskRed, []string{"Patient reported: " + term}
		}
	}
	for _, term := range medium {
		if strings.Contains(text, term) {
			return models.RiskYellow, []string{}
		}
	}
	return models.RiskGreen, []string{}
}

// inferAdherence good 先于 poor 判断
func inferAdherence(text string) models.MedAdherence {
	if strings.Contains(text, "took") &&
		(strings.Contains(text, "med") || strings.Contains(text, "pill") || strings.Contains(text, "medication")) {
		return models.AdherenceGood
	}
	if strings.Contains(text, "forgot") || strings.Contains(text, "missed") || strings.Contains(text, "didn't take") {
		return models.AdherencePoor
	}
	return models.AdherenceUnknown
}
