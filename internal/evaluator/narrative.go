package evaluator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
)

const (
	subjectiveMaxRunes = 200
	noneReported       = "None reported"
)

// tierText 每个风险等级对应的固定文案
type tierText struct {
	OneLiner   string
	Assessment string
	Plan       string
	SMS        string
	NextSteps  []string
}

var tierTemplates = map[models.RiskLevel]tierText{
	models.RiskRed: {
		OneLiner:   "High-risk check-in: patient reported symptoms that may need urgent attention.",
		Assessment: "Reported symptoms match high-risk criteria; urgent clinical evaluation is recommended.",
		Plan:       "Escalate to the care team immediately and advise emergency evaluation if symptoms persist.",
		SMS:        "Urgent: your loved one reported symptoms that may need immediate medical attention. Please check on them now.",
		NextSteps: []string{
			"Contact the care team or call emergency services now",
			"Do not drive yourself; ask someone to take you",
			"Share this summary with the responding clinician",
		},
	},
	models.RiskYellow: {
		OneLiner:   "Moderate-risk check-in: some symptoms warrant closer monitoring.",
		Assessment: "Reported symptoms suggest a moderate concern that should be monitored.",
		Plan:       "Follow up within 24 hours and reassess symptoms and vitals at the next check-in.",
		SMS:        "Heads up: your loved one reported some symptoms today. Please check in with them.",
		NextSteps: []string{
			"Monitor symptoms closely over the next 24 hours",
			"Contact the care team if symptoms persist or get worse",
			"Record vitals again later today",
		},
	},
	models.RiskGreen: {
		OneLiner:   "Stable check-in: no concerning symptoms reported.",
		Assessment: "No high- or medium-risk symptoms identified in this check-in.",
		Plan:       "Continue the current care plan and routine daily check-ins.",
		SMS:        "Good news: today's check-in looks stable. No concerning symptoms were reported.",
		NextSteps: []string{
			"Continue the current care plan",
			"Keep up daily check-ins",
		},
	},
}

// truncateRunes 按字符截断并追加 "..."
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func subjectiveNote(transcript string) string {
	t := strings.TrimSpace(transcript)
	if t == "" {
		return "No transcript provided."
	}
	return truncateRunes(t, subjectiveMaxRunes)
}

func objectiveNote(v models.ClinicalVitals, assessments []string) string {
	findings := "Vitals within normal limits."
	if len(assessments) > 0 {
		findings = "Findings: " + strings.Join(assessments, "; ") + "."
	}
	return fmt.Sprintf("BP %s, HR %s, SpO2 %s, Temp %s, Weight %s. %s",
		v.BP, v.HR, v.SpO2, v.Temp, v.Weight, findings)
}

func assessmentNote(level models.RiskLevel, profile *models.PatientProfile) string {
	text := tierTemplates[level].Assessment
	if profile != nil && len(profile.Conditions) > 0 {
		text += " Known conditions: " + strings.Join(profile.Conditions, ", ") + "."
	}
	return text
}

// copyList 固定列表每次返回新副本，避免调用方修改共享数据
func copyList(in []string) []string {
	return append([]string{}, in...)
}

func orNoneReported(in []string) []string {
	if len(in) == 0 {
		return []string{noneReported}
	}
	return in
}
