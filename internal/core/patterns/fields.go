package patterns

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Tried in order; within a pattern the last parseable match wins.
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Total\s*:?\s*₹?\s*([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Net Payable\s*:?\s*₹?\s*([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)FAMILY HEALTH PLAN.*?₹?\s*([\d,]+\.?\d*)`),
		regexp.MustCompile(`(\d{6}\.00)`),
	}
	registrationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Registration No\s*:?\s*(\d+)`),
		regexp.MustCompile(`(?i)Reg.*?No.*?(\d{7})`),
	}
	episodePattern = regexp.MustCompile(`(?i)Episode\s*(?:No\.?|Number|ID)?\s*:?\s*([A-Z]*\d[A-Z\d]*)`)

	admissionDatePattern = regexp.MustCompile(`(?i)Admission.*?:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	dischargeDatePattern = regexp.MustCompile(`(?i)Discharge.*?:?\s*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	shortDatePattern     = regexp.MustCompile(`(\d{1,2}-[A-Za-z]{3}-\d{2})`)

	diagnosisPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)DIAGNOSIS[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)Primary Diagnosis[:\s]+([^\n]+)`),
		regexp.MustCompile(`(?i)Principal Diagnosis[:\s]+([^\n]+)`),
	}

	patientNamePattern  = regexp.MustCompile(`(?:Name|Patient)\s*:?\s*([A-Z][A-Z ]+)`)
	hospitalNamePattern = regexp.MustCompile(`([A-Z][A-Z ]+ HOSPITAL)`)
)

// ExtractBill guesses bill fields from raw text.
func (e *Extractor) ExtractBill(text string) Guess {
	var guess Guess
	found := 0

	if amount, ok := findAmount(text); ok {
		guess.Fields.Set("total_amount", amount)
		found++
	}
	if reg := firstSubmatch(text, registrationPatterns...); reg != "" {
		guess.Fields.Set("registration_no", reg)
		found++
	}
	if m := episodePattern.FindStringSubmatch(text); m != nil {
		guess.Fields.Set("episode_no", m[1])
		found++
	}
	if name := findPatientName(text); name != "" {
		guess.Fields.Set("patient_name", name)
		found++
	}
	if hospital := findHospitalName(text); hospital != "" {
		guess.Fields.Set("hospital_name", hospital)
		found++
	}

	guess.Confidence = patternConfidence(found)
	return guess
}

// ExtractDischarge guesses discharge-summary fields from raw text.
func (e *Extractor) ExtractDischarge(text string) Guess {
	var guess Guess
	found := 0

	dates := findDates(text)
	if len(dates) >= 1 {
		guess.Fields.Set("admission_date", dates[0])
		found++
	}
	if len(dates) >= 2 {
		guess.Fields.Set("discharge_date", dates[1])
		found++
	}
	if diagnosis := firstSubmatch(text, diagnosisPatterns...); diagnosis != "" {
		guess.Fields.Set("diagnosis", diagnosis)
		found++
	}
	if name := findPatientName(text); name != "" {
		guess.Fields.Set("patient_name", name)
		found++
	}
	if hospital := findHospitalName(text); hospital != "" {
		guess.Fields.Set("hospital_name", hospital)
		found++
	}

	guess.Confidence = patternConfidence(found)
	return guess
}

func findAmount(text string) (float64, bool) {
	for _, re := range amountPatterns {
		matches := re.FindAllStringSubmatch(text, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			raw := strings.ReplaceAll(matches[i][1], ",", "")
			if amount, err := strconv.ParseFloat(raw, 64); err == nil {
				return amount, true
			}
		}
	}
	return 0, false
}

// findDates collects admission, discharge and short-form dates in that order.
func findDates(text string) []string {
	var dates []string
	for _, re := range []*regexp.Regexp{admissionDatePattern, dischargeDatePattern, shortDatePattern} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			dates = append(dates, m[1])
		}
	}
	return dates
}

func findPatientName(text string) string {
	m := patientNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if len(name) < 3 {
		return ""
	}
	return name
}

func findHospitalName(text string) string {
	m := hospitalNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func firstSubmatch(text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}
